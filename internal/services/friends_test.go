package services

import (
	"net/http"
	"testing"

	"letschat/server/internal/models"
	"letschat/server/internal/utils"
)

func TestAcceptFriendRequestCreatesEmptyDirectChat(t *testing.T) {
	f := newFixture(t)
	me := f.user(t, "Me")
	ann := f.user(t, "Ann")

	req, err := f.svc.Friends.Send(f.ctx, me.ID, ann.ID)
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	sender, _ := f.store.GetUser(f.ctx, me.ID)
	if len(sender.SentFriendRequests) != 1 {
		t.Fatalf("expected the request to be tracked on the sender, got %v", sender.SentFriendRequests)
	}

	res, err := f.svc.Friends.Respond(f.ctx, ann.ID, req.ID, models.RequestAccepted)
	if err != nil {
		t.Fatalf("Respond failed: %v", err)
	}
	if res.Request.Status != models.RequestAccepted || res.ConversationID == "" {
		t.Fatalf("unexpected result %+v", res)
	}

	for _, u := range []*models.User{me, ann} {
		got, _ := f.store.GetUser(f.ctx, u.ID)
		if len(got.Friends) != 1 || len(got.Conversations) != 1 || got.Conversations[0] != res.ConversationID {
			t.Fatalf("unexpected links for %s: %+v", u.FullName, got)
		}
		if len(got.SentFriendRequests) != 0 {
			t.Fatalf("expected sent requests to be cleared, got %v", got.SentFriendRequests)
		}
		if !got.UpdatedAt.Equal(res.Request.UpdatedAt) {
			t.Fatalf("expected %s updated_at from the service clock %v, got %v", u.FullName, res.Request.UpdatedAt, got.UpdatedAt)
		}
	}

	page, err := f.svc.Feed.GetAllChats(f.ctx, ann.ID, 0)
	if err != nil {
		t.Fatalf("GetAllChats failed: %v", err)
	}
	if len(page.Chats) != 1 {
		t.Fatalf("expected one chat, got %d", len(page.Chats))
	}
	chat := page.Chats[0]
	if chat.ID != res.ConversationID || chat.IsGroup || chat.LastMessage != nil || chat.UnreadMessages != 0 {
		t.Fatalf("unexpected chat %+v", chat)
	}
	if chat.Name != "Me" {
		t.Fatalf("expected the counterpart name, got %q", chat.Name)
	}
}

func TestRespondFriendRequestRules(t *testing.T) {
	f := newFixture(t)
	me := f.user(t, "Me")
	ann := f.user(t, "Ann")
	bob := f.user(t, "Bob")

	req, _ := f.svc.Friends.Send(f.ctx, me.ID, ann.ID)

	_, err := f.svc.Friends.Respond(f.ctx, bob.ID, req.ID, models.RequestAccepted)
	wantStatus(t, err, http.StatusForbidden)

	_, err = f.svc.Friends.Respond(f.ctx, ann.ID, req.ID, "maybe")
	wantStatus(t, err, http.StatusBadRequest)

	if _, err := f.svc.Friends.Respond(f.ctx, ann.ID, req.ID, models.RequestAccepted); err != nil {
		t.Fatalf("Respond failed: %v", err)
	}
	_, err = f.svc.Friends.Respond(f.ctx, ann.ID, req.ID, models.RequestRejected)
	wantStatus(t, err, http.StatusConflict)
}

func TestRejectDeletesRequest(t *testing.T) {
	f := newFixture(t)
	me := f.user(t, "Me")
	ann := f.user(t, "Ann")

	req, _ := f.svc.Friends.Send(f.ctx, me.ID, ann.ID)
	if _, err := f.svc.Friends.Respond(f.ctx, ann.ID, req.ID, models.RequestRejected); err != nil {
		t.Fatalf("Respond failed: %v", err)
	}

	_, err := f.svc.Friends.Respond(f.ctx, ann.ID, req.ID, models.RequestAccepted)
	wantStatus(t, err, http.StatusNotFound)

	if _, err := f.svc.Friends.Send(f.ctx, me.ID, ann.ID); err != nil {
		t.Fatalf("expected a rejected request to be sendable again, got %v", err)
	}
}

func TestSendFriendRequestRules(t *testing.T) {
	f := newFixture(t)
	me := f.user(t, "Me")
	ann := f.user(t, "Ann")
	bob := f.user(t, "Bob")
	f.befriend(t, me, bob)

	_, err := f.svc.Friends.Send(f.ctx, me.ID, me.ID)
	wantStatus(t, err, http.StatusBadRequest)

	_, err = f.svc.Friends.Send(f.ctx, me.ID, bob.ID)
	wantStatus(t, err, http.StatusBadRequest)

	_, err = f.svc.Friends.Send(f.ctx, me.ID, utils.NewID())
	wantStatus(t, err, http.StatusNotFound)

	if _, err := f.svc.Friends.Send(f.ctx, me.ID, ann.ID); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	_, err = f.svc.Friends.Send(f.ctx, me.ID, ann.ID)
	wantStatus(t, err, http.StatusConflict)

	_, err = f.svc.Friends.Send(f.ctx, ann.ID, me.ID)
	wantStatus(t, err, http.StatusBadRequest)
}

func TestIncomingSentAndSuggestions(t *testing.T) {
	f := newFixture(t)
	me := f.user(t, "Me")
	ann := f.user(t, "Ann")
	bob := f.user(t, "Bob")
	cat := f.user(t, "Cat")
	dan := f.user(t, "Dan")
	f.befriend(t, me, dan)

	if _, err := f.svc.Friends.Send(f.ctx, ann.ID, me.ID); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if _, err := f.svc.Friends.Send(f.ctx, me.ID, bob.ID); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	incoming, err := f.svc.Friends.Incoming(f.ctx, me.ID)
	if err != nil || len(incoming) != 1 || incoming[0].User.ID != ann.ID {
		t.Fatalf("Incoming = %+v, %v", incoming, err)
	}

	sent, err := f.svc.Friends.Sent(f.ctx, me.ID)
	if err != nil {
		t.Fatalf("Sent failed: %v", err)
	}
	if len(sent) != 2 {
		t.Fatalf("expected the pending and the accepted request, got %+v", sent)
	}
	if sent[0].User.ID != bob.ID || sent[0].Status != models.RequestPending {
		t.Fatalf("expected the newest request first, got %+v", sent[0])
	}

	suggestions, err := f.svc.Friends.Suggestions(f.ctx, me.ID)
	if err != nil {
		t.Fatalf("Suggestions failed: %v", err)
	}
	if len(suggestions) != 1 || suggestions[0].ID != cat.ID {
		t.Fatalf("expected only Cat, got %+v", suggestions)
	}
}
