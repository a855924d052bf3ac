package services

import (
	"net/http"
	"strings"
	"testing"

	"letschat/server/internal/models"
)

func TestSendMessageValidation(t *testing.T) {
	f := newFixture(t)
	me := f.user(t, "Me")
	ann := f.user(t, "Ann")
	bob := f.user(t, "Bob")
	conv := f.befriend(t, me, ann)

	tests := []struct {
		name   string
		from   *models.User
		in     SendMessageInput
		status int
	}{
		{"blank text", me, SendMessageInput{Text: "   "}, http.StatusBadRequest},
		{"unknown type", me, SendMessageInput{Type: "sticker", Text: "hi"}, http.StatusBadRequest},
		{"too long", me, SendMessageInput{Text: strings.Repeat("a", maxMessageLength+1)}, http.StatusBadRequest},
		{"media without key", me, SendMessageInput{Type: models.TypeImage}, http.StatusBadRequest},
		{"foreign media key", me, SendMessageInput{Type: models.TypeImage, MediaKey: "media/" + ann.ID + "/1_a.png"}, http.StatusBadRequest},
		{"traversal key", me, SendMessageInput{Type: models.TypeImage, MediaKey: "media/" + me.ID + "/../x.png"}, http.StatusBadRequest},
		{"not a participant", bob, SendMessageInput{Text: "hi"}, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Messages.Send(f.ctx, tt.from.ID, conv, tt.in)
			wantStatus(t, err, tt.status)
		})
	}
}

func TestSendMediaMessage(t *testing.T) {
	f := newFixture(t)
	me := f.user(t, "Me")
	ann := f.user(t, "Ann")
	conv := f.befriend(t, me, ann)

	key := "media/" + me.ID + "/1700000000000_x_photo.png"
	msg, err := f.svc.Messages.Send(f.ctx, me.ID, conv, SendMessageInput{Type: models.TypeImage, MediaKey: key, Text: "look"})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if msg.MediaURL != "https://files.test/"+key {
		t.Fatalf("unexpected media URL %q", msg.MediaURL)
	}
	if msg.Sender.ID != me.ID || msg.Sender.FullName != "Me" {
		t.Fatalf("unexpected sender %+v", msg.Sender)
	}

	page, _ := f.svc.Feed.GetAllChats(f.ctx, ann.ID, 0)
	if page.Chats[0].LastMessage == nil || page.Chats[0].LastMessage.Type != models.TypeImage {
		t.Fatalf("expected the image as last message, got %+v", page.Chats[0].LastMessage)
	}
}

func TestBlockedDirectChat(t *testing.T) {
	f := newFixture(t)
	me := f.user(t, "Me")
	ann := f.user(t, "Ann")
	conv := f.befriend(t, me, ann)

	if err := f.svc.Messages.SetBlocked(f.ctx, ann.ID, conv, true); err != nil {
		t.Fatalf("SetBlocked failed: %v", err)
	}
	_, err := f.svc.Messages.Send(f.ctx, me.ID, conv, SendMessageInput{Text: "hello?"})
	wantStatus(t, err, http.StatusForbidden)
	_, err = f.svc.Messages.Send(f.ctx, ann.ID, conv, SendMessageInput{Text: "hello?"})
	wantStatus(t, err, http.StatusForbidden)

	page, _ := f.svc.Feed.GetAllChats(f.ctx, ann.ID, 0)
	if !page.Chats[0].IsBlocked {
		t.Fatal("expected the chat to be blocked for Ann")
	}
	page, _ = f.svc.Feed.GetAllChats(f.ctx, me.ID, 0)
	if page.Chats[0].IsBlocked {
		t.Fatal("expected the chat not to be blocked for Me")
	}

	if err := f.svc.Messages.SetBlocked(f.ctx, ann.ID, conv, false); err != nil {
		t.Fatalf("unblock failed: %v", err)
	}
	f.send(t, me, conv, "back again")
}

func TestMarkSeenClearsUnread(t *testing.T) {
	f := newFixture(t)
	me := f.user(t, "Me")
	ann := f.user(t, "Ann")
	conv := f.befriend(t, me, ann)
	f.send(t, ann, conv, "one")
	f.send(t, ann, conv, "two")
	f.send(t, me, conv, "mine")

	n, err := f.svc.Messages.MarkSeen(f.ctx, me.ID, conv)
	if err != nil {
		t.Fatalf("MarkSeen failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 messages marked, got %d", n)
	}
	page, _ := f.svc.Feed.GetAllChats(f.ctx, me.ID, 0)
	if page.Chats[0].UnreadMessages != 0 {
		t.Fatalf("expected no unread messages, got %d", page.Chats[0].UnreadMessages)
	}
	page, _ = f.svc.Feed.GetAllChats(f.ctx, ann.ID, 0)
	if page.Chats[0].UnreadMessages != 1 {
		t.Fatalf("expected Ann to have 1 unread message, got %d", page.Chats[0].UnreadMessages)
	}
}

func TestDeleteForMe(t *testing.T) {
	f := newFixture(t)
	me := f.user(t, "Me")
	ann := f.user(t, "Ann")
	bob := f.user(t, "Bob")
	conv := f.befriend(t, me, ann)
	msg := f.send(t, ann, conv, "oops")

	err := f.svc.Messages.DeleteForMe(f.ctx, bob.ID, msg.ID)
	wantStatus(t, err, http.StatusForbidden)

	if err := f.svc.Messages.DeleteForMe(f.ctx, me.ID, msg.ID); err != nil {
		t.Fatalf("DeleteForMe failed: %v", err)
	}
	view, _ := f.svc.History.OpenConversation(f.ctx, me.ID, conv, 0)
	if len(flatten(view.Messages)) != 0 {
		t.Fatal("expected the message to be hidden from Me")
	}
	view, _ = f.svc.History.OpenConversation(f.ctx, ann.ID, conv, 0)
	if len(flatten(view.Messages)) != 1 {
		t.Fatal("expected Ann to still see the message")
	}
}
