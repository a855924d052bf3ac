package services

import (
	"net/http"
	"testing"
	"time"

	"letschat/server/internal/models"
	"letschat/server/internal/utils"
)

func TestHistoryNewestPageThenOlder(t *testing.T) {
	f := newFixture(t)
	me := f.user(t, "Me")
	ann := f.user(t, "Ann")
	conv := f.befriend(t, me, ann)

	var sent []*models.MessageWithSender
	for i := 1; i <= 15; i++ {
		sent = append(sent, f.send(t, ann, conv, "message"))
	}

	view, err := f.svc.History.OpenConversation(f.ctx, me.ID, conv, 10)
	if err != nil {
		t.Fatalf("OpenConversation failed: %v", err)
	}
	msgs := flatten(view.Messages)
	if len(msgs) != 10 || !view.HasMore {
		t.Fatalf("expected 10 messages with more, got %d (hasMore=%v)", len(msgs), view.HasMore)
	}
	if msgs[0].ID != sent[5].ID || msgs[9].ID != sent[14].ID {
		t.Fatalf("expected messages #6 to #15 in order")
	}
	if view.OtherUser == nil || view.OtherUser.ID != ann.ID || view.IsGroup {
		t.Fatalf("expected the direct header to show Ann, got %+v", view.OtherUser)
	}

	older, err := f.svc.History.OlderMessages(f.ctx, me.ID, conv, msgs[0].ID, 10)
	if err != nil {
		t.Fatalf("OlderMessages failed: %v", err)
	}
	olderMsgs := flatten(older.Messages)
	if len(olderMsgs) != 5 || older.HasMore {
		t.Fatalf("expected 5 older messages and no more, got %d (hasMore=%v)", len(olderMsgs), older.HasMore)
	}
	for i, m := range olderMsgs {
		if m.ID != sent[i].ID {
			t.Fatalf("older message %d = %s, want %s", i, m.ID, sent[i].ID)
		}
	}

	none, err := f.svc.History.OlderMessages(f.ctx, me.ID, conv, sent[0].ID, 10)
	if err != nil {
		t.Fatalf("OlderMessages at the start failed: %v", err)
	}
	if len(none.Messages) != 0 || none.HasMore {
		t.Fatalf("expected an empty page, got %+v", none)
	}
}

func TestHistoryOlderHasMore(t *testing.T) {
	f := newFixture(t)
	me := f.user(t, "Me")
	ann := f.user(t, "Ann")
	conv := f.befriend(t, me, ann)

	var sent []*models.MessageWithSender
	for i := 0; i < 12; i++ {
		sent = append(sent, f.send(t, ann, conv, "m"))
	}

	page, err := f.svc.History.OlderMessages(f.ctx, me.ID, conv, sent[11].ID, 5)
	if err != nil {
		t.Fatalf("OlderMessages failed: %v", err)
	}
	msgs := flatten(page.Messages)
	if len(msgs) != 5 || !page.HasMore {
		t.Fatalf("expected 5 with more, got %d (hasMore=%v)", len(msgs), page.HasMore)
	}
	if msgs[0].ID != sent[6].ID || msgs[4].ID != sent[10].ID {
		t.Fatal("expected the five messages right before the cursor in chronological order")
	}
}

func TestHistoryGroupsByDay(t *testing.T) {
	f := newFixture(t)
	me := f.user(t, "Me")
	ann := f.user(t, "Ann")
	conv := f.befriend(t, me, ann)

	f.clock.Set(time.Date(2024, 3, 1, 23, 59, 58, 0, time.UTC))
	f.send(t, ann, conv, "late")
	f.send(t, me, conv, "later")
	f.send(t, ann, conv, "next day")

	view, err := f.svc.History.OpenConversation(f.ctx, me.ID, conv, 10)
	if err != nil {
		t.Fatalf("OpenConversation failed: %v", err)
	}
	if len(view.Messages) != 2 {
		t.Fatalf("expected 2 day groups, got %d", len(view.Messages))
	}
	if view.Messages[0].Date != "01/03/2024" || len(view.Messages[0].Messages) != 2 {
		t.Fatalf("unexpected first day %+v", view.Messages[0])
	}
	if view.Messages[1].Date != "02/03/2024" || view.Messages[1].Messages[0].Text != "next day" {
		t.Fatalf("unexpected second day %+v", view.Messages[1])
	}
}

func TestHistoryDayKeyUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*3600)
	ts := time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)
	if got := dayKey(ts, loc); got != "02/03/2024" {
		t.Fatalf("dayKey = %s", got)
	}
	if got := dayKey(ts, time.UTC); got != "01/03/2024" {
		t.Fatalf("dayKey = %s", got)
	}
}

func TestHistoryExcludesMessagesDeletedForViewer(t *testing.T) {
	f := newFixture(t)
	me := f.user(t, "Me")
	ann := f.user(t, "Ann")
	conv := f.befriend(t, me, ann)

	var sent []*models.MessageWithSender
	for i := 0; i < 11; i++ {
		sent = append(sent, f.send(t, ann, conv, "m"))
	}
	if err := f.svc.Messages.DeleteForMe(f.ctx, me.ID, sent[0].ID); err != nil {
		t.Fatalf("DeleteForMe failed: %v", err)
	}

	view, err := f.svc.History.OpenConversation(f.ctx, me.ID, conv, 10)
	if err != nil {
		t.Fatalf("OpenConversation failed: %v", err)
	}
	if len(flatten(view.Messages)) != 10 || view.HasMore {
		t.Fatalf("expected the hidden message to leave exactly one page, hasMore=%v", view.HasMore)
	}

	view, _ = f.svc.History.OpenConversation(f.ctx, ann.ID, conv, 10)
	if !view.HasMore {
		t.Fatal("expected the sender to still see all 11 messages")
	}
}

func TestHistoryAccessRules(t *testing.T) {
	f := newFixture(t)
	me := f.user(t, "Me")
	ann := f.user(t, "Ann")
	outsider := f.user(t, "Outsider")
	conv := f.befriend(t, me, ann)
	other := f.befriend(t, ann, outsider)
	msg := f.send(t, ann, other, "elsewhere")

	_, err := f.svc.History.OpenConversation(f.ctx, outsider.ID, conv, 10)
	wantStatus(t, err, http.StatusForbidden)

	_, err = f.svc.History.OpenConversation(f.ctx, me.ID, utils.NewID(), 10)
	wantStatus(t, err, http.StatusNotFound)

	_, err = f.svc.History.OpenConversation(f.ctx, me.ID, "nope", 10)
	wantStatus(t, err, http.StatusBadRequest)

	_, err = f.svc.History.OlderMessages(f.ctx, me.ID, conv, msg.ID, 10)
	wantStatus(t, err, http.StatusNotFound)

	_, err = f.svc.History.OlderMessages(f.ctx, me.ID, conv, utils.NewID(), 10)
	wantStatus(t, err, http.StatusNotFound)
}

func TestHistoryGroupHeader(t *testing.T) {
	f := newFixture(t)
	me := f.user(t, "Me")
	ann := f.user(t, "Ann")
	f.befriend(t, me, ann)
	group, _ := f.svc.Groups.Create(f.ctx, me.ID, CreateGroupInput{Name: "Crew", Picture: "media/" + me.ID + "/1_x_pic.png"})
	if _, err := f.svc.Groups.AddMembers(f.ctx, me.ID, group.ID, []string{ann.ID}); err != nil {
		t.Fatalf("AddMembers failed: %v", err)
	}

	view, err := f.svc.History.OpenConversation(f.ctx, ann.ID, group.ID, 10)
	if err != nil {
		t.Fatalf("OpenConversation failed: %v", err)
	}
	if !view.IsGroup || view.GroupName != "Crew" || len(view.GroupUsers) != 2 {
		t.Fatalf("unexpected group header %+v", view)
	}
	if !view.GroupUsers[0].IsAdmin || view.GroupUsers[0].ID != me.ID || view.GroupUsers[1].IsAdmin {
		t.Fatalf("expected only the admin flagged, got %+v", view.GroupUsers)
	}
	if view.Picture != "https://files.test/media/"+me.ID+"/1_x_pic.png" {
		t.Fatalf("expected a resolved picture url, got %q", view.Picture)
	}
	if len(view.Messages) != 0 || view.HasMore {
		t.Fatalf("expected an empty history, got %+v", view.Messages)
	}
}
