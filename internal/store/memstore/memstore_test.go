package memstore

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"letschat/server/internal/models"
	"letschat/server/internal/store"
	"letschat/server/internal/store/storetest"
)

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestStoreBehaviour(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return New() })
}

func seedUsers(t *testing.T, s *Store, ids ...string) {
	t.Helper()
	for _, id := range ids {
		err := s.CreateUser(context.Background(), &models.User{
			ID:       id,
			FullName: "User " + id,
			UserName: "#" + id,
			Email:    id + "@example.com",
		})
		if err != nil {
			t.Fatalf("CreateUser(%s) failed: %v", id, err)
		}
	}
}

func seedDirect(t *testing.T, s *Store, id, a, b string, at time.Time) {
	t.Helper()
	conv, err := models.NewDirectConversation(id, a, b, at)
	if err != nil {
		t.Fatalf("NewDirectConversation failed: %v", err)
	}
	if err := s.CreateConversation(context.Background(), conv); err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}
}

func seedMessage(t *testing.T, s *Store, id, convID, sender string, at time.Time) {
	t.Helper()
	err := s.InsertMessage(context.Background(), &models.Message{
		ID:             id,
		ConversationID: convID,
		SenderID:       sender,
		Type:           models.TypeText,
		Text:           "msg " + id,
		CreatedAt:      at,
	})
	if err != nil {
		t.Fatalf("InsertMessage failed: %v", err)
	}
}

func TestListFeedOrdering(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedUsers(t, s, "u", "a", "b", "c", "d")

	seedDirect(t, s, "c1", "u", "a", base)
	seedDirect(t, s, "c2", "u", "b", base.Add(time.Minute))
	seedDirect(t, s, "c3", "u", "c", base.Add(2*time.Minute))
	seedDirect(t, s, "c4", "a", "d", base)

	seedMessage(t, s, "m1", "c1", "a", base.Add(time.Hour))
	seedMessage(t, s, "m2", "c2", "b", base.Add(30*time.Minute))

	rows, err := s.ListFeed(ctx, store.FeedQuery{UserID: "u"})
	if err != nil {
		t.Fatalf("ListFeed failed: %v", err)
	}

	var got []string
	for _, r := range rows {
		got = append(got, r.Conversation.ID)
	}
	if fmt.Sprint(got) != "[c1 c2 c3]" {
		t.Fatalf("unexpected order %v", got)
	}
	if rows[0].LastSender == nil || rows[0].LastSender.ID != "a" {
		t.Fatalf("expected sender summary on last message, got %+v", rows[0].LastSender)
	}
	if rows[2].LastMessage != nil {
		t.Fatal("expected no last message for c3")
	}
}

func TestListFeedHidesMessagesDeletedForViewer(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedUsers(t, s, "u", "a")
	seedDirect(t, s, "c1", "u", "a", base)
	seedMessage(t, s, "m1", "c1", "a", base.Add(time.Minute))
	seedMessage(t, s, "m2", "c1", "a", base.Add(2*time.Minute))

	if err := s.DeleteMessageFor(ctx, "m2", "u"); err != nil {
		t.Fatalf("DeleteMessageFor failed: %v", err)
	}

	rows, _ := s.ListFeed(ctx, store.FeedQuery{UserID: "u"})
	if rows[0].LastMessage.ID != "m1" {
		t.Fatalf("expected m1 for u, got %s", rows[0].LastMessage.ID)
	}
	rows, _ = s.ListFeed(ctx, store.FeedQuery{UserID: "a"})
	if rows[0].LastMessage.ID != "m2" {
		t.Fatalf("expected m2 for a, got %s", rows[0].LastMessage.ID)
	}
}

func TestListFeedSearchAndExclude(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedUsers(t, s, "u", "a")
	seedDirect(t, s, "c1", "u", "a", base)

	group, _ := models.NewGroupConversation("g1", models.GroupInfo{Name: "Trip Planning", AdminID: "u"}, base)
	if err := s.CreateConversation(ctx, group); err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	rows, _ := s.ListFeed(ctx, store.FeedQuery{UserID: "u", Search: "TRIP"})
	if len(rows) != 1 || rows[0].Conversation.ID != "g1" {
		t.Fatalf("expected only g1, got %+v", rows)
	}
	rows, _ = s.ListFeed(ctx, store.FeedQuery{UserID: "u", Search: "user a"})
	if len(rows) != 1 || rows[0].Conversation.ID != "c1" {
		t.Fatalf("expected only c1, got %+v", rows)
	}
	rows, _ = s.ListFeed(ctx, store.FeedQuery{UserID: "u", Exclude: []string{"g1"}})
	if len(rows) != 1 || rows[0].Conversation.ID != "c1" {
		t.Fatalf("expected g1 excluded, got %+v", rows)
	}
	rows, _ = s.ListFeed(ctx, store.FeedQuery{UserID: "u", Kind: models.KindGroup})
	if len(rows) != 1 || rows[0].Conversation.ID != "g1" {
		t.Fatalf("expected group only, got %+v", rows)
	}
}

func TestListVisibleMessagesBefore(t *testing.T) {
	ctx := context.Background()
	s := New()
	for i := 1; i <= 5; i++ {
		seedMessage(t, s, fmt.Sprintf("m%d", i), "c1", "a", base.Add(time.Duration(i)*time.Minute))
	}
	cursor, _ := s.GetMessage(ctx, "m4")

	msgs, err := s.ListVisibleMessages(ctx, store.MessageQuery{ConversationID: "c1", ViewerID: "u", Before: cursor, Limit: 2})
	if err != nil {
		t.Fatalf("ListVisibleMessages failed: %v", err)
	}
	if len(msgs) != 2 || msgs[0].ID != "m3" || msgs[1].ID != "m2" {
		t.Fatalf("expected [m3 m2], got %+v", msgs)
	}

	msgs, _ = s.ListVisibleMessages(ctx, store.MessageQuery{ConversationID: "c1", ViewerID: "u", Skip: 3, Limit: 10})
	if len(msgs) != 2 || msgs[0].ID != "m4" || msgs[1].ID != "m5" {
		t.Fatalf("expected [m4 m5], got %+v", msgs)
	}
}

func TestCountUnreadAndMarkSeen(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedMessage(t, s, "m1", "c1", "a", base)
	seedMessage(t, s, "m2", "c1", "a", base.Add(time.Second))
	seedMessage(t, s, "m3", "c1", "u", base.Add(2*time.Second))
	seedMessage(t, s, "m4", "c2", "a", base)

	counts, err := s.CountUnread(ctx, "u", []string{"c1"})
	if err != nil {
		t.Fatalf("CountUnread failed: %v", err)
	}
	if counts["c1"] != 2 || len(counts) != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}

	n, _ := s.MarkSeen(ctx, "c1", "u")
	if n != 2 {
		t.Fatalf("expected 2 marked, got %d", n)
	}
	counts, _ = s.CountUnread(ctx, "u", []string{"c1", "c2"})
	if _, ok := counts["c1"]; ok {
		t.Fatalf("expected c1 absent, got %v", counts)
	}
	if counts["c2"] != 1 {
		t.Fatalf("expected c2 unread 1, got %v", counts)
	}
}

func TestFriendRequestPendingUniqueness(t *testing.T) {
	ctx := context.Background()
	s := New()
	req := &models.FriendRequest{ID: "r1", SentBy: "a", SentTo: "b", Status: models.RequestPending}
	if err := s.CreateFriendRequest(ctx, req); err != nil {
		t.Fatalf("CreateFriendRequest failed: %v", err)
	}
	dup := &models.FriendRequest{ID: "r2", SentBy: "a", SentTo: "b", Status: models.RequestPending}
	if err := s.CreateFriendRequest(ctx, dup); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	if _, err := s.ResolveFriendRequest(ctx, "r1", "a", models.RequestAccepted, base); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected sender to be refused, got %v", err)
	}
	if _, err := s.ResolveFriendRequest(ctx, "r1", "b", models.RequestAccepted, base); err != nil {
		t.Fatalf("ResolveFriendRequest failed: %v", err)
	}
	if _, err := s.ResolveFriendRequest(ctx, "r1", "b", models.RequestAccepted, base); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected second resolve to match nothing, got %v", err)
	}
	if err := s.CreateFriendRequest(ctx, dup); err != nil {
		t.Fatalf("expected a new pending request after acceptance, got %v", err)
	}
}

func TestLeaveGroupTransfersAdmin(t *testing.T) {
	ctx := context.Background()
	s := New()
	group, _ := models.NewGroupConversation("g1", models.GroupInfo{Name: "G", AdminID: "a"}, base)
	group.Participants = append(group.Participants, "b", "c")
	_ = s.CreateConversation(ctx, group)

	if _, err := s.LeaveGroup(ctx, "g1", "b", "c", base); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected non-admin handover to be refused, got %v", err)
	}
	conv, err := s.LeaveGroup(ctx, "g1", "a", "b", base)
	if err != nil {
		t.Fatalf("LeaveGroup failed: %v", err)
	}
	if conv.Group.AdminID != "b" || conv.HasParticipant("a") {
		t.Fatalf("unexpected group after leave: %+v", conv)
	}
}

func TestRemoveConversationFromAllStampsMembersOnly(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedUsers(t, s, "a", "b", "c")
	at := base.Add(time.Hour)

	_ = s.AddConversation(ctx, []string{"a"}, "g1", base)
	_ = s.SetConversationBlocked(ctx, "b", "g1", true, base)
	if err := s.RemoveConversationFromAll(ctx, "g1", at); err != nil {
		t.Fatalf("RemoveConversationFromAll failed: %v", err)
	}

	for _, id := range []string{"a", "b"} {
		u, _ := s.GetUser(ctx, id)
		if len(u.Conversations) != 0 || len(u.BlockedConversations) != 0 {
			t.Fatalf("expected %s unlinked, got %+v", id, u)
		}
		if !u.UpdatedAt.Equal(at) {
			t.Fatalf("expected %s updated_at %v, got %v", id, at, u.UpdatedAt)
		}
	}
	if c, _ := s.GetUser(ctx, "c"); !c.UpdatedAt.IsZero() {
		t.Fatalf("expected untouched user, got updated_at %v", c.UpdatedAt)
	}
}
