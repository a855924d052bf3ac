// Package storetest holds a behavioural suite every store.Store backend must
// pass. Backends call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"letschat/server/internal/models"
	"letschat/server/internal/store"
	"letschat/server/internal/utils"
)

// Factory returns an empty store for one subtest.
type Factory func(t *testing.T) store.Store

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func Run(t *testing.T, newStore Factory) {
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("Feed", func(t *testing.T) { testFeed(t, newStore(t)) })
	t.Run("Messages", func(t *testing.T) { testMessages(t, newStore(t)) })
	t.Run("Groups", func(t *testing.T) { testGroups(t, newStore(t)) })
	t.Run("FriendRequests", func(t *testing.T) { testFriendRequests(t, newStore(t)) })
}

func createUser(t *testing.T, s store.Store, name string) *models.User {
	t.Helper()
	id := utils.NewID()
	u := &models.User{
		ID:        id,
		FullName:  name,
		UserName:  "#" + id,
		Email:     id + "@example.com",
		Bio:       models.DefaultBio,
		CreatedAt: base,
		UpdatedAt: base,
	}
	if err := s.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	return u
}

func createDirect(t *testing.T, s store.Store, a, b string, at time.Time) *models.Conversation {
	t.Helper()
	conv, err := models.NewDirectConversation(utils.NewID(), a, b, at)
	if err != nil {
		t.Fatalf("NewDirectConversation failed: %v", err)
	}
	if err := s.CreateConversation(context.Background(), conv); err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}
	return conv
}

func insertMessage(t *testing.T, s store.Store, convID, sender string, at time.Time) *models.Message {
	t.Helper()
	msg := &models.Message{
		ID:             utils.NewID(),
		ConversationID: convID,
		SenderID:       sender,
		Type:           models.TypeText,
		Text:           "hello",
		CreatedAt:      at,
		UpdatedAt:      at,
	}
	if err := s.InsertMessage(context.Background(), msg); err != nil {
		t.Fatalf("InsertMessage failed: %v", err)
	}
	return msg
}

func testUsers(t *testing.T, s store.Store) {
	ctx := context.Background()
	alice := createUser(t, s, "Alice")
	bob := createUser(t, s, "Bob")

	dup := *alice
	dup.ID = utils.NewID()
	if err := s.CreateUser(ctx, &dup); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for a reused email, got %v", err)
	}

	got, err := s.GetUserByEmail(ctx, alice.Email)
	if err != nil || got.ID != alice.ID {
		t.Fatalf("GetUserByEmail = %+v, %v", got, err)
	}
	if _, err := s.GetUser(ctx, utils.NewID()); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	taken, err := s.UserNameTaken(ctx, bob.UserName)
	if err != nil || !taken {
		t.Fatalf("UserNameTaken = %v, %v", taken, err)
	}

	linkedAt := base.Add(time.Minute)
	if err := s.LinkFriend(ctx, alice.ID, bob.ID, "", linkedAt); err != nil {
		t.Fatalf("LinkFriend failed: %v", err)
	}
	if err := s.LinkFriend(ctx, alice.ID, bob.ID, "", linkedAt); err != nil {
		t.Fatalf("LinkFriend twice failed: %v", err)
	}
	got, _ = s.GetUser(ctx, alice.ID)
	if len(got.Friends) != 1 || got.Friends[0] != bob.ID {
		t.Fatalf("expected one friend, got %v", got.Friends)
	}
	if !got.UpdatedAt.Equal(linkedAt) {
		t.Fatalf("expected updated_at %v, got %v", linkedAt, got.UpdatedAt)
	}

	suggestions, err := s.SuggestUsers(ctx, []string{alice.ID, bob.ID}, 10)
	if err != nil || len(suggestions) != 0 {
		t.Fatalf("SuggestUsers = %v, %v", suggestions, err)
	}

	if err := s.SetConversationBlocked(ctx, alice.ID, "c", true, base.Add(2*time.Minute)); err != nil {
		t.Fatalf("SetConversationBlocked failed: %v", err)
	}
	got, _ = s.GetUser(ctx, alice.ID)
	if !got.HasBlocked("c") {
		t.Fatal("expected conversation to be blocked")
	}
	unblockedAt := base.Add(3 * time.Minute)
	_ = s.SetConversationBlocked(ctx, alice.ID, "c", false, unblockedAt)
	got, _ = s.GetUser(ctx, alice.ID)
	if got.HasBlocked("c") {
		t.Fatal("expected conversation to be unblocked")
	}
	if !got.UpdatedAt.Equal(unblockedAt) {
		t.Fatalf("expected updated_at %v, got %v", unblockedAt, got.UpdatedAt)
	}
}

func testFeed(t *testing.T, s store.Store) {
	ctx := context.Background()
	me := createUser(t, s, "Me")
	ann := createUser(t, s, "Ann Trip")
	ben := createUser(t, s, "Ben")
	cat := createUser(t, s, "Cat")

	quiet := createDirect(t, s, me.ID, cat.ID, base.Add(3*time.Minute))
	older := createDirect(t, s, me.ID, ann.ID, base)
	newer := createDirect(t, s, me.ID, ben.ID, base.Add(time.Minute))
	foreign := createDirect(t, s, ann.ID, ben.ID, base)

	insertMessage(t, s, older.ID, ann.ID, base.Add(2*time.Hour))
	hidden := insertMessage(t, s, older.ID, ann.ID, base.Add(3*time.Hour))
	insertMessage(t, s, newer.ID, ben.ID, base.Add(time.Hour))
	insertMessage(t, s, foreign.ID, ann.ID, base.Add(4*time.Hour))
	if err := s.DeleteMessageFor(ctx, hidden.ID, me.ID); err != nil {
		t.Fatalf("DeleteMessageFor failed: %v", err)
	}

	rows, err := s.ListFeed(ctx, store.FeedQuery{UserID: me.ID, Limit: 10})
	if err != nil {
		t.Fatalf("ListFeed failed: %v", err)
	}
	want := []string{older.ID, newer.ID, quiet.ID}
	if len(rows) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(rows))
	}
	for i, id := range want {
		if rows[i].Conversation.ID != id {
			t.Fatalf("row %d = %s, want %s", i, rows[i].Conversation.ID, id)
		}
	}
	if rows[0].LastMessage == nil || rows[0].LastMessage.ID == hidden.ID {
		t.Fatalf("expected the message deleted for the viewer to be skipped, got %+v", rows[0].LastMessage)
	}
	if rows[0].LastSender == nil || rows[0].LastSender.FullName != "Ann Trip" {
		t.Fatalf("expected sender summary, got %+v", rows[0].LastSender)
	}
	if rows[2].LastMessage != nil {
		t.Fatalf("expected no last message, got %+v", rows[2].LastMessage)
	}

	rows, _ = s.ListFeed(ctx, store.FeedQuery{UserID: me.ID, Exclude: []string{older.ID}, Limit: 1})
	if len(rows) != 1 || rows[0].Conversation.ID != newer.ID {
		t.Fatalf("expected the next conversation after exclusion, got %+v", rows)
	}

	rows, _ = s.ListFeed(ctx, store.FeedQuery{UserID: me.ID, Search: "trip"})
	if len(rows) != 1 || rows[0].Conversation.ID != older.ID {
		t.Fatalf("expected search to match the counterpart name, got %+v", rows)
	}
	rows, _ = s.ListFeed(ctx, store.FeedQuery{UserID: me.ID, Search: "me"})
	if len(rows) != 0 {
		t.Fatalf("expected the viewer's own name not to match, got %d rows", len(rows))
	}
	rows, _ = s.ListFeed(ctx, store.FeedQuery{UserID: me.ID, Search: "(.*"})
	if len(rows) != 0 {
		t.Fatalf("expected regex characters to be literal, got %d rows", len(rows))
	}

	counts, err := s.CountUnread(ctx, me.ID, []string{older.ID, newer.ID, quiet.ID})
	if err != nil {
		t.Fatalf("CountUnread failed: %v", err)
	}
	if counts[older.ID] != 2 || counts[newer.ID] != 1 {
		t.Fatalf("unexpected unread counts %v", counts)
	}
	if _, ok := counts[quiet.ID]; ok {
		t.Fatalf("expected no entry for a conversation without unread, got %v", counts)
	}
}

func testMessages(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := createUser(t, s, "A")
	b := createUser(t, s, "B")
	conv := createDirect(t, s, a.ID, b.ID, base)

	var msgs []*models.Message
	for i := 0; i < 6; i++ {
		// two messages share each timestamp so the id breaks ties
		msgs = append(msgs, insertMessage(t, s, conv.ID, a.ID, base.Add(time.Duration(i/2)*time.Minute)))
	}

	total, err := s.CountVisibleMessages(ctx, conv.ID, b.ID)
	if err != nil || total != 6 {
		t.Fatalf("CountVisibleMessages = %d, %v", total, err)
	}

	page, err := s.ListVisibleMessages(ctx, store.MessageQuery{ConversationID: conv.ID, ViewerID: b.ID, Skip: 2, Limit: 3})
	if err != nil {
		t.Fatalf("ListVisibleMessages failed: %v", err)
	}
	if len(page) != 3 || page[0].ID != msgs[2].ID || page[2].ID != msgs[4].ID {
		t.Fatalf("unexpected ascending page %+v", page)
	}

	older, err := s.ListVisibleMessages(ctx, store.MessageQuery{ConversationID: conv.ID, ViewerID: b.ID, Before: msgs[3], Limit: 10})
	if err != nil {
		t.Fatalf("ListVisibleMessages before failed: %v", err)
	}
	if len(older) != 3 || older[0].ID != msgs[2].ID || older[2].ID != msgs[0].ID {
		t.Fatalf("unexpected older page %+v", older)
	}

	if err := s.DeleteMessageFor(ctx, msgs[0].ID, b.ID); err != nil {
		t.Fatalf("DeleteMessageFor failed: %v", err)
	}
	total, _ = s.CountVisibleMessages(ctx, conv.ID, b.ID)
	if total != 5 {
		t.Fatalf("expected 5 visible after delete, got %d", total)
	}
	if err := s.DeleteMessageFor(ctx, utils.NewID(), b.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	n, err := s.MarkSeen(ctx, conv.ID, b.ID)
	if err != nil || n != 6 {
		t.Fatalf("MarkSeen = %d, %v", n, err)
	}
	n, _ = s.MarkSeen(ctx, conv.ID, a.ID)
	if n != 0 {
		t.Fatalf("expected the sender to mark nothing, got %d", n)
	}

	deleted, err := s.DeleteConversationMessages(ctx, conv.ID)
	if err != nil || deleted != 6 {
		t.Fatalf("DeleteConversationMessages = %d, %v", deleted, err)
	}
}

func testGroups(t *testing.T, s store.Store) {
	ctx := context.Background()
	admin := createUser(t, s, "Admin")
	member := createUser(t, s, "Member")

	group, err := models.NewGroupConversation(utils.NewID(), models.GroupInfo{Name: "Hikers", AdminID: admin.ID}, base)
	if err != nil {
		t.Fatalf("NewGroupConversation failed: %v", err)
	}
	if err := s.CreateConversation(ctx, group); err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	if _, err := s.UpdateGroup(ctx, group.ID, member.ID, store.GroupPatch{Name: "x"}, base); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected non-admin update to match nothing, got %v", err)
	}
	updatedAt := base.Add(time.Hour)
	updated, err := s.UpdateGroup(ctx, group.ID, admin.ID, store.GroupPatch{Description: "weekend trips"}, updatedAt)
	if err != nil {
		t.Fatalf("UpdateGroup failed: %v", err)
	}
	if updated.Group.Name != "Hikers" || updated.Group.Description != "weekend trips" {
		t.Fatalf("unexpected group %+v", updated.Group)
	}
	if !updated.UpdatedAt.Equal(updatedAt) {
		t.Fatalf("expected updated_at %v, got %v", updatedAt, updated.UpdatedAt)
	}

	conv, err := s.AddParticipants(ctx, group.ID, admin.ID, []string{member.ID, member.ID}, base.Add(2*time.Hour))
	if err != nil || len(conv.Participants) != 2 {
		t.Fatalf("AddParticipants = %+v, %v", conv, err)
	}

	if _, err := s.LeaveGroup(ctx, group.ID, member.ID, admin.ID, base); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected a non-admin handover to match nothing, got %v", err)
	}
	leftAt := base.Add(3 * time.Hour)
	conv, err = s.LeaveGroup(ctx, group.ID, admin.ID, member.ID, leftAt)
	if err != nil {
		t.Fatalf("LeaveGroup failed: %v", err)
	}
	if conv.Group.AdminID != member.ID || conv.HasParticipant(admin.ID) {
		t.Fatalf("unexpected group after leave %+v", conv)
	}
	if !conv.UpdatedAt.Equal(leftAt) {
		t.Fatalf("expected updated_at %v, got %v", leftAt, conv.UpdatedAt)
	}

	if _, err := s.DeleteGroup(ctx, group.ID, admin.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected former admin delete to match nothing, got %v", err)
	}
	if _, err := s.DeleteGroup(ctx, group.ID, member.ID); err != nil {
		t.Fatalf("DeleteGroup failed: %v", err)
	}
	if _, err := s.GetConversation(ctx, group.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected group gone, got %v", err)
	}
}

func testFriendRequests(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := createUser(t, s, "A")
	b := createUser(t, s, "B")

	req := &models.FriendRequest{ID: utils.NewID(), SentBy: a.ID, SentTo: b.ID, Status: models.RequestPending, CreatedAt: base, UpdatedAt: base}
	if err := s.CreateFriendRequest(ctx, req); err != nil {
		t.Fatalf("CreateFriendRequest failed: %v", err)
	}
	again := *req
	again.ID = utils.NewID()
	if err := s.CreateFriendRequest(ctx, &again); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	found, err := s.FindPendingFriendRequest(ctx, a.ID, b.ID)
	if err != nil || found.ID != req.ID {
		t.Fatalf("FindPendingFriendRequest = %+v, %v", found, err)
	}

	incoming, err := s.ListFriendRequests(ctx, store.FriendRequestFilter{SentTo: b.ID, Status: models.RequestPending})
	if err != nil || len(incoming) != 1 {
		t.Fatalf("ListFriendRequests = %v, %v", incoming, err)
	}

	if _, err := s.ResolveFriendRequest(ctx, req.ID, a.ID, models.RequestAccepted, base); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected the sender not to resolve, got %v", err)
	}
	resolvedAt := base.Add(time.Minute)
	resolved, err := s.ResolveFriendRequest(ctx, req.ID, b.ID, models.RequestAccepted, resolvedAt)
	if err != nil || resolved.Status != models.RequestAccepted {
		t.Fatalf("ResolveFriendRequest = %+v, %v", resolved, err)
	}
	if !resolved.UpdatedAt.Equal(resolvedAt) {
		t.Fatalf("expected updated_at %v, got %v", resolvedAt, resolved.UpdatedAt)
	}
	if _, err := s.ResolveFriendRequest(ctx, req.ID, b.ID, models.RequestRejected, base); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected a resolved request to match nothing, got %v", err)
	}

	if err := s.DeleteFriendRequest(ctx, req.ID); err != nil {
		t.Fatalf("DeleteFriendRequest failed: %v", err)
	}
	if _, err := s.GetFriendRequest(ctx, req.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
