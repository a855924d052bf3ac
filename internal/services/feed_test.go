package services

import (
	"net/http"
	"strings"
	"testing"

	"letschat/server/internal/models"
	"letschat/server/internal/utils"
)

func TestFeedOnlyMemberConversationsWithUnread(t *testing.T) {
	f := newFixture(t)
	me := f.user(t, "Me")
	ann := f.user(t, "Ann")
	bob := f.user(t, "Bob")
	stranger := f.user(t, "Stranger")

	withAnn := f.befriend(t, me, ann)
	withBob := f.befriend(t, me, bob)
	foreign := f.befriend(t, ann, stranger)

	f.send(t, ann, withAnn, "hi")
	f.send(t, ann, withAnn, "are you there?")
	f.send(t, me, withAnn, "yes")
	f.send(t, stranger, foreign, "not for you")
	f.send(t, bob, withBob, "latest")

	page, err := f.svc.Feed.GetAllChats(f.ctx, me.ID, 0)
	if err != nil {
		t.Fatalf("GetAllChats failed: %v", err)
	}
	if len(page.Chats) != 2 || page.HasMore {
		t.Fatalf("expected 2 chats without more, got %d (hasMore=%v)", len(page.Chats), page.HasMore)
	}

	first, second := page.Chats[0], page.Chats[1]
	if first.ID != withBob || second.ID != withAnn {
		t.Fatalf("expected newest activity first, got %s then %s", first.ID, second.ID)
	}
	if first.Name != "Bob" || len(first.Users) != 1 || first.Users[0].ID != bob.ID {
		t.Fatalf("expected direct chat to show the counterpart, got %+v", first)
	}
	if first.LastMessage == nil || first.LastMessage.Text != "latest" || first.LastMessage.Sender.ID != bob.ID {
		t.Fatalf("unexpected last message %+v", first.LastMessage)
	}
	if first.UnreadMessages != 1 {
		t.Fatalf("expected 1 unread from Bob, got %d", first.UnreadMessages)
	}
	// own messages never count as unread
	if second.UnreadMessages != 2 {
		t.Fatalf("expected 2 unread from Ann, got %d", second.UnreadMessages)
	}

	if _, err := f.svc.Messages.MarkSeen(f.ctx, me.ID, withAnn); err != nil {
		t.Fatalf("MarkSeen failed: %v", err)
	}
	page, _ = f.svc.Feed.GetAllChats(f.ctx, me.ID, 0)
	if page.Chats[1].UnreadMessages != 0 {
		t.Fatalf("expected unread to reset after mark seen, got %d", page.Chats[1].UnreadMessages)
	}
}

func TestFeedPaginationCoversEveryConversationOnce(t *testing.T) {
	f := newFixture(t)
	me := f.user(t, "Me")

	member := map[string]bool{}
	for i := 0; i < 23; i++ {
		friend := f.user(t, "Friend")
		conv := f.befriend(t, me, friend)
		member[conv] = true
		if i%3 == 0 {
			f.send(t, friend, conv, "ping")
		}
	}
	group, err := f.svc.Groups.Create(f.ctx, me.ID, CreateGroupInput{Name: "Crew"})
	if err != nil {
		t.Fatalf("Create group failed: %v", err)
	}
	member[group.ID] = true

	seen := map[string]int{}
	page, err := f.svc.Feed.GetAllChats(f.ctx, me.ID, 10)
	if err != nil {
		t.Fatalf("GetAllChats failed: %v", err)
	}
	pages := 1
	for {
		for _, c := range page.Chats {
			seen[c.ID]++
		}
		if !page.HasMore {
			break
		}
		page, err = f.svc.Feed.GetMoreChats(f.ctx, me.ID, page.ConversationIDs, 10)
		if err != nil {
			t.Fatalf("GetMoreChats failed: %v", err)
		}
		pages++
	}

	if pages != 3 {
		t.Fatalf("expected 3 pages for 24 conversations, got %d", pages)
	}
	if len(page.ConversationIDs) != len(member) {
		t.Fatalf("expected the accumulated set to hold %d ids, got %d", len(member), len(page.ConversationIDs))
	}
	for id := range member {
		if seen[id] != 1 {
			t.Fatalf("conversation %s seen %d times", id, seen[id])
		}
	}
	if len(seen) != len(member) {
		t.Fatalf("feed returned %d conversations, membership is %d", len(seen), len(member))
	}
}

func TestFeedHasMoreIsExact(t *testing.T) {
	f := newFixture(t)
	me := f.user(t, "Me")
	for i := 0; i < 10; i++ {
		f.befriend(t, me, f.user(t, "Friend"))
	}

	page, err := f.svc.Feed.GetAllChats(f.ctx, me.ID, 10)
	if err != nil {
		t.Fatalf("GetAllChats failed: %v", err)
	}
	if len(page.Chats) != 10 || page.HasMore {
		t.Fatalf("expected a full page and no more, got %d (hasMore=%v)", len(page.Chats), page.HasMore)
	}
}

func TestSearchChats(t *testing.T) {
	f := newFixture(t)
	me := f.user(t, "Me")
	ann := f.user(t, "Ann Tripper")
	f.befriend(t, me, ann)
	f.befriend(t, me, f.user(t, "Bob"))
	if _, err := f.svc.Groups.Create(f.ctx, me.ID, CreateGroupInput{Name: "Road TRIP 2024"}); err != nil {
		t.Fatalf("Create group failed: %v", err)
	}
	if _, err := f.svc.Groups.Create(f.ctx, me.ID, CreateGroupInput{Name: "Book club", Description: "monthly trip to the library"}); err != nil {
		t.Fatalf("Create group failed: %v", err)
	}

	chats, err := f.svc.Feed.SearchChats(f.ctx, me.ID, "trip")
	if err != nil {
		t.Fatalf("SearchChats failed: %v", err)
	}
	if len(chats) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(chats))
	}
	for _, c := range chats {
		text := strings.ToLower(c.Name + " " + c.Description)
		if !strings.Contains(text, "trip") {
			t.Fatalf("unexpected match %+v", c)
		}
	}

	chats, err = f.svc.Feed.SearchChats(f.ctx, me.ID, "xyz")
	if err != nil || len(chats) != 0 {
		t.Fatalf("expected no matches, got %d, %v", len(chats), err)
	}

	_, err = f.svc.Feed.SearchChats(f.ctx, me.ID, "   ")
	wantStatus(t, err, http.StatusBadRequest)
}

func TestFetchGroupsOnlyGroups(t *testing.T) {
	f := newFixture(t)
	me := f.user(t, "Me")
	f.befriend(t, me, f.user(t, "Ann"))
	group, _ := f.svc.Groups.Create(f.ctx, me.ID, CreateGroupInput{Name: "Crew"})

	page, err := f.svc.Feed.FetchGroups(f.ctx, me.ID, nil, 0)
	if err != nil {
		t.Fatalf("FetchGroups failed: %v", err)
	}
	if len(page.Chats) != 1 || page.Chats[0].ID != group.ID || !page.Chats[0].IsGroup {
		t.Fatalf("expected only the group, got %+v", page.Chats)
	}
	if page.Chats[0].GroupAdmin == nil || page.Chats[0].GroupAdmin.ID != me.ID {
		t.Fatalf("expected the admin summary, got %+v", page.Chats[0].GroupAdmin)
	}
	if page.Chats[0].Description != models.DefaultBio {
		t.Fatalf("expected the default description, got %q", page.Chats[0].Description)
	}
}

func TestParseConversationIDs(t *testing.T) {
	a, b := utils.NewID(), utils.NewID()

	ids, err := ParseConversationIDs(`["`+a+`","`+b+`","`+a+`"]`, 10)
	if err != nil || len(ids) != 2 || ids[0] != a || ids[1] != b {
		t.Fatalf("JSON array: %v, %v", ids, err)
	}
	ids, err = ParseConversationIDs(a+", "+b, 10)
	if err != nil || len(ids) != 2 {
		t.Fatalf("comma list: %v, %v", ids, err)
	}
	ids, err = ParseConversationIDs("", 10)
	if err != nil || len(ids) != 0 {
		t.Fatalf("empty: %v, %v", ids, err)
	}

	_, err = ParseConversationIDs(`["not-an-id"]`, 10)
	wantStatus(t, err, http.StatusBadRequest)
	_, err = ParseConversationIDs(`[1, 2]`, 10)
	wantStatus(t, err, http.StatusBadRequest)
	_, err = ParseConversationIDs(a+","+b, 1)
	wantStatus(t, err, http.StatusBadRequest)
}
