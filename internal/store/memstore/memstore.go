// Package memstore is an in-process store.Store used for development and tests.
package memstore

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"letschat/server/internal/models"
	"letschat/server/internal/store"
)

type Store struct {
	mu             sync.RWMutex
	users          map[string]*models.User
	conversations  map[string]*models.Conversation
	messages       map[string]*models.Message
	friendRequests map[string]*models.FriendRequest
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users:          make(map[string]*models.User),
		conversations:  make(map[string]*models.Conversation),
		messages:       make(map[string]*models.Message),
		friendRequests: make(map[string]*models.FriendRequest),
	}
}

func (s *Store) Ping(ctx context.Context) error  { return ctx.Err() }
func (s *Store) Close(ctx context.Context) error { return nil }

// ---- users ----

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; ok {
		return store.ErrDuplicate
	}
	for _, u := range s.users {
		if u.Email == user.Email || u.UserName == user.UserName {
			return store.ErrDuplicate
		}
	}
	s.users[user.ID] = cloneUser(user)
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneUser(u), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) UserNameTaken(ctx context.Context, userName string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.UserName == userName {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) ListUsers(ctx context.Context, ids []string) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]models.User, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok && !seen[id] {
			seen[id] = true
			users = append(users, *cloneUser(u))
		}
	}
	return users, nil
}

func (s *Store) ListUserSummaries(ctx context.Context, ids []string) ([]models.UserSummary, error) {
	users, err := s.ListUsers(ctx, ids)
	if err != nil {
		return nil, err
	}
	summaries := make([]models.UserSummary, len(users))
	for i := range users {
		summaries[i] = users[i].Summary()
	}
	return summaries, nil
}

func (s *Store) SuggestUsers(ctx context.Context, exclude []string, limit int64) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	skip := toSet(exclude)
	var users []models.User
	for _, u := range s.users {
		if !skip[u.ID] {
			users = append(users, *cloneUser(u))
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	if int64(len(users)) > limit {
		users = users[:limit]
	}
	return users, nil
}

func (s *Store) LinkFriend(ctx context.Context, userID, friendID, conversationID string, at time.Time) error {
	return s.updateUser(userID, at, func(u *models.User) {
		u.Friends = addToSet(u.Friends, friendID)
		if conversationID != "" {
			u.Conversations = addToSet(u.Conversations, conversationID)
		}
	})
}

func (s *Store) AddSentRequest(ctx context.Context, userID, targetID string, at time.Time) error {
	return s.updateUser(userID, at, func(u *models.User) {
		u.SentFriendRequests = addToSet(u.SentFriendRequests, targetID)
	})
}

func (s *Store) RemoveSentRequest(ctx context.Context, userID, targetID string, at time.Time) error {
	return s.updateUser(userID, at, func(u *models.User) {
		u.SentFriendRequests = pull(u.SentFriendRequests, targetID)
	})
}

func (s *Store) AddConversation(ctx context.Context, userIDs []string, conversationID string, at time.Time) error {
	return s.updateUsers(userIDs, at, func(u *models.User) {
		u.Conversations = addToSet(u.Conversations, conversationID)
	})
}

func (s *Store) RemoveConversation(ctx context.Context, userIDs []string, conversationID string, at time.Time) error {
	return s.updateUsers(userIDs, at, func(u *models.User) {
		u.Conversations = pull(u.Conversations, conversationID)
	})
}

func (s *Store) RemoveConversationFromAll(ctx context.Context, conversationID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if !slices.Contains(u.Conversations, conversationID) && !slices.Contains(u.BlockedConversations, conversationID) {
			continue
		}
		u.Conversations = pull(u.Conversations, conversationID)
		u.BlockedConversations = pull(u.BlockedConversations, conversationID)
		u.UpdatedAt = at
	}
	return nil
}

func (s *Store) SetConversationBlocked(ctx context.Context, userID, conversationID string, blocked bool, at time.Time) error {
	return s.updateUser(userID, at, func(u *models.User) {
		if blocked {
			u.BlockedConversations = addToSet(u.BlockedConversations, conversationID)
		} else {
			u.BlockedConversations = pull(u.BlockedConversations, conversationID)
		}
	})
}

func (s *Store) updateUser(id string, at time.Time, fn func(u *models.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	fn(u)
	u.UpdatedAt = at
	return nil
}

// updateUsers applies fn to every existing user in ids. Missing ids are
// skipped, matching a multi-document update.
func (s *Store) updateUsers(ids []string, at time.Time, fn func(u *models.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			fn(u)
			u.UpdatedAt = at
		}
	}
	return nil
}

// ---- conversations ----

func (s *Store) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[conv.ID]; ok {
		return store.ErrDuplicate
	}
	s.conversations[conv.ID] = cloneConversation(conv)
	return nil
}

func (s *Store) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.conversations[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneConversation(c), nil
}

func (s *Store) FindDirectConversation(ctx context.Context, userA, userB string) (*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.conversations {
		if c.Kind == models.KindDirect && c.HasParticipant(userA) && c.HasParticipant(userB) {
			return cloneConversation(c), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) TouchConversation(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[id]
	if !ok {
		return store.ErrNotFound
	}
	c.UpdatedAt = at
	return nil
}

func (s *Store) UpdateGroup(ctx context.Context, id, adminID string, patch store.GroupPatch, at time.Time) (*models.Conversation, error) {
	return s.updateGroup(id, adminID, at, func(c *models.Conversation) {
		if patch.Name != "" {
			c.Group.Name = patch.Name
		}
		if patch.Description != "" {
			c.Group.Description = patch.Description
		}
		if patch.Picture != "" {
			c.Group.Picture = patch.Picture
		}
	})
}

func (s *Store) AddParticipants(ctx context.Context, id, adminID string, userIDs []string, at time.Time) (*models.Conversation, error) {
	return s.updateGroup(id, adminID, at, func(c *models.Conversation) {
		for _, uid := range userIDs {
			c.Participants = addToSet(c.Participants, uid)
		}
	})
}

func (s *Store) RemoveParticipants(ctx context.Context, id, adminID string, userIDs []string, at time.Time) (*models.Conversation, error) {
	return s.updateGroup(id, adminID, at, func(c *models.Conversation) {
		for _, uid := range userIDs {
			c.Participants = pull(c.Participants, uid)
		}
	})
}

func (s *Store) DeleteGroup(ctx context.Context, id, adminID string) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[id]
	if !ok || !c.IsGroup() || !c.IsAdmin(adminID) {
		return nil, store.ErrNotFound
	}
	delete(s.conversations, id)
	return c, nil
}

func (s *Store) LeaveGroup(ctx context.Context, id, userID, nextAdminID string, at time.Time) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[id]
	if !ok || !c.IsGroup() || !c.HasParticipant(userID) {
		return nil, store.ErrNotFound
	}
	if nextAdminID != "" {
		if !c.IsAdmin(userID) {
			return nil, store.ErrNotFound
		}
		c.Group.AdminID = nextAdminID
	}
	c.Participants = pull(c.Participants, userID)
	c.UpdatedAt = at
	return cloneConversation(c), nil
}

func (s *Store) DeleteConversation(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.conversations, id)
	return nil
}

func (s *Store) updateGroup(id, adminID string, at time.Time, fn func(c *models.Conversation)) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[id]
	if !ok || !c.IsGroup() || !c.IsAdmin(adminID) {
		return nil, store.ErrNotFound
	}
	fn(c)
	c.UpdatedAt = at
	return cloneConversation(c), nil
}

func (s *Store) ListFeed(ctx context.Context, q store.FeedQuery) ([]store.FeedRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	excluded := toSet(q.Exclude)
	needle := strings.ToLower(q.Search)

	var rows []store.FeedRow
	for _, c := range s.conversations {
		if !c.HasParticipant(q.UserID) || excluded[c.ID] {
			continue
		}
		if q.Kind != "" && c.Kind != q.Kind {
			continue
		}
		if needle != "" && !s.matches(c, q.UserID, needle) {
			continue
		}

		row := store.FeedRow{Conversation: *cloneConversation(c)}
		if last := s.lastVisible(c.ID, q.UserID); last != nil {
			msg := cloneMessage(last)
			row.LastMessage = msg
			if sender, ok := s.users[msg.SenderID]; ok {
				summary := sender.Summary()
				row.LastSender = &summary
			}
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool { return feedLess(rows[i], rows[j]) })
	if q.Limit > 0 && int64(len(rows)) > q.Limit {
		rows = rows[:q.Limit]
	}
	return rows, nil
}

func (s *Store) matches(c *models.Conversation, userID, needle string) bool {
	if c.IsGroup() {
		return strings.Contains(strings.ToLower(c.Group.Name), needle) ||
			strings.Contains(strings.ToLower(c.Group.Description), needle)
	}
	other, ok := s.users[c.Counterpart(userID)]
	return ok && strings.Contains(strings.ToLower(other.FullName), needle)
}

func (s *Store) lastVisible(conversationID, viewerID string) *models.Message {
	var last *models.Message
	for _, m := range s.messages {
		if m.ConversationID != conversationID || !m.VisibleTo(viewerID) {
			continue
		}
		if last == nil || messageLess(last, m) {
			last = m
		}
	}
	return last
}

// feedLess orders conversations with a message first, newest message first,
// then newest conversation first.
func feedLess(a, b store.FeedRow) bool {
	if (a.LastMessage != nil) != (b.LastMessage != nil) {
		return a.LastMessage != nil
	}
	if a.LastMessage != nil && !a.LastMessage.CreatedAt.Equal(b.LastMessage.CreatedAt) {
		return a.LastMessage.CreatedAt.After(b.LastMessage.CreatedAt)
	}
	if !a.Conversation.CreatedAt.Equal(b.Conversation.CreatedAt) {
		return a.Conversation.CreatedAt.After(b.Conversation.CreatedAt)
	}
	return a.Conversation.ID > b.Conversation.ID
}

// ---- messages ----

func (s *Store) InsertMessage(ctx context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.messages[msg.ID]; ok {
		return store.ErrDuplicate
	}
	s.messages[msg.ID] = cloneMessage(msg)
	return nil
}

func (s *Store) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.messages[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneMessage(m), nil
}

func (s *Store) CountVisibleMessages(ctx context.Context, conversationID, viewerID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.visible(conversationID, viewerID))), nil
}

func (s *Store) ListVisibleMessages(ctx context.Context, q store.MessageQuery) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.visible(q.ConversationID, q.ViewerID)

	var out []models.Message
	if q.Before != nil {
		for i := len(msgs) - 1; i >= 0; i-- {
			if messageLess(msgs[i], q.Before) {
				out = append(out, *cloneMessage(msgs[i]))
			}
		}
	} else {
		skip := q.Skip
		if skip > int64(len(msgs)) {
			skip = int64(len(msgs))
		}
		for _, m := range msgs[skip:] {
			out = append(out, *cloneMessage(m))
		}
	}

	if q.Limit > 0 && int64(len(out)) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// visible returns the viewer's messages of a conversation in ascending order.
func (s *Store) visible(conversationID, viewerID string) []*models.Message {
	var msgs []*models.Message
	for _, m := range s.messages {
		if m.ConversationID == conversationID && m.VisibleTo(viewerID) {
			msgs = append(msgs, m)
		}
	}
	sort.Slice(msgs, func(i, j int) bool { return messageLess(msgs[i], msgs[j]) })
	return msgs
}

func (s *Store) CountUnread(ctx context.Context, userID string, conversationIDs []string) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := toSet(conversationIDs)
	counts := make(map[string]int64)
	for _, m := range s.messages {
		if wanted[m.ConversationID] && m.UnreadBy(userID) {
			counts[m.ConversationID]++
		}
	}
	return counts, nil
}

func (s *Store) MarkSeen(ctx context.Context, conversationID, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, m := range s.messages {
		if m.ConversationID == conversationID && m.UnreadBy(userID) {
			m.SeenBy = append(m.SeenBy, userID)
			n++
		}
	}
	return n, nil
}

func (s *Store) DeleteMessageFor(ctx context.Context, messageID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.messages[messageID]
	if !ok {
		return store.ErrNotFound
	}
	m.DeletedFor = addToSet(m.DeletedFor, userID)
	return nil
}

func (s *Store) DeleteConversationMessages(ctx context.Context, conversationID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, m := range s.messages {
		if m.ConversationID == conversationID {
			delete(s.messages, id)
			n++
		}
	}
	return n, nil
}

// messageLess orders messages by creation time, then id.
func messageLess(a, b *models.Message) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// ---- friend requests ----

func (s *Store) CreateFriendRequest(ctx context.Context, req *models.FriendRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.friendRequests {
		if r.Status == models.RequestPending && r.SentBy == req.SentBy && r.SentTo == req.SentTo {
			return store.ErrDuplicate
		}
	}
	cp := *req
	s.friendRequests[req.ID] = &cp
	return nil
}

func (s *Store) GetFriendRequest(ctx context.Context, id string) (*models.FriendRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.friendRequests[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *Store) FindPendingFriendRequest(ctx context.Context, sentBy, sentTo string) (*models.FriendRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.friendRequests {
		if r.Status == models.RequestPending && r.SentBy == sentBy && r.SentTo == sentTo {
			cp := *r
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ResolveFriendRequest(ctx context.Context, id, recipientID string, status models.FriendRequestStatus, at time.Time) (*models.FriendRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.friendRequests[id]
	if !ok || r.Status != models.RequestPending || r.SentTo != recipientID {
		return nil, store.ErrNotFound
	}
	r.Status = status
	r.UpdatedAt = at
	cp := *r
	return &cp, nil
}

func (s *Store) DeleteFriendRequest(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.friendRequests[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.friendRequests, id)
	return nil
}

func (s *Store) ListFriendRequests(ctx context.Context, f store.FriendRequestFilter) ([]models.FriendRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.FriendRequest
	for _, r := range s.friendRequests {
		if f.SentBy != "" && r.SentBy != f.SentBy {
			continue
		}
		if f.SentTo != "" && r.SentTo != f.SentTo {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}
