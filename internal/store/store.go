// Package store defines the document store contract shared by the Mongo,
// Postgres and in-memory backends.
package store

import (
	"context"
	"errors"
	"time"

	"letschat/server/internal/models"
)

var (
	// ErrNotFound is returned when no document matches, including conditional
	// updates whose filter matched nothing.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("store: duplicate key")
)

// FeedQuery selects a page of a user's conversation feed.
type FeedQuery struct {
	UserID string
	// Exclude lists conversations the client has already shown.
	Exclude []string
	// Kind restricts the feed to one conversation kind; empty means all.
	Kind models.ConversationKind
	// Search keeps conversations whose group name, group description or
	// counterpart full name contains it, case-insensitively.
	Search string
	Limit  int64
}

// FeedRow is a member conversation with the newest message visible to the
// requesting user, ordered by that message's time then conversation creation.
type FeedRow struct {
	Conversation models.Conversation
	LastMessage  *models.Message
	LastSender   *models.UserSummary
}

// MessageQuery selects visible messages of one conversation.
//
// Without Before the result is ascending by (created_at, id) after skipping
// Skip rows. With Before the result holds the messages strictly older than the
// cursor, newest first, and Skip is ignored.
type MessageQuery struct {
	ConversationID string
	ViewerID       string
	Before         *models.Message
	Skip           int64
	Limit          int64
}

// FriendRequestFilter narrows ListFriendRequests. Empty fields match anything.
type FriendRequestFilter struct {
	SentBy string
	SentTo string
	Status models.FriendRequestStatus
}

// GroupPatch holds the group fields to overwrite; empty fields are kept.
type GroupPatch struct {
	Name        string
	Description string
	Picture     string
}

// IsEmpty reports whether the patch changes nothing.
func (p GroupPatch) IsEmpty() bool {
	return p.Name == "" && p.Description == "" && p.Picture == ""
}

// Mutations take the time to stamp as updated_at so every backend records the
// caller's clock.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UserNameTaken(ctx context.Context, userName string) (bool, error)
	// ListUsers returns the users among ids that exist, in no particular order.
	ListUsers(ctx context.Context, ids []string) ([]models.User, error)
	ListUserSummaries(ctx context.Context, ids []string) ([]models.UserSummary, error)
	SuggestUsers(ctx context.Context, exclude []string, limit int64) ([]models.User, error)
	// LinkFriend adds friendID to the user's friends and, when set, the
	// conversation to the user's conversations.
	LinkFriend(ctx context.Context, userID, friendID, conversationID string, at time.Time) error
	AddSentRequest(ctx context.Context, userID, targetID string, at time.Time) error
	RemoveSentRequest(ctx context.Context, userID, targetID string, at time.Time) error
	AddConversation(ctx context.Context, userIDs []string, conversationID string, at time.Time) error
	RemoveConversation(ctx context.Context, userIDs []string, conversationID string, at time.Time) error
	// RemoveConversationFromAll unlinks the conversation from every user.
	RemoveConversationFromAll(ctx context.Context, conversationID string, at time.Time) error
	SetConversationBlocked(ctx context.Context, userID, conversationID string, blocked bool, at time.Time) error
}

type ConversationStore interface {
	CreateConversation(ctx context.Context, conv *models.Conversation) error
	GetConversation(ctx context.Context, id string) (*models.Conversation, error)
	FindDirectConversation(ctx context.Context, userA, userB string) (*models.Conversation, error)
	TouchConversation(ctx context.Context, id string, at time.Time) error

	// The group mutations below only apply when adminID administers group id
	// and return ErrNotFound otherwise.
	UpdateGroup(ctx context.Context, id, adminID string, patch GroupPatch, at time.Time) (*models.Conversation, error)
	AddParticipants(ctx context.Context, id, adminID string, userIDs []string, at time.Time) (*models.Conversation, error)
	RemoveParticipants(ctx context.Context, id, adminID string, userIDs []string, at time.Time) (*models.Conversation, error)
	DeleteGroup(ctx context.Context, id, adminID string) (*models.Conversation, error)

	// LeaveGroup removes userID from the group. When nextAdminID is set the
	// update only applies while userID is still the admin and hands the admin
	// role to nextAdminID.
	LeaveGroup(ctx context.Context, id, userID, nextAdminID string, at time.Time) (*models.Conversation, error)
	DeleteConversation(ctx context.Context, id string) error

	ListFeed(ctx context.Context, q FeedQuery) ([]FeedRow, error)
}

type MessageStore interface {
	InsertMessage(ctx context.Context, msg *models.Message) error
	GetMessage(ctx context.Context, id string) (*models.Message, error)
	CountVisibleMessages(ctx context.Context, conversationID, viewerID string) (int64, error)
	ListVisibleMessages(ctx context.Context, q MessageQuery) ([]models.Message, error)
	// CountUnread returns, per conversation, the messages not sent by userID
	// and not seen by userID. Conversations without unread messages are absent.
	CountUnread(ctx context.Context, userID string, conversationIDs []string) (map[string]int64, error)
	MarkSeen(ctx context.Context, conversationID, userID string) (int64, error)
	DeleteMessageFor(ctx context.Context, messageID, userID string) error
	DeleteConversationMessages(ctx context.Context, conversationID string) (int64, error)
}

type FriendRequestStore interface {
	// CreateFriendRequest returns ErrDuplicate when a pending request for the
	// same ordered pair exists.
	CreateFriendRequest(ctx context.Context, req *models.FriendRequest) error
	GetFriendRequest(ctx context.Context, id string) (*models.FriendRequest, error)
	FindPendingFriendRequest(ctx context.Context, sentBy, sentTo string) (*models.FriendRequest, error)
	// ResolveFriendRequest moves a pending request addressed to recipientID
	// to status. It returns ErrNotFound when the request is not pending or not
	// addressed to recipientID.
	ResolveFriendRequest(ctx context.Context, id, recipientID string, status models.FriendRequestStatus, at time.Time) (*models.FriendRequest, error)
	DeleteFriendRequest(ctx context.Context, id string) error
	ListFriendRequests(ctx context.Context, f FriendRequestFilter) ([]models.FriendRequest, error)
}

// Store is a complete backend.
type Store interface {
	UserStore
	ConversationStore
	MessageStore
	FriendRequestStore

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
