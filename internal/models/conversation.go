package models

import (
	"errors"
	"time"
)

// ConversationKind tags a conversation as direct or group.
type ConversationKind string

const (
	KindDirect ConversationKind = "direct"
	KindGroup  ConversationKind = "group"
)

var (
	ErrDirectParticipants = errors.New("a direct conversation needs exactly two distinct participants")
	ErrGroupName          = errors.New("group name is required")
	ErrGroupAdmin         = errors.New("group admin must be a participant")
)

// GroupInfo holds the fields that only exist on group conversations.
type GroupInfo struct {
	Name        string `json:"name" bson:"name"`
	Description string `json:"description" bson:"description"`
	Picture     string `json:"picture" bson:"picture"`
	AdminID     string `json:"adminId" bson:"admin_id"`
}

// Conversation is either a direct chat between two users or a named group.
// Group is nil for direct conversations.
type Conversation struct {
	ID           string           `json:"id" bson:"_id"`
	Kind         ConversationKind `json:"kind" bson:"kind"`
	Participants []string         `json:"participants" bson:"participants"`
	Group        *GroupInfo       `json:"group,omitempty" bson:"group,omitempty"`
	CreatedAt    time.Time        `json:"createdAt" bson:"created_at"`
	UpdatedAt    time.Time        `json:"updatedAt" bson:"updated_at"`
}

// NewDirectConversation builds a direct conversation between a and b.
func NewDirectConversation(id, a, b string, now time.Time) (*Conversation, error) {
	c := &Conversation{
		ID:           id,
		Kind:         KindDirect,
		Participants: []string{a, b},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// NewGroupConversation builds a group whose only member is its admin.
func NewGroupConversation(id string, info GroupInfo, now time.Time) (*Conversation, error) {
	if info.Description == "" {
		info.Description = DefaultBio
	}
	c := &Conversation{
		ID:           id,
		Kind:         KindGroup,
		Participants: []string{info.AdminID},
		Group:        &info,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the invariants of the conversation's kind.
func (c *Conversation) Validate() error {
	switch c.Kind {
	case KindDirect:
		if len(c.Participants) != 2 || c.Participants[0] == c.Participants[1] ||
			c.Participants[0] == "" || c.Participants[1] == "" {
			return ErrDirectParticipants
		}
		if c.Group != nil {
			return errors.New("a direct conversation has no group fields")
		}
	case KindGroup:
		if c.Group == nil || c.Group.Name == "" {
			return ErrGroupName
		}
		if !c.HasParticipant(c.Group.AdminID) {
			return ErrGroupAdmin
		}
	default:
		return errors.New("unknown conversation kind")
	}
	return nil
}

// IsGroup reports whether the conversation is a group.
func (c *Conversation) IsGroup() bool {
	return c.Kind == KindGroup
}

// HasParticipant reports whether userID belongs to the conversation.
func (c *Conversation) HasParticipant(userID string) bool {
	return contains(c.Participants, userID)
}

// IsAdmin reports whether userID administers the group.
func (c *Conversation) IsAdmin(userID string) bool {
	return c.Group != nil && c.Group.AdminID == userID
}

// Counterpart returns the other participant of a direct conversation.
func (c *Conversation) Counterpart(userID string) string {
	if c.Kind != KindDirect {
		return ""
	}
	for _, p := range c.Participants {
		if p != userID {
			return p
		}
	}
	return ""
}
