package models

import "time"

// MessageType is the kind of payload a message carries.
type MessageType string

const (
	TypeText     MessageType = "text"
	TypeImage    MessageType = "image"
	TypeVideo    MessageType = "video"
	TypeGif      MessageType = "gif"
	TypeDocument MessageType = "document"
)

// Valid reports whether t is a known message type.
func (t MessageType) Valid() bool {
	switch t {
	case TypeText, TypeImage, TypeVideo, TypeGif, TypeDocument:
		return true
	}
	return false
}

// IsMedia reports whether the payload lives in object storage.
func (t MessageType) IsMedia() bool {
	return t.Valid() && t != TypeText
}

// Message represents a chat message
type Message struct {
	ID             string      `json:"id" bson:"_id"`
	ConversationID string      `json:"conversationId" bson:"conversation_id"`
	SenderID       string      `json:"senderId" bson:"sender_id"`
	Type           MessageType `json:"type" bson:"type"`
	Text           string      `json:"text,omitempty" bson:"text,omitempty"`
	MediaKey       string      `json:"mediaKey,omitempty" bson:"media_key,omitempty"`
	DeletedFor     []string    `json:"-" bson:"deleted_for"`
	SeenBy         []string    `json:"seenBy" bson:"seen_by"`
	CreatedAt      time.Time   `json:"createdAt" bson:"created_at"`
	UpdatedAt      time.Time   `json:"updatedAt" bson:"updated_at"`
}

// VisibleTo reports whether the message was not soft-deleted by userID.
func (m *Message) VisibleTo(userID string) bool {
	return !contains(m.DeletedFor, userID)
}

// UnreadBy reports whether the message counts as unread for userID.
func (m *Message) UnreadBy(userID string) bool {
	return m.SenderID != userID && !contains(m.SeenBy, userID)
}

// MessageWithSender includes sender information
type MessageWithSender struct {
	ID             string      `json:"id"`
	ConversationID string      `json:"conversationId"`
	Sender         UserSummary `json:"sender"`
	Type           MessageType `json:"type"`
	Text           string      `json:"text,omitempty"`
	MediaKey       string      `json:"mediaKey,omitempty"`
	MediaURL       string      `json:"mediaUrl,omitempty"`
	SeenBy         []string    `json:"seenBy"`
	CreatedAt      time.Time   `json:"createdAt"`
}

// WithSender attaches the sender summary to a message.
func (m *Message) WithSender(sender UserSummary) MessageWithSender {
	seen := m.SeenBy
	if seen == nil {
		seen = []string{}
	}
	return MessageWithSender{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Sender:         sender,
		Type:           m.Type,
		Text:           m.Text,
		MediaKey:       m.MediaKey,
		SeenBy:         seen,
		CreatedAt:      m.CreatedAt,
	}
}

// DayGroup is one calendar day of a message history page.
type DayGroup struct {
	Date     string              `json:"date"`
	Messages []MessageWithSender `json:"messages"`
}
