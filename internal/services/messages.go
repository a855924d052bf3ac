package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"letschat/server/internal/apperror"
	"letschat/server/internal/models"
	"letschat/server/internal/utils"
)

const maxMessageLength = 5000

// MessageService sends messages and tracks per-user message state.
type MessageService struct {
	*base
}

type SendMessageInput struct {
	Type     models.MessageType `json:"type"`
	Text     string             `json:"text"`
	MediaKey string             `json:"mediaKey"`
}

// Send stores a message from userID in the conversation.
func (s *MessageService) Send(ctx context.Context, userID, conversationID string, in SendMessageInput) (*models.MessageWithSender, error) {
	if in.Type == "" {
		in.Type = models.TypeText
	}
	if !in.Type.Valid() {
		return nil, apperror.BadRequest("Invalid message type")
	}
	in.Text = strings.TrimSpace(in.Text)
	if in.Type == models.TypeText {
		if in.Text == "" {
			return nil, apperror.BadRequest("Message text is required")
		}
		in.MediaKey = ""
	} else {
		if in.MediaKey == "" {
			return nil, apperror.BadRequest("Media key is required")
		}
		if err := checkMediaKey(userID, in.MediaKey); err != nil {
			return nil, err
		}
	}
	if utf8.RuneCountInString(in.Text) > maxMessageLength {
		return nil, apperror.BadRequest("Message text is too long")
	}

	conv, err := s.memberConversation(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}

	users, err := s.store.ListUsers(ctx, conv.Participants)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	var sender models.UserSummary
	for i := range users {
		u := &users[i]
		if !conv.IsGroup() && u.HasBlocked(conv.ID) {
			return nil, apperror.Forbidden("This conversation is blocked")
		}
		if u.ID == userID {
			sender = u.Summary()
		}
	}
	sender.ID = userID
	sender.ProfilePic = s.pictureURL(ctx, sender.ProfilePic)

	now := s.now()
	msg := &models.Message{
		ID:             utils.NewID(),
		ConversationID: conv.ID,
		SenderID:       userID,
		Type:           in.Type,
		Text:           in.Text,
		MediaKey:       in.MediaKey,
		DeletedFor:     []string{},
		SeenBy:         []string{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.InsertMessage(ctx, msg); err != nil {
		return nil, apperror.Internal(err)
	}
	if err := s.store.TouchConversation(ctx, conv.ID, now); err != nil {
		return nil, apperror.Internal(err)
	}

	out, err := s.withMedia(ctx, msg, sender)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// MarkSeen marks every message in the conversation not sent by userID as
// seen by userID and returns how many changed.
func (s *MessageService) MarkSeen(ctx context.Context, userID, conversationID string) (int64, error) {
	conv, err := s.memberConversation(ctx, conversationID, userID)
	if err != nil {
		return 0, err
	}
	n, err := s.store.MarkSeen(ctx, conv.ID, userID)
	if err != nil {
		return 0, apperror.Internal(err)
	}
	return n, nil
}

// DeleteForMe hides a message from userID only.
func (s *MessageService) DeleteForMe(ctx context.Context, userID, messageID string) error {
	if err := requireID(messageID, "message"); err != nil {
		return err
	}
	msg, err := s.store.GetMessage(ctx, messageID)
	if err != nil {
		return notFound(err, "Message not found")
	}
	if _, err := s.memberConversation(ctx, msg.ConversationID, userID); err != nil {
		return err
	}
	if err := s.store.DeleteMessageFor(ctx, msg.ID, userID); err != nil {
		return notFound(err, "Message not found")
	}
	return nil
}

// SetBlocked blocks or unblocks the conversation for userID.
func (s *MessageService) SetBlocked(ctx context.Context, userID, conversationID string, blocked bool) error {
	conv, err := s.memberConversation(ctx, conversationID, userID)
	if err != nil {
		return err
	}
	if err := s.store.SetConversationBlocked(ctx, userID, conv.ID, blocked, s.now()); err != nil {
		return notFound(err, "User not found")
	}
	return nil
}
