package services

import (
	"context"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"letschat/server/internal/apperror"
	"letschat/server/internal/models"
	"letschat/server/internal/store"
)

const (
	maxMessagePageSize = 100
	dayLayout          = "02/01/2006"
)

// HistoryService pages through a conversation's messages.
type HistoryService struct {
	*base
}

// OpenConversation returns the conversation header and its newest visible
// messages in chronological order, grouped by day.
func (s *HistoryService) OpenConversation(ctx context.Context, userID, conversationID string, limit int) (*models.ConversationView, error) {
	n := clampLimit(limit, s.settings.MessagePageSize, maxMessagePageSize)

	conv, err := s.memberConversation(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}

	var (
		total  int64
		viewer *models.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		total, err = s.store.CountVisibleMessages(gctx, conv.ID, userID)
		return err
	})
	g.Go(func() error {
		var err error
		viewer, err = s.store.GetUser(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, notFound(err, "User not found")
	}

	skip := max(0, total-n)
	msgs, err := s.store.ListVisibleMessages(ctx, store.MessageQuery{
		ConversationID: conv.ID,
		ViewerID:       userID,
		Skip:           skip,
		Limit:          n,
	})
	if err != nil {
		return nil, apperror.Internal(err)
	}

	users, err := s.summaries(ctx, append(slices.Clone(conv.Participants), senderIDs(msgs)...))
	if err != nil {
		return nil, err
	}
	days, err := s.groupByDay(ctx, msgs, users)
	if err != nil {
		return nil, err
	}

	view := &models.ConversationView{
		ConversationID: conv.ID,
		IsGroup:        conv.IsGroup(),
		IsBlocked:      viewer.HasBlocked(conv.ID),
		Messages:       days,
		HasMore:        skip > 0,
	}
	if conv.IsGroup() {
		view.GroupName = conv.Group.Name
		view.Description = conv.Group.Description
		view.Picture = s.pictureURL(ctx, conv.Group.Picture)
		view.GroupUsers = make([]models.GroupMember, 0, len(conv.Participants))
		for _, id := range conv.Participants {
			view.GroupUsers = append(view.GroupUsers, models.GroupMember{
				UserSummary: summaryOf(users, id),
				IsAdmin:     conv.IsAdmin(id),
			})
		}
	} else {
		other := summaryOf(users, conv.Counterpart(userID))
		view.OtherUser = &other
	}
	return view, nil
}

// OlderMessages returns up to limit visible messages strictly older than
// lastMessageID, in chronological order grouped by day.
func (s *HistoryService) OlderMessages(ctx context.Context, userID, conversationID, lastMessageID string, limit int) (*models.MessagePage, error) {
	n := clampLimit(limit, s.settings.MessagePageSize, maxMessagePageSize)

	if err := requireID(lastMessageID, "message"); err != nil {
		return nil, err
	}
	conv, err := s.memberConversation(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}

	cursor, err := s.store.GetMessage(ctx, lastMessageID)
	if err != nil {
		return nil, notFound(err, "Message not found")
	}
	if cursor.ConversationID != conv.ID {
		return nil, apperror.NotFound("Message not found")
	}

	msgs, err := s.store.ListVisibleMessages(ctx, store.MessageQuery{
		ConversationID: conv.ID,
		ViewerID:       userID,
		Before:         cursor,
		Limit:          n + 1,
	})
	if err != nil {
		return nil, apperror.Internal(err)
	}

	hasMore := int64(len(msgs)) > n
	if hasMore {
		msgs = msgs[:n]
	}
	slices.Reverse(msgs)

	users, err := s.summaries(ctx, senderIDs(msgs))
	if err != nil {
		return nil, err
	}
	days, err := s.groupByDay(ctx, msgs, users)
	if err != nil {
		return nil, err
	}
	return &models.MessagePage{Messages: days, HasMore: hasMore}, nil
}

// groupByDay buckets chronologically ordered messages by calendar day in the
// configured location, keeping day and message order.
func (s *HistoryService) groupByDay(ctx context.Context, msgs []models.Message, users map[string]models.UserSummary) ([]models.DayGroup, error) {
	days := []models.DayGroup{}
	for i := range msgs {
		m := &msgs[i]
		out, err := s.withMedia(ctx, m, summaryOf(users, m.SenderID))
		if err != nil {
			return nil, err
		}

		key := dayKey(m.CreatedAt, s.settings.Location)
		if len(days) == 0 || days[len(days)-1].Date != key {
			days = append(days, models.DayGroup{Date: key})
		}
		last := &days[len(days)-1]
		last.Messages = append(last.Messages, out)
	}
	return days, nil
}

// withMedia attaches the sender and, for media messages, a download URL.
func (b *base) withMedia(ctx context.Context, m *models.Message, sender models.UserSummary) (models.MessageWithSender, error) {
	out := m.WithSender(sender)
	if m.Type.IsMedia() && m.MediaKey != "" && b.objects != nil {
		u, err := b.objects.PresignDownload(ctx, m.MediaKey)
		if err != nil {
			return out, apperror.Internal(err)
		}
		out.MediaURL = u.URL
	}
	return out, nil
}

func dayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dayLayout)
}

func senderIDs(msgs []models.Message) []string {
	ids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.SenderID)
	}
	return ids
}
