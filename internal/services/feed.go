package services

import (
	"context"
	"encoding/json"
	"strings"

	"golang.org/x/sync/errgroup"

	"letschat/server/internal/apperror"
	"letschat/server/internal/models"
	"letschat/server/internal/store"
	"letschat/server/internal/utils"
)

const maxFeedPageSize = 50

// FeedService builds the conversation feed: the user's conversations with
// their last visible message and unread count, newest activity first.
type FeedService struct {
	*base
}

// GetAllChats returns the first page of the feed.
func (s *FeedService) GetAllChats(ctx context.Context, userID string, limit int) (*models.FeedPage, error) {
	n := clampLimit(limit, s.settings.FeedPageSize, maxFeedPageSize)
	return s.page(ctx, store.FeedQuery{UserID: userID}, n, nil)
}

// GetMoreChats returns the page after the conversations in shown.
func (s *FeedService) GetMoreChats(ctx context.Context, userID string, shown []string, limit int) (*models.FeedPage, error) {
	n := clampLimit(limit, s.settings.FeedPageSize, maxFeedPageSize)
	return s.page(ctx, store.FeedQuery{UserID: userID, Exclude: shown}, n, shown)
}

// FetchGroups returns the first page of the user's group conversations.
func (s *FeedService) FetchGroups(ctx context.Context, userID string, shown []string, limit int) (*models.FeedPage, error) {
	n := clampLimit(limit, s.settings.FeedPageSize, maxFeedPageSize)
	return s.page(ctx, store.FeedQuery{UserID: userID, Exclude: shown, Kind: models.KindGroup}, n, shown)
}

// SearchChats returns the user's conversations whose group name, group
// description or counterpart name contains query.
func (s *FeedService) SearchChats(ctx context.Context, userID, query string) ([]models.ChatItem, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperror.BadRequest("Search query is required")
	}

	rows, err := s.store.ListFeed(ctx, store.FeedQuery{
		UserID: userID,
		Search: query,
		Limit:  int64(s.settings.SearchLimit),
	})
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return s.annotate(ctx, userID, rows)
}

// page fetches one row more than n to learn whether another page exists.
func (s *FeedService) page(ctx context.Context, q store.FeedQuery, n int64, shown []string) (*models.FeedPage, error) {
	q.Limit = n + 1
	rows, err := s.store.ListFeed(ctx, q)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	hasMore := int64(len(rows)) > n
	if hasMore {
		rows = rows[:n]
	}

	chats, err := s.annotate(ctx, q.UserID, rows)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(shown)+len(chats))
	ids = append(ids, shown...)
	for _, c := range chats {
		ids = append(ids, c.ID)
	}

	return &models.FeedPage{
		Chats:           chats,
		HasMore:         hasMore,
		ConversationIDs: dedupe(ids),
	}, nil
}

// annotate reshapes feed rows for userID and merges unread counts.
func (s *FeedService) annotate(ctx context.Context, userID string, rows []store.FeedRow) ([]models.ChatItem, error) {
	chats := make([]models.ChatItem, 0, len(rows))
	if len(rows) == 0 {
		return chats, nil
	}

	convIDs := make([]string, 0, len(rows))
	var userIDs []string
	for _, r := range rows {
		convIDs = append(convIDs, r.Conversation.ID)
		userIDs = append(userIDs, r.Conversation.Participants...)
	}

	var (
		unread map[string]int64
		users  map[string]models.UserSummary
		viewer *models.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		unread, err = s.store.CountUnread(gctx, userID, convIDs)
		return err
	})
	g.Go(func() error {
		var err error
		users, err = s.summaries(gctx, userIDs)
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

	for _, r := range rows {
		item := reshape(r, userID, users)
		item.Picture = s.pictureURL(ctx, item.Picture)
		item.UnreadMessages = unread[item.ID]
		item.IsBlocked = viewer.HasBlocked(item.ID)
		chats = append(chats, item)
	}
	return chats, nil
}

// reshape projects a feed row into the client view: direct chats show the
// counterpart, groups show their own fields and every member.
func reshape(r store.FeedRow, userID string, users map[string]models.UserSummary) models.ChatItem {
	c := r.Conversation
	item := models.ChatItem{
		ID:        c.ID,
		IsGroup:   c.IsGroup(),
		CreatedAt: c.CreatedAt,
	}

	if c.IsGroup() {
		item.Name = c.Group.Name
		item.Picture = c.Group.Picture
		item.Description = c.Group.Description
		admin := summaryOf(users, c.Group.AdminID)
		item.GroupAdmin = &admin
		item.Users = make([]models.UserSummary, 0, len(c.Participants))
		for _, id := range c.Participants {
			item.Users = append(item.Users, summaryOf(users, id))
		}
	} else {
		other := summaryOf(users, c.Counterpart(userID))
		item.Name = other.FullName
		item.Picture = other.ProfilePic
		item.Users = []models.UserSummary{other}
	}

	if m := r.LastMessage; m != nil {
		sender := summaryOf(users, m.SenderID)
		if r.LastSender != nil && sender.FullName == "" {
			sender = *r.LastSender
		}
		item.LastMessage = &models.LastMessage{
			ID:        m.ID,
			Type:      m.Type,
			Text:      m.Text,
			Sender:    sender,
			CreatedAt: m.CreatedAt,
		}
	}
	return item
}

// ParseConversationIDs decodes the client-held set of conversations already
// shown. It accepts a JSON array or a comma separated list.
func ParseConversationIDs(raw string, max int) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var ids []string
	if strings.HasPrefix(raw, "[") {
		if err := json.Unmarshal([]byte(raw), &ids); err != nil {
			return nil, apperror.BadRequest("conversationIds must be an array of ids")
		}
	} else {
		ids = strings.Split(raw, ",")
	}

	for i, id := range ids {
		ids[i] = strings.TrimSpace(id)
		if !utils.IsValidID(ids[i]) {
			return nil, apperror.BadRequest("Invalid conversation id in conversationIds")
		}
	}
	ids = dedupe(ids)
	if max > 0 && len(ids) > max {
		return nil, apperror.BadRequest("Too many conversation ids")
	}
	return ids, nil
}
