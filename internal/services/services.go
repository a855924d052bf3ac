// Package services implements the chat operations on top of a store.Store.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"letschat/server/internal/apperror"
	"letschat/server/internal/models"
	"letschat/server/internal/storage"
	"letschat/server/internal/store"
	"letschat/server/internal/utils"
)

// Settings are the tunables the services read from configuration.
type Settings struct {
	FeedPageSize     int
	FeedMaxCursorIDs int
	MessagePageSize  int
	SearchLimit      int
	Location         *time.Location
}

// Deps wires the services together. Now defaults to the wall clock.
type Deps struct {
	Store    store.Store
	Objects  storage.ObjectStore
	Tokens   *utils.TokenManager
	Settings Settings
	Now      func() time.Time
}

// Services groups every operation exposed over HTTP.
type Services struct {
	Accounts *AccountService
	Feed     *FeedService
	History  *HistoryService
	Friends  *FriendService
	Groups   *GroupService
	Messages *MessageService
	Media    *MediaService
}

func New(d Deps) *Services {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Settings.Location == nil {
		d.Settings.Location = time.Local
	}
	b := &base{
		store:    d.Store,
		objects:  d.Objects,
		settings: d.Settings,
		clock:    d.Now,
	}
	feed := &FeedService{base: b}
	return &Services{
		Accounts: &AccountService{base: b, tokens: d.Tokens},
		Feed:     feed,
		History:  &HistoryService{base: b},
		Friends:  &FriendService{base: b},
		Groups:   &GroupService{base: b},
		Messages: &MessageService{base: b},
		Media:    &MediaService{base: b},
	}
}

// base is shared by every service.
type base struct {
	store    store.Store
	objects  storage.ObjectStore
	settings Settings
	clock    func() time.Time
}

// now returns the current time at the precision every backend stores.
func (b *base) now() time.Time {
	return b.clock().UTC().Truncate(time.Millisecond)
}

func requireID(id, what string) error {
	if !utils.IsValidID(id) {
		return apperror.BadRequest("Invalid " + what + " id")
	}
	return nil
}

// notFound converts store.ErrNotFound into a 404 with message and anything
// else into an internal error.
func notFound(err error, message string) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperror.NotFound(message)
	}
	return apperror.Internal(err)
}

// memberConversation loads a conversation userID belongs to.
func (b *base) memberConversation(ctx context.Context, conversationID, userID string) (*models.Conversation, error) {
	if err := requireID(conversationID, "conversation"); err != nil {
		return nil, err
	}
	conv, err := b.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, notFound(err, "Conversation not found")
	}
	if !conv.HasParticipant(userID) {
		return nil, apperror.Forbidden("You are not a participant of this conversation")
	}
	return conv, nil
}

// getUser loads a user that must exist, such as the authenticated caller.
func (b *base) getUser(ctx context.Context, id string) (*models.User, error) {
	u, err := b.store.GetUser(ctx, id)
	if err != nil {
		return nil, notFound(err, "User not found")
	}
	return u, nil
}

// summaries loads the public identity of ids keyed by id.
func (b *base) summaries(ctx context.Context, ids []string) (map[string]models.UserSummary, error) {
	list, err := b.store.ListUserSummaries(ctx, dedupe(ids))
	if err != nil {
		return nil, apperror.Internal(err)
	}
	out := make(map[string]models.UserSummary, len(list))
	for _, s := range list {
		s.ProfilePic = b.pictureURL(ctx, s.ProfilePic)
		out[s.ID] = s
	}
	return out, nil
}

// summaryOf returns the summary of id, or a bare one for deleted users.
func summaryOf(users map[string]models.UserSummary, id string) models.UserSummary {
	if s, ok := users[id]; ok {
		return s
	}
	return models.UserSummary{ID: id}
}

// pictureURL turns a stored media key into a download URL and leaves plain
// URLs alone.
func (b *base) pictureURL(ctx context.Context, value string) string {
	if !strings.HasPrefix(value, mediaRoot) || b.objects == nil {
		return value
	}
	u, err := b.objects.PresignDownload(ctx, value)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("key", value).Msg("failed to presign picture")
		return ""
	}
	return u.URL
}

func clampLimit(limit, fallback, max int) int64 {
	if limit <= 0 {
		limit = fallback
	}
	if limit > max {
		limit = max
	}
	return int64(limit)
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func without(ids []string, drop string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != drop {
			out = append(out, id)
		}
	}
	return out
}
