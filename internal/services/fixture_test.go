package services

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"letschat/server/internal/apperror"
	"letschat/server/internal/models"
	"letschat/server/internal/storage"
	"letschat/server/internal/store/memstore"
	"letschat/server/internal/utils"
)

type testClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type fakeObjects struct{}

func (fakeObjects) PresignUpload(ctx context.Context, key, contentType string) (storage.PresignedURL, error) {
	return storage.PresignedURL{URL: "https://files.test/" + key + "?op=put", Method: http.MethodPut}, nil
}

func (fakeObjects) PresignDownload(ctx context.Context, key string) (storage.PresignedURL, error) {
	return storage.PresignedURL{URL: "https://files.test/" + key, Method: http.MethodGet}, nil
}

type fixture struct {
	ctx   context.Context
	store *memstore.Store
	svc   *Services
	clock *testClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := &testClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), step: time.Second}
	st := memstore.New()
	return &fixture{
		ctx:   context.Background(),
		store: st,
		clock: clock,
		svc: New(Deps{
			Store:   st,
			Objects: fakeObjects{},
			Tokens:  utils.NewTokenManager("test-secret", "letschat", time.Hour),
			Settings: Settings{
				FeedPageSize:     10,
				FeedMaxCursorIDs: 1000,
				MessagePageSize:  10,
				SearchLimit:      50,
				Location:         time.UTC,
			},
			Now: clock.Now,
		}),
	}
}

// user stores a user directly, skipping password hashing.
func (f *fixture) user(t *testing.T, name string) *models.User {
	t.Helper()
	id := utils.NewID()
	u := &models.User{
		ID:        id,
		FullName:  name,
		UserName:  "#" + id,
		Email:     id + "@example.com",
		Bio:       models.DefaultBio,
		CreatedAt: f.clock.Now(),
	}
	if err := f.store.CreateUser(f.ctx, u); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	return u
}

// befriend runs a full request and acceptance and returns the direct
// conversation id.
func (f *fixture) befriend(t *testing.T, a, b *models.User) string {
	t.Helper()
	req, err := f.svc.Friends.Send(f.ctx, a.ID, b.ID)
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	res, err := f.svc.Friends.Respond(f.ctx, b.ID, req.ID, models.RequestAccepted)
	if err != nil {
		t.Fatalf("Respond failed: %v", err)
	}
	return res.ConversationID
}

func (f *fixture) send(t *testing.T, from *models.User, convID, text string) *models.MessageWithSender {
	t.Helper()
	msg, err := f.svc.Messages.Send(f.ctx, from.ID, convID, SendMessageInput{Type: models.TypeText, Text: text})
	if err != nil {
		t.Fatalf("Send message failed: %v", err)
	}
	return msg
}

func wantStatus(t *testing.T, err error, status int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected status %d, got success", status)
	}
	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected an apperror, got %v", err)
	}
	if appErr.Status != status {
		t.Fatalf("expected status %d, got %d (%s)", status, appErr.Status, appErr.Message)
	}
}

func flatten(days []models.DayGroup) []models.MessageWithSender {
	var out []models.MessageWithSender
	for _, d := range days {
		out = append(out, d.Messages...)
	}
	return out
}
