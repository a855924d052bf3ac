package pgstore

import (
	"context"
	"os"
	"testing"

	"letschat/server/internal/database"
	"letschat/server/internal/store"
	"letschat/server/internal/store/storetest"
)

// Integration test: requires a disposable PostgreSQL database in DATABASE_URL.
// Tables are truncated before every subtest.
func TestStoreBehaviour(t *testing.T) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}

	ctx := context.Background()
	pool, err := database.ConnectPostgres(ctx, url)
	if err != nil {
		t.Fatalf("ConnectPostgres failed: %v", err)
	}
	defer pool.Close()

	s := New(pool)
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	storetest.Run(t, func(t *testing.T) store.Store {
		_, err := pool.Exec(ctx, `TRUNCATE users, conversations, messages, friend_requests`)
		if err != nil {
			t.Fatalf("truncate failed: %v", err)
		}
		return s
	})
}
