// Package storage issues time-limited URLs for media objects.
package storage

import (
	"context"
	"errors"
	"time"
)

var ErrInvalidKey = errors.New("storage: invalid object key")

// PresignedURL is a URL that grants one kind of access until ExpiresAt.
type PresignedURL struct {
	URL       string    `json:"url"`
	Method    string    `json:"method"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ObjectStore signs upload and download URLs for object keys.
type ObjectStore interface {
	PresignUpload(ctx context.Context, key, contentType string) (PresignedURL, error)
	PresignDownload(ctx context.Context, key string) (PresignedURL, error)
}
