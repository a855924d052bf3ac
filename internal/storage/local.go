package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"letschat/server/internal/config"
)

var ErrInvalidSignature = errors.New("storage: invalid or expired signature")

// Local keeps objects on disk and signs URLs that point at the server's own
// /uploads endpoints.
type Local struct {
	dir     string
	baseURL string
	ttl     time.Duration
	secret  []byte
	now     func() time.Time
}

type objectClaims struct {
	Key         string `json:"key"`
	Method      string `json:"method"`
	ContentType string `json:"ct,omitempty"`
	jwt.RegisteredClaims
}

func NewLocal(cfg config.StorageConfig, secret string) (*Local, error) {
	if err := os.MkdirAll(cfg.LocalDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &Local{
		dir:     cfg.LocalDir,
		baseURL: cfg.PublicBaseURL,
		ttl:     cfg.URLTTL,
		secret:  []byte(secret),
		now:     time.Now,
	}, nil
}

func (l *Local) PresignUpload(ctx context.Context, key, contentType string) (PresignedURL, error) {
	return l.sign(key, http.MethodPut, contentType)
}

func (l *Local) PresignDownload(ctx context.Context, key string) (PresignedURL, error) {
	return l.sign(key, http.MethodGet, "")
}

func (l *Local) sign(key, method, contentType string) (PresignedURL, error) {
	if err := ValidateKey(key); err != nil {
		return PresignedURL{}, err
	}
	now := l.now()
	expires := now.Add(l.ttl)
	claims := objectClaims{
		Key:         key,
		Method:      method,
		ContentType: contentType,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(l.secret)
	if err != nil {
		return PresignedURL{}, fmt.Errorf("sign %s: %w", key, err)
	}

	u := l.baseURL + "/uploads/" + key + "?token=" + url.QueryEscape(token)
	return PresignedURL{URL: u, Method: method, ExpiresAt: expires}, nil
}

// Verify checks that token grants method on key and returns the content type
// bound at signing time.
func (l *Local) Verify(token, key, method string) (string, error) {
	claims := &objectClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return l.secret, nil
	}, jwt.WithTimeFunc(l.now))
	if err != nil || !parsed.Valid {
		return "", ErrInvalidSignature
	}
	if claims.Key != key || claims.Method != method {
		return "", ErrInvalidSignature
	}
	return claims.ContentType, nil
}

// Save writes at most limit bytes from r to key.
func (l *Local) Save(key string, r io.Reader, limit int64) error {
	p, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return err
	}

	f, err := os.Create(p)
	if err != nil {
		return err
	}
	n, err := io.Copy(f, io.LimitReader(r, limit+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > limit {
		err = fmt.Errorf("object exceeds %d bytes", limit)
	}
	if err != nil {
		_ = os.Remove(p)
	}
	return err
}

// Open returns the object stored under key.
func (l *Local) Open(key string) (*os.File, error) {
	p, err := l.path(key)
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}

func (l *Local) path(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(l.dir, filepath.FromSlash(key)), nil
}

// ValidateKey rejects keys that are empty, absolute or escape their root.
func ValidateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return ErrInvalidKey
	}
	if path.Clean(key) != key || strings.HasPrefix(key, "../") || key == ".." {
		return ErrInvalidKey
	}
	return nil
}
