package services

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"letschat/server/internal/apperror"
	"letschat/server/internal/storage"
)

const (
	mediaRoot       = "media/"
	maxFileNameSize = 100
)

// allowedExtensions lists the accepted file extensions per upload kind.
var allowedExtensions = map[string][]string{
	"image":    {".jpg", ".jpeg", ".png", ".webp"},
	"gif":      {".gif"},
	"video":    {".mp4", ".webm", ".mov"},
	"document": {".pdf", ".doc", ".docx", ".xls", ".xlsx", ".txt", ".zip"},
	"profile":  {".jpg", ".jpeg", ".png", ".webp", ".gif"},
}

// MediaService issues upload URLs for media objects.
type MediaService struct {
	*base
}

type UploadInput struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Kind        string `json:"kind"`
}

type UploadTicket struct {
	Key string `json:"key"`
	storage.PresignedURL
}

// UploadURL reserves a key under the user's media prefix and returns a URL
// the client can upload the file to.
func (s *MediaService) UploadURL(ctx context.Context, userID string, in UploadInput) (*UploadTicket, error) {
	if s.objects == nil {
		return nil, apperror.New(http.StatusServiceUnavailable, "Media uploads are not configured")
	}
	kind := strings.ToLower(strings.TrimSpace(in.Kind))
	exts, ok := allowedExtensions[kind]
	if !ok {
		return nil, apperror.BadRequest("Invalid upload kind. Must be: image, gif, video, document or profile")
	}

	name := sanitizeFileName(in.FileName)
	if name == "" {
		return nil, apperror.BadRequest("File name is required")
	}
	ext := strings.ToLower(filepath.Ext(name))
	if !containsID(exts, ext) {
		return nil, apperror.BadRequest(fmt.Sprintf("File extension %s not allowed for %s", ext, kind))
	}

	contentType := in.ContentType
	if contentType == "" {
		contentType = storage.ContentType(name)
	}

	key := fmt.Sprintf("%s%s/%d_%s_%s", mediaRoot, userID, s.now().UnixMilli(), uuid.NewString(), name)
	u, err := s.objects.PresignUpload(ctx, key, contentType)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return &UploadTicket{Key: key, PresignedURL: u}, nil
}

// checkMediaKey accepts an empty key or one issued to userID.
func checkMediaKey(userID, key string) error {
	if key == "" {
		return nil
	}
	if !strings.HasPrefix(key, mediaRoot+userID+"/") || storage.ValidateKey(key) != nil {
		return apperror.BadRequest("Invalid media key")
	}
	return nil
}

// sanitizeFileName keeps the base name with letters, digits, dots, dashes
// and underscores only.
func sanitizeFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.TrimLeft(b.String(), ".")
	if len(out) > maxFileNameSize {
		ext := filepath.Ext(out)
		if len(ext) >= maxFileNameSize {
			return ""
		}
		out = out[:maxFileNameSize-len(ext)] + ext
	}
	return out
}
