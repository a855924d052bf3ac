package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"letschat/server/internal/apperror"
	"letschat/server/internal/services"
	"letschat/server/internal/storage"
)

const MaxFileSize = 25 * 1024 * 1024 // 25MB

// UploadURL issues a presigned URL the client uploads a media file to
func (h *Handler) UploadURL(c *fiber.Ctx) error {
	var req services.UploadInput
	if err := parseBody(c, &req); err != nil {
		return err
	}

	ticket, err := h.svc.Media.UploadURL(c.UserContext(), userID(c), req)
	if err != nil {
		return err
	}
	return created(c, ticket)
}

// PutObject stores an upload authorized by a signed URL
func (h *Handler) PutObject(c *fiber.Ctx) error {
	key := c.Params("*")
	contentType, err := h.local.Verify(c.Query("token"), key, fiber.MethodPut)
	if err != nil {
		return apperror.Forbidden("Invalid or expired upload URL")
	}
	if contentType != "" && !sameMediaType(contentType, c.Get(fiber.HeaderContentType)) {
		return apperror.BadRequest("Content type does not match the upload URL")
	}

	body := c.Body()
	if len(body) > MaxFileSize {
		return apperror.New(fiber.StatusRequestEntityTooLarge,
			fmt.Sprintf("File size exceeds limit of 25MB (uploaded: %.2fMB)", float64(len(body))/(1024*1024)))
	}
	if err := h.local.Save(key, bytes.NewReader(body), MaxFileSize); err != nil {
		return apperror.Internal(err)
	}

	log.Ctx(c.UserContext()).Info().Str("key", key).Int("size", len(body)).Msg("object stored")
	return c.SendStatus(fiber.StatusOK)
}

// GetObject serves a stored file authorized by a signed URL
func (h *Handler) GetObject(c *fiber.Ctx) error {
	key := c.Params("*")
	if _, err := h.local.Verify(c.Query("token"), key, fiber.MethodGet); err != nil {
		return apperror.Forbidden("Invalid or expired download URL")
	}

	file, err := h.local.Open(key)
	if errors.Is(err, fs.ErrNotExist) {
		return apperror.NotFound("File not found")
	}
	if err != nil {
		return apperror.Internal(err)
	}
	defer file.Close()

	fileInfo, err := file.Stat()
	if err != nil {
		return apperror.Internal(err)
	}

	c.Set(fiber.HeaderContentType, storage.ContentType(key))
	c.Set(fiber.HeaderContentLength, fmt.Sprintf("%d", fileInfo.Size()))

	// Stream file to client
	if _, err := io.Copy(c.Response().BodyWriter(), file); err != nil {
		return apperror.Internal(err)
	}
	return nil
}

func sameMediaType(want, got string) bool {
	w, _, err := mime.ParseMediaType(want)
	if err != nil {
		return false
	}
	g, _, err := mime.ParseMediaType(got)
	return err == nil && w == g
}
