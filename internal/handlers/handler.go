package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"letschat/server/internal/apperror"
	"letschat/server/internal/config"
	"letschat/server/internal/middleware"
	"letschat/server/internal/services"
	"letschat/server/internal/storage"
)

// Handler exposes the services over HTTP.
type Handler struct {
	svc   *services.Services
	local *storage.Local

	maxCursorIDs  int
	tokenTTL      time.Duration
	secureCookies bool
}

// New builds a Handler. local is nil unless objects are kept on disk.
func New(svc *services.Services, local *storage.Local, cfg *config.Config) *Handler {
	return &Handler{
		svc:           svc,
		local:         local,
		maxCursorIDs:  cfg.FeedMaxCursorIDs,
		tokenTTL:      cfg.TokenTTL,
		secureCookies: !cfg.IsDevelopment(),
	}
}

// HasLocalStorage reports whether the /uploads endpoints should be mounted.
func (h *Handler) HasLocalStorage() bool {
	return h.local != nil
}

// ErrorHandler renders every error returned by a handler as
// {"success": false, "error": message}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	status := apperror.StatusOf(err)
	message := apperror.MessageOf(err)

	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		status, message = fe.Code, fe.Message
	case errors.Is(err, context.DeadlineExceeded):
		status, message = fiber.StatusGatewayTimeout, "Request timed out"
	}

	if status >= fiber.StatusInternalServerError {
		log.Ctx(c.UserContext()).Error().
			Err(err).
			Int("status", status).
			Str("path", c.Path()).
			Msg("request failed")
	}

	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

// Health reports that the server is up.
func Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"status":  "ok",
		"message": "Lets chat API is running",
	})
}

func ok(c *fiber.Ctx, data interface{}) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

func created(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

func parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return apperror.BadRequest("Invalid request body")
	}
	return nil
}

func userID(c *fiber.Ctx) string {
	return middleware.GetUserID(c)
}
