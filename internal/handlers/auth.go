package handlers

import (
	"github.com/gofiber/fiber/v2"

	"letschat/server/internal/services"
)

// Register handles user registration
func (h *Handler) Register(c *fiber.Ctx) error {
	var req services.RegisterInput
	if err := parseBody(c, &req); err != nil {
		return err
	}

	res, err := h.svc.Accounts.Register(c.UserContext(), req)
	if err != nil {
		return err
	}

	h.setTokenCookie(c, res.Token)
	return created(c, res)
}

// Login handles user login
func (h *Handler) Login(c *fiber.Ctx) error {
	var req services.LoginInput
	if err := parseBody(c, &req); err != nil {
		return err
	}

	res, err := h.svc.Accounts.Login(c.UserContext(), req)
	if err != nil {
		return err
	}

	h.setTokenCookie(c, res.Token)
	return ok(c, res)
}

// Me returns the authenticated user's profile
func (h *Handler) Me(c *fiber.Ctx) error {
	me, err := h.svc.Accounts.Me(c.UserContext(), userID(c))
	if err != nil {
		return err
	}
	return ok(c, me)
}

// setTokenCookie mirrors the access token in an HTTP-only cookie for browser
// clients.
func (h *Handler) setTokenCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     "token",
		Value:    token,
		HTTPOnly: true,
		Secure:   h.secureCookies,
		SameSite: "Lax",
		MaxAge:   int(h.tokenTTL.Seconds()),
	})
}
