package handlers

import (
	"github.com/gofiber/fiber/v2"

	"letschat/server/internal/models"
)

// RespondRequest represents the body of a friend request answer
type RespondRequest struct {
	Action models.FriendRequestStatus `json:"action"`
}

// SendFriendRequest sends a friend request to :friendId
func (h *Handler) SendFriendRequest(c *fiber.Ctx) error {
	req, err := h.svc.Friends.Send(c.UserContext(), userID(c), c.Params("friendId"))
	if err != nil {
		return err
	}
	return created(c, req)
}

// RespondFriendRequest accepts or rejects :friendRequestId
func (h *Handler) RespondFriendRequest(c *fiber.Ctx) error {
	var req RespondRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	res, err := h.svc.Friends.Respond(c.UserContext(), userID(c), c.Params("friendRequestId"), req.Action)
	if err != nil {
		return err
	}
	return ok(c, res)
}

// GetFriendRequests lists pending requests addressed to the caller
func (h *Handler) GetFriendRequests(c *fiber.Ctx) error {
	reqs, err := h.svc.Friends.Incoming(c.UserContext(), userID(c))
	if err != nil {
		return err
	}
	return ok(c, reqs)
}

// GetSentFriendRequests lists requests the caller sent
func (h *Handler) GetSentFriendRequests(c *fiber.Ctx) error {
	reqs, err := h.svc.Friends.Sent(c.UserContext(), userID(c))
	if err != nil {
		return err
	}
	return ok(c, reqs)
}

// GetUserSuggestions lists users the caller could befriend
func (h *Handler) GetUserSuggestions(c *fiber.Ctx) error {
	users, err := h.svc.Friends.Suggestions(c.UserContext(), userID(c))
	if err != nil {
		return err
	}
	return ok(c, users)
}
