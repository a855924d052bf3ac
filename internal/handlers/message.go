package handlers

import (
	"github.com/gofiber/fiber/v2"

	"letschat/server/internal/services"
)

// SendMessage sends a message to :conversationId
func (h *Handler) SendMessage(c *fiber.Ctx) error {
	var req services.SendMessageInput
	if err := parseBody(c, &req); err != nil {
		return err
	}

	msg, err := h.svc.Messages.Send(c.UserContext(), userID(c), c.Params("conversationId"), req)
	if err != nil {
		return err
	}
	return created(c, msg)
}

// MarkSeen marks the conversation's messages as seen by the caller
func (h *Handler) MarkSeen(c *fiber.Ctx) error {
	n, err := h.svc.Messages.MarkSeen(c.UserContext(), userID(c), c.Params("conversationId"))
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"updated": n})
}

// DeleteMessage hides a message from the caller
func (h *Handler) DeleteMessage(c *fiber.Ctx) error {
	if err := h.svc.Messages.DeleteForMe(c.UserContext(), userID(c), c.Params("messageId")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Message deleted",
	})
}

// BlockConversation blocks :conversationId for the caller
func (h *Handler) BlockConversation(c *fiber.Ctx) error {
	return h.setBlocked(c, true)
}

// UnblockConversation unblocks :conversationId for the caller
func (h *Handler) UnblockConversation(c *fiber.Ctx) error {
	return h.setBlocked(c, false)
}

func (h *Handler) setBlocked(c *fiber.Ctx, blocked bool) error {
	conversationID := c.Params("conversationId")
	if err := h.svc.Messages.SetBlocked(c.UserContext(), userID(c), conversationID, blocked); err != nil {
		return err
	}
	return ok(c, fiber.Map{
		"conversationId": conversationID,
		"isBlocked":      blocked,
	})
}
