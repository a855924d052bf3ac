package handlers

import (
	"github.com/gofiber/fiber/v2"

	"letschat/server/internal/services"
)

// GetAllChats returns the first page of the caller's conversation feed
func (h *Handler) GetAllChats(c *fiber.Ctx) error {
	page, err := h.svc.Feed.GetAllChats(c.UserContext(), userID(c), c.QueryInt("limit"))
	if err != nil {
		return err
	}
	return ok(c, page)
}

// GetMoreChats returns the next feed page after the conversations in
// conversationIds.
func (h *Handler) GetMoreChats(c *fiber.Ctx) error {
	shown, err := services.ParseConversationIDs(c.Query("conversationIds"), h.maxCursorIDs)
	if err != nil {
		return err
	}

	page, err := h.svc.Feed.GetMoreChats(c.UserContext(), userID(c), shown, c.QueryInt("limit"))
	if err != nil {
		return err
	}
	return ok(c, page)
}

// FetchGroups returns a page of the caller's groups
func (h *Handler) FetchGroups(c *fiber.Ctx) error {
	shown, err := services.ParseConversationIDs(c.Query("conversationIds"), h.maxCursorIDs)
	if err != nil {
		return err
	}

	page, err := h.svc.Feed.FetchGroups(c.UserContext(), userID(c), shown, c.QueryInt("limit"))
	if err != nil {
		return err
	}
	return ok(c, page)
}

// SearchChats filters the caller's conversations by name or description
func (h *Handler) SearchChats(c *fiber.Ctx) error {
	chats, err := h.svc.Feed.SearchChats(c.UserContext(), userID(c), c.Query("query"))
	if err != nil {
		return err
	}
	return ok(c, chats)
}

// GetPrivateChat opens a conversation with its newest messages
func (h *Handler) GetPrivateChat(c *fiber.Ctx) error {
	view, err := h.svc.History.OpenConversation(c.UserContext(), userID(c), c.Params("conversationId"), c.QueryInt("limit"))
	if err != nil {
		return err
	}
	return ok(c, view)
}

// GetOlderMessages pages backwards from lastMessageId
func (h *Handler) GetOlderMessages(c *fiber.Ctx) error {
	page, err := h.svc.History.OlderMessages(c.UserContext(), userID(c),
		c.Params("conversationId"), c.Query("lastMessageId"), c.QueryInt("limit"))
	if err != nil {
		return err
	}
	return ok(c, page)
}
