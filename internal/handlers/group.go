package handlers

import (
	"github.com/gofiber/fiber/v2"

	"letschat/server/internal/services"
	"letschat/server/internal/store"
)

// UpdateGroupRequest represents update group request body
type UpdateGroupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Picture     string `json:"picture"`
}

// MembersRequest represents add or remove members request body
type MembersRequest struct {
	Members []string `json:"members"`
}

// CreateGroup creates a new group
func (h *Handler) CreateGroup(c *fiber.Ctx) error {
	var req services.CreateGroupInput
	if err := parseBody(c, &req); err != nil {
		return err
	}

	group, err := h.svc.Groups.Create(c.UserContext(), userID(c), req)
	if err != nil {
		return err
	}
	return created(c, group)
}

// UpdateGroup updates group name, description or picture
func (h *Handler) UpdateGroup(c *fiber.Ctx) error {
	var req UpdateGroupRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	group, err := h.svc.Groups.Update(c.UserContext(), userID(c), c.Params("groupId"), store.GroupPatch{
		Name:        req.Name,
		Description: req.Description,
		Picture:     req.Picture,
	})
	if err != nil {
		return err
	}
	return ok(c, group)
}

// AddGroupMembers adds friends of the admin to the group
func (h *Handler) AddGroupMembers(c *fiber.Ctx) error {
	var req MembersRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	group, err := h.svc.Groups.AddMembers(c.UserContext(), userID(c), c.Params("groupId"), req.Members)
	if err != nil {
		return err
	}
	return ok(c, group)
}

// RemoveGroupMembers removes members from the group
func (h *Handler) RemoveGroupMembers(c *fiber.Ctx) error {
	var req MembersRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	group, err := h.svc.Groups.RemoveMembers(c.UserContext(), userID(c), c.Params("groupId"), req.Members)
	if err != nil {
		return err
	}
	return ok(c, group)
}

// DeleteGroup deletes a group with its messages (admin only)
func (h *Handler) DeleteGroup(c *fiber.Ctx) error {
	if err := h.svc.Groups.Delete(c.UserContext(), userID(c), c.Params("groupId")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Group deleted successfully",
	})
}

// LeaveGroup removes the caller from a group
func (h *Handler) LeaveGroup(c *fiber.Ctx) error {
	if err := h.svc.Groups.Leave(c.UserContext(), userID(c), c.Params("groupId")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Left group successfully",
	})
}
