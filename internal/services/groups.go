package services

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"letschat/server/internal/apperror"
	"letschat/server/internal/models"
	"letschat/server/internal/store"
	"letschat/server/internal/utils"
)

const maxGroupNameLength = 100

// GroupService manages group conversations and their membership.
type GroupService struct {
	*base
}

type CreateGroupInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Picture     string `json:"picture"`
}

// Create makes a group administered by userID with userID as its only member.
func (s *GroupService) Create(ctx context.Context, userID string, in CreateGroupInput) (*models.Conversation, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperror.BadRequest("Group name is required")
	}
	if len(name) > maxGroupNameLength {
		return nil, apperror.BadRequest("Group name is too long")
	}
	if err := checkMediaKey(userID, in.Picture); err != nil {
		return nil, err
	}

	now := s.now()
	conv, err := models.NewGroupConversation(utils.NewID(), models.GroupInfo{
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Picture:     in.Picture,
		AdminID:     userID,
	}, now)
	if err != nil {
		return nil, apperror.BadRequest(err.Error())
	}

	if err := s.store.CreateConversation(ctx, conv); err != nil {
		return nil, apperror.Internal(err)
	}
	if err := s.store.AddConversation(ctx, []string{userID}, conv.ID, now); err != nil {
		return nil, apperror.Internal(err)
	}
	return conv, nil
}

// Update overwrites the non-empty fields of patch. Only the admin may update.
func (s *GroupService) Update(ctx context.Context, userID, groupID string, patch store.GroupPatch) (*models.Conversation, error) {
	if err := requireID(groupID, "group"); err != nil {
		return nil, err
	}
	patch.Name = strings.TrimSpace(patch.Name)
	patch.Description = strings.TrimSpace(patch.Description)
	if patch.IsEmpty() {
		return nil, apperror.BadRequest("Nothing to update")
	}
	if len(patch.Name) > maxGroupNameLength {
		return nil, apperror.BadRequest("Group name is too long")
	}
	if err := checkMediaKey(userID, patch.Picture); err != nil {
		return nil, err
	}

	conv, err := s.store.UpdateGroup(ctx, groupID, userID, patch, s.now())
	if err != nil {
		return nil, s.adminMiss(ctx, err, groupID, userID)
	}
	return conv, nil
}

// AddMembers adds friends of the admin to the group.
func (s *GroupService) AddMembers(ctx context.Context, userID, groupID string, memberIDs []string) (*models.Conversation, error) {
	if _, err := s.adminGroup(ctx, groupID, userID); err != nil {
		return nil, err
	}
	ids, err := s.checkMembers(userID, memberIDs)
	if err != nil {
		return nil, err
	}

	var me *models.User
	var found []models.User
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		me, err = s.store.GetUser(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		found, err = s.store.ListUsers(gctx, ids)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, notFound(err, "User not found")
	}

	if len(found) != len(ids) {
		return nil, apperror.BadRequest("One or more member IDs are invalid")
	}
	for _, id := range ids {
		if !me.IsFriend(id) {
			return nil, apperror.BadRequest("Only friends can be added to a group")
		}
	}

	now := s.now()
	conv, err := s.store.AddParticipants(ctx, groupID, userID, ids, now)
	if err != nil {
		return nil, s.adminMiss(ctx, err, groupID, userID)
	}
	if err := s.store.AddConversation(ctx, ids, conv.ID, now); err != nil {
		return nil, apperror.Internal(err)
	}
	return conv, nil
}

// RemoveMembers removes members other than the admin from the group.
func (s *GroupService) RemoveMembers(ctx context.Context, userID, groupID string, memberIDs []string) (*models.Conversation, error) {
	if _, err := s.adminGroup(ctx, groupID, userID); err != nil {
		return nil, err
	}
	if containsID(memberIDs, userID) {
		return nil, apperror.BadRequest("The admin cannot be removed from the group")
	}
	ids, err := s.checkMembers(userID, memberIDs)
	if err != nil {
		return nil, err
	}

	now := s.now()
	conv, err := s.store.RemoveParticipants(ctx, groupID, userID, ids, now)
	if err != nil {
		return nil, s.adminMiss(ctx, err, groupID, userID)
	}
	if err := s.store.RemoveConversation(ctx, ids, conv.ID, now); err != nil {
		return nil, apperror.Internal(err)
	}
	return conv, nil
}

// Delete removes the group, its messages and every member's link to it.
func (s *GroupService) Delete(ctx context.Context, userID, groupID string) error {
	if err := requireID(groupID, "group"); err != nil {
		return err
	}
	conv, err := s.store.DeleteGroup(ctx, groupID, userID)
	if err != nil {
		return s.adminMiss(ctx, err, groupID, userID)
	}
	return s.cascade(ctx, conv)
}

// Leave removes userID from the group. An admin hands the role to the first
// remaining member; the last member leaving deletes the group.
func (s *GroupService) Leave(ctx context.Context, userID, groupID string) error {
	conv, err := s.memberConversation(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if !conv.IsGroup() {
		return apperror.BadRequest("Only groups can be left")
	}

	remaining := without(conv.Participants, userID)
	if conv.IsAdmin(userID) && len(remaining) == 0 {
		deleted, err := s.store.DeleteGroup(ctx, conv.ID, userID)
		if err != nil {
			return s.leaveMiss(ctx, err, conv.ID, userID)
		}
		return s.cascade(ctx, deleted)
	}

	next := ""
	if conv.IsAdmin(userID) {
		next = remaining[0]
	}
	now := s.now()
	if _, err := s.store.LeaveGroup(ctx, conv.ID, userID, next, now); err != nil {
		return s.leaveMiss(ctx, err, conv.ID, userID)
	}
	if err := s.store.RemoveConversation(ctx, []string{userID}, conv.ID, now); err != nil {
		return apperror.Internal(err)
	}
	return nil
}

func (s *GroupService) cascade(ctx context.Context, conv *models.Conversation) error {
	var removed int64
	now := s.now()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		removed, err = s.store.DeleteConversationMessages(gctx, conv.ID)
		return err
	})
	g.Go(func() error { return s.store.RemoveConversationFromAll(gctx, conv.ID, now) })
	if err := g.Wait(); err != nil {
		return apperror.Internal(err)
	}

	log.Ctx(ctx).Info().
		Str("conversation_id", conv.ID).
		Int64("messages", removed).
		Msg("group deleted")
	return nil
}

// adminGroup loads a group administered by userID.
func (s *GroupService) adminGroup(ctx context.Context, groupID, userID string) (*models.Conversation, error) {
	if err := requireID(groupID, "group"); err != nil {
		return nil, err
	}
	conv, err := s.store.GetConversation(ctx, groupID)
	if err != nil || !conv.IsGroup() {
		if err == nil {
			err = store.ErrNotFound
		}
		return nil, notFound(err, "Group not found")
	}
	if !conv.IsAdmin(userID) {
		return nil, apperror.Forbidden("Only the group admin can do this")
	}
	return conv, nil
}

// adminMiss explains why an admin-filtered update matched nothing.
func (s *GroupService) adminMiss(ctx context.Context, err error, groupID, userID string) error {
	if !errors.Is(err, store.ErrNotFound) {
		return apperror.Internal(err)
	}
	if _, err := s.adminGroup(ctx, groupID, userID); err != nil {
		return err
	}
	return apperror.Conflict("Group changed, please retry")
}

// leaveMiss explains why a leave matched nothing.
func (s *GroupService) leaveMiss(ctx context.Context, err error, groupID, userID string) error {
	if !errors.Is(err, store.ErrNotFound) {
		return apperror.Internal(err)
	}
	if _, err := s.memberConversation(ctx, groupID, userID); err != nil {
		return err
	}
	return apperror.Conflict("Group changed, please retry")
}

func (s *GroupService) checkMembers(userID string, memberIDs []string) ([]string, error) {
	ids := dedupe(memberIDs)
	if len(ids) == 0 {
		return nil, apperror.BadRequest("At least one member is required")
	}
	for _, id := range ids {
		if id == userID {
			return nil, apperror.BadRequest("You cannot add or remove yourself")
		}
		if !utils.IsValidID(id) {
			return nil, apperror.BadRequest("One or more member IDs are invalid")
		}
	}
	return ids, nil
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
