package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"letschat/server/internal/apperror"
	"letschat/server/internal/models"
	"letschat/server/internal/store"
	"letschat/server/internal/utils"
)

const suggestionLimit = 10

// FriendService handles friend requests and suggestions.
type FriendService struct {
	*base
}

// RespondResult is the outcome of answering a friend request. ConversationID
// is set when the request was accepted.
type RespondResult struct {
	Request        *models.FriendRequest `json:"request"`
	ConversationID string                `json:"conversationId,omitempty"`
}

// Send creates a pending request from userID to friendID.
func (s *FriendService) Send(ctx context.Context, userID, friendID string) (*models.FriendRequest, error) {
	if err := requireID(friendID, "user"); err != nil {
		return nil, err
	}
	if friendID == userID {
		return nil, apperror.BadRequest("You cannot send a friend request to yourself")
	}

	var me *models.User
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		me, err = s.store.GetUser(gctx, userID)
		return err
	})
	g.Go(func() error {
		_, err := s.store.GetUser(gctx, friendID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, notFound(err, "User not found")
	}

	if me.IsFriend(friendID) {
		return nil, apperror.BadRequest("You are already friends")
	}

	_, err := s.store.FindPendingFriendRequest(ctx, friendID, userID)
	switch {
	case err == nil:
		return nil, apperror.BadRequest("This user has already sent you a friend request")
	case !errors.Is(err, store.ErrNotFound):
		return nil, apperror.Internal(err)
	}

	now := s.now()
	req := &models.FriendRequest{
		ID:        utils.NewID(),
		SentBy:    userID,
		SentTo:    friendID,
		Status:    models.RequestPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateFriendRequest(ctx, req); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperror.Conflict("Friend request already sent")
		}
		return nil, apperror.Internal(err)
	}
	if err := s.store.AddSentRequest(ctx, userID, friendID, now); err != nil {
		return nil, apperror.Internal(err)
	}
	return req, nil
}

// Respond accepts or rejects a pending request addressed to userID.
// Accepting links both users through a direct conversation; rejecting
// deletes the request so it can be sent again.
func (s *FriendService) Respond(ctx context.Context, userID, requestID string, action models.FriendRequestStatus) (*RespondResult, error) {
	if action != models.RequestAccepted && action != models.RequestRejected {
		return nil, apperror.BadRequest("Action must be accepted or rejected")
	}
	if err := requireID(requestID, "friend request"); err != nil {
		return nil, err
	}

	req, err := s.store.GetFriendRequest(ctx, requestID)
	if err != nil {
		return nil, notFound(err, "Friend request not found")
	}
	if req.SentTo != userID {
		return nil, apperror.Forbidden("This friend request is not addressed to you")
	}
	if req.Status != models.RequestPending {
		return nil, apperror.Conflict("Friend request was already answered")
	}

	now := s.now()
	resolved, err := s.store.ResolveFriendRequest(ctx, requestID, userID, action, now)
	if errors.Is(err, store.ErrNotFound) {
		// answered or removed concurrently
		if _, gerr := s.store.GetFriendRequest(ctx, requestID); errors.Is(gerr, store.ErrNotFound) {
			return nil, apperror.NotFound("Friend request not found")
		}
		return nil, apperror.Conflict("Friend request was already answered")
	}
	if err != nil {
		return nil, apperror.Internal(err)
	}

	result := &RespondResult{Request: resolved}
	if action == models.RequestAccepted {
		conv, err := s.directConversation(ctx, resolved.SentBy, resolved.SentTo)
		if err != nil {
			return nil, err
		}
		result.ConversationID = conv.ID

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return s.store.LinkFriend(gctx, resolved.SentBy, resolved.SentTo, conv.ID, now) })
		g.Go(func() error { return s.store.LinkFriend(gctx, resolved.SentTo, resolved.SentBy, conv.ID, now) })
		if err := g.Wait(); err != nil {
			return nil, apperror.Internal(err)
		}
	} else if err := s.store.DeleteFriendRequest(ctx, resolved.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, apperror.Internal(err)
	}

	if err := s.store.RemoveSentRequest(ctx, resolved.SentBy, resolved.SentTo, now); err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, apperror.Internal(err)
	}

	log.Ctx(ctx).Info().
		Str("request_id", resolved.ID).
		Str("status", string(action)).
		Msg("friend request answered")
	return result, nil
}

// directConversation returns the direct conversation between a and b,
// creating it when none exists.
func (s *FriendService) directConversation(ctx context.Context, a, b string) (*models.Conversation, error) {
	conv, err := s.store.FindDirectConversation(ctx, a, b)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, apperror.Internal(err)
	}

	conv, err = models.NewDirectConversation(utils.NewID(), a, b, s.now())
	if err != nil {
		return nil, apperror.BadRequest(err.Error())
	}
	if err := s.store.CreateConversation(ctx, conv); err != nil {
		return nil, apperror.Internal(err)
	}
	return conv, nil
}

// Incoming lists pending requests addressed to userID with their senders.
func (s *FriendService) Incoming(ctx context.Context, userID string) ([]models.FriendRequestWithUser, error) {
	reqs, err := s.store.ListFriendRequests(ctx, store.FriendRequestFilter{
		SentTo: userID,
		Status: models.RequestPending,
	})
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return s.withUsers(ctx, reqs, func(r models.FriendRequest) string { return r.SentBy })
}

// Sent lists requests sent by userID with their recipients.
func (s *FriendService) Sent(ctx context.Context, userID string) ([]models.FriendRequestWithUser, error) {
	reqs, err := s.store.ListFriendRequests(ctx, store.FriendRequestFilter{SentBy: userID})
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return s.withUsers(ctx, reqs, func(r models.FriendRequest) string { return r.SentTo })
}

func (s *FriendService) withUsers(ctx context.Context, reqs []models.FriendRequest, other func(models.FriendRequest) string) ([]models.FriendRequestWithUser, error) {
	ids := make([]string, 0, len(reqs))
	for _, r := range reqs {
		ids = append(ids, other(r))
	}
	users, err := s.summaries(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]models.FriendRequestWithUser, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, models.FriendRequestWithUser{
			ID:        r.ID,
			Status:    r.Status,
			User:      summaryOf(users, other(r)),
			CreatedAt: r.CreatedAt,
		})
	}
	return out, nil
}

// Suggestions returns users that are not userID, not friends and not on
// either side of a pending request.
func (s *FriendService) Suggestions(ctx context.Context, userID string) ([]models.UserSummary, error) {
	me, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	incoming, err := s.store.ListFriendRequests(ctx, store.FriendRequestFilter{
		SentTo: userID,
		Status: models.RequestPending,
	})
	if err != nil {
		return nil, apperror.Internal(err)
	}

	exclude := append([]string{userID}, me.Friends...)
	exclude = append(exclude, me.SentFriendRequests...)
	for _, r := range incoming {
		exclude = append(exclude, r.SentBy)
	}

	users, err := s.store.SuggestUsers(ctx, dedupe(exclude), suggestionLimit)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	out := make([]models.UserSummary, 0, len(users))
	for i := range users {
		sum := users[i].Summary()
		sum.ProfilePic = s.pictureURL(ctx, sum.ProfilePic)
		out = append(out, sum)
	}
	return out, nil
}
