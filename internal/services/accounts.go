package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/rs/zerolog/log"

	"letschat/server/internal/apperror"
	"letschat/server/internal/models"
	"letschat/server/internal/store"
	"letschat/server/internal/utils"
)

const (
	minPasswordLength = 6
	userNameAttempts  = 10
)

// AccountService registers users and issues their access tokens.
type AccountService struct {
	*base
	tokens *utils.TokenManager
}

type RegisterInput struct {
	FullName   string `json:"fullName"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	UserName   string `json:"userName"`
	ProfilePic string `json:"profilePic"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResult is returned by register and login.
type AuthResult struct {
	User  models.UserResponse `json:"user"`
	Token string              `json:"token"`
}

func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = normalizeEmail(in.Email)
	in.UserName = strings.TrimSpace(in.UserName)

	if in.FullName == "" || in.Email == "" || in.Password == "" {
		return nil, apperror.BadRequest("Full name, email and password are required")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, apperror.BadRequest("Invalid email address")
	}
	if strings.HasPrefix(in.ProfilePic, mediaRoot) {
		return nil, apperror.BadRequest("Profile picture must be a URL")
	}
	if len(in.Password) < minPasswordLength {
		return nil, apperror.BadRequest("Password must be at least 6 characters")
	}

	if _, err := s.store.GetUserByEmail(ctx, in.Email); err == nil {
		return nil, apperror.Conflict("Email already registered")
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, apperror.Internal(err)
	}

	userName, err := s.pickUserName(ctx, in.FullName, in.UserName)
	if err != nil {
		return nil, err
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	now := s.now()
	user := &models.User{
		ID:                   utils.NewID(),
		FullName:             in.FullName,
		UserName:             userName,
		Email:                in.Email,
		PasswordHash:         hash,
		ProfilePic:           in.ProfilePic,
		Bio:                  models.DefaultBio,
		Friends:              []string{},
		SentFriendRequests:   []string{},
		Conversations:        []string{},
		BlockedConversations: []string{},
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperror.Conflict("Email or user name already registered")
		}
		return nil, apperror.Internal(err)
	}

	log.Ctx(ctx).Info().Str("user_id", user.ID).Msg("user registered")
	return s.authResult(ctx, user)
}

// pickUserName returns the requested handle when it is well formed and
// free, or generates one from the full name.
func (s *AccountService) pickUserName(ctx context.Context, fullName, requested string) (string, error) {
	if requested != "" {
		if !utils.ValidateUserName(requested) {
			return "", apperror.BadRequest("User name must look like #NAME-123")
		}
		taken, err := s.store.UserNameTaken(ctx, requested)
		if err != nil {
			return "", apperror.Internal(err)
		}
		if taken {
			return "", apperror.Conflict("User name already taken")
		}
		return requested, nil
	}

	for i := 0; i < userNameAttempts; i++ {
		candidate := utils.GenerateUserName(fullName)
		taken, err := s.store.UserNameTaken(ctx, candidate)
		if err != nil {
			return "", apperror.Internal(err)
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", apperror.Conflict("Could not generate a free user name, please choose one")
}

func (s *AccountService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, apperror.BadRequest("Email and password are required")
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperror.Unauthorized("Invalid email or password")
	}
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if !utils.CheckPassword(user.PasswordHash, in.Password) {
		return nil, apperror.Unauthorized("Invalid email or password")
	}
	return s.authResult(ctx, user)
}

// Me returns the profile of the authenticated user.
func (s *AccountService) Me(ctx context.Context, userID string) (*models.UserResponse, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := user.ToResponse()
	resp.ProfilePic = s.pictureURL(ctx, resp.ProfilePic)
	return &resp, nil
}

func (s *AccountService) authResult(ctx context.Context, user *models.User) (*AuthResult, error) {
	token, err := s.tokens.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	resp := user.ToResponse()
	resp.ProfilePic = s.pictureURL(ctx, resp.ProfilePic)
	return &AuthResult{User: resp, Token: token}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
