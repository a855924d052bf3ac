package pgstore

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"letschat/server/internal/models"
)

const userColumns = `id, full_name, user_name, email, password_hash, profile_pic, bio,
	friends, sent_friend_requests, conversations, blocked_conversations, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.FullName, &u.UserName, &u.Email, &u.PasswordHash, &u.ProfilePic, &u.Bio,
		&u.Friends, &u.SentFriendRequests, &u.Conversations, &u.BlockedConversations,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		u.ID, u.FullName, u.UserName, u.Email, u.PasswordHash, u.ProfilePic, u.Bio,
		emptyIfNil(u.Friends), emptyIfNil(u.SentFriendRequests),
		emptyIfNil(u.Conversations), emptyIfNil(u.BlockedConversations),
		u.CreatedAt, u.UpdatedAt,
	)
	return translate(err)
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (s *Store) UserNameTaken(ctx context.Context, userName string) (bool, error) {
	var taken bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE user_name = $1)`, userName).Scan(&taken)
	return taken, err
}

func (s *Store) queryUsers(ctx context.Context, sql string, args ...any) ([]models.User, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (s *Store) ListUsers(ctx context.Context, ids []string) ([]models.User, error) {
	return s.queryUsers(ctx, `SELECT `+userColumns+` FROM users WHERE id = ANY($1)`, emptyIfNil(ids))
}

func (s *Store) ListUserSummaries(ctx context.Context, ids []string) ([]models.UserSummary, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, full_name, profile_pic FROM users WHERE id = ANY($1)`, emptyIfNil(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []models.UserSummary
	for rows.Next() {
		var u models.UserSummary
		if err := rows.Scan(&u.ID, &u.FullName, &u.ProfilePic); err != nil {
			return nil, err
		}
		summaries = append(summaries, u)
	}
	return summaries, rows.Err()
}

func (s *Store) SuggestUsers(ctx context.Context, exclude []string, limit int64) ([]models.User, error) {
	return s.queryUsers(ctx,
		`SELECT `+userColumns+` FROM users WHERE NOT (id = ANY($1)) ORDER BY id LIMIT $2`,
		emptyIfNil(exclude), limit)
}

func (s *Store) LinkFriend(ctx context.Context, userID, friendID, conversationID string, at time.Time) error {
	return s.execOne(ctx, `
		UPDATE users SET
			friends = CASE WHEN $2 = ANY(friends) THEN friends ELSE array_append(friends, $2) END,
			conversations = CASE
				WHEN $3 = '' OR $3 = ANY(conversations) THEN conversations
				ELSE array_append(conversations, $3)
			END,
			updated_at = $4
		WHERE id = $1`, userID, friendID, conversationID, at)
}

func (s *Store) AddSentRequest(ctx context.Context, userID, targetID string, at time.Time) error {
	return s.execOne(ctx, `
		UPDATE users SET
			sent_friend_requests = CASE
				WHEN $2 = ANY(sent_friend_requests) THEN sent_friend_requests
				ELSE array_append(sent_friend_requests, $2)
			END,
			updated_at = $3
		WHERE id = $1`, userID, targetID, at)
}

func (s *Store) RemoveSentRequest(ctx context.Context, userID, targetID string, at time.Time) error {
	return s.execOne(ctx, `
		UPDATE users SET sent_friend_requests = array_remove(sent_friend_requests, $2), updated_at = $3
		WHERE id = $1`, userID, targetID, at)
}

func (s *Store) AddConversation(ctx context.Context, userIDs []string, conversationID string, at time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE users SET conversations = array_append(conversations, $2), updated_at = $3
		WHERE id = ANY($1) AND NOT ($2 = ANY(conversations))`, emptyIfNil(userIDs), conversationID, at)
	return err
}

func (s *Store) RemoveConversation(ctx context.Context, userIDs []string, conversationID string, at time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE users SET conversations = array_remove(conversations, $2), updated_at = $3
		WHERE id = ANY($1)`, emptyIfNil(userIDs), conversationID, at)
	return err
}

func (s *Store) RemoveConversationFromAll(ctx context.Context, conversationID string, at time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE users SET
			conversations = array_remove(conversations, $1),
			blocked_conversations = array_remove(blocked_conversations, $1),
			updated_at = $2
		WHERE $1 = ANY(conversations) OR $1 = ANY(blocked_conversations)`, conversationID, at)
	return err
}

func (s *Store) SetConversationBlocked(ctx context.Context, userID, conversationID string, blocked bool, at time.Time) error {
	if !blocked {
		return s.execOne(ctx, `
			UPDATE users SET blocked_conversations = array_remove(blocked_conversations, $2), updated_at = $3
			WHERE id = $1`, userID, conversationID, at)
	}
	return s.execOne(ctx, `
		UPDATE users SET
			blocked_conversations = CASE
				WHEN $2 = ANY(blocked_conversations) THEN blocked_conversations
				ELSE array_append(blocked_conversations, $2)
			END,
			updated_at = $3
		WHERE id = $1`, userID, conversationID, at)
}
