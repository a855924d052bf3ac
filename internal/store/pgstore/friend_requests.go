package pgstore

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"letschat/server/internal/models"
	"letschat/server/internal/store"
)

const friendRequestColumns = `id, sent_by, sent_to, status, created_at, updated_at`

func scanFriendRequest(row pgx.Row) (*models.FriendRequest, error) {
	var r models.FriendRequest
	if err := row.Scan(&r.ID, &r.SentBy, &r.SentTo, &r.Status, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func (s *Store) CreateFriendRequest(ctx context.Context, r *models.FriendRequest) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO friend_requests (`+friendRequestColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		r.ID, r.SentBy, r.SentTo, r.Status, r.CreatedAt, r.UpdatedAt)
	return translate(err)
}

func (s *Store) GetFriendRequest(ctx context.Context, id string) (*models.FriendRequest, error) {
	return scanFriendRequest(s.pool.QueryRow(ctx,
		`SELECT `+friendRequestColumns+` FROM friend_requests WHERE id = $1`, id))
}

func (s *Store) FindPendingFriendRequest(ctx context.Context, sentBy, sentTo string) (*models.FriendRequest, error) {
	return scanFriendRequest(s.pool.QueryRow(ctx, `
		SELECT `+friendRequestColumns+` FROM friend_requests
		WHERE sent_by = $1 AND sent_to = $2 AND status = 'pending'`, sentBy, sentTo))
}

func (s *Store) ResolveFriendRequest(ctx context.Context, id, recipientID string, status models.FriendRequestStatus, at time.Time) (*models.FriendRequest, error) {
	return scanFriendRequest(s.pool.QueryRow(ctx, `
		UPDATE friend_requests SET status = $3, updated_at = $4
		WHERE id = $1 AND sent_to = $2 AND status = 'pending'
		RETURNING `+friendRequestColumns, id, recipientID, status, at))
}

func (s *Store) DeleteFriendRequest(ctx context.Context, id string) error {
	return s.execOne(ctx, `DELETE FROM friend_requests WHERE id = $1`, id)
}

func (s *Store) ListFriendRequests(ctx context.Context, f store.FriendRequestFilter) ([]models.FriendRequest, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+friendRequestColumns+` FROM friend_requests
		WHERE ($1 = '' OR sent_by = $1)
			AND ($2 = '' OR sent_to = $2)
			AND ($3 = '' OR status = $3)
		ORDER BY created_at DESC, id DESC`, f.SentBy, f.SentTo, f.Status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reqs []models.FriendRequest
	for rows.Next() {
		r, err := scanFriendRequest(rows)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, *r)
	}
	return reqs, rows.Err()
}
