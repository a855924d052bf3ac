package pgstore

import (
	"context"

	"github.com/jackc/pgx/v5"

	"letschat/server/internal/models"
	"letschat/server/internal/store"
)

const messageColumns = `id, conversation_id, sender_id, type, text, media_key, deleted_for, seen_by,
	created_at, updated_at`

func scanMessage(row pgx.Row) (*models.Message, error) {
	var m models.Message
	err := row.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Type, &m.Text, &m.MediaKey,
		&m.DeletedFor, &m.SeenBy, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

func (s *Store) InsertMessage(ctx context.Context, m *models.Message) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO messages (`+messageColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		m.ID, m.ConversationID, m.SenderID, m.Type, m.Text, m.MediaKey,
		emptyIfNil(m.DeletedFor), emptyIfNil(m.SeenBy), m.CreatedAt, m.UpdatedAt,
	)
	return translate(err)
}

func (s *Store) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	return scanMessage(s.pool.QueryRow(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = $1`, id))
}

func (s *Store) CountVisibleMessages(ctx context.Context, conversationID, viewerID string) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM messages
		WHERE conversation_id = $1 AND NOT ($2 = ANY(deleted_for))`,
		conversationID, viewerID).Scan(&n)
	return n, err
}

func (s *Store) ListVisibleMessages(ctx context.Context, q store.MessageQuery) ([]models.Message, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if q.Before != nil {
		rows, err = s.pool.Query(ctx, `
			SELECT `+messageColumns+` FROM messages
			WHERE conversation_id = $1 AND NOT ($2 = ANY(deleted_for))
				AND (created_at, id) < ($3, $4)
			ORDER BY created_at DESC, id DESC
			LIMIT $5`,
			q.ConversationID, q.ViewerID, q.Before.CreatedAt, q.Before.ID, q.Limit)
	} else {
		rows, err = s.pool.Query(ctx, `
			SELECT `+messageColumns+` FROM messages
			WHERE conversation_id = $1 AND NOT ($2 = ANY(deleted_for))
			ORDER BY created_at, id
			OFFSET $3 LIMIT $4`,
			q.ConversationID, q.ViewerID, q.Skip, q.Limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []models.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, *m)
	}
	return msgs, rows.Err()
}

func (s *Store) CountUnread(ctx context.Context, userID string, conversationIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64)
	if len(conversationIDs) == 0 {
		return counts, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT conversation_id, count(*) FROM messages
		WHERE conversation_id = ANY($1) AND sender_id <> $2 AND NOT ($2 = ANY(seen_by))
		GROUP BY conversation_id`, conversationIDs, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var n int64
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

func (s *Store) MarkSeen(ctx context.Context, conversationID, userID string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE messages SET seen_by = array_append(seen_by, $2)
		WHERE conversation_id = $1 AND sender_id <> $2 AND NOT ($2 = ANY(seen_by))`,
		conversationID, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) DeleteMessageFor(ctx context.Context, messageID, userID string) error {
	return s.execOne(ctx, `
		UPDATE messages SET deleted_for = CASE
			WHEN $2 = ANY(deleted_for) THEN deleted_for
			ELSE array_append(deleted_for, $2)
		END
		WHERE id = $1`, messageID, userID)
}

func (s *Store) DeleteConversationMessages(ctx context.Context, conversationID string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM messages WHERE conversation_id = $1`, conversationID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
