package pgstore

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"letschat/server/internal/models"
	"letschat/server/internal/store"
)

const conversationColumns = `id, kind, participants, group_name, group_description, group_picture,
	group_admin_id, created_at, updated_at`

type groupColumns struct {
	name, description, picture, adminID *string
}

func (g groupColumns) info() *models.GroupInfo {
	if g.name == nil {
		return nil
	}
	info := &models.GroupInfo{Name: *g.name}
	if g.description != nil {
		info.Description = *g.description
	}
	if g.picture != nil {
		info.Picture = *g.picture
	}
	if g.adminID != nil {
		info.AdminID = *g.adminID
	}
	return info
}

func scanConversation(row pgx.Row) (*models.Conversation, error) {
	var c models.Conversation
	var g groupColumns
	err := row.Scan(&c.ID, &c.Kind, &c.Participants, &g.name, &g.description, &g.picture,
		&g.adminID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	c.Group = g.info()
	return &c, nil
}

func (s *Store) CreateConversation(ctx context.Context, c *models.Conversation) error {
	var g groupColumns
	if c.Group != nil {
		g = groupColumns{&c.Group.Name, &c.Group.Description, &c.Group.Picture, &c.Group.AdminID}
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO conversations (`+conversationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, c.Kind, emptyIfNil(c.Participants), g.name, g.description, g.picture, g.adminID,
		c.CreatedAt, c.UpdatedAt,
	)
	return translate(err)
}

func (s *Store) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	return scanConversation(s.pool.QueryRow(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE id = $1`, id))
}

func (s *Store) FindDirectConversation(ctx context.Context, userA, userB string) (*models.Conversation, error) {
	return scanConversation(s.pool.QueryRow(ctx, `
		SELECT `+conversationColumns+` FROM conversations
		WHERE kind = 'direct' AND participants @> ARRAY[$1, $2]::text[]
		LIMIT 1`, userA, userB))
}

func (s *Store) TouchConversation(ctx context.Context, id string, at time.Time) error {
	return s.execOne(ctx, `UPDATE conversations SET updated_at = $2 WHERE id = $1`, id, at)
}

func (s *Store) UpdateGroup(ctx context.Context, id, adminID string, patch store.GroupPatch, at time.Time) (*models.Conversation, error) {
	return scanConversation(s.pool.QueryRow(ctx, `
		UPDATE conversations SET
			group_name = COALESCE(NULLIF($3, ''), group_name),
			group_description = COALESCE(NULLIF($4, ''), group_description),
			group_picture = COALESCE(NULLIF($5, ''), group_picture),
			updated_at = $6
		WHERE id = $1 AND kind = 'group' AND group_admin_id = $2
		RETURNING `+conversationColumns,
		id, adminID, patch.Name, patch.Description, patch.Picture, at))
}

func (s *Store) AddParticipants(ctx context.Context, id, adminID string, userIDs []string, at time.Time) (*models.Conversation, error) {
	return scanConversation(s.pool.QueryRow(ctx, `
		UPDATE conversations SET
			participants = participants || ARRAY(
				SELECT x FROM unnest($3::text[]) WITH ORDINALITY AS t(x, n)
				WHERE NOT (x = ANY(participants))
				ORDER BY n
			),
			updated_at = $4
		WHERE id = $1 AND kind = 'group' AND group_admin_id = $2
		RETURNING `+conversationColumns,
		id, adminID, unique(userIDs), at))
}

func (s *Store) RemoveParticipants(ctx context.Context, id, adminID string, userIDs []string, at time.Time) (*models.Conversation, error) {
	return scanConversation(s.pool.QueryRow(ctx, `
		UPDATE conversations SET
			participants = ARRAY(
				SELECT p FROM unnest(participants) WITH ORDINALITY AS t(p, n)
				WHERE NOT (p = ANY($3::text[]))
				ORDER BY n
			),
			updated_at = $4
		WHERE id = $1 AND kind = 'group' AND group_admin_id = $2
		RETURNING `+conversationColumns,
		id, adminID, emptyIfNil(userIDs), at))
}

func (s *Store) DeleteGroup(ctx context.Context, id, adminID string) (*models.Conversation, error) {
	return scanConversation(s.pool.QueryRow(ctx, `
		DELETE FROM conversations
		WHERE id = $1 AND kind = 'group' AND group_admin_id = $2
		RETURNING `+conversationColumns, id, adminID))
}

func (s *Store) LeaveGroup(ctx context.Context, id, userID, nextAdminID string, at time.Time) (*models.Conversation, error) {
	return scanConversation(s.pool.QueryRow(ctx, `
		UPDATE conversations SET
			participants = array_remove(participants, $2),
			group_admin_id = COALESCE(NULLIF($3, ''), group_admin_id),
			updated_at = $4
		WHERE id = $1 AND kind = 'group' AND $2 = ANY(participants)
			AND ($3 = '' OR group_admin_id = $2)
		RETURNING `+conversationColumns, id, userID, nextAdminID, at))
}

func (s *Store) DeleteConversation(ctx context.Context, id string) error {
	return s.execOne(ctx, `DELETE FROM conversations WHERE id = $1`, id)
}

// ListFeed joins each member conversation with the newest message the viewer
// has not deleted, through a lateral subquery.
func (s *Store) ListFeed(ctx context.Context, q store.FeedQuery) ([]store.FeedRow, error) {
	var limit any
	if q.Limit > 0 {
		limit = q.Limit
	}

	rows, err := s.pool.Query(ctx, `
		SELECT c.id, c.kind, c.participants, c.group_name, c.group_description, c.group_picture,
			c.group_admin_id, c.created_at, c.updated_at,
			m.id, m.sender_id, m.type, m.text, m.media_key, m.seen_by, m.created_at, m.updated_at,
			u.full_name, u.profile_pic
		FROM conversations c
		LEFT JOIN LATERAL (
			SELECT * FROM messages
			WHERE conversation_id = c.id AND NOT ($1 = ANY(deleted_for))
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		) m ON TRUE
		LEFT JOIN users u ON u.id = m.sender_id
		WHERE $1 = ANY(c.participants)
			AND NOT (c.id = ANY($2::text[]))
			AND ($3 = '' OR c.kind = $3)
			AND ($4 = ''
				OR strpos(lower(COALESCE(c.group_name, '')), lower($4)) > 0
				OR strpos(lower(COALESCE(c.group_description, '')), lower($4)) > 0
				OR (c.kind = 'direct' AND EXISTS (
					SELECT 1 FROM users o
					WHERE o.id = ANY(c.participants) AND o.id <> $1
						AND strpos(lower(o.full_name), lower($4)) > 0
				)))
		ORDER BY m.created_at DESC NULLS LAST, c.created_at DESC, c.id DESC
		LIMIT $5`,
		q.UserID, emptyIfNil(q.Exclude), string(q.Kind), q.Search, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.FeedRow
	for rows.Next() {
		var (
			row                                   store.FeedRow
			g                                     groupColumns
			msgID, senderID, msgType, text, media *string
			seenBy                                []string
			msgCreated, msgUpdated                *time.Time
			senderName, senderPic                 *string
		)
		c := &row.Conversation
		err := rows.Scan(&c.ID, &c.Kind, &c.Participants, &g.name, &g.description, &g.picture,
			&g.adminID, &c.CreatedAt, &c.UpdatedAt,
			&msgID, &senderID, &msgType, &text, &media, &seenBy, &msgCreated, &msgUpdated,
			&senderName, &senderPic)
		if err != nil {
			return nil, err
		}
		c.Group = g.info()

		if msgID != nil {
			row.LastMessage = &models.Message{
				ID:             *msgID,
				ConversationID: c.ID,
				SenderID:       *senderID,
				Type:           models.MessageType(*msgType),
				Text:           *text,
				MediaKey:       *media,
				SeenBy:         seenBy,
				CreatedAt:      *msgCreated,
				UpdatedAt:      *msgUpdated,
			}
			if senderName != nil {
				row.LastSender = &models.UserSummary{ID: *senderID, FullName: *senderName, ProfilePic: *senderPic}
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
