package postgres

import (
	"context"
	"database/sql"

	"github.com/Aleksey-Sartakov/messenger/internal/core/domain"
)

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{
		db: db,
	}
}

/*
	-- Messages
	CREATE TABLE message (
		id           BIGSERIAL PRIMARY KEY,
		sender_id    BIGINT NOT NULL REFERENCES "user"(id) ON DELETE CASCADE,
		recipient_id BIGINT NOT NULL REFERENCES "user"(id) ON DELETE CASCADE,
		text_content TEXT NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at   TIMESTAMPTZ
	);
*/

func (r *MessageRepo) Append(
	ctx context.Context,
	senderID, recipientID int64,
	text string,
) (*domain.Message, error) {
	if senderID <= 0 || recipientID <= 0 {
		return nil, domain.ErrInvalidUserID
	}
	exec := GetExecutor(ctx, r.db)
	msg := &domain.Message{
		SenderID:    senderID,
		RecipientID: recipientID,
		TextContent: text,
	}
	err := exec.QueryRowContext(ctx, `
		INSERT INTO message (sender_id, recipient_id, text_content)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, senderID, recipientID, text).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// QueryRange pages newest-first (offset 0 = most recent) and reorders the
// selected slice ascending by id before returning it.
func (r *MessageRepo) QueryRange(
	ctx context.Context,
	firstUserID, secondUserID int64,
	limit, offset int,
) ([]domain.Message, error) {
	if firstUserID <= 0 || secondUserID <= 0 {
		return nil, domain.ErrInvalidUserID
	}
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, `
		SELECT id, sender_id, recipient_id, text_content, created_at, updated_at
		FROM (
			SELECT id, sender_id, recipient_id, text_content, created_at, updated_at
			FROM message
			WHERE (sender_id = $1 AND recipient_id = $2)
			   OR (sender_id = $2 AND recipient_id = $1)
			ORDER BY id DESC
			LIMIT $3 OFFSET $4
		) page
		ORDER BY id ASC
	`, firstUserID, secondUserID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var msgs []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(
			&m.ID,
			&m.SenderID,
			&m.RecipientID,
			&m.TextContent,
			&m.CreatedAt,
			&m.UpdatedAt,
		); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
