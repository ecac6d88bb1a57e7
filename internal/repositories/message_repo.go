package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/walletchat/backend/internal/models"
)

type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

// Insert stores the message and bumps the channel's last_message_at in the
// same transaction. last_message_at only moves forward.
func (r *MessageRepo) Insert(ctx context.Context, m *models.Message) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	createdAt := time.UnixMilli(m.Timestamp)
	err = tx.QueryRow(ctx, `
		INSERT INTO messages (channel_id, sender, content, created_at, is_encrypted, signature)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, m.ChannelID, m.Sender, m.Content, createdAt, m.Encrypted, m.Signature).Scan(&m.ID)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		UPDATE channels SET last_message_at = GREATEST(last_message_at, $1) WHERE id = $2
	`, createdAt, m.ChannelID)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// ListByChannel returns the channel's messages ordered by timestamp ascending.
func (r *MessageRepo) ListByChannel(ctx context.Context, channelID uuid.UUID) ([]models.Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, channel_id, sender, content, created_at, is_encrypted, signature
		FROM messages WHERE channel_id = $1
		ORDER BY created_at ASC
	`, channelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		var createdAt time.Time
		if err := rows.Scan(&m.ID, &m.ChannelID, &m.Sender, &m.Content, &createdAt, &m.Encrypted, &m.Signature); err != nil {
			return nil, err
		}
		m.Timestamp = createdAt.UnixMilli()
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
