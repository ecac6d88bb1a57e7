package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/walletchat/backend/internal/models"
)

type ChannelRepo struct {
	pool *pgxpool.Pool
}

func NewChannelRepo(pool *pgxpool.Pool) *ChannelRepo {
	return &ChannelRepo{pool: pool}
}

// Create inserts the channel and its creator as the first participant in one
// transaction, so created_by is always a member.
func (r *ChannelRepo) Create(ctx context.Context, ch *models.Channel) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO channels (name, description, is_private, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, last_message_at
	`, ch.Name, ch.Description, ch.IsPrivate, ch.CreatedBy).Scan(&ch.ID, &ch.CreatedAt, &ch.LastMessageAt)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO channel_participants (channel_id, user_address)
		VALUES ($1, $2)
	`, ch.ID, ch.CreatedBy)
	if err != nil {
		return err
	}

	ch.Participants = []string{ch.CreatedBy}
	return tx.Commit(ctx)
}

// List returns all channels ordered by last_message_at descending, with
// participants aggregated per channel.
func (r *ChannelRepo) List(ctx context.Context) ([]models.Channel, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT c.id, c.name, c.description, c.is_private, c.created_by,
		       c.created_at, c.last_message_at,
		       COALESCE(array_agg(cp.user_address ORDER BY cp.joined_at) FILTER (WHERE cp.user_address IS NOT NULL), '{}')
		FROM channels c
		LEFT JOIN channel_participants cp ON cp.channel_id = c.id
		GROUP BY c.id
		ORDER BY c.last_message_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChannels(rows)
}

func (r *ChannelRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Channel, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT c.id, c.name, c.description, c.is_private, c.created_by,
		       c.created_at, c.last_message_at,
		       COALESCE(array_agg(cp.user_address ORDER BY cp.joined_at) FILTER (WHERE cp.user_address IS NOT NULL), '{}')
		FROM channels c
		LEFT JOIN channel_participants cp ON cp.channel_id = c.id
		WHERE c.id = $1
		GROUP BY c.id
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	channels, err := scanChannels(rows)
	if err != nil {
		return nil, err
	}
	if len(channels) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &channels[0], nil
}

// AddParticipant is idempotent, a duplicate join is a no-op.
func (r *ChannelRepo) AddParticipant(ctx context.Context, channelID uuid.UUID, addr string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO channel_participants (channel_id, user_address)
		VALUES ($1, $2)
		ON CONFLICT (channel_id, user_address) DO NOTHING
	`, channelID, addr)
	return err
}

func (r *ChannelRepo) RemoveParticipant(ctx context.Context, channelID uuid.UUID, addr string) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM channel_participants WHERE channel_id = $1 AND user_address = $2
	`, channelID, addr)
	return err
}

func (r *ChannelRepo) IsParticipant(ctx context.Context, channelID uuid.UUID, addr string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM channel_participants WHERE channel_id = $1 AND user_address = $2)
	`, channelID, addr).Scan(&exists)
	return exists, err
}

func scanChannels(rows pgx.Rows) ([]models.Channel, error) {
	var channels []models.Channel
	for rows.Next() {
		var ch models.Channel
		if err := rows.Scan(&ch.ID, &ch.Name, &ch.Description, &ch.IsPrivate, &ch.CreatedBy,
			&ch.CreatedAt, &ch.LastMessageAt, &ch.Participants); err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}
