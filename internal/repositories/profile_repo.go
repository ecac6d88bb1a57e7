package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/walletchat/backend/internal/models"
)

type ProfileRepo struct {
	pool *pgxpool.Pool
}

func NewProfileRepo(pool *pgxpool.Pool) *ProfileRepo {
	return &ProfileRepo{pool: pool}
}

// Upsert is last-write-wins per address.
func (r *ProfileRepo) Upsert(ctx context.Context, p *models.UserProfile) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO user_profiles (address, display_name, avatar, status, last_seen)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (address) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			avatar = EXCLUDED.avatar,
			status = EXCLUDED.status,
			last_seen = EXCLUDED.last_seen
		RETURNING last_seen
	`, p.Address, p.DisplayName, p.Avatar, p.Status, p.LastSeen).Scan(&p.LastSeen)
}

func (r *ProfileRepo) GetByAddress(ctx context.Context, addr string) (*models.UserProfile, error) {
	var p models.UserProfile
	err := r.pool.QueryRow(ctx, `
		SELECT address, display_name, avatar, status, last_seen
		FROM user_profiles WHERE address = $1
	`, addr).Scan(&p.Address, &p.DisplayName, &p.Avatar, &p.Status, &p.LastSeen)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProfileRepo) List(ctx context.Context) ([]models.UserProfile, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT address, display_name, avatar, status, last_seen FROM user_profiles
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []models.UserProfile
	for rows.Next() {
		var p models.UserProfile
		if err := rows.Scan(&p.Address, &p.DisplayName, &p.Avatar, &p.Status, &p.LastSeen); err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// MarkStale downgrades presence for profiles whose last_seen is older than
// the cutoff. Returns the number of rows changed.
func (r *ProfileRepo) MarkStale(ctx context.Context, fromStatus, toStatus string, olderThan time.Duration) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE user_profiles SET status = $1
		WHERE status = $2 AND last_seen < now() - $3::interval
	`, toStatus, fromStatus, olderThan.String())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
