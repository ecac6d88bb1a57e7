package repositories

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/walletchat/backend/internal/models"
)

type WalletRepo struct {
	pool *pgxpool.Pool
}

func NewWalletRepo(pool *pgxpool.Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

// CreateProofPayload issues a fresh single-use nonce for a connect proof.
func (r *WalletRepo) CreateProofPayload(ctx context.Context, ttl time.Duration) (*models.ProofPayload, error) {
	p := &models.ProofPayload{Payload: generateNonce(32)}

	err := r.pool.QueryRow(ctx, `
		INSERT INTO proof_payloads (payload, expires_at)
		VALUES ($1, now() + $2::interval)
		RETURNING id, created_at, expires_at
	`, p.Payload, ttl.String()).Scan(&p.ID, &p.CreatedAt, &p.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ConsumeProofPayload marks the nonce used. Fails when the nonce is unknown,
// already used, or expired.
func (r *WalletRepo) ConsumeProofPayload(ctx context.Context, payload string) (*models.ProofPayload, error) {
	var p models.ProofPayload
	err := r.pool.QueryRow(ctx, `
		UPDATE proof_payloads
		SET used = true
		WHERE payload = $1 AND used = false AND expires_at > now()
		RETURNING id, payload, created_at, expires_at, used
	`, payload).Scan(&p.ID, &p.Payload, &p.CreatedAt, &p.ExpiresAt, &p.Used)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func generateNonce(bytes int) string {
	b := make([]byte, bytes)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
