package models

import (
	"time"

	"github.com/google/uuid"
)

// ProofPayload is a single-use nonce handed to the wallet before signing a
// connect proof.
type ProofPayload struct {
	ID        uuid.UUID `json:"id"`
	Payload   string    `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Used      bool      `json:"used"`
}
