package models

import (
	"github.com/google/uuid"
)

// Message is immutable once created. Ordering within a channel is by
// Timestamp ascending, append-only.
type Message struct {
	ID        uuid.UUID `json:"id"`
	ChannelID uuid.UUID `json:"channel_id"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	Timestamp int64     `json:"timestamp"` // ms since epoch
	Encrypted bool      `json:"is_encrypted"`
	Signature *string   `json:"signature,omitempty"`
}
