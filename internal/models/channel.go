package models

import (
	"time"

	"github.com/google/uuid"
)

type Channel struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	IsPrivate     bool      `json:"is_private"`
	CreatedBy     string    `json:"created_by"` // wallet address, raw form
	Participants  []string  `json:"participants"`
	CreatedAt     time.Time `json:"created_at"`
	LastMessageAt time.Time `json:"last_message_at"`
}

// HasParticipant reports whether addr is in the channel's participant set.
func (c *Channel) HasParticipant(addr string) bool {
	for _, p := range c.Participants {
		if p == addr {
			return true
		}
	}
	return false
}
