package models

import "time"

// Presence statuses
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
	StatusAway    = "away"
)

var AllStatuses = []string{StatusOnline, StatusOffline, StatusAway}

func IsValidStatus(s string) bool {
	for _, st := range AllStatuses {
		if st == s {
			return true
		}
	}
	return false
}

// UserProfile is keyed by wallet address, at most one row per address.
// Updates are last-write-wins.
type UserProfile struct {
	Address     string    `json:"address"`
	DisplayName *string   `json:"display_name,omitempty"`
	Avatar      *string   `json:"avatar,omitempty"`
	Status      string    `json:"status"`
	LastSeen    time.Time `json:"last_seen"`
}
