package model

import "time"

// UserGameTracking is a user's watch-list entry for a game.
// LastNotifiedAt throttles price drop emails for this entry.
type UserGameTracking struct {
	UserID         string     `json:"user_id"`
	AppID          int        `json:"app_id"`
	LastNotifiedAt *time.Time `json:"last_notified_at"`
	CreatedAt      time.Time  `json:"created_at"`
}

type UserProfile struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
}
