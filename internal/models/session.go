package models

import (
	"time"
)

// Session is the durable record of an authenticated session.
// It is persisted on the device and consulted once at startup.
type Session struct {
	AccessToken  string
	RefreshToken string
	UserID       int64
	ExpiresAt    time.Time
}

// Expired reports whether the session must be treated as absent
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
