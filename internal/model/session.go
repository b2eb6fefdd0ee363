package model

import "time"

// Session maps an opaque session ID to the principal that logged in.
//
// Sessions are never persisted next to posts. They live in a session.Store
// (in memory by default, Redis optionally) until they expire or are revoked.
type Session struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the session is past its expiry at the given time.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Principal is what the API exposes about the logged-in user.
type Principal struct {
	Username string `json:"username"`
}
