package models

import "time"

// RefreshToken is an opaque, server-side token exchanged for a new access
// token. It is deleted when used, so each value works once.
type RefreshToken struct {
	ID        string
	UserID    string
	Token     string
	Expires   time.Time
	CreatedAt time.Time
}

// Expired reports whether the token is past its expiry at now.
func (t *RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.Expires)
}
