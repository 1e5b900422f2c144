package models

import "time"

// RefreshToken is a single-use opaque token. It is consumed on refresh and
// replaced by a new one.
type RefreshToken struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

func (t *RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
