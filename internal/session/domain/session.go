package domain

import "time"

// Session represents an issued refresh session. A session stays valid until
// its refresh token expires or it is revoked by logout.
type Session struct {
	ID               string
	UserID           string
	RefreshJti       string
	RefreshTokenHash string // SHA-256 hash of the refresh token; the token itself is never stored
	ExpiresAt        time.Time
	RevokedAt        *time.Time // nil when not revoked
	CreatedAt        time.Time
}

// Live reports whether the session can still mint access tokens at t.
func (s *Session) Live(t time.Time) bool {
	return s.RevokedAt == nil && t.Before(s.ExpiresAt)
}
