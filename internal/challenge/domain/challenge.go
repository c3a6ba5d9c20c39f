package domain

import "time"

// Purpose classifies what a one-time code unlocks once verified.
type Purpose string

const (
	PurposeLogin        Purpose = "login"
	PurposeVerifyPhone  Purpose = "verify_phone"
	PurposeVerifyEmail  Purpose = "verify_email"
	PurposeSecondFactor Purpose = "second_factor"
)

// Channel is the delivery channel the code was sent on.
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
	// Second-factor challenges are not delivered; the channel names the
	// verification method instead.
	ChannelTOTP Channel = "totp"
	ChannelFace Channel = "face"
)

// Challenge represents a pending one-time code (stored in otp_challenges).
// At most one challenge is active per (user, purpose); issuing a new one
// replaces the previous.
type Challenge struct {
	ID         string
	UserID     string
	Purpose    Purpose
	Channel    Channel
	CodeHash   string
	Attempts   int
	IssuedAt   time.Time
	ExpiresAt  time.Time
	ConsumedAt *time.Time
}

// Active reports whether the challenge can still be consumed at t.
func (c *Challenge) Active(t time.Time) bool {
	return c.ConsumedAt == nil && t.Before(c.ExpiresAt)
}

// Expired reports whether the challenge's validity window has passed at t.
func (c *Challenge) Expired(t time.Time) bool {
	return !t.Before(c.ExpiresAt)
}
