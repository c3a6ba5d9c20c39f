package domain

import "time"

// AuditLog represents an audit event.
type AuditLog struct {
	ID        string
	UserID    string
	Action    string
	Resource  string
	IP        string
	Metadata  string
	CreatedAt time.Time
}

// Actions recorded by the auth flows.
const (
	ActionRegister       = "register"
	ActionLogin          = "login"
	ActionLoginFailure   = "login_failure"
	ActionLogout         = "logout"
	ActionRefresh        = "token_refresh"
	ActionOTPSent        = "otp_sent"
	ActionOTPVerified    = "otp_verified"
	ActionOTPFailure     = "otp_failure"
	ActionPasswordReset  = "password_reset"
	ActionTwoFAEnabled   = "2fa_enabled"
	ActionTwoFAVerified  = "2fa_verified"
	ActionFaceEnrolled   = "face_enrolled"
	ActionFaceVerified   = "face_verified"
	ActionFaceDisabled   = "face_disabled"
	ActionSessionRevoked = "session_revoked"
)
