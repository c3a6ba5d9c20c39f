package service

import "errors"

// Sentinel errors for the auth service; handlers map them to HTTP codes.
// Credential failures deliberately do not distinguish an unknown identity
// from a wrong proof.
var (
	ErrNotFound               = errors.New("not found")
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrInvalidOTP             = errors.New("invalid one-time code")
	ErrNoActiveChallenge      = errors.New("no active challenge")
	ErrChallengeExpired       = errors.New("challenge expired")
	ErrChallengeMismatch      = errors.New("challenge code mismatch")
	ErrChallengeAlreadyUsed   = errors.New("challenge already used")
	ErrTooManyAttempts        = errors.New("too many attempts")
	ErrFaceMismatch           = errors.New("face does not match enrolled template")
	ErrNoFaceDetected         = errors.New("no face detected in image")
	ErrRefreshTokenInvalid    = errors.New("invalid refresh token")
	ErrRefreshTokenExpired    = errors.New("refresh token expired")

	// ErrUpstream wraps SMS/mail/storage/model failures so handlers can
	// distinguish them from credential failures.
	ErrUpstream = errors.New("upstream service error")
)
