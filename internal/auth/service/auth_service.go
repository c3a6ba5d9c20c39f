// Package service implements the auth orchestrator: primary-factor
// verification (password, phone/email OTP), optional second factor (TOTP or
// face), and session issuance.
package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	auditdomain "motorello/backend/internal/audit/domain"
	challengedomain "motorello/backend/internal/challenge/domain"
	"motorello/backend/internal/face"
	"motorello/backend/internal/mail"
	"motorello/backend/internal/otp"
	"motorello/backend/internal/security"
	sessiondomain "motorello/backend/internal/session/domain"
	"motorello/backend/internal/sms"
	"motorello/backend/internal/totp"
	userdomain "motorello/backend/internal/user/domain"
)

// maxSecondFactorAttempts bounds failed verifications per challenge; the
// attempt that reaches the bound fails terminally with ErrTooManyAttempts and
// the challenge is destroyed.
const maxSecondFactorAttempts = 3

// challengeTTL is the validity window for issued one-time codes.
const challengeTTL = 10 * time.Minute

// secondFactorTTL is the validity window for a pending second-factor step.
const secondFactorTTL = 5 * time.Minute

// UserRepo is the minimal user repository needed by the auth service.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
	GetByEmailOrPhone(ctx context.Context, emailOrPhone string) (*userdomain.User, error)
	Create(ctx context.Context, u *userdomain.User) error
	SetPasswordHash(ctx context.Context, userID, hash string) error
	SetPhoneVerified(ctx context.Context, userID string) error
	SetEmailVerified(ctx context.Context, userID string) error
	SetTOTP(ctx context.Context, userID, secret string, enabled bool) error
	SetFaceTemplate(ctx context.Context, userID string, descriptor []float64, imageURL string) error
	ClearFaceTemplate(ctx context.Context, userID string) error
}

// ChallengeRepo is the minimal challenge repository needed by the auth service.
type ChallengeRepo interface {
	Replace(ctx context.Context, c *challengedomain.Challenge) error
	GetByUserAndPurpose(ctx context.Context, userID string, purpose challengedomain.Purpose) (*challengedomain.Challenge, error)
	Consume(ctx context.Context, id string, at time.Time) (bool, error)
	IncrementAttempts(ctx context.Context, id string) (int, error)
	Delete(ctx context.Context, id string) error
}

// SessionRepo is the minimal session repository needed by the auth service.
type SessionRepo interface {
	Create(ctx context.Context, s *sessiondomain.Session) error
	GetByID(ctx context.Context, id string) (*sessiondomain.Session, error)
	Revoke(ctx context.Context, id string) error
	RevokeAllByUser(ctx context.Context, userID string) error
}

// ImageStore is the subset of the object store used for face images.
type ImageStore interface {
	Upload(ctx context.Context, key string, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, key string) error
}

// SendLimiter throttles outbound OTP deliveries per destination.
type SendLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// DevOTPStore keeps plaintext codes for dev-only retrieval.
type DevOTPStore interface {
	Put(ctx context.Context, challengeID, otp string, expiresAt time.Time)
}

// AuditLogger records security events; best-effort.
type AuditLogger interface {
	LogEvent(ctx context.Context, userID, action, resource, metadata string)
}

// TokenPair is an issued access/refresh pair bound to a session row.
type TokenPair struct {
	AccessToken     string
	RefreshToken    string
	AccessExpiresAt time.Time
	SessionID       string
}

// SecondFactorChallenge references a pending second-factor step returned in
// place of tokens when the primary factor succeeds but 2FA or face auth is
// enabled.
type SecondFactorChallenge struct {
	ChallengeID string
	Method      userdomain.SecondFactor
	ExpiresAt   time.Time
}

// LoginResult carries either issued tokens or a second-factor challenge,
// never both.
type LoginResult struct {
	UserID       string
	Tokens       *TokenPair
	SecondFactor *SecondFactorChallenge
}

// StartChallengeResult references a delivered one-time code.
type StartChallengeResult struct {
	ChallengeID string
	Channel     challengedomain.Channel
	ExpiresAt   time.Time
}

// TOTPEnrollment is returned once when 2FA provisioning starts. The secret is
// never exposed again.
type TOTPEnrollment struct {
	Secret          string
	ProvisioningURI string
}

// RegisterParams are the validated inputs for Register.
type RegisterParams struct {
	Email     string
	Phone     string
	Password  string
	FirstName string
	LastName  string
	Role      userdomain.Role
	Gender    string
}

// Deps wires the auth service's collaborators. Limiter, DevOTP, and Audit are
// optional; nil disables the corresponding behavior.
type Deps struct {
	Users      UserRepo
	Challenges ChallengeRepo
	Sessions   SessionRepo
	Hasher     *security.Hasher
	Tokens     *security.TokenProvider
	SMS        sms.Sender
	Mail       mail.Sender
	Images     ImageStore
	Extractor  face.Extractor
	Limiter    SendLimiter
	DevOTP     DevOTPStore
	Audit      AuditLogger

	FaceThreshold float64
	TOTPIssuer    string
	ResetBaseURL  string
	OTPTTL        time.Duration
}

// AuthService sequences the multi-factor auth flows and issues sessions.
type AuthService struct {
	users      UserRepo
	challenges ChallengeRepo
	sessions   SessionRepo
	hasher     *security.Hasher
	tokens     *security.TokenProvider
	sms        sms.Sender
	mail       mail.Sender
	images     ImageStore
	extractor  face.Extractor
	limiter    SendLimiter
	devOTP     DevOTPStore
	audit      AuditLogger

	faceThreshold float64
	totpIssuer    string
	resetBaseURL  string
	otpTTL        time.Duration
}

// NewAuthService returns an AuthService with the given dependencies.
func NewAuthService(d Deps) *AuthService {
	threshold := d.FaceThreshold
	if threshold <= 0 {
		threshold = face.DefaultThreshold
	}
	issuer := d.TOTPIssuer
	if issuer == "" {
		issuer = "motorello.com"
	}
	ttl := d.OTPTTL
	if ttl <= 0 {
		ttl = challengeTTL
	}
	return &AuthService{
		users:         d.Users,
		challenges:    d.Challenges,
		sessions:      d.Sessions,
		hasher:        d.Hasher,
		tokens:        d.Tokens,
		sms:           d.SMS,
		mail:          d.Mail,
		images:        d.Images,
		extractor:     d.Extractor,
		limiter:       d.Limiter,
		devOTP:        d.DevOTP,
		audit:         d.Audit,
		faceThreshold: threshold,
		totpIssuer:    issuer,
		resetBaseURL:  strings.TrimSuffix(d.ResetBaseURL, "/"),
		otpTTL:        ttl,
	}
}

// Register creates a user with the given credentials. No session is issued;
// the caller logs in afterwards.
func (s *AuthService) Register(ctx context.Context, p RegisterParams) (*userdomain.User, error) {
	email := strings.TrimSpace(strings.ToLower(p.Email))
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(p.Password); err != nil {
		return nil, err
	}
	role := p.Role
	if role == "" {
		role = userdomain.RoleCustomer
	}
	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailAlreadyRegistered
	}
	hashed, err := s.hasher.Hash([]byte(p.Password))
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	user := &userdomain.User{
		ID:           uuid.New().String(),
		Email:        email,
		Phone:        sms.NormalizePhone(p.Phone),
		FirstName:    strings.TrimSpace(p.FirstName),
		LastName:     strings.TrimSpace(p.LastName),
		PasswordHash: hashed,
		Role:         role,
		Gender:       p.Gender,
		Status:       userdomain.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	s.logEvent(ctx, user.ID, auditdomain.ActionRegister, "auth", "")
	return user, nil
}

// Login verifies email-or-phone + password. With no second factor enabled it
// issues tokens; otherwise it opens a second-factor challenge and issues
// nothing yet.
func (s *AuthService) Login(ctx context.Context, emailOrPhone, password string) (*LoginResult, error) {
	emailOrPhone = strings.TrimSpace(strings.ToLower(emailOrPhone))
	if emailOrPhone == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.users.GetByEmailOrPhone(ctx, emailOrPhone)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Status != userdomain.StatusActive {
		return nil, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(user.PasswordHash, []byte(password)); err != nil {
		s.logEvent(ctx, user.ID, auditdomain.ActionLoginFailure, "auth", "wrong password")
		return nil, ErrInvalidCredentials
	}
	return s.completePrimary(ctx, user)
}

// completePrimary finishes a successful primary-factor verification: issue
// tokens directly, or open a second-factor challenge when one is enabled.
func (s *AuthService) completePrimary(ctx context.Context, user *userdomain.User) (*LoginResult, error) {
	method := user.EnabledSecondFactor()
	if method == userdomain.SecondFactorNone {
		pair, err := s.issueSession(ctx, user)
		if err != nil {
			return nil, err
		}
		s.logEvent(ctx, user.ID, auditdomain.ActionLogin, "auth", "")
		return &LoginResult{UserID: user.ID, Tokens: pair}, nil
	}
	channel := challengedomain.ChannelTOTP
	if method == userdomain.SecondFactorFace {
		channel = challengedomain.ChannelFace
	}
	now := time.Now().UTC()
	ch := &challengedomain.Challenge{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Purpose:   challengedomain.PurposeSecondFactor,
		Channel:   channel,
		IssuedAt:  now,
		ExpiresAt: now.Add(secondFactorTTL),
	}
	if err := s.challenges.Replace(ctx, ch); err != nil {
		return nil, err
	}
	return &LoginResult{
		UserID: user.ID,
		SecondFactor: &SecondFactorChallenge{
			ChallengeID: ch.ID,
			Method:      method,
			ExpiresAt:   ch.ExpiresAt,
		},
	}, nil
}

// issueSession creates a session row and mints the token pair bound to it.
func (s *AuthService) issueSession(ctx context.Context, user *userdomain.User) (*TokenPair, error) {
	sessionID := uuid.New().String()
	refreshToken, jti, refreshExp, err := s.tokens.IssueRefresh(user.ID, sessionID)
	if err != nil {
		return nil, err
	}
	accessToken, _, accessExp, err := s.tokens.IssueAccess(user.ID, string(user.Role), sessionID)
	if err != nil {
		return nil, err
	}
	sess := &sessiondomain.Session{
		ID:               sessionID,
		UserID:           user.ID,
		RefreshJti:       jti,
		RefreshTokenHash: security.HashRefreshToken(refreshToken),
		ExpiresAt:        refreshExp,
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:     accessToken,
		RefreshToken:    refreshToken,
		AccessExpiresAt: accessExp,
		SessionID:       sessionID,
	}, nil
}

// startChallenge generates, stores, and delivers a one-time code for the
// given purpose over the given channel.
func (s *AuthService) startChallenge(ctx context.Context, user *userdomain.User, purpose challengedomain.Purpose, channel challengedomain.Channel) (*StartChallengeResult, error) {
	destination := user.Email
	if channel == challengedomain.ChannelSMS {
		destination = user.Phone
		if destination == "" {
			return nil, fmt.Errorf("user %s has no phone on record", user.ID)
		}
	}
	if s.limiter != nil {
		ok, err := s.limiter.Allow(ctx, string(channel)+":"+destination)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrTooManyAttempts
		}
	}
	code, err := otp.GenerateCode()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	ch := &challengedomain.Challenge{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Purpose:   purpose,
		Channel:   channel,
		CodeHash:  otp.Hash(code),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.otpTTL),
	}
	if err := s.challenges.Replace(ctx, ch); err != nil {
		return nil, err
	}
	switch channel {
	case challengedomain.ChannelSMS:
		if err := s.sms.SendOTP(ctx, destination, code); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
		}
	case challengedomain.ChannelEmail:
		body := mail.OTPBody(code, s.otpTTL)
		if err := s.mail.Send(ctx, destination, "Your Motorello verification code", body); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
		}
	}
	if s.devOTP != nil {
		s.devOTP.Put(ctx, ch.ID, code, ch.ExpiresAt)
	}
	s.logEvent(ctx, user.ID, auditdomain.ActionOTPSent, string(purpose), string(channel))
	return &StartChallengeResult{ChallengeID: ch.ID, Channel: channel, ExpiresAt: ch.ExpiresAt}, nil
}

// verifyChallenge checks code against the active challenge for (user,
// purpose) and consumes it. Exactly one concurrent verification can win;
// losers get ErrChallengeAlreadyUsed.
func (s *AuthService) verifyChallenge(ctx context.Context, userID string, purpose challengedomain.Purpose, code string) error {
	ch, err := s.challenges.GetByUserAndPurpose(ctx, userID, purpose)
	if err != nil {
		return err
	}
	if ch == nil {
		return ErrNoActiveChallenge
	}
	if ch.ConsumedAt != nil {
		return ErrChallengeAlreadyUsed
	}
	now := time.Now().UTC()
	if ch.Expired(now) {
		return ErrChallengeExpired
	}
	if !otp.Equal(code, ch.CodeHash) {
		return s.recordFailedAttempt(ctx, userID, ch, ErrChallengeMismatch)
	}
	consumed, err := s.challenges.Consume(ctx, ch.ID, now)
	if err != nil {
		return err
	}
	if !consumed {
		return ErrChallengeAlreadyUsed
	}
	return nil
}

// recordFailedAttempt bumps the challenge's attempt counter and converts the
// failure to ErrTooManyAttempts once the bound is reached, destroying the
// challenge so the flow must restart.
func (s *AuthService) recordFailedAttempt(ctx context.Context, userID string, ch *challengedomain.Challenge, cause error) error {
	attempts, err := s.challenges.IncrementAttempts(ctx, ch.ID)
	if err != nil {
		return err
	}
	if attempts >= maxSecondFactorAttempts {
		if err := s.challenges.Delete(ctx, ch.ID); err != nil {
			return err
		}
		s.logEvent(ctx, userID, auditdomain.ActionOTPFailure, string(ch.Purpose), "locked out")
		return ErrTooManyAttempts
	}
	s.logEvent(ctx, userID, auditdomain.ActionOTPFailure, string(ch.Purpose), "")
	return cause
}

// StartOTPLogin opens a login OTP challenge for the identity matching
// emailOrPhone and delivers the code over SMS when the user has a verified
// phone, else email.
func (s *AuthService) StartOTPLogin(ctx context.Context, emailOrPhone string) (*StartChallengeResult, error) {
	user, err := s.lookup(ctx, emailOrPhone)
	if err != nil {
		return nil, err
	}
	channel := challengedomain.ChannelEmail
	if user.Phone != "" {
		channel = challengedomain.ChannelSMS
	}
	return s.startChallenge(ctx, user, challengedomain.PurposeLogin, channel)
}

// VerifyOTPLogin verifies a login OTP and completes the primary factor.
func (s *AuthService) VerifyOTPLogin(ctx context.Context, emailOrPhone, code string) (*LoginResult, error) {
	user, err := s.lookup(ctx, emailOrPhone)
	if err != nil {
		return nil, err
	}
	if err := s.verifyChallenge(ctx, user.ID, challengedomain.PurposeLogin, code); err != nil {
		return nil, err
	}
	s.logEvent(ctx, user.ID, auditdomain.ActionOTPVerified, "login", "")
	return s.completePrimary(ctx, user)
}

// StartPhoneVerification sends a phone-ownership OTP to the user's phone.
func (s *AuthService) StartPhoneVerification(ctx context.Context, userID string) (*StartChallengeResult, error) {
	user, err := s.requireUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.startChallenge(ctx, user, challengedomain.PurposeVerifyPhone, challengedomain.ChannelSMS)
}

// VerifyPhoneOTP consumes the phone-ownership challenge and marks the phone
// verified.
func (s *AuthService) VerifyPhoneOTP(ctx context.Context, userID, code string) error {
	if err := s.verifyChallenge(ctx, userID, challengedomain.PurposeVerifyPhone, code); err != nil {
		return err
	}
	if err := s.users.SetPhoneVerified(ctx, userID); err != nil {
		return err
	}
	s.logEvent(ctx, userID, auditdomain.ActionOTPVerified, "verify_phone", "")
	return nil
}

// SendEmailOTP sends an email-ownership OTP to the user's email.
func (s *AuthService) SendEmailOTP(ctx context.Context, userID string) (*StartChallengeResult, error) {
	user, err := s.requireUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.startChallenge(ctx, user, challengedomain.PurposeVerifyEmail, challengedomain.ChannelEmail)
}

// VerifyEmailOTP consumes the email-ownership challenge and marks the email
// verified.
func (s *AuthService) VerifyEmailOTP(ctx context.Context, userID, code string) error {
	if err := s.verifyChallenge(ctx, userID, challengedomain.PurposeVerifyEmail, code); err != nil {
		return err
	}
	if err := s.users.SetEmailVerified(ctx, userID); err != nil {
		return err
	}
	s.logEvent(ctx, userID, auditdomain.ActionOTPVerified, "verify_email", "")
	return nil
}

// Enable2FA generates and stores a TOTP secret for the user, not yet active.
// The secret and provisioning URI are returned exactly once; Verify2FA with a
// valid code activates the factor.
func (s *AuthService) Enable2FA(ctx context.Context, userID string) (*TOTPEnrollment, error) {
	user, err := s.requireUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	secret, err := totp.GenerateSecret()
	if err != nil {
		return nil, err
	}
	if err := s.users.SetTOTP(ctx, user.ID, secret, false); err != nil {
		return nil, err
	}
	return &TOTPEnrollment{
		Secret:          secret,
		ProvisioningURI: totp.ProvisioningURI(secret, s.totpIssuer, user.Email),
	}, nil
}

// Verify2FA verifies a TOTP code. During a pending second-factor login step
// it completes the login and issues tokens; during enrollment it activates
// the factor.
func (s *AuthService) Verify2FA(ctx context.Context, userID, code string) (*LoginResult, error) {
	user, err := s.requireUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.TOTPSecret == "" {
		return nil, ErrNoActiveChallenge
	}

	ch, err := s.pendingSecondFactor(ctx, user.ID, challengedomain.ChannelTOTP)
	if err != nil {
		return nil, err
	}
	if ch == nil && user.TOTPEnabled {
		// Enabled factor but no pending login step: nothing to verify against.
		return nil, ErrNoActiveChallenge
	}

	ok, err := totp.Verify(user.TOTPSecret, code, time.Now())
	if err != nil {
		return nil, err
	}
	if !ok {
		if ch != nil {
			if err := s.recordFailedAttempt(ctx, user.ID, ch, ErrInvalidOTP); err != nil {
				return nil, err
			}
		}
		return nil, ErrInvalidOTP
	}

	if ch == nil {
		// Enrollment confirmation.
		if err := s.users.SetTOTP(ctx, user.ID, user.TOTPSecret, true); err != nil {
			return nil, err
		}
		s.logEvent(ctx, user.ID, auditdomain.ActionTwoFAEnabled, "auth", "")
		return &LoginResult{UserID: user.ID}, nil
	}

	consumed, err := s.challenges.Consume(ctx, ch.ID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if !consumed {
		return nil, ErrChallengeAlreadyUsed
	}
	pair, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}
	s.logEvent(ctx, user.ID, auditdomain.ActionTwoFAVerified, "auth", "")
	return &LoginResult{UserID: user.ID, Tokens: pair}, nil
}

// EnableFaceAuth extracts a descriptor from the image, stores the reference
// image, and enrolls the template. Re-enrollment replaces the template
// wholesale.
func (s *AuthService) EnableFaceAuth(ctx context.Context, userID string, image []byte) (string, error) {
	user, err := s.requireUser(ctx, userID)
	if err != nil {
		return "", err
	}
	descriptor, found, err := s.extractor.Detect(ctx, image)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if !found {
		return "", ErrNoFaceDetected
	}
	url, err := s.images.Upload(ctx, faceImageKey(user.ID), "image/jpeg", image)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if err := s.users.SetFaceTemplate(ctx, user.ID, descriptor, url); err != nil {
		return "", err
	}
	s.logEvent(ctx, user.ID, auditdomain.ActionFaceEnrolled, "auth", "")
	return url, nil
}

// VerifyFaceAuth verifies a probe image against the enrolled template and,
// on success, completes a pending second-factor step or issues a session
// directly.
func (s *AuthService) VerifyFaceAuth(ctx context.Context, userID string, image []byte) (*LoginResult, error) {
	user, err := s.requireUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.FaceEnabled || len(user.FaceDescriptor) == 0 {
		return nil, ErrNotFound
	}
	ch, err := s.pendingSecondFactor(ctx, user.ID, challengedomain.ChannelFace)
	if err != nil {
		return nil, err
	}
	probe, found, err := s.extractor.Detect(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if !found {
		return nil, ErrNoFaceDetected
	}
	match, _, err := face.Match(user.FaceDescriptor, probe, s.faceThreshold)
	if err != nil {
		return nil, err
	}
	if !match {
		if ch != nil {
			if err := s.recordFailedAttempt(ctx, user.ID, ch, ErrFaceMismatch); err != nil {
				return nil, err
			}
		}
		return nil, ErrFaceMismatch
	}
	if ch != nil {
		consumed, err := s.challenges.Consume(ctx, ch.ID, time.Now().UTC())
		if err != nil {
			return nil, err
		}
		if !consumed {
			return nil, ErrChallengeAlreadyUsed
		}
	}
	pair, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}
	s.logEvent(ctx, user.ID, auditdomain.ActionFaceVerified, "auth", "")
	return &LoginResult{UserID: user.ID, Tokens: pair}, nil
}

// DisableFaceAuth deletes the enrolled template and the backing image.
func (s *AuthService) DisableFaceAuth(ctx context.Context, userID string) error {
	user, err := s.requireUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.FaceImageURL != "" {
		if err := s.images.Delete(ctx, faceImageKey(user.ID)); err != nil {
			return fmt.Errorf("%w: %v", ErrUpstream, err)
		}
	}
	if err := s.users.ClearFaceTemplate(ctx, user.ID); err != nil {
		return err
	}
	s.logEvent(ctx, user.ID, auditdomain.ActionFaceDisabled, "auth", "")
	return nil
}

// Refresh validates the refresh token against the session row and mints a new
// access token. The refresh token itself is not rotated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, ErrRefreshTokenInvalid
	}
	userID, sessionID, jti, err := s.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		if errors.Is(err, security.ErrExpiredToken) {
			return nil, ErrRefreshTokenExpired
		}
		return nil, ErrRefreshTokenInvalid
	}
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil || sess.RevokedAt != nil || sess.RefreshJti != jti {
		return nil, ErrRefreshTokenInvalid
	}
	if sess.RefreshTokenHash != "" && !security.RefreshTokenHashEqual(refreshToken, sess.RefreshTokenHash) {
		return nil, ErrRefreshTokenInvalid
	}
	if !time.Now().UTC().Before(sess.ExpiresAt) {
		return nil, ErrRefreshTokenExpired
	}
	user, err := s.requireUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	accessToken, _, accessExp, err := s.tokens.IssueAccess(user.ID, string(user.Role), sessionID)
	if err != nil {
		return nil, err
	}
	s.logEvent(ctx, user.ID, auditdomain.ActionRefresh, "auth", "")
	return &TokenPair{
		AccessToken:     accessToken,
		AccessExpiresAt: accessExp,
		SessionID:       sessionID,
	}, nil
}

// Logout revokes the session identified by the refresh token. Idempotent; an
// invalid or already revoked token is not an error.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	userID, sessionID, _, err := s.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		return nil
	}
	if err := s.sessions.Revoke(ctx, sessionID); err != nil {
		return err
	}
	s.logEvent(ctx, userID, auditdomain.ActionLogout, "auth", "")
	return nil
}

// ForgotPassword emails the user a password reset link containing a
// short-lived reset token. An unknown email succeeds without sending so
// the endpoint never reveals which addresses have accounts.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return nil
	}
	token, err := s.tokens.IssueReset(user.ID, user.Email)
	if err != nil {
		return err
	}
	resetURL := s.resetBaseURL + "/reset-password/" + token
	if err := s.mail.Send(ctx, user.Email, "Reset your Motorello password", mail.ResetBody(resetURL)); err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return nil
}

// ResetPassword consumes a reset token, replaces the password hash, and
// revokes all of the user's sessions.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	userID, _, err := s.tokens.ValidateReset(token)
	if err != nil {
		return err
	}
	hashed, err := s.hasher.Hash([]byte(newPassword))
	if err != nil {
		return err
	}
	if err := s.users.SetPasswordHash(ctx, userID, hashed); err != nil {
		return err
	}
	if err := s.sessions.RevokeAllByUser(ctx, userID); err != nil {
		return err
	}
	s.logEvent(ctx, userID, auditdomain.ActionPasswordReset, "auth", "")
	return nil
}

// pendingSecondFactor returns the live second-factor challenge for the user
// if one exists for the given method channel, nil otherwise. An expired
// pending step surfaces as ErrChallengeExpired.
func (s *AuthService) pendingSecondFactor(ctx context.Context, userID string, channel challengedomain.Channel) (*challengedomain.Challenge, error) {
	ch, err := s.challenges.GetByUserAndPurpose(ctx, userID, challengedomain.PurposeSecondFactor)
	if err != nil {
		return nil, err
	}
	if ch == nil || ch.Channel != channel || ch.ConsumedAt != nil {
		return nil, nil
	}
	if ch.Expired(time.Now().UTC()) {
		return nil, ErrChallengeExpired
	}
	return ch, nil
}

func (s *AuthService) lookup(ctx context.Context, emailOrPhone string) (*userdomain.User, error) {
	emailOrPhone = strings.TrimSpace(strings.ToLower(emailOrPhone))
	if emailOrPhone == "" {
		return nil, ErrNotFound
	}
	user, err := s.users.GetByEmailOrPhone(ctx, emailOrPhone)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Status != userdomain.StatusActive {
		return nil, ErrNotFound
	}
	return user, nil
}

func (s *AuthService) requireUser(ctx context.Context, userID string) (*userdomain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

func (s *AuthService) logEvent(ctx context.Context, userID, action, resource, metadata string) {
	if s.audit != nil {
		s.audit.LogEvent(ctx, userID, action, resource, metadata)
	}
}

func faceImageKey(userID string) string {
	return "faceauth/" + userID
}

func validateEmail(email string) error {
	if email == "" {
		return errors.New("email is required")
	}
	const simpleEmail = `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`
	ok, _ := regexp.MatchString(simpleEmail, email)
	if !ok {
		return errors.New("invalid email format")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	return nil
}
