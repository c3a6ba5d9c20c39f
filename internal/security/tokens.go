package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token is malformed, has a bad signature,
	// or carries wrong issuer/audience claims.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when a token is well-formed and correctly signed
	// but its ttl has elapsed. Always distinguished from ErrInvalidToken.
	ErrExpiredToken = errors.New("expired token")
)

// AccessClaims holds JWT claims for the access token. Subject is the user id;
// Role is the user's role. This is the canonical claims shape for all auth variants.
type AccessClaims struct {
	jwt.RegisteredClaims
	Role      string `json:"role"`
	SessionID string `json:"session_id"`
}

// RefreshClaims holds JWT claims for the refresh token (includes jti bound to the session).
type RefreshClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"session_id"`
}

// ResetClaims holds JWT claims for the short-lived password reset token.
type ResetClaims struct {
	jwt.RegisteredClaims
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
}

const resetPurpose = "password_reset"

// TokenProvider issues and validates JWT access, refresh, and reset tokens using
// RS256 or ES256 (private/public key).
type TokenProvider struct {
	privateKey crypto.Signer
	publicKey  crypto.PublicKey
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
	resetTTL   time.Duration
}

// NewTokenProvider returns a TokenProvider that signs with the given private key (RS256 or ES256).
// issuer and audience are set on claims and validated on parse.
func NewTokenProvider(privateKey crypto.Signer, publicKey crypto.PublicKey, issuer, audience string, accessTTL, refreshTTL, resetTTL time.Duration) *TokenProvider {
	return &TokenProvider{
		privateKey: privateKey,
		publicKey:  publicKey,
		issuer:     issuer,
		audience:   audience,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		resetTTL:   resetTTL,
	}
}

// AccessTTL returns the configured access token lifetime.
func (p *TokenProvider) AccessTTL() time.Duration { return p.accessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (p *TokenProvider) RefreshTTL() time.Duration { return p.refreshTTL }

// IssueAccess issues a short-lived access JWT for the given user, role, and session.
// Returns the token string, its jti, and expiration time.
func (p *TokenProvider) IssueAccess(userID, role, sessionID string) (token string, jti string, expiresAt time.Time, err error) {
	jti, err = generateJTI()
	if err != nil {
		return "", "", time.Time{}, err
	}
	now := time.Now().UTC()
	expiresAt = now.Add(p.accessTTL)
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Role:      role,
		SessionID: sessionID,
	}
	token, err = p.sign(claims)
	return token, jti, expiresAt, err
}

// IssueRefresh issues a long-lived refresh JWT and returns the token, its jti,
// and expiration time. Caller must store jti and the token hash on the session.
func (p *TokenProvider) IssueRefresh(userID, sessionID string) (token, jti string, expiresAt time.Time, err error) {
	jti, err = generateJTI()
	if err != nil {
		return "", "", time.Time{}, err
	}
	now := time.Now().UTC()
	expiresAt = now.Add(p.refreshTTL)
	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		SessionID: sessionID,
	}
	token, err = p.sign(claims)
	return token, jti, expiresAt, err
}

// IssueReset issues a short-lived password reset JWT bound to the user and email.
func (p *TokenProvider) IssueReset(userID, email string) (string, error) {
	jti, err := generateJTI()
	if err != nil {
		return "", err
	}
	now := time.Now().UTC()
	claims := ResetClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.resetTTL)),
		},
		Email:   email,
		Purpose: resetPurpose,
	}
	return p.sign(claims)
}

func (p *TokenProvider) sign(claims jwt.Claims) (string, error) {
	var method jwt.SigningMethod
	switch p.privateKey.Public().(type) {
	case *rsa.PublicKey:
		method = jwt.SigningMethodRS256
	case *ecdsa.PublicKey:
		method = jwt.SigningMethodES256
	default:
		return "", ErrInvalidToken
	}
	t := jwt.NewWithClaims(method, claims)
	return t.SignedString(p.privateKey)
}

func (p *TokenProvider) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodRSA); ok {
		return p.publicKey, nil
	}
	if _, ok := token.Method.(*jwt.SigningMethodECDSA); ok {
		return p.publicKey, nil
	}
	return nil, ErrInvalidToken
}

// mapParseErr converts jwt parse errors into the package error taxonomy.
func mapParseErr(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return ErrExpiredToken
	}
	return ErrInvalidToken
}

func (p *TokenProvider) checkRegistered(c jwt.RegisteredClaims) error {
	if c.Issuer != p.issuer {
		return ErrInvalidToken
	}
	for _, a := range c.Audience {
		if a == p.audience {
			return nil
		}
	}
	return ErrInvalidToken
}

// ValidateAccess parses and validates the access token (signature, exp, iss, aud).
// Returns userID, role, sessionID, or ErrInvalidToken/ErrExpiredToken.
func (p *TokenProvider) ValidateAccess(tokenString string) (userID, role, sessionID string, err error) {
	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, p.keyFunc)
	if err != nil {
		return "", "", "", mapParseErr(err)
	}
	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return "", "", "", ErrInvalidToken
	}
	if err := p.checkRegistered(claims.RegisteredClaims); err != nil {
		return "", "", "", err
	}
	return claims.Subject, claims.Role, claims.SessionID, nil
}

// ValidateRefresh parses and validates the refresh token (signature, exp, iss, aud).
// Returns userID, sessionID, jti, or ErrInvalidToken/ErrExpiredToken.
func (p *TokenProvider) ValidateRefresh(tokenString string) (userID, sessionID, jti string, err error) {
	token, err := jwt.ParseWithClaims(tokenString, &RefreshClaims{}, p.keyFunc)
	if err != nil {
		return "", "", "", mapParseErr(err)
	}
	claims, ok := token.Claims.(*RefreshClaims)
	if !ok || !token.Valid {
		return "", "", "", ErrInvalidToken
	}
	if err := p.checkRegistered(claims.RegisteredClaims); err != nil {
		return "", "", "", err
	}
	return claims.Subject, claims.SessionID, claims.ID, nil
}

// ValidateReset parses and validates the password reset token.
// Returns userID and email, or ErrInvalidToken/ErrExpiredToken.
func (p *TokenProvider) ValidateReset(tokenString string) (userID, email string, err error) {
	token, err := jwt.ParseWithClaims(tokenString, &ResetClaims{}, p.keyFunc)
	if err != nil {
		return "", "", mapParseErr(err)
	}
	claims, ok := token.Claims.(*ResetClaims)
	if !ok || !token.Valid || claims.Purpose != resetPurpose {
		return "", "", ErrInvalidToken
	}
	if err := p.checkRegistered(claims.RegisteredClaims); err != nil {
		return "", "", err
	}
	return claims.Subject, claims.Email, nil
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
