// Package totp implements time-based one-time passwords (HMAC-SHA-256,
// 6 digits, 30-second step) for the 2FA second factor.
package totp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"net/url"
	"time"
)

const (
	// Digits is the number of digits in a generated code.
	Digits = 6
	// Period is the time-step length.
	Period = 30 * time.Second
	// skewSteps is how many adjacent time steps are accepted on each side
	// of the current one, to tolerate clock drift.
	skewSteps = 1

	secretBytes = 15 // 120 bits of entropy before Base32 truncation
	secretChars = 24
)

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// GenerateSecret returns a new Base32-encoded shared secret (24 chars,
// 120 bits of entropy). Stored on the user when 2FA is enabled; shown to
// the client only once, during provisioning.
func GenerateSecret() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	s := b32.EncodeToString(buf)
	if len(s) > secretChars {
		s = s[:secretChars]
	}
	return s, nil
}

// Code computes the 6-digit code for the given Base32 secret at time t.
func Code(secret string, t time.Time) (string, error) {
	key, err := b32.DecodeString(secret)
	if err != nil {
		return "", fmt.Errorf("totp: invalid secret: %w", err)
	}
	counter := uint64(t.Unix()) / uint64(Period/time.Second)
	return hotp(key, counter), nil
}

// Verify reports whether code matches the secret at time t, accepting the
// current step and one step on each side. Comparison is constant-time per
// candidate step.
func Verify(secret, code string, t time.Time) (bool, error) {
	if len(code) != Digits {
		return false, nil
	}
	key, err := b32.DecodeString(secret)
	if err != nil {
		return false, fmt.Errorf("totp: invalid secret: %w", err)
	}
	counter := int64(uint64(t.Unix()) / uint64(Period/time.Second))
	for delta := int64(-skewSteps); delta <= skewSteps; delta++ {
		c := counter + delta
		if c < 0 {
			continue
		}
		want := hotp(key, uint64(c))
		if subtle.ConstantTimeCompare([]byte(want), []byte(code)) == 1 {
			return true, nil
		}
	}
	return false, nil
}

// ProvisioningURI returns the otpauth:// URI encoded into the QR code shown
// at enrollment.
func ProvisioningURI(secret, issuer, account string) string {
	q := url.Values{}
	q.Set("secret", secret)
	q.Set("issuer", issuer)
	q.Set("algorithm", "SHA256")
	q.Set("digits", fmt.Sprintf("%d", Digits))
	q.Set("period", fmt.Sprintf("%d", int(Period/time.Second)))
	label := url.PathEscape(issuer + ":" + account)
	return "otpauth://totp/" + label + "?" + q.Encode()
}

// hotp computes the RFC 4226 dynamic truncation of HMAC-SHA-256(key, counter),
// zero-padded to Digits.
func hotp(key []byte, counter uint64) string {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], counter)
	mac := hmac.New(sha256.New, key)
	mac.Write(msg[:])
	sum := mac.Sum(nil)
	offset := sum[len(sum)-1] & 0x0f
	v := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff
	return fmt.Sprintf("%06d", v%1000000)
}
