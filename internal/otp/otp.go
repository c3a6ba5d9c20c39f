// Package otp generates and verifies the 6-digit one-time codes used for
// phone and email challenges. Codes are stored hashed; plaintext never
// touches the database.
package otp

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"math/big"
)

// codeSpan is the size of the 6-digit code space [100000, 999999].
var codeSpan = big.NewInt(900000)

const codeMin = 100000

// GenerateCode returns a 6-digit numeric OTP string (e.g. "123456").
// Uses crypto/rand; uniform over [100000, 999999].
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpan)
	if err != nil {
		return "", err
	}
	code := n.Int64() + codeMin
	return big.NewInt(code).String(), nil
}

// Hash returns a SHA-256 hash of the OTP string, hex-encoded.
func Hash(code string) string {
	h := sha256.Sum256([]byte(code))
	return hex.EncodeToString(h[:])
}

// Equal performs constant-time comparison of the provided code's hash with the stored hash.
func Equal(providedCode, storedHash string) bool {
	providedHash := Hash(providedCode)
	return subtle.ConstantTimeCompare([]byte(providedHash), []byte(storedHash)) == 1
}
