package security

import (
	"golang.org/x/crypto/bcrypt"
)

// Hasher wraps bcrypt for password storage. The plaintext never leaves the
// call site; only the resulting hash is persisted on the user row.
type Hasher struct {
	Cost int
}

// NewHasher returns a Hasher with the given bcrypt cost, clamped to bcrypt's
// valid range. Cost comes from BCRYPT_COST; 12 is the production default,
// tests use 4 to keep login flows fast.
func NewHasher(cost int) *Hasher {
	switch {
	case cost <= 0:
		cost = bcrypt.DefaultCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return &Hasher{Cost: cost}
}

// Hash produces a salted bcrypt hash of password, ready for storage.
func (h *Hasher) Hash(password []byte) (string, error) {
	b, err := bcrypt.GenerateFromPassword(password, h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Compare verifies password against a stored hash in constant time. Returns
// nil on match, bcrypt.ErrMismatchedHashAndPassword (or a format error) otherwise.
func (h *Hasher) Compare(hash string, password []byte) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), password)
}
