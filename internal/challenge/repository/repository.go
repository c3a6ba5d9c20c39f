package repository

import (
	"context"
	"time"

	"motorello/backend/internal/challenge/domain"
)

// Repository defines persistence for one-time code challenges.
type Repository interface {
	// Replace stores the challenge, displacing any previous challenge for the
	// same (user, purpose) pair.
	Replace(ctx context.Context, c *domain.Challenge) error
	// GetByUserAndPurpose returns the stored challenge for (user, purpose),
	// consumed or not, or nil if none exists.
	GetByUserAndPurpose(ctx context.Context, userID string, purpose domain.Purpose) (*domain.Challenge, error)
	// Consume marks the challenge consumed. It returns false when the
	// challenge was already consumed or does not exist, so concurrent
	// verifications settle on exactly one winner.
	Consume(ctx context.Context, id string, at time.Time) (bool, error)
	// IncrementAttempts bumps the failed-attempt counter and returns the new value.
	IncrementAttempts(ctx context.Context, id string) (int, error)
	Delete(ctx context.Context, id string) error
}

// DefaultTTL is the default one-time code expiry.
const DefaultTTL = 10 * time.Minute
