package repository

import (
	"context"

	"motorello/backend/internal/session/domain"
)

// Repository defines persistence for refresh sessions.
type Repository interface {
	Create(ctx context.Context, s *domain.Session) error
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	// Revoke marks the session revoked. Revoking an already revoked or
	// unknown session is a no-op.
	Revoke(ctx context.Context, id string) error
	RevokeAllByUser(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context) (int64, error)
}
