package repository

import (
	"context"

	"motorello/backend/internal/user/domain"
)

// Repository defines persistence for user identity records.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByPhone(ctx context.Context, phone string) (*domain.User, error)
	GetByEmailOrPhone(ctx context.Context, emailOrPhone string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, u *domain.User) error
	SetPasswordHash(ctx context.Context, userID, hash string) error
	SetPhoneVerified(ctx context.Context, userID string) error
	SetEmailVerified(ctx context.Context, userID string) error
	SetTOTP(ctx context.Context, userID, secret string, enabled bool) error
	SetFaceTemplate(ctx context.Context, userID string, descriptor []float64, imageURL string) error
	ClearFaceTemplate(ctx context.Context, userID string) error
}
