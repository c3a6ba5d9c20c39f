package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"motorello/backend/internal/challenge/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a challenge repository that uses the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Replace stores the challenge, displacing any previous one for the same
// (user, purpose) via the table's unique constraint.
func (r *PostgresRepository) Replace(ctx context.Context, c *domain.Challenge) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO otp_challenges (id, user_id, purpose, channel, code_hash, attempts, issued_at, expires_at, consumed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id, purpose) DO UPDATE
		SET id = EXCLUDED.id, channel = EXCLUDED.channel, code_hash = EXCLUDED.code_hash,
		    attempts = 0, issued_at = EXCLUDED.issued_at, expires_at = EXCLUDED.expires_at,
		    consumed_at = NULL`,
		c.ID, c.UserID, string(c.Purpose), string(c.Channel), c.CodeHash,
		c.Attempts, c.IssuedAt, c.ExpiresAt, c.ConsumedAt)
	return err
}

// GetByUserAndPurpose returns the stored challenge, or nil if not found.
func (r *PostgresRepository) GetByUserAndPurpose(ctx context.Context, userID string, purpose domain.Purpose) (*domain.Challenge, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, purpose, channel, code_hash, attempts, issued_at, expires_at, consumed_at
		FROM otp_challenges
		WHERE user_id = $1 AND purpose = $2`,
		userID, string(purpose))
	var (
		c          domain.Challenge
		purposeRaw string
		channelRaw string
		consumedAt sql.NullTime
	)
	err := row.Scan(&c.ID, &c.UserID, &purposeRaw, &channelRaw, &c.CodeHash,
		&c.Attempts, &c.IssuedAt, &c.ExpiresAt, &consumedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	c.Purpose = domain.Purpose(purposeRaw)
	c.Channel = domain.Channel(channelRaw)
	if consumedAt.Valid {
		t := consumedAt.Time
		c.ConsumedAt = &t
	}
	return &c, nil
}

// Consume marks the challenge consumed if it has not been consumed yet.
// The WHERE clause makes concurrent callers race on a single row update,
// so exactly one of them observes true.
func (r *PostgresRepository) Consume(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE otp_challenges SET consumed_at = $2
		WHERE id = $1 AND consumed_at IS NULL`,
		id, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// IncrementAttempts bumps the failed-attempt counter and returns the new value.
func (r *PostgresRepository) IncrementAttempts(ctx context.Context, id string) (int, error) {
	var attempts int
	err := r.db.QueryRowContext(ctx, `
		UPDATE otp_challenges SET attempts = attempts + 1
		WHERE id = $1
		RETURNING attempts`,
		id).Scan(&attempts)
	if err != nil {
		return 0, err
	}
	return attempts, nil
}

// Delete removes the challenge by id.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM otp_challenges WHERE id = $1`, id)
	return err
}
