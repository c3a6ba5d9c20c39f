package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"motorello/backend/internal/face"
	"motorello/backend/internal/user/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a user repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, email, phone, first_name, last_name, password_hash, role, gender, dob,
	status, phone_verified, email_verified, totp_secret, totp_enabled,
	face_descriptor, face_image_url, face_enabled, created_at, updated_at`

func (r *PostgresRepository) getOne(ctx context.Context, where string, args ...interface{}) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, args...)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

// GetByID returns the user for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, `id = $1`, id)
}

// GetByEmail returns the user with the given email, or nil if not found.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, `email = $1`, email)
}

// GetByPhone returns the user with the given phone, or nil if not found.
func (r *PostgresRepository) GetByPhone(ctx context.Context, phone string) (*domain.User, error) {
	return r.getOne(ctx, `phone = $1`, phone)
}

// GetByEmailOrPhone returns the user whose email or phone equals the given value, or nil if not found.
func (r *PostgresRepository) GetByEmailOrPhone(ctx context.Context, emailOrPhone string) (*domain.User, error) {
	return r.getOne(ctx, `email = $1 OR phone = $1`, emailOrPhone)
}

// Create persists the user. The user must have ID set; it is not assigned by this method.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	descriptor, err := marshalDescriptor(u.FaceDescriptor)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		u.ID, u.Email, nullString(u.Phone), u.FirstName, u.LastName, u.PasswordHash,
		string(u.Role), u.Gender, u.DOB, string(u.Status), u.PhoneVerified, u.EmailVerified,
		u.TOTPSecret, u.TOTPEnabled, descriptor, u.FaceImageURL, u.FaceEnabled,
		u.CreatedAt, u.UpdatedAt)
	return err
}

// Update updates mutable profile fields. Verification flags, 2FA, and face
// enrollment have dedicated setters and are not touched here.
func (r *PostgresRepository) Update(ctx context.Context, u *domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET first_name = $2, last_name = $3, gender = $4, dob = $5, status = $6, updated_at = $7
		WHERE id = $1`,
		u.ID, u.FirstName, u.LastName, u.Gender, u.DOB, string(u.Status), time.Now().UTC())
	return err
}

// SetPasswordHash replaces the user's password hash.
func (r *PostgresRepository) SetPasswordHash(ctx context.Context, userID, hash string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`,
		userID, hash, time.Now().UTC())
	return err
}

// SetPhoneVerified marks the user's phone as verified.
func (r *PostgresRepository) SetPhoneVerified(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET phone_verified = TRUE, updated_at = $2 WHERE id = $1`,
		userID, time.Now().UTC())
	return err
}

// SetEmailVerified marks the user's email as verified.
func (r *PostgresRepository) SetEmailVerified(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET email_verified = TRUE, updated_at = $2 WHERE id = $1`,
		userID, time.Now().UTC())
	return err
}

// SetTOTP stores the TOTP secret and enablement flag.
func (r *PostgresRepository) SetTOTP(ctx context.Context, userID, secret string, enabled bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET totp_secret = $2, totp_enabled = $3, updated_at = $4 WHERE id = $1`,
		userID, secret, enabled, time.Now().UTC())
	return err
}

// SetFaceTemplate replaces the face descriptor and reference image URL wholesale.
func (r *PostgresRepository) SetFaceTemplate(ctx context.Context, userID string, descriptor []float64, imageURL string) error {
	raw, err := marshalDescriptor(descriptor)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE users SET face_descriptor = $2, face_image_url = $3, face_enabled = TRUE, updated_at = $4 WHERE id = $1`,
		userID, raw, imageURL, time.Now().UTC())
	return err
}

// ClearFaceTemplate removes the face template and disables face auth.
func (r *PostgresRepository) ClearFaceTemplate(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET face_descriptor = NULL, face_image_url = '', face_enabled = FALSE, updated_at = $2 WHERE id = $1`,
		userID, time.Now().UTC())
	return err
}

func marshalDescriptor(d []float64) (interface{}, error) {
	if len(d) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		u          domain.User
		phone      sql.NullString
		dob        sql.NullTime
		descriptor []byte
		role       string
		status     string
	)
	err := row.Scan(&u.ID, &u.Email, &phone, &u.FirstName, &u.LastName, &u.PasswordHash,
		&role, &u.Gender, &dob, &status, &u.PhoneVerified, &u.EmailVerified,
		&u.TOTPSecret, &u.TOTPEnabled, &descriptor, &u.FaceImageURL, &u.FaceEnabled,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.Role = domain.Role(role)
	u.Status = domain.Status(status)
	if phone.Valid {
		u.Phone = phone.String
	}
	if dob.Valid {
		t := dob.Time
		u.DOB = &t
	}
	if len(descriptor) > 0 {
		var d face.Descriptor
		if err := json.Unmarshal(descriptor, &d); err != nil {
			return nil, err
		}
		u.FaceDescriptor = d
	}
	return &u, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
