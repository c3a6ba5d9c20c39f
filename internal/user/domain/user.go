package domain

import (
	"errors"
	"time"

	"motorello/backend/internal/face"
)

// User is the core identity record.
type User struct {
	ID            string
	Email         string
	Phone         string // digits with country code; optional until phone verification
	FirstName     string
	LastName      string
	PasswordHash  string
	Role          Role
	Gender        string
	DOB           *time.Time
	Status        Status
	PhoneVerified bool
	EmailVerified bool

	// TOTP 2FA enrollment. Secret is set once when 2FA is enabled and never
	// returned to clients after initial provisioning.
	TOTPSecret  string
	TOTPEnabled bool

	// Face auth enrollment. Descriptor and image URL are replaced wholesale on
	// re-enrollment and cleared on disable.
	FaceDescriptor face.Descriptor
	FaceImageURL   string
	FaceEnabled    bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Role determines the user's access level in access token claims.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleCustomer Role = "customer"
	RoleMechanic Role = "mechanic"
	RoleSeller   Role = "seller"
)

// ValidRole reports whether r is one of the known roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleAdmin, RoleCustomer, RoleMechanic, RoleSeller:
		return true
	}
	return false
}

type Status string

const (
	StatusActive   Status = "active"
	StatusDisabled Status = "disabled"
)

// SecondFactor names the second-factor method enabled for a user, if any.
type SecondFactor string

const (
	SecondFactorNone SecondFactor = ""
	SecondFactorTOTP SecondFactor = "totp"
	SecondFactorFace SecondFactor = "face"
)

// EnabledSecondFactor returns the second-factor method the user has enrolled.
// TOTP wins when both are enabled; face enrollment alone makes face the factor.
func (u *User) EnabledSecondFactor() SecondFactor {
	if u.TOTPEnabled {
		return SecondFactorTOTP
	}
	if u.FaceEnabled {
		return SecondFactorFace
	}
	return SecondFactorNone
}

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.Email == "" {
		return errors.New("email is required")
	}
	if !ValidRole(u.Role) {
		return errors.New("invalid role")
	}
	if u.Status == "" {
		u.Status = StatusActive
	}
	return nil
}
