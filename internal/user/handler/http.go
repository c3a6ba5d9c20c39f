// Package handler exposes the authenticated user's profile over REST.
package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"motorello/backend/internal/server/middleware"
	"motorello/backend/internal/user/domain"
	"motorello/backend/internal/user/repository"
)

// UserHandler serves GET and PATCH /api/users/me. Both routes are bearer
// protected; the subject comes from the access token, never from the request.
type UserHandler struct {
	repo repository.Repository
}

// NewUserHandler creates the user profile handler.
func NewUserHandler(repo repository.Repository) *UserHandler {
	return &UserHandler{repo: repo}
}

type profileResponse struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	Phone         string     `json:"phone,omitempty"`
	FirstName     string     `json:"firstName"`
	LastName      string     `json:"lastName"`
	Role          string     `json:"role"`
	Gender        string     `json:"gender,omitempty"`
	DOB           *time.Time `json:"dob,omitempty"`
	PhoneVerified bool       `json:"phoneVerified"`
	EmailVerified bool       `json:"emailVerified"`
	TwoFAEnabled  bool       `json:"twoFAEnabled"`
	FaceEnabled   bool       `json:"faceEnabled"`
	FaceImageURL  string     `json:"faceImageUrl,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

func toProfile(u *domain.User) profileResponse {
	return profileResponse{
		ID:            u.ID,
		Email:         u.Email,
		Phone:         u.Phone,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Role:          string(u.Role),
		Gender:        u.Gender,
		DOB:           u.DOB,
		PhoneVerified: u.PhoneVerified,
		EmailVerified: u.EmailVerified,
		TwoFAEnabled:  u.TOTPEnabled,
		FaceEnabled:   u.FaceEnabled,
		FaceImageURL:  u.FaceImageURL,
		CreatedAt:     u.CreatedAt,
	}
}

// Get handles GET /api/users/me.
func (h *UserHandler) Get(c echo.Context) error {
	user, err := h.current(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toProfile(user))
}

type updateProfileRequest struct {
	FirstName *string    `json:"firstName" validate:"omitempty,min=1"`
	LastName  *string    `json:"lastName"`
	Gender    *string    `json:"gender"`
	DOB       *time.Time `json:"dob"`
}

// Update handles PATCH /api/users/me. Only the fields present in the body
// change; identity and credential fields are managed by the auth endpoints.
func (h *UserHandler) Update(c echo.Context) error {
	user, err := h.current(c)
	if err != nil {
		return err
	}
	var req updateProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.Gender != nil {
		user.Gender = *req.Gender
	}
	if req.DOB != nil {
		user.DOB = req.DOB
	}
	if err := h.repo.Update(c.Request().Context(), user); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, toProfile(user))
}

func (h *UserHandler) current(c echo.Context) (*domain.User, error) {
	userID, ok := middleware.GetUserID(c.Request().Context())
	if !ok || userID == "" {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	user, err := h.repo.GetByID(c.Request().Context(), userID)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if user == nil {
		return nil, echo.NewHTTPError(http.StatusNotFound, "user not found")
	}
	return user, nil
}
