// Package handler serves the dev-only OTP retrieval endpoint.
package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"motorello/backend/internal/devotp"
)

// DevOTPHandler exposes GET /dev/otp for local development. It must only be
// registered when dev OTP mode is enabled and the environment is not
// production.
type DevOTPHandler struct {
	store devotp.Store
}

// NewDevOTPHandler creates the dev OTP handler over the given store.
func NewDevOTPHandler(store devotp.Store) *DevOTPHandler {
	return &DevOTPHandler{store: store}
}

// Handle returns the plain OTP for a challenge id, or 404 if missing or expired.
func (h *DevOTPHandler) Handle(c echo.Context) error {
	challengeID := c.QueryParam("challenge_id")
	if challengeID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "challenge_id is required")
	}
	otp, ok := h.store.Get(c.Request().Context(), challengeID)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "otp not found or expired")
	}
	return c.JSON(http.StatusOK, map[string]string{
		"challengeId": challengeID,
		"otp":         otp,
	})
}
