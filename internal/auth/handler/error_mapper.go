package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"motorello/backend/internal/auth/service"
	"motorello/backend/internal/security"
)

// mapServiceError converts a service error into an echo.HTTPError with a
// stable status code. Credential failures never reveal which factor failed.
func mapServiceError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidOTP),
		errors.Is(err, service.ErrChallengeMismatch),
		errors.Is(err, service.ErrFaceMismatch):
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")

	case errors.Is(err, service.ErrRefreshTokenInvalid),
		errors.Is(err, service.ErrRefreshTokenExpired),
		errors.Is(err, security.ErrInvalidToken),
		errors.Is(err, security.ErrExpiredToken):
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")

	case errors.Is(err, service.ErrNoActiveChallenge),
		errors.Is(err, service.ErrChallengeExpired),
		errors.Is(err, service.ErrChallengeAlreadyUsed):
		return echo.NewHTTPError(http.StatusConflict, err.Error())

	case errors.Is(err, service.ErrTooManyAttempts):
		return echo.NewHTTPError(http.StatusTooManyRequests, "too many attempts")

	case errors.Is(err, service.ErrNoFaceDetected):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "no face detected in image")

	case errors.Is(err, service.ErrEmailAlreadyRegistered):
		return echo.NewHTTPError(http.StatusConflict, "email already registered")

	case errors.Is(err, service.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "not found")

	case errors.Is(err, service.ErrUpstream):
		return echo.NewHTTPError(http.StatusBadGateway, "upstream service unavailable")

	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
