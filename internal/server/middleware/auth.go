package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"motorello/backend/internal/security"
)

const bearerPrefix = "bearer "

// BearerAuth returns echo middleware that validates the Bearer (access) token
// from the Authorization header and sets user_id, role, session_id in the
// request context. Requests without a valid token get 401.
func BearerAuth(tokens *security.TokenProvider) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := extractBearer(c.Request().Header.Get("Authorization"))
			if token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing or invalid authorization")
			}
			userID, role, sessionID, err := tokens.ValidateAccess(token)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing or invalid authorization")
			}
			ctx := WithIdentity(c.Request().Context(), userID, role, sessionID)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// ClientIP returns echo middleware that records the client's IP in the
// request context so the audit logger can attribute events.
func ClientIP() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := WithClientIP(c.Request().Context(), c.RealIP())
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// extractBearer returns the Bearer token from an Authorization header value,
// or "" if missing or malformed.
func extractBearer(header string) string {
	v := strings.TrimSpace(header)
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
