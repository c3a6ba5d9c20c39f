package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"motorello/backend/internal/security"
)

func newAuthMiddlewareFixture(t *testing.T) (*security.TokenProvider, echo.MiddlewareFunc) {
	t.Helper()
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	return tokens, BearerAuth(tokens)
}

func invoke(mw echo.MiddlewareFunc, authorization string, next echo.HandlerFunc) error {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return mw(next)(c)
}

func TestBearerAuth_NoToken(t *testing.T) {
	_, mw := newAuthMiddlewareFixture(t)

	err := invoke(mw, "", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %v", err)
	}
	if httpErr.Code != http.StatusUnauthorized {
		t.Errorf("code = %d, want %d", httpErr.Code, http.StatusUnauthorized)
	}
}

func TestBearerAuth_InvalidToken(t *testing.T) {
	_, mw := newAuthMiddlewareFixture(t)

	err := invoke(mw, "Bearer not-a-token", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %v", err)
	}
	if httpErr.Code != http.StatusUnauthorized {
		t.Errorf("code = %d, want %d", httpErr.Code, http.StatusUnauthorized)
	}
}

func TestBearerAuth_ValidToken(t *testing.T) {
	tokens, mw := newAuthMiddlewareFixture(t)
	token, _, _, err := tokens.IssueAccess("user-1", "customer", "session-1")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	called := false
	err = invoke(mw, "Bearer "+token, func(c echo.Context) error {
		called = true
		ctx := c.Request().Context()
		userID, ok := GetUserID(ctx)
		if !ok || userID != "user-1" {
			t.Errorf("user_id = %q, ok = %v, want %q", userID, ok, "user-1")
		}
		role, ok := GetRole(ctx)
		if !ok || role != "customer" {
			t.Errorf("role = %q, ok = %v, want %q", role, ok, "customer")
		}
		sessionID, ok := GetSessionID(ctx)
		if !ok || sessionID != "session-1" {
			t.Errorf("session_id = %q, ok = %v, want %q", sessionID, ok, "session-1")
		}
		return c.NoContent(http.StatusOK)
	})
	if err != nil {
		t.Fatalf("middleware: %v", err)
	}
	if !called {
		t.Fatal("handler was not called")
	}
}

func TestExtractBearer(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"empty", "", ""},
		{"standard", "Bearer abc123", "abc123"},
		{"lowercase scheme", "bearer abc123", "abc123"},
		{"no scheme", "abc123", ""},
		{"scheme only", "Bearer ", ""},
		{"surrounding whitespace", "  Bearer abc123  ", "abc123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractBearer(tt.header); got != tt.want {
				t.Errorf("extractBearer(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}
