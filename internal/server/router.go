// Package server wires the HTTP router: routes, request validation, bearer
// auth, and telemetry middleware.
package server

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	authhandler "motorello/backend/internal/auth/handler"
	devotphandler "motorello/backend/internal/devotp/handler"
	healthhandler "motorello/backend/internal/health/handler"
	"motorello/backend/internal/security"
	"motorello/backend/internal/server/middleware"
	userhandler "motorello/backend/internal/user/handler"
)

// Deps holds the handlers and token provider the router needs.
type Deps struct {
	// Auth serves all /api/auth routes. Required.
	Auth *authhandler.AuthHandler
	// Users serves /api/users/me. Required.
	Users *userhandler.UserHandler
	// Health serves GET /healthz. Required.
	Health *healthhandler.HealthHandler
	// DevOTP serves GET /dev/otp. If nil, the route is not registered. Set
	// only when dev OTP mode is enabled and not production.
	DevOTP *devotphandler.DevOTPHandler
	// Tokens validates access tokens for protected routes. Required.
	Tokens *security.TokenProvider
	// ServiceName names the server in traces (default motorello-auth).
	ServiceName string
}

// NewRouter builds the echo instance with all routes registered.
//
// Route → handler mapping:
//   - /api/auth/*    → internal/auth/handler
//   - /api/users/me  → internal/user/handler
//   - /healthz       → internal/health/handler
//   - /dev/otp       → internal/devotp/handler (dev mode only)
func NewRouter(deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = NewValidator()

	serviceName := deps.ServiceName
	if serviceName == "" {
		serviceName = "motorello-auth"
	}
	e.Use(echomw.Recover())
	e.Use(otelecho.Middleware(serviceName))
	e.Use(middleware.ClientIP())

	e.GET("/healthz", deps.Health.Handle)
	if deps.DevOTP != nil {
		e.GET("/dev/otp", deps.DevOTP.Handle)
	}

	auth := e.Group("/api/auth")
	auth.POST("/register", deps.Auth.Register)
	auth.POST("/login", deps.Auth.Login)
	auth.POST("/refresh", deps.Auth.Refresh)
	auth.POST("/logout", deps.Auth.Logout)
	auth.POST("/forgot-password", deps.Auth.ForgotPassword)
	auth.POST("/reset-password", deps.Auth.ResetPassword)
	auth.POST("/start-otp-login", deps.Auth.StartOTPLogin)
	auth.POST("/verify-otp-login", deps.Auth.VerifyOTPLogin)
	// Second-factor completion happens before a session exists, so these two
	// stay public; the service binds them to the pending challenge.
	auth.POST("/verify-2fa", deps.Auth.Verify2FA)
	auth.POST("/verify-faceauth", deps.Auth.VerifyFaceAuth)

	protected := e.Group("/api", middleware.BearerAuth(deps.Tokens))
	protected.POST("/auth/start-phone-verification", deps.Auth.StartPhoneVerification)
	protected.POST("/auth/verify-otp", deps.Auth.VerifyOTP)
	protected.POST("/auth/send-email-otp", deps.Auth.SendEmailOTP)
	protected.POST("/auth/verify-email-otp", deps.Auth.VerifyEmailOTP)
	protected.POST("/auth/enable-2fa", deps.Auth.Enable2FA)
	protected.POST("/auth/enable-faceauth", deps.Auth.EnableFaceAuth)
	protected.POST("/auth/disable-faceauth", deps.Auth.DisableFaceAuth)
	protected.GET("/users/me", deps.Users.Get)
	protected.PATCH("/users/me", deps.Users.Update)

	return e
}
