// Package handler exposes the auth orchestrator over REST. Each handler
// validates an explicit request schema and calls one service method.
package handler

import (
	"encoding/base64"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"motorello/backend/internal/auth/service"
	"motorello/backend/internal/server/middleware"
	userdomain "motorello/backend/internal/user/domain"
)

// AuthHandler adapts HTTP requests to the auth service.
type AuthHandler struct {
	svc *service.AuthService
}

// NewAuthHandler creates the auth HTTP handler.
func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

type registerRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"omitempty,min=10"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName"`
	Role      string `json:"role" validate:"omitempty,oneof=admin customer mechanic seller"`
	Gender    string `json:"gender"`
}

type userResponse struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Phone         string `json:"phone,omitempty"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	Role          string `json:"role"`
	PhoneVerified bool   `json:"phoneVerified"`
	EmailVerified bool   `json:"emailVerified"`
	TwoFAEnabled  bool   `json:"twoFAEnabled"`
	FaceEnabled   bool   `json:"faceEnabled"`
}

type tokenResponse struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	ExpiresAt    time.Time `json:"expiresAt"`
	UserID       string    `json:"userId"`
}

type secondFactorResponse struct {
	SecondFactorRequired bool      `json:"secondFactorRequired"`
	Method               string    `json:"method"`
	ChallengeID          string    `json:"challengeId"`
	ExpiresAt            time.Time `json:"expiresAt"`
	UserID               string    `json:"userId"`
}

type challengeResponse struct {
	ChallengeID string    `json:"challengeId"`
	Channel     string    `json:"channel"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

func userToResponse(u *userdomain.User) userResponse {
	return userResponse{
		ID:            u.ID,
		Email:         u.Email,
		Phone:         u.Phone,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Role:          string(u.Role),
		PhoneVerified: u.PhoneVerified,
		EmailVerified: u.EmailVerified,
		TwoFAEnabled:  u.TOTPEnabled,
		FaceEnabled:   u.FaceEnabled,
	}
}

func loginResultToResponse(c echo.Context, res *service.LoginResult) error {
	if res.SecondFactor != nil {
		return c.JSON(http.StatusOK, secondFactorResponse{
			SecondFactorRequired: true,
			Method:               string(res.SecondFactor.Method),
			ChallengeID:          res.SecondFactor.ChallengeID,
			ExpiresAt:            res.SecondFactor.ExpiresAt,
			UserID:               res.UserID,
		})
	}
	return c.JSON(http.StatusOK, tokenResponse{
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
		ExpiresAt:    res.Tokens.AccessExpiresAt,
		UserID:       res.UserID,
	})
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	user, err := h.svc.Register(c.Request().Context(), service.RegisterParams{
		Email:     req.Email,
		Phone:     req.Phone,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      userdomain.Role(req.Role),
		Gender:    req.Gender,
	})
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusCreated, userToResponse(user))
}

type loginRequest struct {
	EmailOrPhone string `json:"emailOrPhone" validate:"required"`
	Password     string `json:"password" validate:"required"`
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := h.svc.Login(c.Request().Context(), req.EmailOrPhone, req.Password)
	if err != nil {
		return mapServiceError(err)
	}
	return loginResultToResponse(c, res)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// Refresh handles POST /api/auth/refresh.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	pair, err := h.svc.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, tokenResponse{
		AccessToken: pair.AccessToken,
		ExpiresAt:   pair.AccessExpiresAt,
	})
}

type logoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Logout handles POST /api/auth/logout. Idempotent.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req logoutRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.svc.Logout(c.Request().Context(), req.RefreshToken); err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "logged out"})
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ForgotPassword handles POST /api/auth/forgot-password.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotPasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.svc.ForgotPassword(c.Request().Context(), req.Email); err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "reset email sent"})
}

type resetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8"`
}

// ResetPassword handles POST /api/auth/reset-password.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.svc.ResetPassword(c.Request().Context(), req.Token, req.NewPassword); err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "password updated"})
}

type startOTPLoginRequest struct {
	EmailOrPhone string `json:"emailOrPhone" validate:"required"`
}

// StartOTPLogin handles POST /api/auth/start-otp-login.
func (h *AuthHandler) StartOTPLogin(c echo.Context) error {
	var req startOTPLoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := h.svc.StartOTPLogin(c.Request().Context(), req.EmailOrPhone)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, challengeResponse{
		ChallengeID: res.ChallengeID,
		Channel:     string(res.Channel),
		ExpiresAt:   res.ExpiresAt,
	})
}

type verifyOTPLoginRequest struct {
	EmailOrPhone string `json:"emailOrPhone" validate:"required"`
	Code         string `json:"code" validate:"required,len=6,numeric"`
}

// VerifyOTPLogin handles POST /api/auth/verify-otp-login.
func (h *AuthHandler) VerifyOTPLogin(c echo.Context) error {
	var req verifyOTPLoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := h.svc.VerifyOTPLogin(c.Request().Context(), req.EmailOrPhone, req.Code)
	if err != nil {
		return mapServiceError(err)
	}
	return loginResultToResponse(c, res)
}

// StartPhoneVerification handles POST /api/auth/start-phone-verification
// (bearer protected).
func (h *AuthHandler) StartPhoneVerification(c echo.Context) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}
	res, err := h.svc.StartPhoneVerification(c.Request().Context(), userID)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, challengeResponse{
		ChallengeID: res.ChallengeID,
		Channel:     string(res.Channel),
		ExpiresAt:   res.ExpiresAt,
	})
}

type verifyCodeRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

// VerifyOTP handles POST /api/auth/verify-otp (phone verification, bearer
// protected).
func (h *AuthHandler) VerifyOTP(c echo.Context) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}
	var req verifyCodeRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.svc.VerifyPhoneOTP(c.Request().Context(), userID, req.Code); err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "phone verified"})
}

// SendEmailOTP handles POST /api/auth/send-email-otp (bearer protected).
func (h *AuthHandler) SendEmailOTP(c echo.Context) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}
	res, err := h.svc.SendEmailOTP(c.Request().Context(), userID)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, challengeResponse{
		ChallengeID: res.ChallengeID,
		Channel:     string(res.Channel),
		ExpiresAt:   res.ExpiresAt,
	})
}

// VerifyEmailOTP handles POST /api/auth/verify-email-otp (bearer protected).
func (h *AuthHandler) VerifyEmailOTP(c echo.Context) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}
	var req verifyCodeRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.svc.VerifyEmailOTP(c.Request().Context(), userID, req.Code); err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "email verified"})
}

// Enable2FA handles POST /api/auth/enable-2fa (bearer protected). The secret
// and provisioning URI are returned exactly once.
func (h *AuthHandler) Enable2FA(c echo.Context) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}
	enrollment, err := h.svc.Enable2FA(c.Request().Context(), userID)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{
		"secret":          enrollment.Secret,
		"provisioningUri": enrollment.ProvisioningURI,
	})
}

type verify2FARequest struct {
	UserID string `json:"userId" validate:"required"`
	Code   string `json:"code" validate:"required,len=6,numeric"`
}

// Verify2FA handles POST /api/auth/verify-2fa. Unauthenticated: during login
// the client has no session yet, so the user id travels in the body.
func (h *AuthHandler) Verify2FA(c echo.Context) error {
	var req verify2FARequest
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := h.svc.Verify2FA(c.Request().Context(), req.UserID, req.Code)
	if err != nil {
		return mapServiceError(err)
	}
	if res.Tokens == nil {
		return c.JSON(http.StatusOK, map[string]string{"status": "2fa enabled"})
	}
	return loginResultToResponse(c, res)
}

type faceImageRequest struct {
	Image string `json:"image" validate:"required,base64"`
}

func (r *faceImageRequest) bytes() ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(r.Image)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "image must be base64 encoded")
	}
	return data, nil
}

// EnableFaceAuth handles POST /api/auth/enable-faceauth (bearer protected).
func (h *AuthHandler) EnableFaceAuth(c echo.Context) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}
	var req faceImageRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	image, err := req.bytes()
	if err != nil {
		return err
	}
	url, err := h.svc.EnableFaceAuth(c.Request().Context(), userID, image)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"imageUrl": url})
}

type verifyFaceRequest struct {
	UserID string `json:"userId" validate:"required"`
	Image  string `json:"image" validate:"required,base64"`
}

// VerifyFaceAuth handles POST /api/auth/verify-faceauth. Unauthenticated for
// the same reason as Verify2FA.
func (h *AuthHandler) VerifyFaceAuth(c echo.Context) error {
	var req verifyFaceRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	image, err := (&faceImageRequest{Image: req.Image}).bytes()
	if err != nil {
		return err
	}
	res, err := h.svc.VerifyFaceAuth(c.Request().Context(), req.UserID, image)
	if err != nil {
		return mapServiceError(err)
	}
	return loginResultToResponse(c, res)
}

// DisableFaceAuth handles POST /api/auth/disable-faceauth (bearer protected).
func (h *AuthHandler) DisableFaceAuth(c echo.Context) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DisableFaceAuth(c.Request().Context(), userID); err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "face auth disabled"})
}

// bind decodes and validates the request body. The router's validator
// already yields a 400 HTTPError on schema violations.
func bind(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	return c.Validate(req)
}

// requireUserID reads the authenticated user id placed in context by the
// bearer middleware.
func requireUserID(c echo.Context) (string, error) {
	userID, ok := middleware.GetUserID(c.Request().Context())
	if !ok || userID == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return userID, nil
}
