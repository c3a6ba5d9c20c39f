package handler_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authhandler "motorello/backend/internal/auth/handler"
	"motorello/backend/internal/auth/service"
	challengedomain "motorello/backend/internal/challenge/domain"
	"motorello/backend/internal/face"
	healthhandler "motorello/backend/internal/health/handler"
	"motorello/backend/internal/security"
	sessiondomain "motorello/backend/internal/session/domain"
	"motorello/backend/internal/server"
	"motorello/backend/internal/totp"
	userdomain "motorello/backend/internal/user/domain"
	userhandler "motorello/backend/internal/user/handler"
)

// In-memory repositories. They implement the full repository interfaces so
// one fake serves both the auth service and the user handler.

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*userdomain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]*userdomain.User)}
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) GetByPhone(_ context.Context, phone string) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Phone == phone {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) GetByEmailOrPhone(ctx context.Context, emailOrPhone string) (*userdomain.User, error) {
	if u, err := r.GetByEmail(ctx, emailOrPhone); err != nil || u != nil {
		return u, err
	}
	return r.GetByPhone(ctx, emailOrPhone)
}

func (r *memUserRepo) Create(_ context.Context, u *userdomain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *memUserRepo) Update(_ context.Context, u *userdomain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *memUserRepo) mutate(id string, f func(*userdomain.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		f(u)
	}
	return nil
}

func (r *memUserRepo) SetPasswordHash(_ context.Context, userID, hash string) error {
	return r.mutate(userID, func(u *userdomain.User) { u.PasswordHash = hash })
}

func (r *memUserRepo) SetPhoneVerified(_ context.Context, userID string) error {
	return r.mutate(userID, func(u *userdomain.User) { u.PhoneVerified = true })
}

func (r *memUserRepo) SetEmailVerified(_ context.Context, userID string) error {
	return r.mutate(userID, func(u *userdomain.User) { u.EmailVerified = true })
}

func (r *memUserRepo) SetTOTP(_ context.Context, userID, secret string, enabled bool) error {
	return r.mutate(userID, func(u *userdomain.User) {
		u.TOTPSecret = secret
		u.TOTPEnabled = enabled
	})
}

func (r *memUserRepo) SetFaceTemplate(_ context.Context, userID string, descriptor []float64, imageURL string) error {
	return r.mutate(userID, func(u *userdomain.User) {
		u.FaceDescriptor = descriptor
		u.FaceImageURL = imageURL
		u.FaceEnabled = true
	})
}

func (r *memUserRepo) ClearFaceTemplate(_ context.Context, userID string) error {
	return r.mutate(userID, func(u *userdomain.User) {
		u.FaceDescriptor = nil
		u.FaceImageURL = ""
		u.FaceEnabled = false
	})
}

type memChallengeRepo struct {
	mu   sync.Mutex
	byID map[string]*challengedomain.Challenge
}

func newMemChallengeRepo() *memChallengeRepo {
	return &memChallengeRepo{byID: make(map[string]*challengedomain.Challenge)}
}

func (r *memChallengeRepo) Replace(_ context.Context, c *challengedomain.Challenge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, existing := range r.byID {
		if existing.UserID == c.UserID && existing.Purpose == c.Purpose {
			delete(r.byID, id)
		}
	}
	cp := *c
	r.byID[c.ID] = &cp
	return nil
}

func (r *memChallengeRepo) GetByUserAndPurpose(_ context.Context, userID string, purpose challengedomain.Purpose) (*challengedomain.Challenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.byID {
		if c.UserID == userID && c.Purpose == purpose {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memChallengeRepo) Consume(_ context.Context, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok || c.ConsumedAt != nil {
		return false, nil
	}
	t := at
	c.ConsumedAt = &t
	return true, nil
}

func (r *memChallengeRepo) IncrementAttempts(_ context.Context, id string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return 0, nil
	}
	c.Attempts++
	return c.Attempts, nil
}

func (r *memChallengeRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
	return nil
}

type memSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*sessiondomain.Session
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: make(map[string]*sessiondomain.Session)}
}

func (r *memSessionRepo) Create(_ context.Context, s *sessiondomain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.sessions[s.ID] = &cp
	return nil
}

func (r *memSessionRepo) GetByID(_ context.Context, id string) (*sessiondomain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

func (r *memSessionRepo) Revoke(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok && s.RevokedAt == nil {
		now := time.Now().UTC()
		s.RevokedAt = &now
	}
	return nil
}

func (r *memSessionRepo) RevokeAllByUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	for _, s := range r.sessions {
		if s.UserID == userID && s.RevokedAt == nil {
			t := now
			s.RevokedAt = &t
		}
	}
	return nil
}

type fakeSMS struct {
	mu      sync.Mutex
	lastOTP string
}

func (f *fakeSMS) SendOTP(_ context.Context, _, otp string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastOTP = otp
	return nil
}

func (f *fakeSMS) code() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastOTP
}

type fakeMail struct {
	mu       sync.Mutex
	lastBody string
}

func (f *fakeMail) Send(_ context.Context, _, _, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastBody = body
	return nil
}

type fakeImages struct{}

func (fakeImages) Upload(_ context.Context, key, _ string, _ []byte) (string, error) {
	return "https://cdn.example.com/" + key, nil
}

func (fakeImages) Delete(_ context.Context, _ string) error { return nil }

type fakeExtractor struct {
	descriptor face.Descriptor
	found      bool
}

func (f *fakeExtractor) Detect(_ context.Context, _ []byte) (face.Descriptor, bool, error) {
	return f.descriptor, f.found, nil
}

type fixture struct {
	e         *echo.Echo
	users     *memUserRepo
	sms       *fakeSMS
	mail      *fakeMail
	extractor *fakeExtractor
	tokens    *security.TokenProvider
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tokens, err := security.NewTestTokenProvider()
	require.NoError(t, err)

	users := newMemUserRepo()
	smsSender := &fakeSMS{}
	mailSender := &fakeMail{}
	extractor := &fakeExtractor{descriptor: face.Descriptor{0.1, 0.2, 0.3}, found: true}

	svc := service.NewAuthService(service.Deps{
		Users:      users,
		Challenges: newMemChallengeRepo(),
		Sessions:   newMemSessionRepo(),
		Hasher:     security.NewHasher(4),
		Tokens:     tokens,
		SMS:        smsSender,
		Mail:       mailSender,
		Images:     fakeImages{},
		Extractor:  extractor,

		ResetBaseURL: "https://motorello.com",
	})

	e := server.NewRouter(server.Deps{
		Auth:   authhandler.NewAuthHandler(svc),
		Users:  userhandler.NewUserHandler(users),
		Health: healthhandler.NewHealthHandler(nil),
		Tokens: tokens,
	})
	return &fixture{e: e, users: users, sms: smsSender, mail: mailSender, extractor: extractor, tokens: tokens}
}

func (f *fixture) do(method, path, bearer string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

func (f *fixture) register(t *testing.T, email, phone string) {
	t.Helper()
	rec := f.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":     email,
		"phone":     phone,
		"password":  "supersecret",
		"firstName": "Asha",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func (f *fixture) login(t *testing.T, email string) map[string]interface{} {
	t.Helper()
	rec := f.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"emailOrPhone": email,
		"password":     "supersecret",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode(t, rec)
}

func TestRegisterLoginRefreshLogout(t *testing.T) {
	f := newFixture(t)
	f.register(t, "asha@example.com", "")

	// Duplicate registration.
	rec := f.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":     "asha@example.com",
		"password":  "supersecret",
		"firstName": "Asha",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Wrong password.
	rec = f.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"emailOrPhone": "asha@example.com",
		"password":     "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	body := f.login(t, "asha@example.com")
	access, _ := body["accessToken"].(string)
	refresh, _ := body["refreshToken"].(string)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)

	// Refresh returns a new access token and no refresh token.
	rec = f.do(http.MethodPost, "/api/auth/refresh", "", map[string]string{"refreshToken": refresh})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	refreshed := decode(t, rec)
	assert.NotEmpty(t, refreshed["accessToken"])
	assert.NotContains(t, rec.Body.String(), "refreshToken")

	// Logout, then the refresh token is dead.
	rec = f.do(http.MethodPost, "/api/auth/logout", "", map[string]string{"refreshToken": refresh})
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(http.MethodPost, "/api/auth/refresh", "", map[string]string{"refreshToken": refresh})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Logout again is still OK.
	rec = f.do(http.MethodPost, "/api/auth/logout", "", map[string]string{"refreshToken": refresh})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProtectedRoutes_RequireBearer(t *testing.T) {
	f := newFixture(t)
	for _, path := range []string{
		"/api/auth/start-phone-verification",
		"/api/auth/enable-2fa",
		"/api/auth/enable-faceauth",
	} {
		rec := f.do(http.MethodPost, path, "", map[string]string{})
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
	rec := f.do(http.MethodGet, "/api/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPhoneVerification_OverHTTP(t *testing.T) {
	f := newFixture(t)
	f.register(t, "asha@example.com", "9876543210")
	access := f.login(t, "asha@example.com")["accessToken"].(string)

	rec := f.do(http.MethodPost, "/api/auth/start-phone-verification", access, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "sms", decode(t, rec)["channel"])

	rec = f.do(http.MethodPost, "/api/auth/verify-otp", access, map[string]string{"code": f.sms.code()})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(http.MethodGet, "/api/users/me", access, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["phoneVerified"])
}

func TestOTPLogin_EmailChannel(t *testing.T) {
	f := newFixture(t)
	f.register(t, "asha@example.com", "")

	rec := f.do(http.MethodPost, "/api/auth/start-otp-login", "", map[string]string{"emailOrPhone": "asha@example.com"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "email", decode(t, rec)["channel"])

	code := extractEmailCode(t, f.mail.lastBody)
	rec = f.do(http.MethodPost, "/api/auth/verify-otp-login", "", map[string]string{
		"emailOrPhone": "asha@example.com",
		"code":         code,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, decode(t, rec)["accessToken"])

	// Replaying the consumed code conflicts.
	rec = f.do(http.MethodPost, "/api/auth/verify-otp-login", "", map[string]string{
		"emailOrPhone": "asha@example.com",
		"code":         code,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestOTPLogin_UnknownIdentity(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodPost, "/api/auth/start-otp-login", "", map[string]string{"emailOrPhone": "ghost@example.com"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTwoFALogin_OverHTTP(t *testing.T) {
	f := newFixture(t)
	f.register(t, "asha@example.com", "")
	access := f.login(t, "asha@example.com")["accessToken"].(string)

	rec := f.do(http.MethodPost, "/api/auth/enable-2fa", access, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	secret := decode(t, rec)["secret"].(string)
	require.NotEmpty(t, secret)

	code, err := totp.Code(secret, time.Now())
	require.NoError(t, err)
	userID := f.userID(t, "asha@example.com")

	// Enrollment confirmation issues no tokens.
	rec = f.do(http.MethodPost, "/api/auth/verify-2fa", "", map[string]string{"userId": userID, "code": code})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "accessToken")

	// Password login now requires the second factor.
	rec = f.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"emailOrPhone": "asha@example.com",
		"password":     "supersecret",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, true, body["secondFactorRequired"])
	assert.Equal(t, "totp", body["method"])

	code, err = totp.Code(secret, time.Now())
	require.NoError(t, err)
	rec = f.do(http.MethodPost, "/api/auth/verify-2fa", "", map[string]string{"userId": userID, "code": code})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, decode(t, rec)["accessToken"])
}

func TestFaceAuth_OverHTTP(t *testing.T) {
	f := newFixture(t)
	f.register(t, "asha@example.com", "")
	access := f.login(t, "asha@example.com")["accessToken"].(string)
	image := base64.StdEncoding.EncodeToString([]byte("jpeg-bytes"))

	rec := f.do(http.MethodPost, "/api/auth/enable-faceauth", access, map[string]string{"image": image})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, decode(t, rec)["imageUrl"], "faceauth/")

	userID := f.userID(t, "asha@example.com")
	rec = f.do(http.MethodPost, "/api/auth/verify-faceauth", "", map[string]string{"userId": userID, "image": image})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, decode(t, rec)["accessToken"])

	// A distant descriptor fails closed.
	f.extractor.descriptor = face.Descriptor{9, 9, 9}
	rec = f.do(http.MethodPost, "/api/auth/verify-faceauth", "", map[string]string{"userId": userID, "image": image})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// No face in the probe image.
	f.extractor.found = false
	rec = f.do(http.MethodPost, "/api/auth/verify-faceauth", "", map[string]string{"userId": userID, "image": image})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestFaceAuth_RejectsBadBase64(t *testing.T) {
	f := newFixture(t)
	f.register(t, "asha@example.com", "")
	access := f.login(t, "asha@example.com")["accessToken"].(string)

	rec := f.do(http.MethodPost, "/api/auth/enable-faceauth", access, map[string]string{"image": "not base64!!"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateProfile_OverHTTP(t *testing.T) {
	f := newFixture(t)
	f.register(t, "asha@example.com", "")
	access := f.login(t, "asha@example.com")["accessToken"].(string)

	rec := f.do(http.MethodPatch, "/api/users/me", access, map[string]string{"lastName": "Rao"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "Rao", body["lastName"])
	assert.Equal(t, "Asha", body["firstName"])
}

func (f *fixture) userID(t *testing.T, email string) string {
	t.Helper()
	u, err := f.users.GetByEmail(context.Background(), email)
	require.NoError(t, err)
	require.NotNil(t, u)
	return u.ID
}

// extractEmailCode pulls the 6-digit code out of the OTP mail body.
func extractEmailCode(t *testing.T, body string) string {
	t.Helper()
	const marker = "<strong>"
	i := strings.Index(body, marker)
	require.GreaterOrEqual(t, i, 0, "otp mail body missing code marker")
	start := i + len(marker)
	return body[start : start+6]
}
