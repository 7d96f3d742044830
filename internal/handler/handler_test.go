package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chanwitp/identity-api/internal/config"
	"github.com/chanwitp/identity-api/internal/repository"
	"github.com/chanwitp/identity-api/internal/store"
	"github.com/chanwitp/identity-api/internal/token"
	"github.com/chanwitp/identity-api/internal/usecase"
)

const testSecret = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

// recordingMailer captures outgoing token values instead of sending mail.
type recordingMailer struct {
	mu         sync.Mutex
	activation string
	reset      string
	code       string
}

func (m *recordingMailer) SendAccountActivation(_, tokenValue string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activation = tokenValue
	return nil
}

func (m *recordingMailer) SendPasswordReset(_, tokenValue string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset = tokenValue
	return nil
}

func (m *recordingMailer) SendEmailChangeConfirmation(_, _, _ string) error { return nil }

func (m *recordingMailer) SendTwoFactorCode(_, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.code = code
	return nil
}

func newTestServer(t *testing.T) (*httptest.Server, *recordingMailer) {
	t.Helper()

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	users := repository.NewMemoryUserRepository()
	tokens := repository.NewMemoryTokenRepository()
	codec := token.NewCodec([]byte(testSecret), nil)
	mail := &recordingMailer{}
	codes := store.NewVerificationStore(redisClient, users)
	verifier := usecase.NewCredentialVerifier(users)
	logger := zerolog.Nop()

	cfg := &config.TokenConfig{
		Secret:                     testSecret,
		AccessTokenExpiresIn:       15 * time.Minute,
		RefreshTokenExpiresIn:      720 * time.Hour,
		VerificationTokenExpiresIn: 24 * time.Hour,
		TwoFactorCodeExpiresIn:     10 * time.Minute,
	}

	auth := usecase.NewAuthUsecase(users, tokens, codes, verifier, codec, mail, time.Now, cfg, &logger)
	account := usecase.NewAccountUsecase(users, tokens, codec, mail, time.Now, cfg, &logger)
	reset := usecase.NewPasswordResetUsecase(users, tokens, codec, mail, time.Now, cfg, &logger)

	h := NewAuthHTTPHandler(auth, account, reset, codec, cfg.RefreshTokenExpiresIn, &logger)
	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)

	return srv, mail
}

func postJSON(t *testing.T, url string, body any, cookies ...*http.Cookie) *http.Response {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func refreshCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == refreshTokenCookieName {
			return c
		}
	}
	return nil
}

func TestSignUpActivateLoginRefreshLogout(t *testing.T) {
	srv, mail := newTestServer(t)

	resp := postJSON(t, srv.URL+"/auth/signup", SignUpRequest{
		Name:     "alice",
		Email:    "alice@example.com",
		Password: "pw-alice-123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NotEmpty(t, mail.activation)

	// Login before activation is refused.
	resp = postJSON(t, srv.URL+"/auth/login", LoginRequest{Email: "alice@example.com", Password: "pw-alice-123"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "accountNotActivated", decodeBody[ErrorResponse](t, resp).Error)

	resp = postJSON(t, srv.URL+"/auth/activate-account", TokenAccessRequest{Token: mail.activation})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// A consumed activation token is rejected.
	resp = postJSON(t, srv.URL+"/auth/activate-account", TokenAccessRequest{Token: mail.activation})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalidToken", decodeBody[ErrorResponse](t, resp).Error)

	resp = postJSON(t, srv.URL+"/auth/login", LoginRequest{Email: "alice@example.com", Password: "pw-alice-123"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	login := decodeBody[AuthResponse](t, resp)
	assert.NotEmpty(t, login.AccessToken)
	assert.False(t, login.TwoFactorRequired)

	cookie := refreshCookie(resp)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.NotEqual(t, login.AccessToken, cookie.Value)

	resp = postJSON(t, srv.URL+"/auth/refresh-token", struct{}{}, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, decodeBody[TokenResponse](t, resp).AccessToken)

	resp = postJSON(t, srv.URL+"/auth/logout", struct{}{}, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cleared := refreshCookie(resp)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)

	// The refresh record is gone.
	resp = postJSON(t, srv.URL+"/auth/refresh-token", struct{}{}, cookie)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "tokenExpired", decodeBody[ErrorResponse](t, resp).Error)
}

func TestRefreshToken_WithoutCookie(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/auth/refresh-token", struct{}{})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "tokenExpired", decodeBody[ErrorResponse](t, resp).Error)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/auth/login", LoginRequest{Email: "nobody@example.com", Password: "whatever"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "authenticationFailed", decodeBody[ErrorResponse](t, resp).Error)
}

func TestLogin_MalformedPayload(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/auth/login", LoginRequest{Email: "not-an-email", Password: "pw"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalidPayload", decodeBody[ErrorResponse](t, resp).Error)
}

func TestTwoFactorLoginOverHTTP(t *testing.T) {
	srv, mail := newTestServer(t)

	resp := postJSON(t, srv.URL+"/auth/signup", SignUpRequest{
		Name:     "alice",
		Email:    "alice@example.com",
		Password: "pw-alice-123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/auth/activate-account", TokenAccessRequest{Token: mail.activation})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/auth/login", LoginRequest{Email: "alice@example.com", Password: "pw-alice-123"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	login := decodeBody[AuthResponse](t, resp)

	// Enable two-factor through the protected surface.
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/user/two-factor/enable", bytes.NewReader([]byte("{}")))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+login.AccessToken)
	enableResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer enableResp.Body.Close()
	require.Equal(t, http.StatusOK, enableResp.StatusCode)

	codes := decodeBody[RecoveryCodesResponse](t, enableResp)
	require.Len(t, codes.RecoveryCodes, 10)

	// The next login now requires the mailed code and issues no tokens yet.
	resp = postJSON(t, srv.URL+"/auth/login", LoginRequest{Email: "alice@example.com", Password: "pw-alice-123"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	pending := decodeBody[AuthResponse](t, resp)
	assert.True(t, pending.TwoFactorRequired)
	assert.Empty(t, pending.AccessToken)
	assert.Nil(t, refreshCookie(resp))
	require.NotEmpty(t, mail.code)

	resp = postJSON(t, srv.URL+"/auth/login/verify", LoginVerificationRequest{
		Email:    "alice@example.com",
		Password: "pw-alice-123",
		Code:     mail.code,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	verified := decodeBody[AuthResponse](t, resp)
	assert.NotEmpty(t, verified.AccessToken)
	assert.NotNil(t, refreshCookie(resp))

	// A recovery code also completes the login.
	resp = postJSON(t, srv.URL+"/auth/login", LoginRequest{Email: "alice@example.com", Password: "pw-alice-123"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/auth/login/recovery-code", LoginVerificationRequest{
		Email:    "alice@example.com",
		Password: "pw-alice-123",
		Code:     codes.RecoveryCodes[0],
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, decodeBody[AuthResponse](t, resp).AccessToken)
}

func TestPasswordResetOverHTTP(t *testing.T) {
	srv, mail := newTestServer(t)

	resp := postJSON(t, srv.URL+"/auth/signup", SignUpRequest{
		Name:     "alice",
		Email:    "alice@example.com",
		Password: "old-password",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/auth/activate-account", TokenAccessRequest{Token: mail.activation})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/auth/forgotten-password", ForgottenPasswordRequest{Email: "alice@example.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, mail.reset)

	// Unknown emails get the same success response.
	resp = postJSON(t, srv.URL+"/auth/forgotten-password", ForgottenPasswordRequest{Email: "nobody@example.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/auth/password-reset", PasswordResetRequest{
		Email:    "alice@example.com",
		Token:    mail.reset,
		Password: "new-password",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/auth/login", LoginRequest{Email: "alice@example.com", Password: "old-password"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/auth/login", LoginRequest{Email: "alice@example.com", Password: "new-password"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestProtectedEndpointsRequireBearerToken(t *testing.T) {
	srv, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/user/change-password", bytes.NewReader([]byte("{}")))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err = http.NewRequest(http.MethodPost, srv.URL+"/user/change-password", bytes.NewReader([]byte("{}")))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		kind   string
	}{
		{usecase.ErrAuthenticationFailed, http.StatusUnauthorized, "authenticationFailed"},
		{usecase.ErrAccountNotActivated, http.StatusUnauthorized, "accountNotActivated"},
		{usecase.ErrTokenExpired, http.StatusUnauthorized, "tokenExpired"},
		{usecase.ErrInvalidVerificationCode, http.StatusBadRequest, "invalidVerificationCode"},
		{usecase.ErrInvalidRecoveryCode, http.StatusBadRequest, "invalidRecoveryCode"},
		{usecase.ErrInvalidToken, http.StatusBadRequest, "invalidToken"},
		{usecase.ErrEmailInUse, http.StatusConflict, "emailInUse"},
		{usecase.ErrUsernameInUse, http.StatusConflict, "usernameInUse"},
		{usecase.ErrUserNotFound, http.StatusInternalServerError, "internalError"},
		{errors.New("boom"), http.StatusInternalServerError, "internalError"},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			status, kind := statusForError(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.kind, kind)
		})
	}
}
