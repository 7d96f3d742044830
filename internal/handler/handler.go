// Package handler exposes the authentication engine over HTTP.
package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/chanwitp/identity-api/internal/token"
	"github.com/chanwitp/identity-api/internal/usecase"
)

// refreshTokenCookieName identifies the HTTP-only refresh token cookie.
const refreshTokenCookieName = "rt_cookie"

// AuthHTTPHandler serves the authentication endpoints. It validates payloads,
// delegates to the engine and maps failure kinds to statuses; no business
// logic lives here.
type AuthHTTPHandler struct {
	authUsecase          usecase.AuthUsecase
	accountUsecase       usecase.AccountUsecase
	passwordResetUsecase usecase.PasswordResetUsecase
	codec                *token.Codec
	validate             *validator.Validate
	refreshTokenTTL      time.Duration
	logger               *zerolog.Logger
}

// NewAuthHTTPHandler creates a new AuthHTTPHandler.
func NewAuthHTTPHandler(
	authUsecase usecase.AuthUsecase,
	accountUsecase usecase.AccountUsecase,
	passwordResetUsecase usecase.PasswordResetUsecase,
	codec *token.Codec,
	refreshTokenTTL time.Duration,
	logger *zerolog.Logger,
) *AuthHTTPHandler {
	return &AuthHTTPHandler{
		authUsecase:          authUsecase,
		accountUsecase:       accountUsecase,
		passwordResetUsecase: passwordResetUsecase,
		codec:                codec,
		validate:             validator.New(),
		refreshTokenTTL:      refreshTokenTTL,
		logger:               logger,
	}
}

// Routes returns the router for all authentication endpoints.
func (h *AuthHTTPHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", h.signUp)
		r.Post("/login", h.login)
		r.Post("/login/verify", h.verifyLogin)
		r.Post("/login/recovery-code", h.loginRecoveryCode)
		r.Post("/refresh-token", h.refreshToken)
		r.Post("/logout", h.logout)
		r.Post("/activate-account", h.activateAccount)
		r.Post("/confirm-email-change", h.confirmEmailChange)
		r.Post("/forgotten-password", h.forgottenPassword)
		r.Post("/password-reset", h.passwordReset)
	})

	r.Route("/user", func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Post("/change-password", h.changePassword)
		r.Post("/request-email-change", h.requestEmailChange)
		r.Post("/two-factor/enable", h.enableTwoFactor)
		r.Post("/two-factor/disable", h.disableTwoFactor)
	})

	return r
}

// decodeAndValidate reads the JSON body into v and runs payload validation.
// It writes the error response itself and reports whether to continue.
func (h *AuthHTTPHandler) decodeAndValidate(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "malformedBody"})
		return false
	}

	if err := h.validate.Struct(v); err != nil {
		h.respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalidPayload"})
		return false
	}

	return true
}

func (h *AuthHTTPHandler) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func (h *AuthHTTPHandler) respondError(w http.ResponseWriter, err error) {
	status, kind := statusForError(err)
	if status == http.StatusInternalServerError {
		h.logger.Error().Err(err).Msg("request failed")
	}

	h.respondJSON(w, status, ErrorResponse{Error: kind})
}

// setRefreshTokenCookie delivers the refresh token as an HTTP-only cookie.
// The access token is never set as a cookie.
func (h *AuthHTTPHandler) setRefreshTokenCookie(w http.ResponseWriter, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(h.refreshTokenTTL.Seconds()),
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHTTPHandler) clearRefreshTokenCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}
