package handler

import (
	"net/http"

	"github.com/chanwitp/identity-api/internal/usecase"
)

func (h *AuthHTTPHandler) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.authUsecase.Login(r.Context(), usecase.LoginParams{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondAuthResult(w, result)
}

func (h *AuthHTTPHandler) verifyLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginVerificationRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.authUsecase.VerifyTwoFactor(r.Context(), usecase.TwoFactorParams{
		Email:    req.Email,
		Password: req.Password,
		Code:     req.Code,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondAuthResult(w, result)
}

func (h *AuthHTTPHandler) loginRecoveryCode(w http.ResponseWriter, r *http.Request) {
	var req LoginVerificationRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.authUsecase.LoginWithRecoveryCode(r.Context(), usecase.TwoFactorParams{
		Email:    req.Email,
		Password: req.Password,
		Code:     req.Code,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondAuthResult(w, result)
}

func (h *AuthHTTPHandler) refreshToken(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshTokenCookieName)
	if err != nil {
		h.respondError(w, usecase.ErrTokenExpired)
		return
	}

	accessToken, err := h.authUsecase.RefreshAccessToken(r.Context(), cookie.Value)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, TokenResponse{AccessToken: accessToken})
}

func (h *AuthHTTPHandler) logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(refreshTokenCookieName); err == nil {
		if err := h.authUsecase.Logout(r.Context(), cookie.Value); err != nil {
			h.respondError(w, err)
			return
		}
	}

	h.clearRefreshTokenCookie(w)
	h.respondJSON(w, http.StatusOK, APIResponse{Success: true})
}

func (h *AuthHTTPHandler) respondAuthResult(w http.ResponseWriter, result *usecase.AuthResult) {
	if result.RefreshToken != "" {
		h.setRefreshTokenCookie(w, result.RefreshToken)
	}

	h.respondJSON(w, http.StatusOK, AuthResponse{
		AccessToken:       result.AccessToken,
		TwoFactorRequired: result.TwoFactorRequired,
	})
}
