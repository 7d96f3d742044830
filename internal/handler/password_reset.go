package handler

import (
	"net/http"

	"github.com/chanwitp/identity-api/internal/usecase"
)

func (h *AuthHTTPHandler) forgottenPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgottenPasswordRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.passwordResetUsecase.RequestPasswordReset(r.Context(), req.Email); err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, APIResponse{Success: true})
}

func (h *AuthHTTPHandler) passwordReset(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.passwordResetUsecase.ResetPassword(r.Context(), usecase.ResetPasswordParams{
		Email:       req.Email,
		Token:       req.Token,
		NewPassword: req.Password,
	}); err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, APIResponse{Success: true})
}
