package handler

import (
	"net/http"

	"github.com/chanwitp/identity-api/internal/usecase"
)

func (h *AuthHTTPHandler) signUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	if _, err := h.accountUsecase.SignUp(r.Context(), usecase.SignUpParams{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	}); err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, APIResponse{Success: true})
}

func (h *AuthHTTPHandler) activateAccount(w http.ResponseWriter, r *http.Request) {
	var req TokenAccessRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.accountUsecase.ActivateAccount(r.Context(), req.Token); err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, APIResponse{Success: true})
}

func (h *AuthHTTPHandler) confirmEmailChange(w http.ResponseWriter, r *http.Request) {
	var req TokenAccessRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.accountUsecase.ConfirmEmailChange(r.Context(), req.Token); err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, APIResponse{Success: true})
}

func (h *AuthHTTPHandler) changePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		h.respondJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthenticated"})
		return
	}

	if err := h.accountUsecase.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, APIResponse{Success: true})
}

func (h *AuthHTTPHandler) requestEmailChange(w http.ResponseWriter, r *http.Request) {
	var req EmailChangeRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		h.respondJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthenticated"})
		return
	}

	if err := h.accountUsecase.RequestEmailChange(r.Context(), userID, req.NewEmail); err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, APIResponse{Success: true})
}

func (h *AuthHTTPHandler) enableTwoFactor(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		h.respondJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthenticated"})
		return
	}

	recoveryCodes, err := h.accountUsecase.EnableTwoFactor(r.Context(), userID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, RecoveryCodesResponse{RecoveryCodes: recoveryCodes})
}

func (h *AuthHTTPHandler) disableTwoFactor(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		h.respondJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthenticated"})
		return
	}

	if err := h.accountUsecase.DisableTwoFactor(r.Context(), userID); err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, APIResponse{Success: true})
}
