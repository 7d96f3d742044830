package handler

import (
	"errors"
	"net/http"

	"github.com/chanwitp/identity-api/internal/usecase"
)

// statusForError maps engine failure kinds to HTTP statuses and stable
// machine-readable error kinds. The engine stays transport-agnostic; this
// table is the only place the mapping lives.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, usecase.ErrAuthenticationFailed):
		return http.StatusUnauthorized, "authenticationFailed"
	case errors.Is(err, usecase.ErrAccountNotActivated):
		return http.StatusUnauthorized, "accountNotActivated"
	case errors.Is(err, usecase.ErrTokenExpired):
		return http.StatusUnauthorized, "tokenExpired"
	case errors.Is(err, usecase.ErrInvalidVerificationCode):
		return http.StatusBadRequest, "invalidVerificationCode"
	case errors.Is(err, usecase.ErrInvalidRecoveryCode):
		return http.StatusBadRequest, "invalidRecoveryCode"
	case errors.Is(err, usecase.ErrInvalidToken):
		return http.StatusBadRequest, "invalidToken"
	case errors.Is(err, usecase.ErrEmailInUse):
		return http.StatusConflict, "emailInUse"
	case errors.Is(err, usecase.ErrUsernameInUse):
		return http.StatusConflict, "usernameInUse"
	default:
		// ErrUserNotFound lands here on purpose: it is an integrity fault,
		// not a user input error.
		return http.StatusInternalServerError, "internalError"
	}
}
