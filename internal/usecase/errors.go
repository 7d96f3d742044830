package usecase

import "errors"

// Failure kinds returned by the authentication engine. Everything here is a
// recoverable caller error except ErrUserNotFound, which signals a
// data-integrity fault and is logged at error level where it surfaces.
var (
	// ErrAuthenticationFailed covers both unknown email and wrong password so
	// callers cannot enumerate accounts.
	ErrAuthenticationFailed = errors.New("authentication failed")

	ErrAccountNotActivated     = errors.New("account not activated")
	ErrInvalidVerificationCode = errors.New("invalid verification code")
	ErrInvalidRecoveryCode     = errors.New("invalid recovery code")

	// ErrInvalidToken means the token record is absent or unknown.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired means the record is present but the signature is expired
	// or does not match its owner.
	ErrTokenExpired = errors.New("token expired")

	ErrEmailInUse    = errors.New("email already in use")
	ErrUsernameInUse = errors.New("username already in use")
	ErrUserNotFound  = errors.New("user not found")
)
