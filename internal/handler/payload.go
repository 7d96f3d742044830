package handler

// Request and response payloads for the authentication endpoints.

type SignUpRequest struct {
	Name     string `json:"name"     validate:"required"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginVerificationRequest carries the second step of a two-factor login.
// Credentials are re-submitted because no pending-login state is kept
// server-side between the two calls.
type LoginVerificationRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Code     string `json:"code"     validate:"required"`
}

type TokenAccessRequest struct {
	Token string `json:"token" validate:"required"`
}

type ForgottenPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type PasswordResetRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Token    string `json:"token"    validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password"     validate:"required,min=8"`
}

type EmailChangeRequest struct {
	NewEmail string `json:"new_email" validate:"required,email"`
}

// AuthResponse is returned by the login endpoints. The access token travels in
// the body only; the refresh token is delivered as an HTTP-only cookie.
type AuthResponse struct {
	AccessToken       string `json:"access_token,omitempty"`
	TwoFactorRequired bool   `json:"two_factor_required"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
}

type RecoveryCodesResponse struct {
	RecoveryCodes []string `json:"recovery_codes"`
}

type APIResponse struct {
	Success bool `json:"success"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
