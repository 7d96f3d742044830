package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/chanwitp/identity-api/internal/repository"
	"github.com/chanwitp/identity-api/internal/security"
)

// Clock supplies the current time. Injected so token expiry is testable
// without coupling to the wall clock.
type Clock func() time.Time

// CredentialVerifier checks an email and password pair against stored
// credentials and returns the authenticated user's id.
type CredentialVerifier interface {
	// Verify returns ErrAuthenticationFailed for unknown email and wrong
	// password alike.
	Verify(ctx context.Context, email, password string) (string, error)
}

// VerificationCodeStore holds one-time two-factor login codes and consumes
// recovery codes.
type VerificationCodeStore interface {
	SaveCode(ctx context.Context, userID, code string, ttl time.Duration) error
	IsCodeValid(ctx context.Context, userID, code string) (bool, error)

	// ConsumeRecoveryCode atomically removes the code from the user's set and
	// reports whether it was present; at most one concurrent caller succeeds.
	ConsumeRecoveryCode(ctx context.Context, userID, code string) (bool, error)
}

// EmailDispatcher delivers the transactional emails of the authentication
// flows. Message rendering and addressing are its concern; the engine only
// supplies token values and codes.
type EmailDispatcher interface {
	SendAccountActivation(to, tokenValue string) error
	SendPasswordReset(to, tokenValue string) error
	SendEmailChangeConfirmation(to, currentEmail, tokenValue string) error
	SendTwoFactorCode(to, code string) error
}

type localCredentialVerifier struct {
	users repository.UserRepository
}

// NewCredentialVerifier creates a CredentialVerifier backed by the user
// repository and the argon2 password hash.
func NewCredentialVerifier(users repository.UserRepository) CredentialVerifier {
	return &localCredentialVerifier{users: users}
}

func (v *localCredentialVerifier) Verify(ctx context.Context, email, password string) (string, error) {
	user, err := v.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrAuthenticationFailed
		}
		return "", err
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrAuthenticationFailed
	}

	return user.ID.Hex(), nil
}

// generateNumericCode produces a random numeric code of the given length.
func generateNumericCode(length int) (string, error) {
	var sb strings.Builder
	for i := 0; i < length; i++ {
		digit, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		sb.WriteByte(byte('0' + digit.Int64()))
	}

	return sb.String(), nil
}
