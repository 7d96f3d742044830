package usecase

import (
	"context"
	"crypto/subtle"
	"errors"

	"github.com/rs/zerolog"

	"github.com/chanwitp/identity-api/internal/config"
	"github.com/chanwitp/identity-api/internal/model"
	"github.com/chanwitp/identity-api/internal/repository"
	"github.com/chanwitp/identity-api/internal/security"
	"github.com/chanwitp/identity-api/internal/token"
)

// PasswordResetUsecase defines the forgotten-password flow.
type PasswordResetUsecase interface {
	// RequestPasswordReset issues a single-use reset token, superseding any
	// earlier one, and mails it. An unknown email is reported as success so
	// accounts cannot be enumerated.
	RequestPasswordReset(ctx context.Context, email string) error

	// ResetPassword consumes the reset token and re-hashes the password.
	// Exactly one of any number of concurrent attempts with the same token
	// succeeds.
	ResetPassword(ctx context.Context, params ResetPasswordParams) error
}

// ResetPasswordParams defines the parameters for completing a password reset.
type ResetPasswordParams struct {
	Email       string
	Token       string
	NewPassword string
}

type passwordResetUsecase struct {
	users  repository.UserRepository
	tokens repository.TokenRepository
	codec  *token.Codec
	mail   EmailDispatcher
	clock  Clock
	cfg    *config.TokenConfig
	logger *zerolog.Logger
}

// NewPasswordResetUsecase creates a new instance of PasswordResetUsecase.
func NewPasswordResetUsecase(
	users repository.UserRepository,
	tokens repository.TokenRepository,
	codec *token.Codec,
	mail EmailDispatcher,
	clock Clock,
	cfg *config.TokenConfig,
	logger *zerolog.Logger,
) PasswordResetUsecase {
	return &passwordResetUsecase{
		users:  users,
		tokens: tokens,
		codec:  codec,
		mail:   mail,
		clock:  clock,
		cfg:    cfg,
		logger: logger,
	}
}

func (u *passwordResetUsecase) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := u.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// To prevent email enumeration, do not reveal that the email does
			// not exist.
			u.logger.Debug().Msg("password reset requested for unknown email")
			return nil
		}
		return err
	}

	if !user.EmailVerified {
		return ErrAccountNotActivated
	}

	if err := u.tokens.DeleteUserTokens(ctx, user.ID, model.TokenTypeForgottenPassword); err != nil {
		return err
	}

	tokenValue, err := u.codec.Issue(user.ID.Hex(), u.cfg.VerificationTokenExpiresIn)
	if err != nil {
		return err
	}

	if _, err := u.tokens.CreateToken(ctx, &model.Token{
		UserID:    user.ID,
		Value:     tokenValue,
		Type:      model.TokenTypeForgottenPassword,
		ExpiresAt: u.clock().Add(u.cfg.VerificationTokenExpiresIn),
	}); err != nil {
		return err
	}

	return u.mail.SendPasswordReset(user.Email, tokenValue)
}

func (u *passwordResetUsecase) ResetPassword(ctx context.Context, params ResetPasswordParams) error {
	user, err := u.users.GetUserByEmail(ctx, params.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// The email is caller-supplied here, so an unknown one is an
			// invalid request, not an integrity fault.
			return ErrInvalidToken
		}
		return err
	}

	stored, err := u.tokens.GetTokenByUserAndType(ctx, user.ID, model.TokenTypeForgottenPassword)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidToken
		}
		return err
	}

	if subtle.ConstantTimeCompare([]byte(stored.Value), []byte(params.Token)) != 1 {
		return ErrInvalidToken
	}

	if _, err := u.codec.Validate(params.Token); err != nil {
		// The record stays in place; the client must request a fresh token.
		return ErrTokenExpired
	}

	// The atomic consume decides the winner under concurrent attempts, so the
	// password is updated at most once per token.
	if _, err := u.tokens.ConsumeToken(ctx, params.Token, model.TokenTypeForgottenPassword); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidToken
		}
		return err
	}

	passwordHash, err := security.HashPassword(params.NewPassword)
	if err != nil {
		return err
	}

	_, err = u.users.UpdateUser(ctx, user.ID.Hex(), repository.UpdateUserParams{
		PasswordHash: &passwordHash,
	})
	return err
}
