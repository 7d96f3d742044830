package usecase

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/chanwitp/identity-api/internal/config"
	"github.com/chanwitp/identity-api/internal/model"
	"github.com/chanwitp/identity-api/internal/repository"
	"github.com/chanwitp/identity-api/internal/security"
	"github.com/chanwitp/identity-api/internal/token"
)

const recoveryCodeCount = 10

// AccountUsecase defines the account lifecycle operations: signup, activation,
// email change, password change and two-factor management.
type AccountUsecase interface {
	// SignUp creates an unverified account and dispatches the activation email.
	SignUp(ctx context.Context, params SignUpParams) (*model.User, error)

	// RequestAccountActivation issues a fresh activation token, superseding
	// any previously issued one, and dispatches it by email.
	RequestAccountActivation(ctx context.Context, userID string) error

	// ActivateAccount consumes an activation token and marks the account's
	// email verified. A token can be consumed exactly once.
	ActivateAccount(ctx context.Context, tokenValue string) error

	// RequestEmailChange records the requested address and mails a
	// confirmation token to it, referencing the current address.
	RequestEmailChange(ctx context.Context, userID, newEmail string) error

	// ConfirmEmailChange consumes an email-update token and promotes the
	// requested address to the account's email.
	ConfirmEmailChange(ctx context.Context, tokenValue string) error

	// ChangePassword re-verifies the current password before re-hashing.
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error

	// EnableTwoFactor turns on two-factor login and returns a fresh set of
	// single-use recovery codes. The codes are only ever returned here.
	EnableTwoFactor(ctx context.Context, userID string) ([]string, error)

	// DisableTwoFactor turns off two-factor login and discards the account's
	// recovery codes.
	DisableTwoFactor(ctx context.Context, userID string) error
}

// SignUpParams defines the parameters for user registration.
type SignUpParams struct {
	Name     string
	Email    string
	Password string
}

type accountUsecase struct {
	users  repository.UserRepository
	tokens repository.TokenRepository
	codec  *token.Codec
	mail   EmailDispatcher
	clock  Clock
	cfg    *config.TokenConfig
	logger *zerolog.Logger
}

// NewAccountUsecase creates a new instance of AccountUsecase.
func NewAccountUsecase(
	users repository.UserRepository,
	tokens repository.TokenRepository,
	codec *token.Codec,
	mail EmailDispatcher,
	clock Clock,
	cfg *config.TokenConfig,
	logger *zerolog.Logger,
) AccountUsecase {
	return &accountUsecase{
		users:  users,
		tokens: tokens,
		codec:  codec,
		mail:   mail,
		clock:  clock,
		cfg:    cfg,
		logger: logger,
	}
}

func (u *accountUsecase) SignUp(ctx context.Context, params SignUpParams) (*model.User, error) {
	emailUsed, err := u.users.ExistsByEmail(ctx, params.Email)
	if err != nil {
		return nil, err
	}
	if emailUsed {
		return nil, ErrEmailInUse
	}

	nameUsed, err := u.users.ExistsByName(ctx, params.Name)
	if err != nil {
		return nil, err
	}
	if nameUsed {
		return nil, ErrUsernameInUse
	}

	passwordHash, err := security.HashPassword(params.Password)
	if err != nil {
		return nil, err
	}

	user, err := u.users.CreateUser(ctx, &model.User{
		Name:          params.Name,
		Email:         params.Email,
		PasswordHash:  passwordHash,
		EmailVerified: false,
	})
	if err != nil {
		return nil, err
	}

	if err := u.issueActivationToken(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

func (u *accountUsecase) RequestAccountActivation(ctx context.Context, userID string) error {
	user, err := u.getUser(ctx, userID)
	if err != nil {
		return err
	}

	return u.issueActivationToken(ctx, user)
}

func (u *accountUsecase) ActivateAccount(ctx context.Context, tokenValue string) error {
	consumed, err := u.consumeVerificationToken(ctx, tokenValue, model.TokenTypeAccountActivation)
	if err != nil {
		return err
	}

	verified := true
	if _, err := u.users.UpdateUser(ctx, consumed.UserID.Hex(), repository.UpdateUserParams{
		EmailVerified: &verified,
	}); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			u.logger.Error().Str("user_id", consumed.UserID.Hex()).Msg("activation token for missing user")
			return ErrUserNotFound
		}
		return err
	}

	return nil
}

func (u *accountUsecase) RequestEmailChange(ctx context.Context, userID, newEmail string) error {
	user, err := u.getUser(ctx, userID)
	if err != nil {
		return err
	}

	if newEmail == user.Email {
		return nil
	}

	emailUsed, err := u.users.ExistsByEmail(ctx, newEmail)
	if err != nil {
		return err
	}
	if emailUsed {
		return ErrEmailInUse
	}

	if _, err := u.users.UpdateUser(ctx, userID, repository.UpdateUserParams{
		RequestedNewEmail: &newEmail,
	}); err != nil {
		return err
	}

	tokenValue, err := u.issueVerificationToken(ctx, user, model.TokenTypeEmailUpdate)
	if err != nil {
		return err
	}

	// The confirmation goes to the new address; the current one is referenced
	// for context only.
	return u.mail.SendEmailChangeConfirmation(newEmail, user.Email, tokenValue)
}

func (u *accountUsecase) ConfirmEmailChange(ctx context.Context, tokenValue string) error {
	consumed, err := u.consumeVerificationToken(ctx, tokenValue, model.TokenTypeEmailUpdate)
	if err != nil {
		return err
	}

	user, err := u.getUser(ctx, consumed.UserID.Hex())
	if err != nil {
		return err
	}

	if user.RequestedNewEmail == nil {
		return ErrInvalidToken
	}

	// Another account may have claimed the address between request and
	// confirm; re-check before promoting it.
	emailUsed, err := u.users.ExistsByEmail(ctx, *user.RequestedNewEmail)
	if err != nil {
		return err
	}
	if emailUsed {
		return ErrEmailInUse
	}

	_, err = u.users.UpdateUser(ctx, user.ID.Hex(), repository.UpdateUserParams{
		Email:                  user.RequestedNewEmail,
		ClearRequestedNewEmail: true,
	})
	return err
}

func (u *accountUsecase) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := u.getUser(ctx, userID)
	if err != nil {
		return err
	}

	ok, err := security.VerifyPassword(currentPassword, user.PasswordHash)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAuthenticationFailed
	}

	passwordHash, err := security.HashPassword(newPassword)
	if err != nil {
		return err
	}

	_, err = u.users.UpdateUser(ctx, userID, repository.UpdateUserParams{
		PasswordHash: &passwordHash,
	})
	return err
}

func (u *accountUsecase) EnableTwoFactor(ctx context.Context, userID string) ([]string, error) {
	if _, err := u.getUser(ctx, userID); err != nil {
		return nil, err
	}

	recoveryCodes := make([]string, recoveryCodeCount)
	for i := range recoveryCodes {
		recoveryCodes[i] = uuid.NewString()
	}

	enabled := true
	if _, err := u.users.UpdateUser(ctx, userID, repository.UpdateUserParams{
		TwoFactorEnabled: &enabled,
		RecoveryCodes:    &recoveryCodes,
	}); err != nil {
		return nil, err
	}

	return recoveryCodes, nil
}

func (u *accountUsecase) DisableTwoFactor(ctx context.Context, userID string) error {
	enabled := false
	recoveryCodes := []string{}

	_, err := u.users.UpdateUser(ctx, userID, repository.UpdateUserParams{
		TwoFactorEnabled: &enabled,
		RecoveryCodes:    &recoveryCodes,
	})
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}

func (u *accountUsecase) getUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := u.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return user, nil
}

func (u *accountUsecase) issueActivationToken(ctx context.Context, user *model.User) error {
	tokenValue, err := u.issueVerificationToken(ctx, user, model.TokenTypeAccountActivation)
	if err != nil {
		return err
	}

	return u.mail.SendAccountActivation(user.Email, tokenValue)
}

// issueVerificationToken issues and persists a single-use verification token,
// superseding any earlier token of the same type for the user.
func (u *accountUsecase) issueVerificationToken(
	ctx context.Context,
	user *model.User,
	tokenType model.TokenType,
) (string, error) {
	if err := u.tokens.DeleteUserTokens(ctx, user.ID, tokenType); err != nil {
		return "", err
	}

	tokenValue, err := u.codec.Issue(user.ID.Hex(), u.cfg.VerificationTokenExpiresIn)
	if err != nil {
		return "", err
	}

	if _, err := u.tokens.CreateToken(ctx, &model.Token{
		UserID:    user.ID,
		Value:     tokenValue,
		Type:      tokenType,
		ExpiresAt: u.clock().Add(u.cfg.VerificationTokenExpiresIn),
	}); err != nil {
		return "", err
	}

	return tokenValue, nil
}

// consumeVerificationToken applies the single-use token protocol: the record
// must exist, the signature must still be valid, and the atomic consume
// decides the winner under concurrent attempts. An expired signature leaves
// the record in place; the caller must request a fresh token.
func (u *accountUsecase) consumeVerificationToken(
	ctx context.Context,
	tokenValue string,
	tokenType model.TokenType,
) (*model.Token, error) {
	if _, err := u.tokens.GetTokenByValueAndType(ctx, tokenValue, tokenType); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	if _, err := u.codec.Validate(tokenValue); err != nil {
		return nil, ErrTokenExpired
	}

	consumed, err := u.tokens.ConsumeToken(ctx, tokenValue, tokenType)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	return consumed, nil
}
