package usecase

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/chanwitp/identity-api/internal/config"
	"github.com/chanwitp/identity-api/internal/model"
	"github.com/chanwitp/identity-api/internal/repository"
	"github.com/chanwitp/identity-api/internal/token"
)

const twoFactorCodeLength = 6

// AuthUsecase defines the login, two-factor and refresh operations of the
// authentication engine.
type AuthUsecase interface {
	// Login verifies credentials and either issues a token set or, when the
	// account has two-factor enabled, dispatches a one-time code and reports
	// TwoFactorRequired without issuing tokens.
	Login(ctx context.Context, params LoginParams) (*AuthResult, error)

	// VerifyTwoFactor completes a pending two-factor login. The design is
	// stateless across the two requests: credentials are re-verified here.
	VerifyTwoFactor(ctx context.Context, params TwoFactorParams) (*AuthResult, error)

	// LoginWithRecoveryCode completes a pending two-factor login by consuming
	// one of the account's single-use recovery codes.
	LoginWithRecoveryCode(ctx context.Context, params TwoFactorParams) (*AuthResult, error)

	// RefreshAccessToken exchanges a stored refresh token for a new access
	// token. The refresh token is not rotated.
	RefreshAccessToken(ctx context.Context, refreshTokenValue string) (string, error)

	// Logout deletes the presented refresh token record. Idempotent.
	Logout(ctx context.Context, refreshTokenValue string) error
}

// LoginParams defines the parameters for user login.
type LoginParams struct {
	Email    string
	Password string
}

// TwoFactorParams defines the parameters for the second step of a two-factor
// login, with either a one-time code or a recovery code.
type TwoFactorParams struct {
	Email    string
	Password string
	Code     string
}

// AuthResult is the outcome of a successful authentication step. When
// TwoFactorRequired is set and the tokens are empty, the client must follow up
// with VerifyTwoFactor or LoginWithRecoveryCode. The refresh token is meant to
// be delivered as an HTTP-only cookie by the transport layer; the access token
// goes in the response body.
type AuthResult struct {
	AccessToken       string
	RefreshToken      string
	TwoFactorRequired bool
}

type authUsecase struct {
	users    repository.UserRepository
	tokens   repository.TokenRepository
	codes    VerificationCodeStore
	verifier CredentialVerifier
	codec    *token.Codec
	mail     EmailDispatcher
	clock    Clock
	cfg      *config.TokenConfig
	logger   *zerolog.Logger
}

// NewAuthUsecase creates a new instance of AuthUsecase.
func NewAuthUsecase(
	users repository.UserRepository,
	tokens repository.TokenRepository,
	codes VerificationCodeStore,
	verifier CredentialVerifier,
	codec *token.Codec,
	mail EmailDispatcher,
	clock Clock,
	cfg *config.TokenConfig,
	logger *zerolog.Logger,
) AuthUsecase {
	return &authUsecase{
		users:    users,
		tokens:   tokens,
		codes:    codes,
		verifier: verifier,
		codec:    codec,
		mail:     mail,
		clock:    clock,
		cfg:      cfg,
		logger:   logger,
	}
}

func (u *authUsecase) Login(ctx context.Context, params LoginParams) (*AuthResult, error) {
	user, err := u.verifyCredentials(ctx, params.Email, params.Password)
	if err != nil {
		return nil, err
	}

	if !user.EmailVerified {
		return nil, ErrAccountNotActivated
	}

	if user.TwoFactorEnabled {
		code, err := generateNumericCode(twoFactorCodeLength)
		if err != nil {
			return nil, err
		}

		if err := u.codes.SaveCode(ctx, user.ID.Hex(), code, u.cfg.TwoFactorCodeExpiresIn); err != nil {
			return nil, err
		}

		if err := u.mail.SendTwoFactorCode(user.Email, code); err != nil {
			return nil, err
		}

		return &AuthResult{TwoFactorRequired: true}, nil
	}

	return u.issueTokenSet(ctx, user)
}

func (u *authUsecase) VerifyTwoFactor(ctx context.Context, params TwoFactorParams) (*AuthResult, error) {
	user, err := u.verifyCredentials(ctx, params.Email, params.Password)
	if err != nil {
		return nil, err
	}

	valid, err := u.codes.IsCodeValid(ctx, user.ID.Hex(), params.Code)
	if err != nil {
		return nil, err
	}
	if !valid {
		return nil, ErrInvalidVerificationCode
	}

	return u.issueTokenSet(ctx, user)
}

func (u *authUsecase) LoginWithRecoveryCode(ctx context.Context, params TwoFactorParams) (*AuthResult, error) {
	user, err := u.verifyCredentials(ctx, params.Email, params.Password)
	if err != nil {
		return nil, err
	}

	// The grant is gated on the atomic removal, so the same code cannot
	// complete two concurrent logins.
	consumed, err := u.codes.ConsumeRecoveryCode(ctx, user.ID.Hex(), params.Code)
	if err != nil {
		return nil, err
	}
	if !consumed {
		return nil, ErrInvalidRecoveryCode
	}

	return u.issueTokenSet(ctx, user)
}

func (u *authUsecase) RefreshAccessToken(ctx context.Context, refreshTokenValue string) (string, error) {
	stored, err := u.tokens.GetTokenByValueAndType(ctx, refreshTokenValue, model.TokenTypeRefresh)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrTokenExpired
		}
		return "", err
	}

	subject, err := u.codec.Validate(refreshTokenValue)
	if err != nil {
		return "", ErrTokenExpired
	}

	// The signed subject must match the stored record's owner. A valid
	// signature bound to a stale or reassigned record is rejected.
	if subject != stored.UserID.Hex() {
		return "", ErrTokenExpired
	}

	if _, err := u.users.GetUser(ctx, subject); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrTokenExpired
		}
		return "", err
	}

	return u.codec.Issue(subject, u.cfg.AccessTokenExpiresIn)
}

func (u *authUsecase) Logout(ctx context.Context, refreshTokenValue string) error {
	return u.tokens.DeleteToken(ctx, refreshTokenValue, model.TokenTypeRefresh)
}

// verifyCredentials runs the credential verifier and loads the account. A user
// missing after a successful credential check is an inconsistency, not a user
// input error.
func (u *authUsecase) verifyCredentials(ctx context.Context, email, password string) (*model.User, error) {
	userID, err := u.verifier.Verify(ctx, email, password)
	if err != nil {
		return nil, err
	}

	user, err := u.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			u.logger.Error().Str("user_id", userID).Msg("verified principal has no user record")
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return user, nil
}

func (u *authUsecase) issueTokenSet(ctx context.Context, user *model.User) (*AuthResult, error) {
	accessToken, err := u.codec.Issue(user.ID.Hex(), u.cfg.AccessTokenExpiresIn)
	if err != nil {
		return nil, err
	}

	refreshToken, err := u.codec.Issue(user.ID.Hex(), u.cfg.RefreshTokenExpiresIn)
	if err != nil {
		return nil, err
	}

	if _, err := u.tokens.CreateToken(ctx, &model.Token{
		UserID:    user.ID,
		Value:     refreshToken,
		Type:      model.TokenTypeRefresh,
		ExpiresAt: u.clock().Add(u.cfg.RefreshTokenExpiresIn),
	}); err != nil {
		return nil, err
	}

	return &AuthResult{
		AccessToken:       accessToken,
		RefreshToken:      refreshToken,
		TwoFactorRequired: user.TwoFactorEnabled,
	}, nil
}
