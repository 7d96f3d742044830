// Package config loads the service configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
)

// minTokenSecretBytes is the smallest accepted signing secret (512 bits).
const minTokenSecretBytes = 64

// Config holds the auth service configuration.
type Config struct {
	HTTPAddr      string `env:"HTTP_ADDR"      envDefault:":8080"`
	MongoURI      string `env:"MONGO_URI"`
	MongoDatabase string `env:"MONGO_DATABASE" envDefault:"identity"`
	RedisAddr     string `env:"REDIS_ADDR"     envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	Token TokenConfig
	App   AppConfig
}

// TokenConfig holds the signing secret and token lifetimes. The secret is
// process-wide immutable configuration, loaded once at startup.
type TokenConfig struct {
	Secret                     string        `env:"TOKEN_SECRET"`
	AccessTokenExpiresIn       time.Duration `env:"ACCESS_TOKEN_EXPIRES_IN"       envDefault:"15m"`
	RefreshTokenExpiresIn      time.Duration `env:"REFRESH_TOKEN_EXPIRES_IN"      envDefault:"720h"`
	VerificationTokenExpiresIn time.Duration `env:"VERIFICATION_TOKEN_EXPIRES_IN" envDefault:"24h"`
	TwoFactorCodeExpiresIn     time.Duration `env:"TWO_FACTOR_CODE_EXPIRES_IN"    envDefault:"10m"`
}

// AppConfig holds the frontend URLs embedded into outbound emails.
type AppConfig struct {
	ActivationURL    string `env:"APP_ACTIVATION_URL"`
	PasswordResetURL string `env:"APP_PASSWORD_RESET_URL"`
	EmailChangeURL   string `env:"APP_EMAIL_CHANGE_URL"`
}

// New creates a Config instance from environment variables.
func New(logger *zerolog.Logger) *Config {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to parse environment variables")
	}

	if err := cfg.validate(); err != nil {
		logger.Fatal().Err(err).Msg("failed to validate configuration")
	}

	return &cfg
}

// validate checks if the configuration is valid.
func (c *Config) validate() error {
	if c.MongoURI == "" {
		return fmt.Errorf("missing MONGO_URI environment variable")
	}
	if len(c.Token.Secret) < minTokenSecretBytes {
		return fmt.Errorf("TOKEN_SECRET must be at least %d bytes", minTokenSecretBytes)
	}
	if c.Token.AccessTokenExpiresIn <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_EXPIRES_IN must be positive")
	}
	if c.Token.RefreshTokenExpiresIn <= 0 {
		return fmt.Errorf("REFRESH_TOKEN_EXPIRES_IN must be positive")
	}
	if c.Token.VerificationTokenExpiresIn <= 0 {
		return fmt.Errorf("VERIFICATION_TOKEN_EXPIRES_IN must be positive")
	}
	if c.Token.TwoFactorCodeExpiresIn <= 0 {
		return fmt.Errorf("TWO_FACTOR_CODE_EXPIRES_IN must be positive")
	}

	return nil
}
