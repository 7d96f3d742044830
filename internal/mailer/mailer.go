// Package mailer sends the transactional emails of the authentication flows.
package mailer

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"

	"github.com/chanwitp/identity-api/internal/config"
)

// Mailer represents an email sender for authentication messages.
type Mailer struct {
	config *mailerConfig
	app    config.AppConfig
	dialer *gomail.Dialer
}

// NewMailer creates a new Mailer instance. SMTP settings come from the
// environment; app holds the frontend URLs embedded into the messages.
func NewMailer(logger *zerolog.Logger, app config.AppConfig) *Mailer {
	cfg := newMailerConfig(logger)

	if err := cfg.validate(); err != nil {
		logger.Fatal().Err(err).Msg("failed to validate Mailer configuration")
	}

	dialer := gomail.NewDialer(
		cfg.Host,
		cfg.Port,
		cfg.Username,
		cfg.Password,
	)

	return &Mailer{
		config: cfg,
		app:    app,
		dialer: dialer,
	}
}

// SendAccountActivation mails the account activation link.
func (m *Mailer) SendAccountActivation(to, tokenValue string) error {
	link := fmt.Sprintf("%s?token=%s", m.app.ActivationURL, tokenValue)
	htmlBody := fmt.Sprintf(`
		<p>Hi,</p>
		<p>Thanks for signing up. Please confirm your email address by clicking the link below:</p>

		<p><a href="%s">%s</a></p>

		<p>If you did not create an account, you can safely ignore this email.</p>
	`, link, link)

	return m.sendHTML([]string{to}, "Activate your account", htmlBody)
}

// SendPasswordReset mails the password reset link.
func (m *Mailer) SendPasswordReset(to, tokenValue string) error {
	link := fmt.Sprintf("%s?token=%s", m.app.PasswordResetURL, tokenValue)
	htmlBody := fmt.Sprintf(`
		<p>Hi,</p>
		<p>We received a request to reset the password for your account.</p>
		<p>If you made this request, please click the link below to create a new password:</p>

		<p><a href="%s">%s</a></p>

		<p>If you did not request a password reset, you can safely ignore this email.</p>
	`, link, link)

	return m.sendHTML([]string{to}, "Password Reset Request", htmlBody)
}

// SendEmailChangeConfirmation mails the confirmation link to the requested new
// address, referencing the current one for context.
func (m *Mailer) SendEmailChangeConfirmation(to, currentEmail, tokenValue string) error {
	link := fmt.Sprintf("%s?token=%s", m.app.EmailChangeURL, tokenValue)
	htmlBody := fmt.Sprintf(`
		<p>Hi,</p>
		<p>A request was made to change the email address of the account currently registered to %s.</p>
		<p>To confirm this address as the new one, please click the link below:</p>

		<p><a href="%s">%s</a></p>

		<p>If you did not request this change, you can safely ignore this email.</p>
	`, currentEmail, link, link)

	return m.sendHTML([]string{to}, "Confirm your new email address", htmlBody)
}

// SendTwoFactorCode mails a one-time login code.
func (m *Mailer) SendTwoFactorCode(to, code string) error {
	htmlBody := fmt.Sprintf(`
		<p>Hi,</p>
		<p>Your one-time login code is:</p>

		<p><strong>%s</strong></p>

		<p>If you did not try to sign in, please change your password.</p>
	`, code)

	return m.sendHTML([]string{to}, "Your login code", htmlBody)
}

func (m *Mailer) sendHTML(to []string, subject, htmlBody string) error {
	if len(to) == 0 {
		return fmt.Errorf("no recipients specified")
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.config.From)
	msg.SetHeader("To", to...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	return m.dialer.DialAndSend(msg)
}

// mailerConfig holds SMTP configuration for sending emails.
type mailerConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM"`
}

// newMailerConfig creates a mailerConfig instance from environment variables.
func newMailerConfig(logger *zerolog.Logger) *mailerConfig {
	cfg, err := env.ParseAs[mailerConfig]()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to parse environment variables")
	}

	return &cfg
}

// validate checks if the Mailer configuration is valid.
func (c *mailerConfig) validate() error {
	if c.Host == "" {
		return fmt.Errorf("missing SMTP_HOST environment variable")
	}
	if c.Port == 0 {
		return fmt.Errorf("missing SMTP_PORT environment variable")
	}
	if c.From == "" {
		return fmt.Errorf("missing SMTP_FROM environment variable")
	}

	return nil
}
