package usecase_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/chanwitp/identity-api/internal/config"
	"github.com/chanwitp/identity-api/internal/model"
	"github.com/chanwitp/identity-api/internal/repository"
	"github.com/chanwitp/identity-api/internal/security"
	"github.com/chanwitp/identity-api/internal/store"
	"github.com/chanwitp/identity-api/internal/token"
	"github.com/chanwitp/identity-api/internal/usecase"
)

const testSecret = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

// testClock is an adjustable clock shared by the codec and the engine.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// sentMessage records one dispatched email.
type sentMessage struct {
	kind  string
	to    string
	value string
}

type fakeMailer struct {
	mu       sync.Mutex
	messages []sentMessage
}

func (m *fakeMailer) record(kind, to, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, sentMessage{kind: kind, to: to, value: value})
}

func (m *fakeMailer) SendAccountActivation(to, tokenValue string) error {
	m.record("activation", to, tokenValue)
	return nil
}

func (m *fakeMailer) SendPasswordReset(to, tokenValue string) error {
	m.record("passwordReset", to, tokenValue)
	return nil
}

func (m *fakeMailer) SendEmailChangeConfirmation(to, _, tokenValue string) error {
	m.record("emailChange", to, tokenValue)
	return nil
}

func (m *fakeMailer) SendTwoFactorCode(to, code string) error {
	m.record("twoFactorCode", to, code)
	return nil
}

// last returns the most recent message of the given kind.
func (m *fakeMailer) last(kind string) (sentMessage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.messages) - 1; i >= 0; i-- {
		if m.messages[i].kind == kind {
			return m.messages[i], true
		}
	}
	return sentMessage{}, false
}

func (m *fakeMailer) count(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, msg := range m.messages {
		if msg.kind == kind {
			n++
		}
	}
	return n
}

// testEnv wires the engine against in-memory repositories and miniredis.
type testEnv struct {
	users  repository.UserRepository
	tokens repository.TokenRepository
	codes  *store.VerificationStore
	mailer *fakeMailer
	clock  *testClock
	codec  *token.Codec
	cfg    *config.TokenConfig

	auth    usecase.AuthUsecase
	account usecase.AccountUsecase
	reset   usecase.PasswordResetUsecase
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	users := repository.NewMemoryUserRepository()
	tokens := repository.NewMemoryTokenRepository()
	clock := newTestClock()
	codec := token.NewCodec([]byte(testSecret), clock.Now)
	mail := &fakeMailer{}
	codes := store.NewVerificationStore(redisClient, users)
	verifier := usecase.NewCredentialVerifier(users)
	logger := zerolog.Nop()

	cfg := &config.TokenConfig{
		Secret:                     testSecret,
		AccessTokenExpiresIn:       15 * time.Minute,
		RefreshTokenExpiresIn:      720 * time.Hour,
		VerificationTokenExpiresIn: 24 * time.Hour,
		TwoFactorCodeExpiresIn:     10 * time.Minute,
	}

	return &testEnv{
		users:   users,
		tokens:  tokens,
		codes:   codes,
		mailer:  mail,
		clock:   clock,
		codec:   codec,
		cfg:     cfg,
		auth:    usecase.NewAuthUsecase(users, tokens, codes, verifier, codec, mail, clock.Now, cfg, &logger),
		account: usecase.NewAccountUsecase(users, tokens, codec, mail, clock.Now, cfg, &logger),
		reset:   usecase.NewPasswordResetUsecase(users, tokens, codec, mail, clock.Now, cfg, &logger),
	}
}

// createUser inserts a user with a hashed password directly into the
// repository.
func (e *testEnv) createUser(t *testing.T, user model.User, password string) *model.User {
	t.Helper()

	passwordHash, err := security.HashPassword(password)
	require.NoError(t, err)
	user.PasswordHash = passwordHash

	created, err := e.users.CreateUser(context.Background(), &user)
	require.NoError(t, err)

	return created
}
