// Package store implements the short-horizon verification code store backing
// two-factor login. One-time login codes live in redis under a TTL; recovery
// codes live on the user document and are consumed with an atomic pull.
package store

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chanwitp/identity-api/internal/repository"
)

const verificationKeyPrefix = "2fa:code"

// VerificationStore holds one-time two-factor codes and consumes recovery
// codes. A login code is deleted the moment it validates successfully; a
// wrong code leaves it in place so the attempt stays retryable until the TTL
// runs out.
type VerificationStore struct {
	redis *redis.Client
	users repository.UserRepository
}

// NewVerificationStore creates a VerificationStore backed by the given redis
// client and user repository.
func NewVerificationStore(redisClient *redis.Client, users repository.UserRepository) *VerificationStore {
	return &VerificationStore{
		redis: redisClient,
		users: users,
	}
}

func (s *VerificationStore) key(userID string) string {
	return verificationKeyPrefix + ":" + userID
}

// SaveCode stores a one-time login code for the user, replacing any previous
// one, expiring after ttl.
func (s *VerificationStore) SaveCode(ctx context.Context, userID, code string, ttl time.Duration) error {
	return s.redis.Set(ctx, s.key(userID), code, ttl).Err()
}

// IsCodeValid reports whether code matches the user's stored login code and
// consumes it on success.
func (s *VerificationStore) IsCodeValid(ctx context.Context, userID, code string) (bool, error) {
	stored, err := s.redis.Get(ctx, s.key(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		return false, nil
	}

	if err := s.redis.Del(ctx, s.key(userID)).Err(); err != nil {
		return false, err
	}

	return true, nil
}

// ConsumeRecoveryCode atomically removes one recovery code from the user's
// set and reports whether it was present. At most one of any number of
// concurrent callers presenting the same code observes true.
func (s *VerificationStore) ConsumeRecoveryCode(ctx context.Context, userID, code string) (bool, error) {
	removed, err := s.users.RemoveRecoveryCode(ctx, userID, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	return removed, nil
}
