// Package token implements the signed token codec. A token binds a subject
// (the string form of a user id) to an issued-at and expires-at timestamp and
// is signed with a process-wide HMAC-SHA-512 secret.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrMalformed    = errors.New("malformed token")
	ErrBadSignature = errors.New("invalid token signature")
	ErrExpired      = errors.New("token expired")
	ErrUnsupported  = errors.New("unsupported token format")
)

// Codec issues and validates signed tokens. It has no side effects; the same
// secret must be used for issuing and validating.
type Codec struct {
	secret []byte
	now    func() time.Time
}

// NewCodec creates a Codec signing with the given secret. The now function is
// used for issued-at and expiry evaluation; pass nil for the wall clock.
func NewCodec(secret []byte, now func() time.Time) *Codec {
	if now == nil {
		now = time.Now
	}

	return &Codec{
		secret: secret,
		now:    now,
	}
}

// Issue produces a signed token value for the given subject, expiring after
// ttl. A random jti makes every issued value unique, even for the same subject
// and ttl within the same second.
func (c *Codec) Issue(subject string, ttl time.Duration) (string, error) {
	now := c.now()
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(c.secret)
}

// Validate verifies the signature and expiry of a token value and returns its
// subject. Failures are reported as ErrMalformed, ErrBadSignature, ErrExpired
// or ErrUnsupported; only ErrExpired is meaningful to distinguish for callers.
func (c *Codec) Validate(value string) (string, error) {
	claims := &jwt.RegisteredClaims{}

	_, err := jwt.ParseWithClaims(value, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}

		return c.secret, nil
	},
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return "", normalizeError(err)
	}

	if claims.Subject == "" {
		return "", ErrMalformed
	}

	return claims.Subject, nil
}

// normalizeError collapses the parser's failure modes into the codec's error
// taxonomy so callers never see raw parse errors.
func normalizeError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrBadSignature
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrUnsupported
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	default:
		return ErrMalformed
	}
}
