// Package security wraps the one-way password hashing primitive.
package security

import "github.com/matthewhartstonge/argon2"

// HashPassword hashes a plaintext password with argon2id.
func HashPassword(password string) (string, error) {
	config := argon2.DefaultConfig()

	encoded, err := config.HashEncoded([]byte(password))
	if err != nil {
		return "", err
	}

	return string(encoded), nil
}

// VerifyPassword reports whether password matches the encoded argon2 hash.
func VerifyPassword(password, encodedHash string) (bool, error) {
	return argon2.VerifyEncoded([]byte(password), []byte(encodedHash))
}
