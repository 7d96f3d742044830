package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// TokenType classifies an issued token.
type TokenType string

const (
	// TokenTypeAccess is stateless and self-verifying; access tokens are
	// never persisted.
	TokenTypeAccess TokenType = "ACCESS"

	TokenTypeRefresh           TokenType = "REFRESH"
	TokenTypeAccountActivation TokenType = "ACCOUNT_ACTIVATION"
	TokenTypeEmailUpdate       TokenType = "EMAIL_UPDATE"
	TokenTypeForgottenPassword TokenType = "FORGOTTEN_PASSWORD"
)

// Token represents a persisted refresh or verification token record.
// Consuming a verification token deletes the record so it cannot be replayed.
type Token struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	UserID    bson.ObjectID `bson:"user_id"`
	Value     string        `bson:"value"`
	Type      TokenType     `bson:"type"`
	ExpiresAt time.Time     `bson:"expires_at"`
	CreatedAt time.Time     `bson:"created_at"`
	UpdatedAt time.Time     `bson:"updated_at"`
}
