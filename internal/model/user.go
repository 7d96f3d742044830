package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// User represents a user account in the authentication system.
type User struct {
	ID                bson.ObjectID `bson:"_id,omitempty"`
	Name              string        `bson:"name"`
	Email             string        `bson:"email"`
	PasswordHash      string        `bson:"password_hash"`
	EmailVerified     bool          `bson:"email_verified"`
	TwoFactorEnabled  bool          `bson:"two_factor_enabled"`
	RequestedNewEmail *string       `bson:"requested_new_email"`
	RecoveryCodes     []string      `bson:"recovery_codes"`
	CreatedAt         time.Time     `bson:"created_at"`
	UpdatedAt         time.Time     `bson:"updated_at"`
}
