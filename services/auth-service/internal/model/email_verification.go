package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// EmailVerification is the live email challenge of a user. Only the keyed hash
// of the emailed code is stored.
type EmailVerification struct {
	ID        string        `bson:"_id"`
	UserID    bson.ObjectID `bson:"user_id"`
	Email     string        `bson:"email"`
	CodeHash  string        `bson:"code_hash"`
	CreatedAt time.Time     `bson:"created_at"`
	ExpiresAt time.Time     `bson:"expires_at"`
}

// Expired reports whether the challenge can no longer be used at now.
func (v *EmailVerification) Expired(now time.Time) bool {
	return !now.Before(v.ExpiresAt)
}
