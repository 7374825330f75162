package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// PasswordResetRequest is keyed by the SHA-256 of the opaque token that is
// handed out in the reset link.
type PasswordResetRequest struct {
	ID        string        `bson:"_id"`
	UserID    bson.ObjectID `bson:"user_id"`
	CreatedAt time.Time     `bson:"created_at"`
	ExpiresAt time.Time     `bson:"expires_at"`
}

func (r *PasswordResetRequest) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}
