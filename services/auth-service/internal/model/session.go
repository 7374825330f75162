package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Session represents an authentication session. ID is the SHA-256 of the bearer
// token given to the client; the token itself is never stored.
//
// An unauthorized session is issued at signup, before the email is verified.
type Session struct {
	ID             string        `bson:"_id"`
	UserID         bson.ObjectID `bson:"user_id"`
	Authorized     bool          `bson:"authorized"`
	CreatedAt      time.Time     `bson:"created_at"`
	ExpiresAt      time.Time     `bson:"expires_at"`
	LastAccessedAt time.Time     `bson:"last_accessed_at"`
}

func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
