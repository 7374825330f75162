package repository

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/vasapolrittideah/orvane-auth/services/auth-service/internal/model"
	"github.com/vasapolrittideah/orvane-auth/shared/security"
)

// SessionRepository defines the interface for session-related database operations.
// Sessions are addressed by their plaintext bearer token; only its hash is stored.
type SessionRepository interface {
	// CreateSession stores a new session and returns it with the plaintext token.
	// The token cannot be recovered afterwards.
	CreateSession(
		ctx context.Context,
		userID bson.ObjectID,
		authorized bool,
		expiresIn time.Duration,
	) (*model.Session, string, error)

	// GetSessionByToken returns the unexpired session for token and records the access.
	GetSessionByToken(ctx context.Context, token string) (*model.Session, error)

	DeleteSession(ctx context.Context, token string) error

	// InvalidateAllSessions deletes every session of a user and reports how many
	// there were. Zero is not an error.
	InvalidateAllSessions(ctx context.Context, userID bson.ObjectID) (int64, error)
}

const sessionCollection = "sessions"

type sessionMongoRepository struct {
	db *mongo.Database
}

func NewSessionMongoRepository(ctx context.Context, logger *zerolog.Logger, db *mongo.Database) SessionRepository {
	collection := db.Collection(sessionCollection)

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0), // TTL index
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create session indexes")
	}

	return &sessionMongoRepository{db: db}
}

func (r *sessionMongoRepository) CreateSession(
	ctx context.Context,
	userID bson.ObjectID,
	authorized bool,
	expiresIn time.Duration,
) (*model.Session, string, error) {
	token, err := security.GenerateToken()
	if err != nil {
		return nil, "", err
	}

	now := time.Now()
	session := &model.Session{
		ID:             security.HashToken(token),
		UserID:         userID,
		Authorized:     authorized,
		CreatedAt:      now,
		ExpiresAt:      now.Add(expiresIn),
		LastAccessedAt: now,
	}

	if _, err := r.db.Collection(sessionCollection).InsertOne(ctx, session); err != nil {
		return nil, "", mapError(err)
	}

	return session, token, nil
}

func (r *sessionMongoRepository) GetSessionByToken(ctx context.Context, token string) (*model.Session, error) {
	now := time.Now()

	// The TTL monitor runs about once a minute, so expiry is checked here too.
	result := r.db.Collection(sessionCollection).FindOneAndUpdate(
		ctx,
		bson.M{"_id": security.HashToken(token), "expires_at": bson.M{"$gt": now}},
		bson.M{"$set": bson.M{"last_accessed_at": now}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	var session model.Session
	if err := result.Decode(&session); err != nil {
		return nil, mapError(err)
	}

	return &session, nil
}

func (r *sessionMongoRepository) DeleteSession(ctx context.Context, token string) error {
	result, err := r.db.Collection(sessionCollection).DeleteOne(ctx, bson.M{"_id": security.HashToken(token)})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *sessionMongoRepository) InvalidateAllSessions(ctx context.Context, userID bson.ObjectID) (int64, error) {
	result, err := r.db.Collection(sessionCollection).DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, err
	}

	return result.DeletedCount, nil
}
