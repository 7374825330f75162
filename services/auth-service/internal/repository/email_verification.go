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

// EmailVerificationRepository stores the pending email challenge of each user.
type EmailVerificationRepository interface {
	// CreateEmailVerification deletes every challenge for the same user or email
	// and inserts the new one in a single transaction.
	CreateEmailVerification(
		ctx context.Context,
		verification *model.EmailVerification,
	) (*model.EmailVerification, error)

	// GetEmailVerification returns the challenge of a user, expired or not.
	GetEmailVerification(ctx context.Context, userID bson.ObjectID) (*model.EmailVerification, error)

	// RemoveEmailVerification deletes a challenge by id. It returns ErrNotFound
	// when the challenge was already consumed.
	RemoveEmailVerification(ctx context.Context, id string) error
}

const emailVerificationCollection = "email_verifications"

type emailVerificationMongoRepository struct {
	db *mongo.Database
	tx Transactor
}

func NewEmailVerificationMongoRepository(
	ctx context.Context,
	logger *zerolog.Logger,
	db *mongo.Database,
	tx Transactor,
) EmailVerificationRepository {
	collection := db.Collection(emailVerificationCollection)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "email", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0), // TTL index
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create email verification indexes")
	}

	return &emailVerificationMongoRepository{db: db, tx: tx}
}

func (r *emailVerificationMongoRepository) CreateEmailVerification(
	ctx context.Context,
	verification *model.EmailVerification,
) (*model.EmailVerification, error) {
	id, err := security.GenerateToken()
	if err != nil {
		return nil, err
	}

	verification.ID = id
	verification.CreatedAt = time.Now()

	collection := r.db.Collection(emailVerificationCollection)
	err = r.tx.WithTransaction(ctx, func(ctx context.Context) error {
		filter := bson.M{"$or": bson.A{
			bson.M{"user_id": verification.UserID},
			bson.M{"email": verification.Email},
		}}
		if _, err := collection.DeleteMany(ctx, filter); err != nil {
			return err
		}

		_, err := collection.InsertOne(ctx, verification)
		return err
	})
	if err != nil {
		return nil, mapError(err)
	}

	return verification, nil
}

func (r *emailVerificationMongoRepository) GetEmailVerification(
	ctx context.Context,
	userID bson.ObjectID,
) (*model.EmailVerification, error) {
	var verification model.EmailVerification
	err := r.db.Collection(emailVerificationCollection).
		FindOne(ctx, bson.M{"user_id": userID}).
		Decode(&verification)
	if err != nil {
		return nil, mapError(err)
	}

	return &verification, nil
}

func (r *emailVerificationMongoRepository) RemoveEmailVerification(ctx context.Context, id string) error {
	result, err := r.db.Collection(emailVerificationCollection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}

	return nil
}
