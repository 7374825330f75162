package repository

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/vasapolrittideah/orvane-auth/services/auth-service/internal/model"
)

// PasswordResetRequestRepository defines the interface for password reset request operations.
type PasswordResetRequestRepository interface {
	// CreatePasswordResetRequest replaces any request of the same user with the
	// given one. The caller sets ID to the hash of the token it hands out.
	CreatePasswordResetRequest(
		ctx context.Context,
		request *model.PasswordResetRequest,
	) (*model.PasswordResetRequest, error)

	// GetPasswordResetRequest retrieves a request by its hashed token.
	GetPasswordResetRequest(ctx context.Context, id string) (*model.PasswordResetRequest, error)

	// RemovePasswordResetRequest consumes a request. It returns ErrNotFound when
	// the request is already gone.
	RemovePasswordResetRequest(ctx context.Context, id string) error
}

const passwordResetRequestCollection = "password_reset_requests"

type passwordResetRequestMongoRepository struct {
	db *mongo.Database
	tx Transactor
}

// NewPasswordResetRequestMongoRepository creates a new MongoDB repository for password reset requests.
func NewPasswordResetRequestMongoRepository(
	ctx context.Context,
	logger *zerolog.Logger,
	db *mongo.Database,
	tx Transactor,
) PasswordResetRequestRepository {
	collection := db.Collection(passwordResetRequestCollection)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0), // TTL index
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create password reset request indexes")
	}

	return &passwordResetRequestMongoRepository{db: db, tx: tx}
}

func (r *passwordResetRequestMongoRepository) CreatePasswordResetRequest(
	ctx context.Context,
	request *model.PasswordResetRequest,
) (*model.PasswordResetRequest, error) {
	request.CreatedAt = time.Now()

	collection := r.db.Collection(passwordResetRequestCollection)
	err := r.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := collection.DeleteMany(ctx, bson.M{"user_id": request.UserID}); err != nil {
			return err
		}

		_, err := collection.InsertOne(ctx, request)
		return err
	})
	if err != nil {
		return nil, mapError(err)
	}

	return request, nil
}

func (r *passwordResetRequestMongoRepository) GetPasswordResetRequest(
	ctx context.Context,
	id string,
) (*model.PasswordResetRequest, error) {
	var request model.PasswordResetRequest
	err := r.db.Collection(passwordResetRequestCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&request)
	if err != nil {
		return nil, mapError(err)
	}

	return &request, nil
}

func (r *passwordResetRequestMongoRepository) RemovePasswordResetRequest(ctx context.Context, id string) error {
	result, err := r.db.Collection(passwordResetRequestCollection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}

	return nil
}
