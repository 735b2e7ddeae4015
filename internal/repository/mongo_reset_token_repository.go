package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"accountsvc/internal/domain"
	"accountsvc/pkg/logger"
)

const ResetTokensCollection = "password_reset_tokens"

type mongoResetToken struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	AccountID string             `bson:"account_id"`
	TokenHash string             `bson:"token_hash"`
	ExpiresAt time.Time          `bson:"expires_at"`
	UsedAt    *time.Time         `bson:"used_at"`
	CreatedAt time.Time          `bson:"created_at"`
}

type MongoResetTokenRepository struct {
	collection *mongo.Collection
	logger     logger.Logger
}

func NewMongoResetTokenRepository(db *mongo.Database, logger logger.Logger) *MongoResetTokenRepository {
	return &MongoResetTokenRepository{
		collection: db.Collection(ResetTokensCollection),
		logger:     logger,
	}
}

// EnsureIndexes adds a unique hash index and a TTL index that lets the server
// purge expired tokens.
func (r *MongoResetTokenRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "token_hash", Value: 1}}, Options: options.Index().SetName("token_hash_unique").SetUnique(true)},
		{Keys: bson.D{{Key: "expires_at", Value: 1}}, Options: options.Index().SetName("expires_at_ttl").SetExpireAfterSeconds(0)},
	})
	if err != nil {
		return fmt.Errorf("create reset token indexes: %w", err)
	}
	return nil
}

func (r *MongoResetTokenRepository) Create(ctx context.Context, token *domain.ResetToken) error {
	defer observe("create", "reset_token")()

	doc := mongoResetToken{
		ID:        primitive.NewObjectID(),
		AccountID: token.AccountID,
		TokenHash: token.TokenHash,
		ExpiresAt: token.ExpiresAt.UTC(),
		CreatedAt: token.CreatedAt.UTC(),
	}

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		r.logger.ErrorContext(ctx, "Could not store reset token", map[string]interface{}{
			"account_id": token.AccountID,
			"error":      err.Error(),
		})
		return fmt.Errorf("create reset token: %w", err)
	}

	token.ID = doc.ID.Hex()
	return nil
}

func (r *MongoResetTokenRepository) Consume(ctx context.Context, tokenHash string, now time.Time) (string, error) {
	defer observe("consume", "reset_token")()

	now = now.UTC()
	filter := bson.M{
		"token_hash": tokenHash,
		"used_at":    nil,
		"expires_at": bson.M{"$gt": now},
	}
	update := bson.M{"$set": bson.M{"used_at": now}}

	var doc mongoResetToken
	err := r.collection.FindOneAndUpdate(ctx, filter, update).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", domain.ErrInvalidResetToken
		}
		r.logger.ErrorContext(ctx, "Could not consume reset token", map[string]interface{}{"error": err.Error()})
		return "", fmt.Errorf("consume reset token: %w", err)
	}
	return doc.AccountID, nil
}
