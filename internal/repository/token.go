package repository

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/chanwitp/identity-api/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// TokenRepository defines the interface for persisted token records. Access
// tokens are stateless and never pass through here; only refresh and
// verification token types are stored.
type TokenRepository interface {
	// CreateToken inserts a new token record.
	CreateToken(ctx context.Context, token *model.Token) (*model.Token, error)

	// GetTokenByValueAndType retrieves a record by its value and type.
	GetTokenByValueAndType(ctx context.Context, value string, tokenType model.TokenType) (*model.Token, error)

	// GetTokenByUserAndType retrieves a record by its owning user and type.
	GetTokenByUserAndType(ctx context.Context, userID bson.ObjectID, tokenType model.TokenType) (*model.Token, error)

	// ConsumeToken atomically removes the record matching value and type and
	// returns it. Exactly one of any number of concurrent callers succeeds;
	// the rest get ErrNotFound.
	ConsumeToken(ctx context.Context, value string, tokenType model.TokenType) (*model.Token, error)

	// DeleteToken removes a record. Deleting an absent record is not an error.
	DeleteToken(ctx context.Context, value string, tokenType model.TokenType) error

	// DeleteUserTokens removes all records of the given type owned by a user,
	// superseding previously issued tokens of that type.
	DeleteUserTokens(ctx context.Context, userID bson.ObjectID, tokenType model.TokenType) error

	// DeleteExpiredTokens removes records past their expiry.
	DeleteExpiredTokens(ctx context.Context) (int64, error)
}

const tokenCollection = "tokens"

type tokenMongoRepository struct {
	db *mongo.Database
}

// NewTokenMongoRepository creates a new MongoDB repository for token records.
func NewTokenMongoRepository(ctx context.Context, logger *zerolog.Logger, db *mongo.Database) TokenRepository {
	collection := db.Collection(tokenCollection)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "value", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "type", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0), // TTL index
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create token indexes")
	}

	return &tokenMongoRepository{db: db}
}

func (r *tokenMongoRepository) CreateToken(ctx context.Context, token *model.Token) (*model.Token, error) {
	now := time.Now()
	token.CreatedAt = now
	token.UpdatedAt = now

	result, err := r.db.Collection(tokenCollection).InsertOne(ctx, token)
	if err != nil {
		return nil, err
	}

	if objectID, ok := result.InsertedID.(bson.ObjectID); ok {
		token.ID = objectID
	}

	return token, nil
}

func (r *tokenMongoRepository) GetTokenByValueAndType(
	ctx context.Context,
	value string,
	tokenType model.TokenType,
) (*model.Token, error) {
	filter := bson.M{"value": value, "type": tokenType}

	var token model.Token
	err := r.db.Collection(tokenCollection).FindOne(ctx, filter).Decode(&token)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &token, nil
}

func (r *tokenMongoRepository) GetTokenByUserAndType(
	ctx context.Context,
	userID bson.ObjectID,
	tokenType model.TokenType,
) (*model.Token, error) {
	filter := bson.M{"user_id": userID, "type": tokenType}

	var token model.Token
	err := r.db.Collection(tokenCollection).FindOne(ctx, filter).Decode(&token)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &token, nil
}

func (r *tokenMongoRepository) ConsumeToken(
	ctx context.Context,
	value string,
	tokenType model.TokenType,
) (*model.Token, error) {
	filter := bson.M{"value": value, "type": tokenType}

	var token model.Token
	err := r.db.Collection(tokenCollection).FindOneAndDelete(ctx, filter).Decode(&token)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &token, nil
}

func (r *tokenMongoRepository) DeleteToken(ctx context.Context, value string, tokenType model.TokenType) error {
	filter := bson.M{"value": value, "type": tokenType}

	_, err := r.db.Collection(tokenCollection).DeleteOne(ctx, filter)
	return err
}

func (r *tokenMongoRepository) DeleteUserTokens(
	ctx context.Context,
	userID bson.ObjectID,
	tokenType model.TokenType,
) error {
	filter := bson.M{"user_id": userID, "type": tokenType}

	_, err := r.db.Collection(tokenCollection).DeleteMany(ctx, filter)
	return err
}

func (r *tokenMongoRepository) DeleteExpiredTokens(ctx context.Context) (int64, error) {
	filter := bson.M{
		"expires_at": bson.M{"$lt": time.Now()},
	}

	result, err := r.db.Collection(tokenCollection).DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}

	return result.DeletedCount, nil
}
