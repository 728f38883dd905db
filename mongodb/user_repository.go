package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	sessiongate "go.pilab.hu/sessiongate"
	"go.pilab.hu/sessiongate/domain"
)

// UserRepository implements domain.UserRepository over the users collection.
type UserRepository struct {
	db    *mongo.Database
	users *mongo.Collection
}

// NewUserRepository creates a new UserRepository and ensures its indexes.
func NewUserRepository(ctx context.Context, db *mongo.Database) (domain.UserRepository, error) {
	repo := &UserRepository{
		db:    db,
		users: db.Collection(UsersCollection),
	}
	if err := repo.createIndexes(ctx); err != nil {
		// Index creation commonly fails when compatible indexes already
		// exist; the repository stays usable either way.
		log.Warn().Err(err).Msg("Failed to create user indexes")
	}
	return repo, nil
}

func (r *UserRepository) createIndexes(ctx context.Context) error {
	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_name", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "mobile", Value: 1}},
			Options: options.Index().SetUnique(false).SetSparse(true),
		},
	}

	if _, err := r.users.Indexes().CreateMany(ctx, indexModels, options.CreateIndexes()); err != nil {
		return fmt.Errorf("failed to create indexes for users collection: %w", err)
	}
	log.Info().Msg("Indexes for users collection ensured.")
	return nil
}

// CreateUser inserts a new user account.
func (r *UserRepository) CreateUser(ctx context.Context, user *domain.User) error {
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	if _, err := r.users.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("user %q already exists: %w", user.UserName, err)
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetUserByName fetches a user by unique user name.
func (r *UserRepository) GetUserByName(ctx context.Context, userName string) (*domain.User, error) {
	var user domain.User
	err := r.users.FindOne(ctx, bson.M{"user_name": userName}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, sessiongate.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user by name: %w", err)
	}
	return &user, nil
}

// GetUserByID fetches a user by id.
func (r *UserRepository) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	var user domain.User
	err := r.users.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, sessiongate.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user by id: %w", err)
	}
	return &user, nil
}
