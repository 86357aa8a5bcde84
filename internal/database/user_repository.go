// internal/database/user_repository.go
package database

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"videotube/internal/models"
	"videotube/internal/utils"
)

// CreateUser inserts a new user. Username or email collisions surface as ErrDuplicate.
func (m *MongoDB) CreateUser(ctx context.Context, user *models.User) error {
	if user.WatchHistory == nil {
		user.WatchHistory = []string{}
	}

	_, err := m.Users.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return utils.NewConflictError("User with email or username already exists")
		}
		return utils.NewDatabaseError("failed to create user", err)
	}
	return nil
}

// GetUserByID retrieves a user by its ID
func (m *MongoDB) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return m.findOneUser(ctx, bson.M{"_id": id}, id)
}

// FindUserByIdentifier retrieves a user by username or email
func (m *MongoDB) FindUserByIdentifier(ctx context.Context, username, email string) (*models.User, error) {
	var or bson.A
	if username != "" {
		or = append(or, bson.M{"username": username})
	}
	if email != "" {
		or = append(or, bson.M{"email": email})
	}
	if len(or) == 0 {
		return nil, utils.NewValidationError("username or email is required")
	}

	return m.findOneUser(ctx, bson.M{"$or": or}, username+email)
}

func (m *MongoDB) findOneUser(ctx context.Context, filter bson.M, identifier string) (*models.User, error) {
	var user models.User
	err := m.Users.FindOne(ctx, filter).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.NewUserNotFoundError(identifier)
	}
	if err != nil {
		return nil, utils.NewDatabaseError("failed to load user", err)
	}
	return &user, nil
}

// SetRefreshToken overwrites the single stored refresh token, or unsets it when token is empty
func (m *MongoDB) SetRefreshToken(ctx context.Context, userID, token string) error {
	var update bson.M
	if token == "" {
		update = bson.M{
			"$unset": bson.M{"refreshToken": ""},
			"$set":   bson.M{"updatedAt": time.Now()},
		}
	} else {
		update = bson.M{"$set": bson.M{"refreshToken": token, "updatedAt": time.Now()}}
	}
	return m.updateUser(ctx, userID, update)
}

// UpdatePasswordHash replaces the stored password hash
func (m *MongoDB) UpdatePasswordHash(ctx context.Context, userID, hash string) error {
	return m.updateUser(ctx, userID, bson.M{"$set": bson.M{"password": hash, "updatedAt": time.Now()}})
}

func (m *MongoDB) updateUser(ctx context.Context, userID string, update bson.M) error {
	result, err := m.Users.UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		return utils.NewDatabaseError("failed to update user", err)
	}
	if result.MatchedCount == 0 {
		return utils.NewUserNotFoundError(userID)
	}
	return nil
}

// UpdateAccount changes fullname and email and returns the updated user
func (m *MongoDB) UpdateAccount(ctx context.Context, userID, fullname, email string) (*models.User, error) {
	return m.findAndSet(ctx, userID, bson.M{"fullname": fullname, "email": email})
}

// UpdateAvatar stores a new avatar URL and returns the updated user
func (m *MongoDB) UpdateAvatar(ctx context.Context, userID, url string) (*models.User, error) {
	return m.findAndSet(ctx, userID, bson.M{"avatar": url})
}

// UpdateCoverImage stores a new cover image URL and returns the updated user
func (m *MongoDB) UpdateCoverImage(ctx context.Context, userID, url string) (*models.User, error) {
	return m.findAndSet(ctx, userID, bson.M{"coverImage": url})
}

func (m *MongoDB) findAndSet(ctx context.Context, userID string, fields bson.M) (*models.User, error) {
	fields["updatedAt"] = time.Now()
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var user models.User
	err := m.Users.FindOneAndUpdate(ctx, bson.M{"_id": userID}, bson.M{"$set": fields}, opts).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.NewUserNotFoundError(userID)
	}
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, utils.NewConflictError("Email is already in use")
		}
		return nil, utils.NewDatabaseError("failed to update user", err)
	}
	return &user, nil
}
