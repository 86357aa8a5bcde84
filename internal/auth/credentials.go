// internal/auth/credentials.go
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"videotube/internal/database"
	"videotube/internal/models"
	"videotube/internal/utils"
)

// MaxPasswordBytes is bcrypt's input limit.
const MaxPasswordBytes = 72

const PasswordTooLongMessage = "password must be at most 72 bytes"

// NewUser carries the already validated registration fields.
type NewUser struct {
	Username   string
	Email      string
	Fullname   string
	Password   string
	Avatar     string
	CoverImage string
}

// CredentialStore owns password hashing. Every password write goes through it.
type CredentialStore struct {
	users database.UserStore
	cost  int
}

func NewCredentialStore(users database.UserStore, cost int) *CredentialStore {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &CredentialStore{users: users, cost: cost}
}

func (c *CredentialStore) hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), c.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", utils.NewValidationError(PasswordTooLongMessage)
	}
	if err != nil {
		return "", utils.NewAppError(utils.ErrInternal, "failed to hash password", err)
	}
	return string(bytes), nil
}

// CreateUser persists a new user and returns its public projection. The
// store's unique username and email constraints decide conflicts.
func (c *CredentialStore) CreateUser(ctx context.Context, in NewUser) (*models.PublicUser, error) {
	hash, err := c.hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.NewString(),
		Username:     in.Username,
		Email:        in.Email,
		Fullname:     in.Fullname,
		Avatar:       in.Avatar,
		CoverImage:   in.CoverImage,
		PasswordHash: hash,
		WatchHistory: []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := c.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	return user.Public(), nil
}

// VerifyPassword reports whether candidate matches the stored hash.
func (c *CredentialStore) VerifyPassword(user *models.User, candidate string) bool {
	if user == nil || user.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(candidate)) == nil
}

// UpdatePassword replaces the hash. Outstanding refresh tokens stay valid.
func (c *CredentialStore) UpdatePassword(ctx context.Context, userID, newPassword string) error {
	hash, err := c.hashPassword(newPassword)
	if err != nil {
		return err
	}
	return c.users.UpdatePasswordHash(ctx, userID, hash)
}

// FindByIdentifier returns ErrUserNotFound when no user matches.
func (c *CredentialStore) FindByIdentifier(ctx context.Context, username, email string) (*models.User, error) {
	return c.users.FindUserByIdentifier(ctx, username, email)
}

func (c *CredentialStore) FindByID(ctx context.Context, userID string) (*models.User, error) {
	return c.users.GetUserByID(ctx, userID)
}
