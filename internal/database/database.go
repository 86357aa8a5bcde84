// internal/database/database.go
package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"videotube/internal/models"
)

// UserStore is the persistence boundary for user records. Every write to a
// user goes through it.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	// FindUserByIdentifier matches on username or email, whichever is non-empty.
	FindUserByIdentifier(ctx context.Context, username, email string) (*models.User, error)
	// SetRefreshToken overwrites the stored token; an empty token clears it.
	SetRefreshToken(ctx context.Context, userID, token string) error
	UpdatePasswordHash(ctx context.Context, userID, hash string) error
	UpdateAccount(ctx context.Context, userID, fullname, email string) (*models.User, error)
	UpdateAvatar(ctx context.Context, userID, url string) (*models.User, error)
	UpdateCoverImage(ctx context.Context, userID, url string) (*models.User, error)
}

// ProfileStore serves the read-only aggregation queries plus the few writes
// that feed them.
type ProfileStore interface {
	GetChannelProfile(ctx context.Context, username, viewerID string) (*models.ChannelProfile, error)
	GetWatchHistory(ctx context.Context, userID string) ([]models.WatchedVideo, error)
	ToggleSubscription(ctx context.Context, subscriberID, channelID string) (bool, error)
	AddToWatchHistory(ctx context.Context, userID, videoID string) error
	SaveVideo(ctx context.Context, video *models.Video) error
	GetVideo(ctx context.Context, id string) (*models.Video, error)
}

// DBAdapter defines the common interface for database operations.
// MongoDB is the production backend; MemoryDB backs tests and local runs.
type DBAdapter interface {
	UserStore
	ProfileStore

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

type MongoDB struct {
	Client        *mongo.Client
	Users         *mongo.Collection
	Subscriptions *mongo.Collection
	Videos        *mongo.Collection
}

func NewMongoDB(ctx context.Context, uri, dbName string) (*MongoDB, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(uri).SetServerAPIOptions(serverAPI)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %v", err)
	}

	// Ping the database to verify connection
	if err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err(); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %v", err)
	}

	slog.Info("Successfully connected to MongoDB", "database", dbName)

	db := client.Database(dbName)
	m := &MongoDB{
		Client:        client,
		Users:         db.Collection("users"),
		Subscriptions: db.Collection("subscriptions"),
		Videos:        db.Collection("videos"),
	}

	if err := m.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return m, nil
}

// EnsureIndexes creates the unique indexes the account invariants rely on.
func (m *MongoDB) EnsureIndexes(ctx context.Context) error {
	_, err := m.Users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return fmt.Errorf("failed to create user indexes: %v", err)
	}

	_, err = m.Subscriptions.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "subscriber", Value: 1}, {Key: "channel", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "channel", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create subscription indexes: %v", err)
	}

	_, err = m.Videos.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "owner", Value: 1}}})
	if err != nil {
		return fmt.Errorf("failed to create video indexes: %v", err)
	}

	return nil
}

func (m *MongoDB) Ping(ctx context.Context) error {
	return m.Client.Ping(ctx, nil)
}

func (m *MongoDB) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}
