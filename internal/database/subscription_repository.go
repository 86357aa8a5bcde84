// internal/database/subscription_repository.go
package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"videotube/internal/models"
	"videotube/internal/utils"
)

// GetChannelProfile resolves a channel by username together with its
// subscriber count, the number of channels it follows and whether viewerID
// is among its subscribers.
func (m *MongoDB) GetChannelProfile(ctx context.Context, username, viewerID string) (*models.ChannelProfile, error) {
	pipeline := channelProfilePipeline(username, viewerID)

	cursor, err := m.Users.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, utils.NewDatabaseError("failed to aggregate channel profile", err)
	}
	defer cursor.Close(ctx)

	var profiles []models.ChannelProfile
	if err := cursor.All(ctx, &profiles); err != nil {
		return nil, utils.NewDatabaseError("failed to decode channel profile", err)
	}
	if len(profiles) == 0 {
		return nil, utils.NewAppError(utils.ErrNotFound, "Channel does not exist", nil)
	}

	return &profiles[0], nil
}

func channelProfilePipeline(username, viewerID string) bson.A {
	return bson.A{
		bson.D{{Key: "$match", Value: bson.D{{Key: "username", Value: username}}}},
		bson.D{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: "subscriptions"},
			{Key: "localField", Value: "_id"},
			{Key: "foreignField", Value: "channel"},
			{Key: "as", Value: "subscribers"},
		}}},
		bson.D{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: "subscriptions"},
			{Key: "localField", Value: "_id"},
			{Key: "foreignField", Value: "subscriber"},
			{Key: "as", Value: "subscribedTo"},
		}}},
		bson.D{{Key: "$addFields", Value: bson.D{
			{Key: "subscribersCount", Value: bson.D{{Key: "$size", Value: "$subscribers"}}},
			{Key: "channelsSubscribedToCount", Value: bson.D{{Key: "$size", Value: "$subscribedTo"}}},
			{Key: "isSubscribed", Value: bson.D{{Key: "$in", Value: bson.A{viewerID, "$subscribers.subscriber"}}}},
		}}},
		bson.D{{Key: "$project", Value: bson.D{
			{Key: "username", Value: 1},
			{Key: "email", Value: 1},
			{Key: "fullname", Value: 1},
			{Key: "avatar", Value: 1},
			{Key: "coverImage", Value: 1},
			{Key: "subscribersCount", Value: 1},
			{Key: "channelsSubscribedToCount", Value: 1},
			{Key: "isSubscribed", Value: 1},
		}}},
	}
}

// ToggleSubscription removes the (subscriber, channel) edge when it exists and
// creates it otherwise. It reports whether the subscriber is subscribed afterwards.
func (m *MongoDB) ToggleSubscription(ctx context.Context, subscriberID, channelID string) (bool, error) {
	count, err := m.Users.CountDocuments(ctx, bson.M{"_id": channelID})
	if err != nil {
		return false, utils.NewDatabaseError("failed to look up channel", err)
	}
	if count == 0 {
		return false, utils.NewAppError(utils.ErrNotFound, "Channel does not exist", nil)
	}

	edge := bson.M{"subscriber": subscriberID, "channel": channelID}
	deleted, err := m.Subscriptions.DeleteOne(ctx, edge)
	if err != nil {
		return false, utils.NewDatabaseError("failed to remove subscription", err)
	}
	if deleted.DeletedCount > 0 {
		return false, nil
	}

	now := time.Now()
	_, err = m.Subscriptions.InsertOne(ctx, models.Subscription{
		ID:         uuid.NewString(),
		Subscriber: subscriberID,
		Channel:    channelID,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return false, utils.NewDatabaseError("failed to create subscription", err)
	}
	return true, nil
}
