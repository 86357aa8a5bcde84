// internal/database/video_repository.go
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

// SaveVideo creates or replaces a video document
func (m *MongoDB) SaveVideo(ctx context.Context, video *models.Video) error {
	opts := options.Replace().SetUpsert(true)
	_, err := m.Videos.ReplaceOne(ctx, bson.M{"_id": video.ID}, video, opts)
	if err != nil {
		return utils.NewDatabaseError("failed to save video", err)
	}
	return nil
}

// GetVideo retrieves a video by its ID
func (m *MongoDB) GetVideo(ctx context.Context, id string) (*models.Video, error) {
	var video models.Video
	err := m.Videos.FindOne(ctx, bson.M{"_id": id}).Decode(&video)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.NewAppError(utils.ErrNotFound, "Video does not exist", nil)
	}
	if err != nil {
		return nil, utils.NewDatabaseError("failed to load video", err)
	}
	return &video, nil
}

// AddToWatchHistory moves videoID to the front of the user's history,
// dropping any earlier occurrence.
func (m *MongoDB) AddToWatchHistory(ctx context.Context, userID, videoID string) error {
	if _, err := m.GetVideo(ctx, videoID); err != nil {
		return err
	}

	current := bson.D{{Key: "$ifNull", Value: bson.A{"$watchHistory", bson.A{}}}}
	update := bson.A{
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "watchHistory", Value: bson.D{{Key: "$concatArrays", Value: bson.A{
				bson.A{videoID},
				bson.D{{Key: "$filter", Value: bson.D{
					{Key: "input", Value: current},
					{Key: "cond", Value: bson.D{{Key: "$ne", Value: bson.A{"$$this", videoID}}}},
				}}},
			}}}},
			{Key: "updatedAt", Value: time.Now()},
		}}},
	}

	result, err := m.Users.UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		return utils.NewDatabaseError("failed to update watch history", err)
	}
	if result.MatchedCount == 0 {
		return utils.NewUserNotFoundError(userID)
	}
	return nil
}

type watchHistoryDocument struct {
	WatchHistory []string              `bson:"watchHistory"`
	Watched      []models.WatchedVideo `bson:"watched"`
}

// GetWatchHistory resolves the user's history into videos with a trimmed owner profile.
func (m *MongoDB) GetWatchHistory(ctx context.Context, userID string) ([]models.WatchedVideo, error) {
	pipeline := bson.A{
		bson.D{{Key: "$match", Value: bson.D{{Key: "_id", Value: userID}}}},
		bson.D{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: "videos"},
			{Key: "localField", Value: "watchHistory"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "watched"},
			{Key: "pipeline", Value: bson.A{
				bson.D{{Key: "$lookup", Value: bson.D{
					{Key: "from", Value: "users"},
					{Key: "localField", Value: "owner"},
					{Key: "foreignField", Value: "_id"},
					{Key: "as", Value: "owner"},
					{Key: "pipeline", Value: bson.A{
						bson.D{{Key: "$project", Value: bson.D{
							{Key: "username", Value: 1},
							{Key: "fullname", Value: 1},
							{Key: "avatar", Value: 1},
						}}},
					}},
				}}},
				bson.D{{Key: "$addFields", Value: bson.D{
					{Key: "owner", Value: bson.D{{Key: "$first", Value: "$owner"}}},
				}}},
			}},
		}}},
		bson.D{{Key: "$project", Value: bson.D{
			{Key: "watchHistory", Value: 1},
			{Key: "watched", Value: 1},
		}}},
	}

	cursor, err := m.Users.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, utils.NewDatabaseError("failed to aggregate watch history", err)
	}
	defer cursor.Close(ctx)

	var docs []watchHistoryDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, utils.NewDatabaseError("failed to decode watch history", err)
	}
	if len(docs) == 0 {
		return nil, utils.NewUserNotFoundError(userID)
	}

	return orderByHistory(docs[0].WatchHistory, docs[0].Watched), nil
}

// $lookup does not keep the order of the local array, so restore it here.
// Ids whose video no longer exists are skipped.
func orderByHistory(history []string, videos []models.WatchedVideo) []models.WatchedVideo {
	byID := make(map[string]models.WatchedVideo, len(videos))
	for _, v := range videos {
		byID[v.ID] = v
	}

	ordered := make([]models.WatchedVideo, 0, len(history))
	for _, id := range history {
		if v, ok := byID[id]; ok {
			ordered = append(ordered, v)
		}
	}
	return ordered
}
