// internal/services/profile.go
package services

import (
	"context"
	"log/slog"
	"strings"

	"videotube/internal/database"
	"videotube/internal/models"
	"videotube/internal/utils"
)

// ProfileService serves the channel and watch history views.
type ProfileService struct {
	profiles database.ProfileStore
	log      *slog.Logger
}

func NewProfileService(profiles database.ProfileStore, log *slog.Logger) *ProfileService {
	return &ProfileService{
		profiles: profiles,
		log:      log.With("component", "profile"),
	}
}

// ChannelProfile looks the channel up by username. viewerID may be empty.
func (s *ProfileService) ChannelProfile(ctx context.Context, username, viewerID string) (*models.ChannelProfile, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return nil, utils.NewValidationError("username is missing")
	}
	return s.profiles.GetChannelProfile(ctx, username, viewerID)
}

func (s *ProfileService) WatchHistory(ctx context.Context, userID string) ([]models.WatchedVideo, error) {
	history, err := s.profiles.GetWatchHistory(ctx, userID)
	if err != nil {
		return nil, err
	}
	if history == nil {
		history = []models.WatchedVideo{}
	}
	return history, nil
}

// ToggleSubscription flips the subscriber -> channel edge and reports the new state.
func (s *ProfileService) ToggleSubscription(ctx context.Context, subscriberID, channelID string) (bool, error) {
	channelID = strings.TrimSpace(channelID)
	if channelID == "" {
		return false, utils.NewValidationError("channel id is missing")
	}
	if channelID == subscriberID {
		return false, utils.NewValidationError("You cannot subscribe to yourself")
	}

	subscribed, err := s.profiles.ToggleSubscription(ctx, subscriberID, channelID)
	if err != nil {
		return false, err
	}
	s.log.Debug("subscription toggled", "subscriber", subscriberID, "channel", channelID, "subscribed", subscribed)
	return subscribed, nil
}

// RecordWatch puts videoID at the front of the user's history.
func (s *ProfileService) RecordWatch(ctx context.Context, userID, videoID string) error {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return utils.NewValidationError("video id is missing")
	}
	return s.profiles.AddToWatchHistory(ctx, userID, videoID)
}
