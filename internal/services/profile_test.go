package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"videotube/internal/database"
	"videotube/internal/logger"
	"videotube/internal/models"
	"videotube/internal/utils"
)

func seedUser(t *testing.T, db *database.MemoryDB, username string) *models.User {
	t.Helper()
	u := &models.User{
		ID:       uuid.NewString(),
		Username: username,
		Email:    username + "@x.com",
		Fullname: username,
		Avatar:   "http://cdn.test/" + username + ".png",
	}
	require.NoError(t, db.CreateUser(context.Background(), u))
	return u
}

func TestChannelProfile(t *testing.T) {
	ctx := context.Background()
	db := database.NewMemoryDB()
	svc := NewProfileService(db, logger.Discard())

	channel := seedUser(t, db, "chan")
	fan := seedUser(t, db, "fan")

	profile, err := svc.ChannelProfile(ctx, " CHAN ", "")
	require.NoError(t, err)
	assert.Equal(t, 0, profile.SubscribersCount)
	assert.False(t, profile.IsSubscribed)

	subscribed, err := svc.ToggleSubscription(ctx, fan.ID, channel.ID)
	require.NoError(t, err)
	assert.True(t, subscribed)

	profile, err = svc.ChannelProfile(ctx, "chan", fan.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, profile.SubscribersCount)
	assert.True(t, profile.IsSubscribed)

	profile, err = svc.ChannelProfile(ctx, "fan", channel.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, profile.SubscribersCount)
	assert.Equal(t, 1, profile.ChannelsSubscribedToCount)

	_, err = svc.ChannelProfile(ctx, "  ", "")
	assert.True(t, utils.IsErrorCode(err, utils.ErrInvalidInput))

	_, err = svc.ChannelProfile(ctx, "ghost", "")
	assert.True(t, utils.IsErrorCode(err, utils.ErrNotFound))
}

func TestToggleSubscriptionRules(t *testing.T) {
	ctx := context.Background()
	db := database.NewMemoryDB()
	svc := NewProfileService(db, logger.Discard())
	me := seedUser(t, db, "me")

	_, err := svc.ToggleSubscription(ctx, me.ID, me.ID)
	assert.True(t, utils.IsErrorCode(err, utils.ErrInvalidInput))

	_, err = svc.ToggleSubscription(ctx, me.ID, "")
	assert.True(t, utils.IsErrorCode(err, utils.ErrInvalidInput))

	_, err = svc.ToggleSubscription(ctx, me.ID, uuid.NewString())
	assert.True(t, utils.IsErrorCode(err, utils.ErrNotFound))
}

func TestWatchHistory(t *testing.T) {
	ctx := context.Background()
	db := database.NewMemoryDB()
	svc := NewProfileService(db, logger.Discard())
	owner := seedUser(t, db, "owner")
	viewer := seedUser(t, db, "viewer")

	history, err := svc.WatchHistory(ctx, viewer.ID)
	require.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)

	video := &models.Video{ID: uuid.NewString(), Title: "intro", Owner: owner.ID}
	require.NoError(t, db.SaveVideo(ctx, video))

	require.NoError(t, svc.RecordWatch(ctx, viewer.ID, video.ID))
	require.NoError(t, svc.RecordWatch(ctx, viewer.ID, video.ID))

	history, err = svc.WatchHistory(ctx, viewer.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "intro", history[0].Title)
	assert.Equal(t, "owner", history[0].Owner.Username)

	err = svc.RecordWatch(ctx, viewer.ID, " ")
	assert.True(t, utils.IsErrorCode(err, utils.ErrInvalidInput))
}
