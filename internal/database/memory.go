// internal/database/memory.go
package database

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"videotube/internal/models"
	"videotube/internal/utils"
)

type subscriptionKey struct {
	subscriber string
	channel    string
}

// MemoryDB is an in-process DBAdapter with the same uniqueness and
// not-found behavior as MongoDB. It is safe for concurrent use.
type MemoryDB struct {
	mu            sync.RWMutex
	users         map[string]*models.User
	subscriptions map[subscriptionKey]*models.Subscription
	videos        map[string]*models.Video
}

func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		users:         make(map[string]*models.User),
		subscriptions: make(map[subscriptionKey]*models.Subscription),
		videos:        make(map[string]*models.Video),
	}
}

func (m *MemoryDB) Ping(ctx context.Context) error  { return nil }
func (m *MemoryDB) Close(ctx context.Context) error { return nil }

func copyUser(u *models.User) *models.User {
	c := *u
	c.WatchHistory = append([]string{}, u.WatchHistory...)
	return &c
}

func (m *MemoryDB) CreateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.users[user.ID]; exists {
		return utils.NewConflictError("User with email or username already exists")
	}
	for _, u := range m.users {
		if u.Username == user.Username || u.Email == user.Email {
			return utils.NewConflictError("User with email or username already exists")
		}
	}
	if user.WatchHistory == nil {
		user.WatchHistory = []string{}
	}
	m.users[user.ID] = copyUser(user)
	return nil
}

func (m *MemoryDB) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, utils.NewUserNotFoundError(id)
	}
	return copyUser(u), nil
}

func (m *MemoryDB) FindUserByIdentifier(ctx context.Context, username, email string) (*models.User, error) {
	if username == "" && email == "" {
		return nil, utils.NewValidationError("username or email is required")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if (username != "" && u.Username == username) || (email != "" && u.Email == email) {
			return copyUser(u), nil
		}
	}
	return nil, utils.NewUserNotFoundError(username + email)
}

// mutate applies fn to the stored user under the write lock.
func (m *MemoryDB) mutate(userID string, fn func(u *models.User) error) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return nil, utils.NewUserNotFoundError(userID)
	}
	if err := fn(u); err != nil {
		return nil, err
	}
	u.UpdatedAt = time.Now()
	return copyUser(u), nil
}

func (m *MemoryDB) SetRefreshToken(ctx context.Context, userID, token string) error {
	_, err := m.mutate(userID, func(u *models.User) error {
		u.RefreshToken = token
		return nil
	})
	return err
}

func (m *MemoryDB) UpdatePasswordHash(ctx context.Context, userID, hash string) error {
	_, err := m.mutate(userID, func(u *models.User) error {
		u.PasswordHash = hash
		return nil
	})
	return err
}

func (m *MemoryDB) UpdateAccount(ctx context.Context, userID, fullname, email string) (*models.User, error) {
	return m.mutate(userID, func(u *models.User) error {
		for id, other := range m.users {
			if id != userID && other.Email == email {
				return utils.NewConflictError("Email is already in use")
			}
		}
		u.Fullname = fullname
		u.Email = email
		return nil
	})
}

func (m *MemoryDB) UpdateAvatar(ctx context.Context, userID, url string) (*models.User, error) {
	return m.mutate(userID, func(u *models.User) error {
		u.Avatar = url
		return nil
	})
}

func (m *MemoryDB) UpdateCoverImage(ctx context.Context, userID, url string) (*models.User, error) {
	return m.mutate(userID, func(u *models.User) error {
		u.CoverImage = url
		return nil
	})
}

func (m *MemoryDB) GetChannelProfile(ctx context.Context, username, viewerID string) (*models.ChannelProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var channel *models.User
	for _, u := range m.users {
		if u.Username == username {
			channel = u
			break
		}
	}
	if channel == nil {
		return nil, utils.NewAppError(utils.ErrNotFound, "Channel does not exist", nil)
	}

	profile := &models.ChannelProfile{
		ID:         channel.ID,
		Username:   channel.Username,
		Email:      channel.Email,
		Fullname:   channel.Fullname,
		Avatar:     channel.Avatar,
		CoverImage: channel.CoverImage,
	}
	for key := range m.subscriptions {
		if key.channel == channel.ID {
			profile.SubscribersCount++
			if key.subscriber == viewerID {
				profile.IsSubscribed = true
			}
		}
		if key.subscriber == channel.ID {
			profile.ChannelsSubscribedToCount++
		}
	}
	return profile, nil
}

func (m *MemoryDB) ToggleSubscription(ctx context.Context, subscriberID, channelID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[channelID]; !ok {
		return false, utils.NewAppError(utils.ErrNotFound, "Channel does not exist", nil)
	}

	key := subscriptionKey{subscriber: subscriberID, channel: channelID}
	if _, ok := m.subscriptions[key]; ok {
		delete(m.subscriptions, key)
		return false, nil
	}

	now := time.Now()
	m.subscriptions[key] = &models.Subscription{
		ID:         uuid.NewString(),
		Subscriber: subscriberID,
		Channel:    channelID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return true, nil
}

func (m *MemoryDB) SaveVideo(ctx context.Context, video *models.Video) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := *video
	m.videos[video.ID] = &v
	return nil
}

func (m *MemoryDB) GetVideo(ctx context.Context, id string) (*models.Video, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.videos[id]
	if !ok {
		return nil, utils.NewAppError(utils.ErrNotFound, "Video does not exist", nil)
	}
	c := *v
	return &c, nil
}

func (m *MemoryDB) AddToWatchHistory(ctx context.Context, userID, videoID string) error {
	if _, err := m.GetVideo(ctx, videoID); err != nil {
		return err
	}

	_, err := m.mutate(userID, func(u *models.User) error {
		history := make([]string, 0, len(u.WatchHistory)+1)
		history = append(history, videoID)
		for _, id := range u.WatchHistory {
			if id != videoID {
				history = append(history, id)
			}
		}
		u.WatchHistory = history
		return nil
	})
	return err
}

func (m *MemoryDB) GetWatchHistory(ctx context.Context, userID string) ([]models.WatchedVideo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[userID]
	if !ok {
		return nil, utils.NewUserNotFoundError(userID)
	}

	watched := make([]models.WatchedVideo, 0, len(u.WatchHistory))
	for _, id := range u.WatchHistory {
		v, ok := m.videos[id]
		if !ok {
			continue
		}
		entry := models.WatchedVideo{
			ID:          v.ID,
			VideoFile:   v.VideoFile,
			Thumbnail:   v.Thumbnail,
			Title:       v.Title,
			Description: v.Description,
			Duration:    v.Duration,
			Views:       v.Views,
			IsPublished: v.IsPublished,
			CreatedAt:   v.CreatedAt,
		}
		if owner, ok := m.users[v.Owner]; ok {
			entry.Owner = &models.OwnerSummary{
				ID:       owner.ID,
				Username: owner.Username,
				Fullname: owner.Fullname,
				Avatar:   owner.Avatar,
			}
		}
		watched = append(watched, entry)
	}
	return watched, nil
}
