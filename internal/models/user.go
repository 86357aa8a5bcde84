package models

import (
	"time"
)

// User is the stored account record. PasswordHash and RefreshToken never
// leave the process; handlers only ever serialize a PublicUser.
type User struct {
	ID           string    `json:"id" bson:"_id"`
	Username     string    `json:"username" bson:"username"`
	Email        string    `json:"email" bson:"email"`
	Fullname     string    `json:"fullname" bson:"fullname"`
	Avatar       string    `json:"avatar" bson:"avatar"`
	CoverImage   string    `json:"coverImage" bson:"coverImage"`
	PasswordHash string    `json:"-" bson:"password"`
	RefreshToken string    `json:"-" bson:"refreshToken,omitempty"`
	WatchHistory []string  `json:"watchHistory" bson:"watchHistory"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updatedAt"`
}

// PublicUser is the sanitized projection of a User.
type PublicUser struct {
	ID           string    `json:"_id" bson:"_id"`
	Username     string    `json:"username" bson:"username"`
	Email        string    `json:"email" bson:"email"`
	Fullname     string    `json:"fullname" bson:"fullname"`
	Avatar       string    `json:"avatar" bson:"avatar"`
	CoverImage   string    `json:"coverImage" bson:"coverImage"`
	WatchHistory []string  `json:"watchHistory" bson:"watchHistory"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Public strips credentials from the user.
func (u *User) Public() *PublicUser {
	history := u.WatchHistory
	if history == nil {
		history = []string{}
	}
	return &PublicUser{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		Fullname:     u.Fullname,
		Avatar:       u.Avatar,
		CoverImage:   u.CoverImage,
		WatchHistory: history,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// OwnerSummary is the trimmed owner profile attached to watch history entries.
type OwnerSummary struct {
	ID       string `json:"_id" bson:"_id"`
	Username string `json:"username" bson:"username"`
	Fullname string `json:"fullname" bson:"fullname"`
	Avatar   string `json:"avatar" bson:"avatar"`
}

// ChannelProfile is the public view of a channel with its subscription counts.
type ChannelProfile struct {
	ID                        string `json:"_id" bson:"_id"`
	Username                  string `json:"username" bson:"username"`
	Email                     string `json:"email" bson:"email"`
	Fullname                  string `json:"fullname" bson:"fullname"`
	Avatar                    string `json:"avatar" bson:"avatar"`
	CoverImage                string `json:"coverImage" bson:"coverImage"`
	SubscribersCount          int    `json:"subscribersCount" bson:"subscribersCount"`
	ChannelsSubscribedToCount int    `json:"channelsSubscribedToCount" bson:"channelsSubscribedToCount"`
	IsSubscribed              bool   `json:"isSubscribed" bson:"isSubscribed"`
}
