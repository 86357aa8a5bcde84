package services

import (
	"videotube/internal/auth"
	"videotube/internal/models"
)

// RegisterInput holds the text fields of a registration form
type RegisterInput struct {
	Fullname string `json:"fullname" validate:"required,max=100"`
	Username string `json:"username" validate:"required,max=50"`
	Email    string `json:"email" validate:"required,max=254,mailbox"`
	Password string `json:"password" validate:"required,pwbytes"`
}

// UploadResult lists the files the transport layer staged on disk.
// A nil path means the field was not sent.
type UploadResult struct {
	AvatarPath     *string
	CoverImagePath *string
}

// LoginInput accepts either a username or an email
type LoginInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password" validate:"required"`
}

// LoginResult is returned in the body as well as through cookies.
type LoginResult struct {
	User *models.PublicUser `json:"user"`
	auth.TokenPair
}

type ChangePasswordInput struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,pwbytes"`
}

type UpdateAccountInput struct {
	Fullname string `json:"fullname" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,max=254,mailbox"`
}

// MediaJanitor disposes of media that is no longer referenced. It must not block.
type MediaJanitor interface {
	Discard(url string)
}
