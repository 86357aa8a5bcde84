// internal/services/session.go
package services

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"strings"

	"videotube/internal/auth"
	"videotube/internal/database"
	"videotube/internal/media"
	"videotube/internal/models"
	"videotube/internal/utils"
)

// SessionService drives registration, login, logout, token refresh and the
// account mutations that need an authenticated user.
type SessionService struct {
	creds    *auth.CredentialStore
	tokens   *auth.TokenService
	users    database.UserStore
	media    media.Store
	janitor  MediaJanitor
	validate *Validator
	log      *slog.Logger
}

func NewSessionService(
	users database.UserStore,
	creds *auth.CredentialStore,
	tokens *auth.TokenService,
	store media.Store,
	janitor MediaJanitor,
	log *slog.Logger,
) *SessionService {
	return &SessionService{
		creds:    creds,
		tokens:   tokens,
		users:    users,
		media:    store,
		janitor:  janitor,
		validate: NewValidator(),
		log:      log.With("component", "session"),
	}
}

// Register creates an account. The avatar is mandatory; a failed cover image
// upload leaves the cover empty.
func (s *SessionService) Register(ctx context.Context, in RegisterInput, files UploadResult) (*models.PublicUser, error) {
	in.Fullname = strings.TrimSpace(in.Fullname)
	in.Username = strings.ToLower(strings.TrimSpace(in.Username))
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if strings.TrimSpace(in.Password) == "" {
		in.Password = ""
	}

	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	existing, err := s.creds.FindByIdentifier(ctx, in.Username, in.Email)
	if err == nil && existing != nil {
		return nil, utils.NewConflictError("User already exists")
	}
	if err != nil && !utils.IsErrorCode(err, utils.ErrUserNotFound) {
		return nil, err
	}

	if files.AvatarPath == nil || *files.AvatarPath == "" {
		return nil, utils.NewAppError(utils.ErrMediaRequired, "Avatar is required", nil)
	}

	avatar, err := s.media.Upload(ctx, *files.AvatarPath)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrMediaRequired, "Avatar is required", err)
	}

	var coverURL string
	if files.CoverImagePath != nil && *files.CoverImagePath != "" {
		cover, err := s.media.Upload(ctx, *files.CoverImagePath)
		if err != nil {
			s.log.Warn("cover image upload failed, continuing without it", "username", in.Username, "error", err)
		} else {
			coverURL = cover.URL
		}
	}

	created, err := s.creds.CreateUser(ctx, auth.NewUser{
		Username:   in.Username,
		Email:      in.Email,
		Fullname:   in.Fullname,
		Password:   in.Password,
		Avatar:     avatar.URL,
		CoverImage: coverURL,
	})
	if err != nil {
		// Nothing references the fresh uploads yet
		s.janitor.Discard(avatar.URL)
		s.janitor.Discard(coverURL)
		return nil, err
	}

	s.log.Info("user registered", "user_id", created.ID, "username", created.Username)
	return created, nil
}

// Login verifies credentials and rotates the stored refresh token.
func (s *SessionService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	username := strings.ToLower(strings.TrimSpace(in.Username))
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if username == "" && email == "" {
		return nil, utils.NewValidationError("Username or email is required")
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	user, err := s.creds.FindByIdentifier(ctx, username, email)
	if err != nil {
		if utils.IsErrorCode(err, utils.ErrUserNotFound) {
			return nil, utils.NewAppError(utils.ErrUserNotFound, "User does not exist", nil)
		}
		return nil, err
	}

	if !s.creds.VerifyPassword(user, in.Password) {
		return nil, utils.NewAppError(utils.ErrInvalidCredentials, "Invalid user credentials", nil)
	}

	pair, err := s.issueAndStore(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	s.log.Info("user logged in", "user_id", user.ID)
	return &LoginResult{User: user.Public(), TokenPair: pair}, nil
}

// issueAndStore mints a new pair and overwrites the stored refresh token.
// Concurrent calls for one user are last-writer-wins.
func (s *SessionService) issueAndStore(ctx context.Context, userID string) (auth.TokenPair, error) {
	pair, err := s.tokens.IssuePair(userID)
	if err != nil {
		return auth.TokenPair{}, err
	}
	if err := s.users.SetRefreshToken(ctx, userID, pair.RefreshToken); err != nil {
		return auth.TokenPair{}, err
	}
	return pair, nil
}

// Logout clears the stored refresh token. Calling it twice is harmless.
func (s *SessionService) Logout(ctx context.Context, userID string) error {
	if err := s.users.SetRefreshToken(ctx, userID, ""); err != nil {
		return err
	}
	s.log.Info("user logged out", "user_id", userID)
	return nil
}

// Refresh exchanges the current refresh token for a new pair. A token that
// verifies but is not the stored one has been rotated out and is rejected.
func (s *SessionService) Refresh(ctx context.Context, presented string) (*auth.TokenPair, error) {
	presented = strings.TrimSpace(presented)
	if presented == "" {
		return nil, utils.NewUnauthorizedError("refresh token is missing")
	}

	claims, err := s.tokens.VerifyRefreshToken(presented)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if utils.IsErrorCode(err, utils.ErrUserNotFound) {
			return nil, utils.NewAppError(utils.ErrInvalidToken, "Invalid refresh token", nil)
		}
		return nil, err
	}

	if user.RefreshToken == "" || subtle.ConstantTimeCompare([]byte(user.RefreshToken), []byte(presented)) != 1 {
		s.log.Warn("rejected stale refresh token", "user_id", user.ID)
		return nil, utils.NewAppError(utils.ErrInvalidToken, "Refresh token is expired or used", nil)
	}

	pair, err := s.issueAndStore(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &pair, nil
}

// ChangePassword replaces the password. Existing sessions keep working.
func (s *SessionService) ChangePassword(ctx context.Context, userID string, in ChangePasswordInput) error {
	if strings.TrimSpace(in.NewPassword) == "" {
		in.NewPassword = ""
	}
	if err := s.validate.Struct(in); err != nil {
		return err
	}

	user, err := s.creds.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if !s.creds.VerifyPassword(user, in.OldPassword) {
		return utils.NewAppError(utils.ErrInvalidCredentials, "Invalid old password", nil)
	}

	return s.creds.UpdatePassword(ctx, userID, in.NewPassword)
}

func (s *SessionService) CurrentUser(ctx context.Context, userID string) (*models.PublicUser, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.Public(), nil
}

func (s *SessionService) UpdateAccount(ctx context.Context, userID string, in UpdateAccountInput) (*models.PublicUser, error) {
	in.Fullname = strings.TrimSpace(in.Fullname)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	user, err := s.users.UpdateAccount(ctx, userID, in.Fullname, in.Email)
	if err != nil {
		return nil, err
	}
	return user.Public(), nil
}

func (s *SessionService) UpdateAvatar(ctx context.Context, userID, localPath string) (*models.PublicUser, error) {
	return s.replaceMedia(ctx, userID, localPath, "avatar",
		func(u *models.User) string { return u.Avatar },
		s.users.UpdateAvatar,
	)
}

func (s *SessionService) UpdateCoverImage(ctx context.Context, userID, localPath string) (*models.PublicUser, error) {
	return s.replaceMedia(ctx, userID, localPath, "cover image",
		func(u *models.User) string { return u.CoverImage },
		s.users.UpdateCoverImage,
	)
}

// replaceMedia uploads the new file, stores its URL and hands the previous
// object to the janitor. Deleting the old object never fails the request.
func (s *SessionService) replaceMedia(
	ctx context.Context,
	userID, localPath, kind string,
	current func(*models.User) string,
	update func(ctx context.Context, userID, url string) (*models.User, error),
) (*models.PublicUser, error) {
	if localPath == "" {
		return nil, utils.NewAppError(utils.ErrMediaRequired, strings.ToUpper(kind[:1])+kind[1:]+" file is missing", nil)
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	previous := current(user)

	asset, err := s.media.Upload(ctx, localPath)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrMediaUploadFailed, "Error while uploading "+kind, err)
	}

	updated, err := update(ctx, userID, asset.URL)
	if err != nil {
		s.janitor.Discard(asset.URL)
		return nil, err
	}

	if previous != "" && previous != asset.URL {
		s.janitor.Discard(previous)
	}

	s.log.Info("media replaced", "user_id", userID, "kind", kind)
	return updated.Public(), nil
}
