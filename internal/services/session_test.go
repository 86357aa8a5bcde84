package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"videotube/internal/auth"
	"videotube/internal/config"
	"videotube/internal/database"
	"videotube/internal/logger"
	"videotube/internal/media"
	"videotube/internal/utils"
)

type mockMediaStore struct {
	mock.Mock
}

func (m *mockMediaStore) Upload(ctx context.Context, localPath string) (*media.Asset, error) {
	args := m.Called(ctx, localPath)
	asset, _ := args.Get(0).(*media.Asset)
	return asset, args.Error(1)
}

func (m *mockMediaStore) Delete(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}

type recordingJanitor struct {
	mu        sync.Mutex
	discarded []string
}

func (j *recordingJanitor) Discard(url string) {
	if url == "" {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.discarded = append(j.discarded, url)
}

type sessionFixture struct {
	svc     *SessionService
	db      *database.MemoryDB
	media   *mockMediaStore
	janitor *recordingJanitor
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	db := database.NewMemoryDB()
	store := &mockMediaStore{}
	janitor := &recordingJanitor{}
	tokens := auth.NewTokenService(&config.AuthConfig{
		AccessTokenSecret:  "access-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenSecret: "refresh-secret",
		RefreshTokenExpiry: 240 * time.Hour,
	})
	svc := NewSessionService(db, auth.NewCredentialStore(db, bcrypt.MinCost), tokens, store, janitor, logger.Discard())
	return &sessionFixture{svc: svc, db: db, media: store, janitor: janitor}
}

func strPtr(s string) *string { return &s }

func aliceInput() RegisterInput {
	return RegisterInput{Fullname: "Alice Liddell", Username: "Alice", Email: "alice@x.com", Password: "pw1"}
}

// registerAlice registers alice with an avatar served from cdn.test.
func (f *sessionFixture) registerAlice(t *testing.T) string {
	t.Helper()
	f.media.On("Upload", mock.Anything, "/tmp/alice-avatar.png").
		Return(&media.Asset{URL: "http://cdn.test/alice-avatar.png"}, nil).Once()

	user, err := f.svc.Register(context.Background(), aliceInput(), UploadResult{AvatarPath: strPtr("/tmp/alice-avatar.png")})
	require.NoError(t, err)
	return user.ID
}

func TestRegister(t *testing.T) {
	f := newSessionFixture(t)
	f.media.On("Upload", mock.Anything, "/tmp/avatar.png").Return(&media.Asset{URL: "http://cdn.test/avatar.png"}, nil)
	f.media.On("Upload", mock.Anything, "/tmp/cover.png").Return(nil, errors.New("storage down"))

	user, err := f.svc.Register(context.Background(), RegisterInput{
		Fullname: "  Alice Liddell ",
		Username: " Alice ",
		Email:    "Alice@X.com",
		Password: "pw1",
	}, UploadResult{AvatarPath: strPtr("/tmp/avatar.png"), CoverImagePath: strPtr("/tmp/cover.png")})
	require.NoError(t, err)

	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "alice@x.com", user.Email)
	assert.Equal(t, "Alice Liddell", user.Fullname)
	assert.Equal(t, "http://cdn.test/avatar.png", user.Avatar)
	assert.Empty(t, user.CoverImage)

	stored, err := f.db.GetUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "pw1", stored.PasswordHash)
	assert.Empty(t, stored.RefreshToken)
}

func TestRegisterDuplicateCreatesNothing(t *testing.T) {
	f := newSessionFixture(t)
	f.registerAlice(t)

	dup := aliceInput()
	dup.Username = "alice2"
	_, err := f.svc.Register(context.Background(), dup, UploadResult{AvatarPath: strPtr("/tmp/other.png")})
	assert.True(t, utils.IsErrorCode(err, utils.ErrDuplicate))
	assert.Equal(t, 409, utils.AppErrorToHTTPStatus(utils.ErrDuplicate))

	_, err = f.db.FindUserByIdentifier(context.Background(), "alice2", "")
	assert.True(t, utils.IsErrorCode(err, utils.ErrUserNotFound))
	f.media.AssertNotCalled(t, "Upload", mock.Anything, "/tmp/other.png")
}

func TestRegisterValidation(t *testing.T) {
	f := newSessionFixture(t)

	cases := map[string]func(in *RegisterInput){
		"blank fullname":  func(in *RegisterInput) { in.Fullname = "   " },
		"blank password":  func(in *RegisterInput) { in.Password = "  " },
		"missing email":   func(in *RegisterInput) { in.Email = "" },
		"no at sign":      func(in *RegisterInput) { in.Email = "alice.x.com" },
		"two at signs":    func(in *RegisterInput) { in.Email = "a@b@x.com" },
		"empty local":     func(in *RegisterInput) { in.Email = "@x.com" },
		"empty domain":    func(in *RegisterInput) { in.Email = "alice@" },
		"overlong secret": func(in *RegisterInput) { in.Password = string(make([]byte, 80)) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := aliceInput()
			mutate(&in)
			_, err := f.svc.Register(context.Background(), in, UploadResult{AvatarPath: strPtr("/tmp/a.png")})
			assert.True(t, utils.IsErrorCode(err, utils.ErrInvalidInput), "got %v", err)
		})
	}
	f.media.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
}

func TestRegisterRequiresAvatar(t *testing.T) {
	f := newSessionFixture(t)

	_, err := f.svc.Register(context.Background(), aliceInput(), UploadResult{})
	assert.True(t, utils.IsErrorCode(err, utils.ErrMediaRequired))

	f.media.On("Upload", mock.Anything, "/tmp/broken.png").Return(nil, errors.New("storage down"))
	_, err = f.svc.Register(context.Background(), aliceInput(), UploadResult{AvatarPath: strPtr("/tmp/broken.png")})
	assert.True(t, utils.IsErrorCode(err, utils.ErrMediaRequired))

	_, err = f.db.FindUserByIdentifier(context.Background(), "alice", "")
	assert.True(t, utils.IsErrorCode(err, utils.ErrUserNotFound))
}

func TestLoginRotatesStoredRefreshToken(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	id := f.registerAlice(t)

	first, err := f.svc.Login(ctx, LoginInput{Username: "alice", Password: "pw1"})
	require.NoError(t, err)
	assert.Equal(t, id, first.User.ID)
	assert.NotEmpty(t, first.AccessToken)

	stored, err := f.db.GetUserByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, first.RefreshToken, stored.RefreshToken)

	second, err := f.svc.Login(ctx, LoginInput{Email: "ALICE@x.com", Password: "pw1"})
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	stored, err = f.db.GetUserByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, second.RefreshToken, stored.RefreshToken)
}

func TestLoginFailures(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	f.registerAlice(t)

	_, err := f.svc.Login(ctx, LoginInput{Password: "pw1"})
	assert.True(t, utils.IsErrorCode(err, utils.ErrInvalidInput))

	_, err = f.svc.Login(ctx, LoginInput{Username: "bob", Password: "pw1"})
	assert.True(t, utils.IsErrorCode(err, utils.ErrUserNotFound))

	_, err = f.svc.Login(ctx, LoginInput{Username: "alice", Password: "wrong"})
	assert.True(t, utils.IsErrorCode(err, utils.ErrInvalidCredentials))
	assert.True(t, utils.IsAuthError(err))
}

func TestRefreshRejectsRotatedOutToken(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	f.registerAlice(t)

	first, err := f.svc.Login(ctx, LoginInput{Username: "alice", Password: "pw1"})
	require.NoError(t, err)

	rotated, err := f.svc.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, rotated.RefreshToken)

	// Signature and expiry are still fine, but it is no longer the stored token.
	_, err = f.svc.Refresh(ctx, first.RefreshToken)
	assert.True(t, utils.IsAuthError(err))

	_, err = f.svc.Refresh(ctx, rotated.RefreshToken)
	assert.NoError(t, err)
}

func TestRefreshRejectsMissingAndForgedTokens(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	f.registerAlice(t)

	login, err := f.svc.Login(ctx, LoginInput{Username: "alice", Password: "pw1"})
	require.NoError(t, err)

	_, err = f.svc.Refresh(ctx, "")
	assert.True(t, utils.IsErrorCode(err, utils.ErrUnauthorized))

	_, err = f.svc.Refresh(ctx, "garbage")
	assert.True(t, utils.IsErrorCode(err, utils.ErrInvalidToken))

	// An access token must not work as a refresh token.
	_, err = f.svc.Refresh(ctx, login.AccessToken)
	assert.True(t, utils.IsErrorCode(err, utils.ErrInvalidToken))
}

func TestLogoutInvalidatesRefresh(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	id := f.registerAlice(t)

	login, err := f.svc.Login(ctx, LoginInput{Username: "alice", Password: "pw1"})
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, id))
	require.NoError(t, f.svc.Logout(ctx, id))

	stored, err := f.db.GetUserByID(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, stored.RefreshToken)

	_, err = f.svc.Refresh(ctx, login.RefreshToken)
	assert.True(t, utils.IsAuthError(err))
}

func TestChangePassword(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	id := f.registerAlice(t)

	login, err := f.svc.Login(ctx, LoginInput{Username: "alice", Password: "pw1"})
	require.NoError(t, err)

	err = f.svc.ChangePassword(ctx, id, ChangePasswordInput{OldPassword: "nope", NewPassword: "pw2"})
	assert.True(t, utils.IsErrorCode(err, utils.ErrInvalidCredentials))

	require.NoError(t, f.svc.ChangePassword(ctx, id, ChangePasswordInput{OldPassword: "pw1", NewPassword: "pw2"}))

	_, err = f.svc.Login(ctx, LoginInput{Username: "alice", Password: "pw1"})
	assert.True(t, utils.IsAuthError(err))

	// The refresh token issued before the change is left alone.
	stored, err := f.db.GetUserByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, login.RefreshToken, stored.RefreshToken)

	_, err = f.svc.Login(ctx, LoginInput{Username: "alice", Password: "pw2"})
	assert.NoError(t, err)
}

func TestCurrentUserAndUpdateAccount(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	id := f.registerAlice(t)

	f.media.On("Upload", mock.Anything, "/tmp/bob.png").Return(&media.Asset{URL: "http://cdn.test/bob.png"}, nil)
	_, err := f.svc.Register(ctx, RegisterInput{Fullname: "Bob", Username: "bob", Email: "bob@x.com", Password: "pw"},
		UploadResult{AvatarPath: strPtr("/tmp/bob.png")})
	require.NoError(t, err)

	me, err := f.svc.CurrentUser(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "alice", me.Username)

	updated, err := f.svc.UpdateAccount(ctx, id, UpdateAccountInput{Fullname: "Alice L.", Email: " NEW@x.com "})
	require.NoError(t, err)
	assert.Equal(t, "Alice L.", updated.Fullname)
	assert.Equal(t, "new@x.com", updated.Email)

	_, err = f.svc.UpdateAccount(ctx, id, UpdateAccountInput{Fullname: "Alice", Email: "bob@x.com"})
	assert.True(t, utils.IsErrorCode(err, utils.ErrDuplicate))

	_, err = f.svc.UpdateAccount(ctx, id, UpdateAccountInput{Fullname: "", Email: "a@x.com"})
	assert.True(t, utils.IsErrorCode(err, utils.ErrInvalidInput))
}

func TestUpdateAvatarDiscardsPreviousMedia(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	id := f.registerAlice(t)

	f.media.On("Upload", mock.Anything, "/tmp/new-avatar.png").Return(&media.Asset{URL: "http://cdn.test/new-avatar.png"}, nil)

	updated, err := f.svc.UpdateAvatar(ctx, id, "/tmp/new-avatar.png")
	require.NoError(t, err)
	assert.Equal(t, "http://cdn.test/new-avatar.png", updated.Avatar)
	assert.Equal(t, []string{"http://cdn.test/alice-avatar.png"}, f.janitor.discarded)
}

func TestUpdateCoverImage(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	id := f.registerAlice(t)

	_, err := f.svc.UpdateCoverImage(ctx, id, "")
	assert.True(t, utils.IsErrorCode(err, utils.ErrMediaRequired))

	f.media.On("Upload", mock.Anything, "/tmp/fail.png").Return(nil, errors.New("storage down")).Once()
	_, err = f.svc.UpdateCoverImage(ctx, id, "/tmp/fail.png")
	assert.True(t, utils.IsErrorCode(err, utils.ErrMediaUploadFailed))

	f.media.On("Upload", mock.Anything, "/tmp/cover.png").Return(&media.Asset{URL: "http://cdn.test/cover.png"}, nil)
	updated, err := f.svc.UpdateCoverImage(ctx, id, "/tmp/cover.png")
	require.NoError(t, err)
	assert.Equal(t, "http://cdn.test/cover.png", updated.CoverImage)

	// There was no previous cover, so nothing to discard.
	assert.Empty(t, f.janitor.discarded)
}

func TestRegisterRejectsPasswordOverBcryptLimit(t *testing.T) {
	f := newSessionFixture(t)

	in := aliceInput()
	in.Password = strings.Repeat("é", 40) // 40 runes, 80 bytes
	_, err := f.svc.Register(context.Background(), in, UploadResult{AvatarPath: strPtr("/tmp/avatar.png")})

	require.Error(t, err)
	assert.True(t, utils.IsErrorCode(err, utils.ErrInvalidInput))
	f.media.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
	assert.Empty(t, f.janitor.discarded)
}

func TestChangePasswordValidatesNewPassword(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	id := f.registerAlice(t)

	err := f.svc.ChangePassword(ctx, id, ChangePasswordInput{OldPassword: "pw1", NewPassword: "   "})
	assert.True(t, utils.IsErrorCode(err, utils.ErrInvalidInput))

	err = f.svc.ChangePassword(ctx, id, ChangePasswordInput{OldPassword: "pw1", NewPassword: strings.Repeat("é", 40)})
	assert.True(t, utils.IsErrorCode(err, utils.ErrInvalidInput))

	_, err = f.svc.Login(ctx, LoginInput{Username: "alice", Password: "pw1"})
	assert.NoError(t, err)
}
