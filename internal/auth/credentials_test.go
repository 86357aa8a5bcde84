package auth

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"videotube/internal/database"
	"videotube/internal/models"
	"videotube/internal/utils"
)

func newAlice() NewUser {
	return NewUser{
		Username: "alice",
		Email:    "alice@x.com",
		Fullname: "Alice Liddell",
		Password: "pw1",
		Avatar:   "http://cdn.test/alice.png",
	}
}

func TestCreateUserReturnsSanitizedProjection(t *testing.T) {
	ctx := context.Background()
	db := database.NewMemoryDB()
	store := NewCredentialStore(db, bcrypt.MinCost)

	created, err := store.CreateUser(ctx, newAlice())
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "alice", created.Username)
	assert.Equal(t, []string{}, created.WatchHistory)

	stored, err := db.GetUserByID(ctx, created.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "pw1", stored.PasswordHash)
	assert.True(t, store.VerifyPassword(stored, "pw1"))
	assert.Empty(t, stored.RefreshToken)
}

func TestCreateUserRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	db := database.NewMemoryDB()
	store := NewCredentialStore(db, bcrypt.MinCost)

	_, err := store.CreateUser(ctx, newAlice())
	require.NoError(t, err)

	sameEmail := newAlice()
	sameEmail.Username = "alice2"
	_, err = store.CreateUser(ctx, sameEmail)
	assert.True(t, utils.IsErrorCode(err, utils.ErrDuplicate))

	sameName := newAlice()
	sameName.Email = "other@x.com"
	_, err = store.CreateUser(ctx, sameName)
	assert.True(t, utils.IsErrorCode(err, utils.ErrDuplicate))

	_, err = store.FindByIdentifier(ctx, "alice2", "")
	assert.True(t, utils.IsErrorCode(err, utils.ErrUserNotFound))
}

func TestVerifyPasswordIsABooleanResult(t *testing.T) {
	ctx := context.Background()
	store := NewCredentialStore(database.NewMemoryDB(), bcrypt.MinCost)

	created, err := store.CreateUser(ctx, newAlice())
	require.NoError(t, err)
	user, err := store.FindByID(ctx, created.ID)
	require.NoError(t, err)

	assert.True(t, store.VerifyPassword(user, "pw1"))
	assert.False(t, store.VerifyPassword(user, "wrong"))
	assert.False(t, store.VerifyPassword(nil, "pw1"))
}

func TestUpdatePassword(t *testing.T) {
	ctx := context.Background()
	store := NewCredentialStore(database.NewMemoryDB(), bcrypt.MinCost)

	created, err := store.CreateUser(ctx, newAlice())
	require.NoError(t, err)

	require.NoError(t, store.UpdatePassword(ctx, created.ID, "pw2"))

	user, err := store.FindByIdentifier(ctx, "", "alice@x.com")
	require.NoError(t, err)
	assert.False(t, store.VerifyPassword(user, "pw1"))
	assert.True(t, store.VerifyPassword(user, "pw2"))

	err = store.UpdatePassword(ctx, "missing", "pw3")
	assert.True(t, utils.IsErrorCode(err, utils.ErrUserNotFound))
}

func TestNewCredentialStoreClampsCost(t *testing.T) {
	store := NewCredentialStore(database.NewMemoryDB(), 0)
	assert.Equal(t, bcrypt.DefaultCost, store.cost)
}

// lookupCounter counts identifier lookups on top of the memory store.
type lookupCounter struct {
	*database.MemoryDB
	lookups int
}

func (l *lookupCounter) FindUserByIdentifier(ctx context.Context, username, email string) (*models.User, error) {
	l.lookups++
	return l.MemoryDB.FindUserByIdentifier(ctx, username, email)
}

func TestCreateUserLeavesConflictsToTheStore(t *testing.T) {
	ctx := context.Background()
	db := &lookupCounter{MemoryDB: database.NewMemoryDB()}
	store := NewCredentialStore(db, bcrypt.MinCost)

	_, err := store.CreateUser(ctx, newAlice())
	require.NoError(t, err)
	_, err = store.CreateUser(ctx, newAlice())
	assert.True(t, utils.IsErrorCode(err, utils.ErrDuplicate))
	assert.Zero(t, db.lookups)
}

func TestLongPasswordIsInvalidInput(t *testing.T) {
	ctx := context.Background()
	db := database.NewMemoryDB()
	store := NewCredentialStore(db, bcrypt.MinCost)

	// 40 runes, 80 bytes
	long := newAlice()
	long.Password = strings.Repeat("é", 40)
	_, err := store.CreateUser(ctx, long)
	assert.True(t, utils.IsErrorCode(err, utils.ErrInvalidInput))

	created, err := store.CreateUser(ctx, newAlice())
	require.NoError(t, err)
	err = store.UpdatePassword(ctx, created.ID, strings.Repeat("é", 40))
	assert.True(t, utils.IsErrorCode(err, utils.ErrInvalidInput))
}
