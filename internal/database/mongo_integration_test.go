package database

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
)

// TestMongoDBContract runs the store contract against a real MongoDB in a
// container. Skipped with -short or when no container runtime is reachable.
func TestMongoDBContract(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping MongoDB integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)
	testcontainers.CleanupContainer(t, container)

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	runStoreContract(t, func(t *testing.T) DBAdapter {
		// A fresh database per subtest keeps the unique indexes but not the data.
		db, err := NewMongoDB(ctx, uri, "videotube_test_"+uuid.NewString()[:8])
		require.NoError(t, err)
		t.Cleanup(func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = db.Users.Database().Drop(closeCtx)
			_ = db.Close(closeCtx)
		})
		return db
	})
}
