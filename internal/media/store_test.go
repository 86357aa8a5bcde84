package media

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "videotube/internal/config"
	"videotube/internal/utils"
)

type recordedRequest struct {
	method string
	path   string
	body   string
}

// fakeS3 answers path-style PutObject and DeleteObject calls.
type fakeS3 struct {
	mu       sync.Mutex
	requests []recordedRequest
	status   int
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{method: r.Method, path: r.URL.Path, body: string(body)})
	status := f.status
	f.mu.Unlock()

	if status != 0 {
		w.WriteHeader(status)
		return
	}
	if r.Method == http.MethodDelete {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("ETag", `"abc"`)
	w.WriteHeader(http.StatusOK)
}

func (f *fakeS3) last() recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func newTestStore(t *testing.T, fake *fakeS3) *S3Store {
	t.Helper()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	store, err := NewS3Store(context.Background(), &appconfig.StorageConfig{
		Endpoint:  server.URL,
		Region:    "us-east-1",
		Bucket:    "videotube",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		PublicURL: "http://cdn.test/videotube",
	}, func(o *s3.Options) {
		o.RetryMaxAttempts = 1
	})
	require.NoError(t, err)
	return store
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestUploadPutsObjectAndRemovesLocalFile(t *testing.T) {
	fake := &fakeS3{}
	store := newTestStore(t, fake)
	path := writeTempFile(t, "avatar.PNG", "image-bytes")

	asset, err := store.Upload(context.Background(), path)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(asset.Key, "avatars/"))
	assert.True(t, strings.HasSuffix(asset.Key, ".png"))
	assert.Equal(t, "http://cdn.test/videotube/"+asset.Key, asset.URL)

	req := fake.last()
	assert.Equal(t, http.MethodPut, req.method)
	assert.Equal(t, "/videotube/"+asset.Key, req.path)
	assert.Contains(t, req.body, "image-bytes")

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestUploadFailureStillRemovesLocalFile(t *testing.T) {
	fake := &fakeS3{status: http.StatusInternalServerError}
	store := newTestStore(t, fake)
	path := writeTempFile(t, "cover.jpg", "image-bytes")

	_, err := store.Upload(context.Background(), path)
	require.Error(t, err)
	assert.True(t, utils.IsErrorCode(err, utils.ErrMediaUploadFailed))

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestUploadMissingFile(t *testing.T) {
	store := newTestStore(t, &fakeS3{})

	_, err := store.Upload(context.Background(), filepath.Join(t.TempDir(), "gone.png"))
	assert.True(t, utils.IsErrorCode(err, utils.ErrMediaUploadFailed))
}

func TestDeleteDerivesKeyFromURL(t *testing.T) {
	fake := &fakeS3{}
	store := newTestStore(t, fake)

	err := store.Delete(context.Background(), "http://cdn.test/videotube/avatars/2024/01/02/x.png")
	require.NoError(t, err)

	req := fake.last()
	assert.Equal(t, http.MethodDelete, req.method)
	assert.Equal(t, "/videotube/avatars/2024/01/02/x.png", req.path)
}

func TestDeleteRejectsForeignURLs(t *testing.T) {
	fake := &fakeS3{}
	store := newTestStore(t, fake)

	require.NoError(t, store.Delete(context.Background(), ""))

	err := store.Delete(context.Background(), "http://elsewhere.test/a.png")
	assert.True(t, utils.IsErrorCode(err, utils.ErrInvalidInput))
	assert.Empty(t, fake.requests)
}
