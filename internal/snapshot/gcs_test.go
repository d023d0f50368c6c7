package snapshot_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	gcs "cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/startuplens/ycscout/internal/snapshot"
)

// newTestGCSStore points a store at a fake GCS JSON API server.
func newTestGCSStore(t *testing.T, handler http.Handler) *snapshot.GCSStore {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := gcs.NewClient(context.Background(), option.WithEndpoint(server.URL), option.WithoutAuthentication())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	store, err := snapshot.NewGCSWithClient(client, "test-bucket")
	require.NoError(t, err)
	return store
}

func TestGCSStorePut(t *testing.T) {
	objectName := "2026-05-11/listing.html"
	objectData := []byte("<html>rows</html>")

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/upload/storage/v1/b/test-bucket/o")
		assert.Equal(t, objectName, r.URL.Query().Get("name"))
		assert.Equal(t, "multipart", r.URL.Query().Get("uploadType"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), string(objectData))
		assert.Contains(t, string(body), "text/html")

		fmt.Fprintln(w, `{ "name": "`+objectName+`" }`)
	})

	store := newTestGCSStore(t, handler)

	uri, err := store.Put(context.Background(), objectName, objectData)
	require.NoError(t, err)
	assert.Equal(t, "gs://test-bucket/2026-05-11/listing.html", uri)
}

func TestGCSStorePutServerError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	store := newTestGCSStore(t, handler)

	_, err := store.Put(context.Background(), "listing.html", []byte("<html></html>"))
	assert.Error(t, err)
}

func TestGCSStorePutRequiresName(t *testing.T) {
	store := newTestGCSStore(t, http.NotFoundHandler())

	_, err := store.Put(context.Background(), "  ", []byte("x"))
	require.Error(t, err)
}

func TestNewGCSWithClientValidates(t *testing.T) {
	t.Parallel()

	_, err := snapshot.NewGCSWithClient(nil, "test-bucket")
	require.Error(t, err)

	client, err := gcs.NewClient(context.Background(), option.WithoutAuthentication())
	require.NoError(t, err)
	defer client.Close()

	_, err = snapshot.NewGCSWithClient(client, "")
	require.Error(t, err)

	store, err := snapshot.NewGCSWithClient(client, "test-bucket")
	require.NoError(t, err)
	require.NoError(t, store.Close())
}
