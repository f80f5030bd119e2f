package fetcher

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultsTimeout(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DefaultTimeout, New(0).timeout)
	assert.Equal(t, DefaultTimeout, New(-time.Second).timeout)
	assert.Equal(t, 5*time.Second, New(5*time.Second).timeout)
}

func TestFetchWritesFile(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodGet, "https://example.com/img-1.jpg",
		httpmock.NewBytesResponder(http.StatusOK, []byte("jpeg-bytes")))

	destPath := filepath.Join(t.TempDir(), "img-1.jpg")
	f := New(5 * time.Second)

	require.NoError(t, f.Fetch(context.Background(), "https://example.com/img-1.jpg", destPath))

	data, err := os.ReadFile(destPath)
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-bytes"), data)
}

func TestFetchNotFound(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodGet, "https://example.com/missing.jpg",
		httpmock.NewStringResponder(http.StatusNotFound, "not found"))

	destPath := filepath.Join(t.TempDir(), "missing.jpg")
	f := New(5 * time.Second)

	err := f.Fetch(context.Background(), "https://example.com/missing.jpg", destPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")

	_, statErr := os.Stat(destPath)
	assert.True(t, os.IsNotExist(statErr), "no file should be written on error status")
}

func TestFetchNetworkError(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodGet, "https://example.com/broken.jpg",
		httpmock.NewErrorResponder(assert.AnError))

	f := New(5 * time.Second)
	err := f.Fetch(context.Background(), "https://example.com/broken.jpg", filepath.Join(t.TempDir(), "broken.jpg"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "downloading image")
}

func TestFetchSendsUserAgent(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	var gotUserAgent string
	httpmock.RegisterResponder(http.MethodGet, "https://example.com/ua.jpg",
		func(req *http.Request) (*http.Response, error) {
			gotUserAgent = req.Header.Get("User-Agent")
			return httpmock.NewStringResponse(http.StatusOK, "ok"), nil
		})

	f := New(5 * time.Second)
	require.NoError(t, f.Fetch(context.Background(), "https://example.com/ua.jpg", filepath.Join(t.TempDir(), "ua.jpg")))
	assert.Equal(t, "SpeciesNet-Go", gotUserAgent)
}

func TestFetchInvalidURL(t *testing.T) {
	t.Parallel()

	f := New(5 * time.Second)
	err := f.Fetch(context.Background(), "://missing-scheme", filepath.Join(t.TempDir(), "bad.jpg"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "creating image request")
}
