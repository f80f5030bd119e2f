// Package fetcher downloads camera-trap images into the batch workspace.
package fetcher

import (
	"context"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/tphakala/speciesnet-go/internal/errors"
)

// DefaultTimeout bounds a single image download.
const DefaultTimeout = 20 * time.Second

const userAgent = "SpeciesNet-Go"

// Fetcher retrieves images by URL with a bounded timeout.
type Fetcher struct {
	httpClient *http.Client
	timeout    time.Duration
}

// New creates a Fetcher with the given per-download timeout. A zero or
// negative timeout falls back to DefaultTimeout.
func New(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Fetcher{
		httpClient: &http.Client{},
		timeout:    timeout,
	}
}

// Fetch downloads url into destPath. A non-success status is an error and a
// partially written file is removed.
func (f *Fetcher) Fetch(ctx context.Context, url, destPath string) error {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return errors.Newf("creating image request: %w", err).
			Category(errors.CategoryImageFetch).
			Context("url", url).
			Component("fetcher").
			Build()
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return errors.Newf("downloading image: %w", err).
			Category(errors.CategoryImageFetch).
			Context("url", url).
			Context("timeout_seconds", f.timeout.Seconds()).
			Component("fetcher").
			Build()
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Newf("image download returned status %d", resp.StatusCode).
			Category(errors.CategoryImageFetch).
			Context("url", url).
			Context("status_code", resp.StatusCode).
			Component("fetcher").
			Build()
	}

	out, err := os.Create(destPath)
	if err != nil {
		return errors.Newf("creating image file: %w", err).
			Category(errors.CategoryFileIO).
			Context("path", destPath).
			Component("fetcher").
			Build()
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = out.Close()
		_ = os.Remove(destPath)
		return errors.Newf("writing image file: %w", err).
			Category(errors.CategoryFileIO).
			Context("path", destPath).
			Context("url", url).
			Component("fetcher").
			Build()
	}

	if err := out.Close(); err != nil {
		_ = os.Remove(destPath)
		return errors.Newf("closing image file: %w", err).
			Category(errors.CategoryFileIO).
			Context("path", destPath).
			Component("fetcher").
			Build()
	}

	return nil
}
