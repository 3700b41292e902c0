// Package fetch downloads installer artifacts over HTTPS. The primary client
// retries transient failures with backoff; a plain client takes one last shot
// when the retrying client gives up. Downloads land in a temp file next to
// the destination and are renamed into place, so a partial download never
// leaves a half-written artifact behind.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"comfyctl/pkg/logging"

	"github.com/hashicorp/go-retryablehttp"
)

const fetchSubsystem = "Fetch"

const (
	retryMax        = 3
	downloadTimeout = 10 * time.Minute
)

// DownloadError reports that an artifact could not be fetched by either
// client.
type DownloadError struct {
	URL string
	Err error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("failed to download %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// Fetcher downloads a URL to a local path.
type Fetcher interface {
	Download(ctx context.Context, url, destPath string) error
}

// HTTPFetcher implements Fetcher over HTTP(S).
type HTTPFetcher struct {
	retrying *retryablehttp.Client
	fallback *http.Client
}

// New creates a fetcher with the default clients.
func New() *HTTPFetcher {
	rc := retryablehttp.NewClient()
	rc.RetryMax = retryMax
	rc.HTTPClient.Timeout = downloadTimeout
	rc.Logger = nil // comfyctl does its own logging

	return &HTTPFetcher{
		retrying: rc,
		fallback: &http.Client{Timeout: downloadTimeout},
	}
}

// Download fetches url into destPath. The retrying client goes first; if it
// exhausts its attempts the plain client tries once more before the download
// is declared failed.
func (f *HTTPFetcher) Download(ctx context.Context, url, destPath string) error {
	logging.Info(fetchSubsystem, "Downloading %s", url)

	primaryErr := f.downloadRetrying(ctx, url, destPath)
	if primaryErr == nil {
		return nil
	}
	logging.Warn(fetchSubsystem, "Retrying client failed for %s: %v, trying plain client", url, primaryErr)

	if fallbackErr := f.downloadPlain(ctx, url, destPath); fallbackErr != nil {
		return &DownloadError{URL: url, Err: fmt.Errorf("primary: %v; fallback: %w", primaryErr, fallbackErr)}
	}
	return nil
}

func (f *HTTPFetcher) downloadRetrying(ctx context.Context, url, destPath string) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", url, err)
	}

	resp, err := f.retrying.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: HTTP %d", url, resp.StatusCode)
	}

	return writeToFile(resp.Body, destPath)
}

func (f *HTTPFetcher) downloadPlain(ctx context.Context, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", url, err)
	}

	resp, err := f.fallback.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: HTTP %d", url, resp.StatusCode)
	}

	return writeToFile(resp.Body, destPath)
}

// writeToFile streams body into destPath via a temp file and atomic rename.
func writeToFile(body io.Reader, destPath string) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), filepath.Base(destPath)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := io.Copy(tmpFile, body); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write download: %w", err)
	}

	// The artifact is an installer script; make it executable.
	if err := tmpFile.Chmod(0o755); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set file mode: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to move download into place: %w", err)
	}
	return nil
}
