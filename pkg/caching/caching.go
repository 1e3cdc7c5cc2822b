// Package caching keeps national extract files on local disk. A file that exists is
// a cache hit; there is no expiry.
package caching

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dtnitsch/osm-extracts/pkg/fetcher"
	"github.com/dtnitsch/osm-extracts/pkg/metrics"
	"github.com/dtnitsch/osm-extracts/pkg/storage"
)

// chunkSize bounds memory while streaming a download to disk.
const chunkSize = 32 * 1024

// partialSuffix marks a download in progress; it is renamed into place on success.
const partialSuffix = ".part"

// DownloadError reports a failed national extract download.
type DownloadError struct {
	URL        string
	Path       string
	StatusCode int // 0 when no response was received
	Cause      error
}

func (e *DownloadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to download %s from %s: status code %d", e.Path, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("failed to download %s from %s: %v", e.Path, e.URL, e.Cause)
}

func (e *DownloadError) Unwrap() error {
	return e.Cause
}

// ExtractCache ensures extract files exist locally.
type ExtractCache struct {
	fetcher *fetcher.Fetcher
	storage *storage.Storage
	logger  *slog.Logger

	// Optional. Verify is run on a fresh download; a failure discards the file.
	Verify  func(path string) error
	Metrics *metrics.Metrics
}

func NewExtractCache(f *fetcher.Fetcher, logger *slog.Logger) *ExtractCache {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ExtractCache{
		fetcher: f,
		storage: &storage.Storage{},
		logger:  logger,
	}
}

// Ensure makes sure path exists, downloading it from sourceURL when missing.
// An existing file is never touched and costs no network call.
func (c *ExtractCache) Ensure(ctx context.Context, path, sourceURL string) error {
	if err := c.storage.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}

	if c.storage.HasFile(path) {
		c.logger.Info("OSM PBF file already exists", "path", path)
		c.Metrics.ObserveDownload(metrics.DownloadHit, 0)
		return nil
	}

	c.logger.Info("Downloading OSM PBF file", "path", path, "url", sourceURL)
	start := time.Now()
	written, err := c.download(ctx, path, sourceURL)
	if err != nil {
		c.Metrics.ObserveDownload(metrics.DownloadFailed, 0)
		return err
	}

	if c.Verify != nil {
		if verr := c.Verify(path); verr != nil {
			_ = os.Remove(path)
			c.Metrics.ObserveDownload(metrics.DownloadFailed, 0)
			return fmt.Errorf("downloaded file %s is not a valid extract: %w", path, verr)
		}
	}

	c.Metrics.ObserveDownload(metrics.DownloadDownloaded, written)
	c.logger.Info("OSM PBF file downloaded", "path", path, "bytes", written, "duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (c *ExtractCache) download(ctx context.Context, path, sourceURL string) (int64, error) {
	resp, err := c.fetcher.Open(ctx, sourceURL)
	if err != nil {
		return 0, &DownloadError{URL: sourceURL, Path: path, Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return 0, &DownloadError{URL: sourceURL, Path: path, StatusCode: resp.StatusCode}
	}

	tmp := path + partialSuffix
	f, err := os.Create(tmp)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", tmp, err)
	}

	// plain io.Writer so CopyBuffer uses our chunk buffer instead of os.File.ReadFrom
	written, copyErr := io.CopyBuffer(struct{ io.Writer }{f}, resp.Body, make([]byte, chunkSize))
	closeErr := f.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(tmp)
		if copyErr != nil {
			return 0, &DownloadError{URL: sourceURL, Path: path, Cause: copyErr}
		}
		return 0, fmt.Errorf("failed to write %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return 0, fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return written, nil
}
