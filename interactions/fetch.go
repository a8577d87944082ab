package interactions

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/polyrisk/polyrisk-api/logging"
)

// Fetcher downloads source tables to their local paths before a build.
// Bodies are stored byte for byte; decoding happens when the table is read.
type Fetcher struct {
	client *http.Client
}

func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Fetcher{client: &http.Client{Timeout: timeout}}
}

// Fetch downloads url into path through a temporary file, so a failed
// download never leaves a truncated table behind.
func (f *Fetcher) Fetch(ctx context.Context, path, url string) error {
	cleanPath := filepath.Clean(path)
	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("invalid filepath: %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(cleanPath), 0750); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", cleanPath, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("invalid source url %s: %w", url, err)
	}

	response, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", url, err)
	}
	defer func() {
		if err := response.Body.Close(); err != nil {
			logging.Warn("Failed to close response body", "error", err)
		}
	}()

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download %s: unexpected status %d", url, response.StatusCode)
	}

	tmpPath := cleanPath + ".part"
	outFile, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", tmpPath, err)
	}

	written, copyErr := io.Copy(outFile, response.Body)
	closeErr := outFile.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write %s: %w", tmpPath, err)
	}

	if err := os.Rename(tmpPath, cleanPath); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", cleanPath, err)
	}

	logging.Debug(fmt.Sprintf("%s downloaded", cleanPath), "bytes", written)
	return nil
}

// FetchAll downloads every path -> url target concurrently.
func (f *Fetcher) FetchAll(ctx context.Context, targets map[string]string) error {
	var wg sync.WaitGroup
	var mu sync.Mutex
	var errs []error

	for path, url := range targets {
		wg.Add(1)
		go func(path, url string) {
			defer wg.Done()
			if err := f.Fetch(ctx, path, url); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(path, url)
	}
	wg.Wait()

	if len(errs) > 0 {
		logging.Error("Download errors occurred", "errors", errs)
		return fmt.Errorf("download errors: %w", errors.Join(errs...))
	}
	return nil
}
