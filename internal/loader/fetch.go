package loader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"tidytable/internal/domain"
)

// Fetcher retrieves raw dataset bytes, either from the network or from a
// local cache directory. Network fetches are rate limited to stay polite
// to the public open-data endpoints and are single-attempt.
type Fetcher struct {
	client   *http.Client
	limiter  *rate.Limiter
	cacheDir string
	offline  bool
	logger   *slog.Logger
}

// FetcherOptions configures a Fetcher. Zero values fall back to defaults:
// a 60s timeout, 2 requests/second, no cache directory.
type FetcherOptions struct {
	Timeout  time.Duration
	RateRPS  float64
	CacheDir string
	Offline  bool
	Logger   *slog.Logger
}

// NewFetcher creates a Fetcher from options.
func NewFetcher(opts FetcherOptions) *Fetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.RateRPS == 0 {
		opts.RateRPS = 2
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Fetcher{
		client:   &http.Client{Timeout: opts.Timeout},
		limiter:  rate.NewLimiter(rate.Limit(opts.RateRPS), 1),
		cacheDir: opts.CacheDir,
		offline:  opts.Offline,
		logger:   opts.Logger,
	}
}

// Fetch returns the raw bytes of a source. In offline mode only the cache
// is consulted; otherwise the URL is fetched once and, when a cache dir
// is configured, written through for later offline runs.
func (f *Fetcher) Fetch(ctx context.Context, src Source) ([]byte, error) {
	if f.offline || src.URL == "" {
		return f.readCache(src)
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, domain.ErrSourceUnavailable("fetch %s: %v", src.Name, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, domain.ErrSourceUnavailable("fetch %s: %v", src.Name, err)
	}
	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, domain.ErrSourceUnavailable("fetch %s: %v", src.Name, err)
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		return nil, domain.ErrSourceUnavailable("fetch %s: unexpected status %d", src.Name, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.ErrSourceUnavailable("fetch %s: read body: %v", src.Name, err)
	}
	f.logger.Info("fetched source",
		"source", src.Name, "bytes", len(data), "elapsed", time.Since(start).Round(time.Millisecond))

	if f.cacheDir != "" && src.File != "" {
		if err := f.writeCache(src, data); err != nil {
			// Cache write failure is not fatal: the data is already in hand.
			f.logger.Warn("cache write failed", "source", src.Name, "error", err)
		}
	}
	return data, nil
}

func (f *Fetcher) readCache(src Source) ([]byte, error) {
	if f.cacheDir == "" || src.File == "" {
		return nil, domain.ErrSourceUnavailable("source %s: no cached copy available", src.Name)
	}
	path := filepath.Join(f.cacheDir, src.File)
	data, err := os.ReadFile(path) //nolint:gosec // path built from config + descriptor
	if err != nil {
		return nil, domain.ErrSourceUnavailable("source %s: read cache %s: %v", src.Name, path, err)
	}
	return data, nil
}

func (f *Fetcher) writeCache(src Source, data []byte) error {
	if err := os.MkdirAll(f.cacheDir, 0o750); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	path := filepath.Join(f.cacheDir, src.File)
	if err := os.WriteFile(path, data, 0o640); err != nil { //nolint:gosec
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
