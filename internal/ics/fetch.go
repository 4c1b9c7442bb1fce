package ics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	appLog "bdbm/internal/log"
)

var (
	ErrEmptyURL           = errors.New("ics: source URL is empty")
	ErrNotModifiedNoCache = errors.New("ics: received 304 Not Modified but no cached body available")
	ErrHTTPStatus         = errors.New("ics: unexpected HTTP status")
)

// maxParallelFetches bounds concurrent feed downloads in FetchAll.
const maxParallelFetches = 4

// Source represents a single ICS subscription source.
type Source struct {
	// ID becomes the SourceID of every imported event.
	ID   string
	Name string
	URL  string
}

// FetchResult contains the outcome of fetching a single ICS source.
type FetchResult struct {
	Source    Source
	Body      []byte
	FromCache bool // body came from disk (304, network error or non-OK status)
}

// Fetcher downloads ICS feeds with conditional requests (ETag /
// Last-Modified) and keeps the last good body on disk as a fallback.
type Fetcher struct {
	client *http.Client
	cache  diskCache
	log    *appLog.Logger
}

// NewFetcher creates a Fetcher caching under cacheDir, one subdirectory per
// URL. An empty cacheDir uses ./var/ics-cache so development runs need no
// root permissions.
func NewFetcher(cacheDir string, logger *appLog.Logger) *Fetcher {
	if cacheDir == "" {
		cacheDir = "./var/ics-cache"
	}
	if logger == nil {
		logger = appLog.Discard()
	}
	return &Fetcher{
		client: &http.Client{Timeout: 15 * time.Second},
		cache:  diskCache{dir: cacheDir},
		log:    logger.With("component", "ics"),
	}
}

// WithClient replaces the HTTP client, mainly for tests.
func (f *Fetcher) WithClient(c *http.Client) *Fetcher {
	f.client = c
	return f
}

// FetchAll fetches sources concurrently. Results keep the order of sources
// and only include sources that produced a body; failures are logged and
// returned separately.
func (f *Fetcher) FetchAll(ctx context.Context, sources []Source) ([]FetchResult, []error) {
	slots := make([]*FetchResult, len(sources))

	var (
		mu   sync.Mutex
		errs []error
	)

	var g errgroup.Group
	g.SetLimit(maxParallelFetches)
	for i, src := range sources {
		g.Go(func() error {
			res, err := f.FetchOne(ctx, src)
			if err != nil {
				f.log.Error("ics fetch failed", err, "id", src.ID, "url", redactURL(src.URL))
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return nil
			}
			slots[i] = &res
			return nil
		})
	}
	_ = g.Wait()

	results := make([]FetchResult, 0, len(sources))
	for _, r := range slots {
		if r != nil {
			results = append(results, *r)
		}
	}
	return results, errs
}

// FetchOne fetches a single source, falling back to the cached body on
// network errors and non-OK responses.
func (f *Fetcher) FetchOne(ctx context.Context, src Source) (FetchResult, error) {
	if src.URL == "" {
		return FetchResult{}, ErrEmptyURL
	}
	logger := f.log.With("id", src.ID, "url", redactURL(src.URL))

	entry, err := f.cache.open(src.URL)
	if err != nil {
		return FetchResult{}, err
	}
	meta, _ := entry.meta()
	cached, _ := entry.body()

	fromCache := func() FetchResult {
		return FetchResult{Source: src, Body: cached, FromCache: true}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return FetchResult{}, err
	}
	if meta.ETag != "" {
		req.Header.Set("If-None-Match", meta.ETag)
	}
	if meta.LastModified != "" {
		req.Header.Set("If-Modified-Since", meta.LastModified)
	}

	logger.Debug("ics fetch start")
	resp, err := f.client.Do(req)
	if err != nil {
		if len(cached) > 0 {
			logger.Error("ics fetch network error, using cached body", err)
			return fromCache(), nil
		}
		return FetchResult{}, fmt.Errorf("ics fetch %s: %w", src.ID, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return FetchResult{}, fmt.Errorf("ics fetch %s: read body: %w", src.ID, err)
		}
		next := cacheMeta{
			URL:          src.URL,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
		}
		if err := entry.save(next, body); err != nil {
			logger.Error("ics cache save failed", err)
		}
		logger.Info("ics fetch success", "status", resp.StatusCode, "bytes", len(body))
		return FetchResult{Source: src, Body: body}, nil

	case resp.StatusCode == http.StatusNotModified:
		if len(cached) == 0 {
			return FetchResult{}, ErrNotModifiedNoCache
		}
		logger.Info("ics fetch not modified; using cache")
		return fromCache(), nil

	case len(cached) > 0:
		logger.Error("ics fetch non-OK, using cached body", fmt.Errorf("%w: %s", ErrHTTPStatus, resp.Status), "status", resp.StatusCode)
		return fromCache(), nil

	default:
		return FetchResult{}, fmt.Errorf("%w: %s", ErrHTTPStatus, resp.Status)
	}
}

// cacheMeta holds HTTP validators for one cached URL.
type cacheMeta struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// diskCache stores body.ics and meta.json per URL under dir/<sha256[:8]>.
type diskCache struct {
	dir string
}

type cacheEntry struct {
	path string
}

func (c diskCache) open(rawURL string) (cacheEntry, error) {
	if rawURL == "" {
		return cacheEntry{}, ErrEmptyURL
	}
	sum := sha256.Sum256([]byte(rawURL))
	path := filepath.Join(c.dir, hex.EncodeToString(sum[:8]))
	if err := os.MkdirAll(path, 0o700); err != nil {
		return cacheEntry{}, err
	}
	return cacheEntry{path: path}, nil
}

func (e cacheEntry) meta() (cacheMeta, error) {
	var m cacheMeta
	data, err := os.ReadFile(filepath.Join(e.path, "meta.json"))
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return cacheMeta{}, err
	}
	return m, nil
}

func (e cacheEntry) body() ([]byte, error) {
	return os.ReadFile(filepath.Join(e.path, "body.ics"))
}

// save writes the body before the metadata so meta never points at a
// missing body.
func (e cacheEntry) save(m cacheMeta, body []byte) error {
	if err := os.WriteFile(filepath.Join(e.path, "body.ics"), body, 0o600); err != nil {
		return err
	}
	m.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(&m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(e.path, "meta.json"), data, 0o600)
}

// redactURL keeps only scheme and host so feed tokens in paths or query
// strings never reach the logs.
//
//	https://example.com/path/to/private.ics?token=abcd -> https://example.com/...(redacted)
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "ics://...(redacted)"
	}
	return u.Scheme + "://" + u.Host + "/...(redacted)"
}
