package negotiation

import (
	"container/list"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ProfileFetcher fetches and caches engine profiles.
type ProfileFetcher interface {
	Fetch(ctx context.Context, profileURL string) (*EngineProfile, error)
}

// DefaultCacheTTL is used when HTTP cache headers don't specify a duration.
const DefaultCacheTTL = 5 * time.Minute

// DefaultFetchTimeout bounds a single profile fetch.
const DefaultFetchTimeout = 5 * time.Second

// MaxCacheEntries limits the number of cached profiles (LRU eviction).
const MaxCacheEntries = 64

// maxProfileBytes caps the size of a profile document.
const maxProfileBytes = 1 << 20

// ProfileFetcherConfig contains configuration for the profile fetcher.
type ProfileFetcherConfig struct {
	Client     *http.Client      // nil uses a client with Timeout
	Headers    map[string]string // sent on every fetch (e.g. UCP-Agent)
	CacheTTL   time.Duration     // default TTL when cache headers are absent
	Timeout    time.Duration     // timeout for the default client
	MaxEntries int               // max cache entries (0 = default)
}

// HTTPProfileFetcher fetches profiles over HTTP, honoring Cache-Control,
// Expires and ETag revalidation. A failed refresh falls back to the stale entry.
type HTTPProfileFetcher struct {
	client  *http.Client
	headers map[string]string
	ttl     time.Duration
	max     int

	mu    sync.Mutex
	cache map[string]*list.Element
	lru   *list.List // front = most recently used
}

type cacheEntry struct {
	url       string
	profile   *EngineProfile
	expiresAt time.Time
	etag      string
}

// NewHTTPProfileFetcher creates a profile fetcher with default config.
func NewHTTPProfileFetcher() *HTTPProfileFetcher {
	return NewHTTPProfileFetcherWithConfig(ProfileFetcherConfig{})
}

// NewHTTPProfileFetcherWithConfig creates a profile fetcher with custom config.
func NewHTTPProfileFetcherWithConfig(cfg ProfileFetcherConfig) *HTTPProfileFetcher {
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultFetchTimeout
	}
	if cfg.MaxEntries == 0 {
		cfg.MaxEntries = MaxCacheEntries
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &HTTPProfileFetcher{
		client:  client,
		headers: cfg.Headers,
		ttl:     cfg.CacheTTL,
		max:     cfg.MaxEntries,
		cache:   make(map[string]*list.Element),
		lru:     list.New(),
	}
}

// Fetch returns the profile at profileURL, from cache while fresh.
func (f *HTTPProfileFetcher) Fetch(ctx context.Context, profileURL string) (*EngineProfile, error) {
	stale, fresh := f.lookup(profileURL)
	if fresh {
		return stale.profile, nil
	}

	profile, err := f.fetchFromNetwork(ctx, profileURL, stale)
	if err != nil {
		if stale != nil {
			return stale.profile, nil
		}
		return nil, fmt.Errorf("fetch engine profile: %w", err)
	}
	return profile, nil
}

// lookup returns the cached entry (if any) and whether it is still fresh.
func (f *HTTPProfileFetcher) lookup(url string) (*cacheEntry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	el, ok := f.cache[url]
	if !ok {
		return nil, false
	}
	f.lru.MoveToFront(el)
	entry := el.Value.(*cacheEntry)
	return entry, entry.expiresAt.After(time.Now())
}

func (f *HTTPProfileFetcher) fetchFromNetwork(ctx context.Context, profileURL string, stale *cacheEntry) (*EngineProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, profileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}
	if stale != nil && stale.etag != "" {
		req.Header.Set("If-None-Match", stale.etag)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified && stale != nil {
		f.store(profileURL, stale.profile, resp)
		return stale.profile, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, profileURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProfileBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	var profile EngineProfile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("parse profile JSON: %w", err)
	}
	profile.ProfileURL = profileURL
	profile.FetchedAt = time.Now()

	f.store(profileURL, &profile, resp)
	return &profile, nil
}

func (f *HTTPProfileFetcher) store(url string, profile *EngineProfile, resp *http.Response) {
	expiresAt := time.Now().Add(f.parseCacheTTL(resp))
	profile.ExpiresAt = expiresAt
	entry := &cacheEntry{
		url:       url,
		profile:   profile,
		expiresAt: expiresAt,
		etag:      resp.Header.Get("ETag"),
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if el, ok := f.cache[url]; ok {
		el.Value = entry
		f.lru.MoveToFront(el)
		return
	}
	if f.lru.Len() >= f.max {
		if oldest := f.lru.Back(); oldest != nil {
			f.lru.Remove(oldest)
			delete(f.cache, oldest.Value.(*cacheEntry).url)
		}
	}
	f.cache[url] = f.lru.PushFront(entry)
}

// parseCacheTTL extracts TTL from HTTP cache headers.
// Priority: no-store/no-cache, max-age, Expires, then the configured default.
func (f *HTTPProfileFetcher) parseCacheTTL(resp *http.Response) time.Duration {
	if cc := resp.Header.Get("Cache-Control"); cc != "" {
		for _, directive := range strings.Split(cc, ",") {
			directive = strings.ToLower(strings.TrimSpace(directive))
			switch {
			case directive == "no-store", directive == "no-cache":
				return 0
			case strings.HasPrefix(directive, "max-age="):
				if seconds, err := strconv.Atoi(strings.TrimPrefix(directive, "max-age=")); err == nil && seconds >= 0 {
					return time.Duration(seconds) * time.Second
				}
			}
		}
	}

	if expires := resp.Header.Get("Expires"); expires != "" {
		if t, err := http.ParseTime(expires); err == nil {
			if ttl := time.Until(t); ttl > 0 {
				return ttl
			}
		}
	}

	return f.ttl
}

// Len returns the number of cached profiles.
func (f *HTTPProfileFetcher) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lru.Len()
}
