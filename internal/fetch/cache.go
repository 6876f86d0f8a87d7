package fetch

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultCacheTTL is how long a fetched posting is reused.
const DefaultCacheTTL = time.Hour

// DefaultCacheEntries bounds the number of cached postings.
const DefaultCacheEntries = 256

type cacheEntry struct {
	text    string
	fetched time.Time
}

// CachedFetcher memoizes successful posting fetches for a TTL and collapses concurrent
// fetches of the same URL into one request. Failures are never cached.
type CachedFetcher struct {
	next       PostingFetcher
	ttl        time.Duration
	maxEntries int
	now        func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
	group   singleflight.Group
}

var _ PostingFetcher = (*CachedFetcher)(nil)

// NewCachedFetcher wraps next. Non-positive ttl or maxEntries use the defaults.
func NewCachedFetcher(next PostingFetcher, ttl time.Duration, maxEntries int) *CachedFetcher {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultCacheEntries
	}
	return &CachedFetcher{
		next:       next,
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
		entries:    make(map[string]cacheEntry),
	}
}

// FetchJobPosting implements PostingFetcher.
func (c *CachedFetcher) FetchJobPosting(ctx context.Context, url string) (string, error) {
	if text, ok := c.lookup(url); ok {
		return text, nil
	}

	v, err, _ := c.group.Do(url, func() (any, error) {
		if text, ok := c.lookup(url); ok {
			return text, nil
		}
		text, err := c.next.FetchJobPosting(ctx, url)
		if err != nil {
			return "", err
		}
		c.store(url, text)
		return text, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *CachedFetcher) lookup(url string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[url]
	if !ok {
		return "", false
	}
	if c.now().Sub(e.fetched) > c.ttl {
		delete(c.entries, url)
		return "", false
	}
	return e.text, true
}

func (c *CachedFetcher) store(url, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[url]; !ok && len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}
	c.entries[url] = cacheEntry{text: text, fetched: c.now()}
}

func (c *CachedFetcher) evictOldestLocked() {
	var oldestURL string
	var oldest time.Time
	for u, e := range c.entries {
		if oldestURL == "" || e.fetched.Before(oldest) {
			oldestURL, oldest = u, e.fetched
		}
	}
	delete(c.entries, oldestURL)
}

// Len returns the number of cached postings.
func (c *CachedFetcher) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
