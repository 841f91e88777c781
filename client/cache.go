package client

import (
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Resource names double as cache key prefixes.
const (
	resourcePosts       = "posts"
	resourcePost        = "post"
	resourceAuthor      = "author"
	resourceAuthorPosts = "authorPosts"
	resourceSettings    = "settings"
	resourceRoles       = "roles"
	resourceComments    = "commentsOverview"
)

// staleTimes is how long a cached response is served without refetching.
// Resources missing here are always refetched.
var staleTimes = map[string]time.Duration{
	resourcePost:        30 * time.Minute,
	resourceAuthor:      30 * time.Minute,
	resourceAuthorPosts: 30 * time.Minute,
	resourceSettings:    24 * time.Hour,
}

type cacheEntry struct {
	body    []byte
	fetched time.Time
}

// responseCache holds raw response envelopes keyed by resource and query.
type responseCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	clock   clock.Clock
}

func newResponseCache(clk clock.Clock) *responseCache {
	return &responseCache{entries: make(map[string]cacheEntry), clock: clk}
}

func (c *responseCache) get(resource, key string) ([]byte, bool) {
	ttl := staleTimes[resource]
	if ttl <= 0 {
		return nil, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || c.clock.Now().Sub(e.fetched) >= ttl {
		return nil, false
	}
	return e.body, true
}

func (c *responseCache) put(resource, key string, body []byte) {
	if staleTimes[resource] <= 0 {
		return
	}
	c.mu.Lock()
	c.entries[key] = cacheEntry{body: body, fetched: c.clock.Now()}
	c.mu.Unlock()
}

// invalidate drops every key starting with one of prefixes.
func (c *responseCache) invalidate(prefixes ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		for _, p := range prefixes {
			if strings.HasPrefix(key, p) {
				delete(c.entries, key)
				break
			}
		}
	}
}

func (c *responseCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
