// Package memory provides an in-memory TTL cache for ranking results.
package memory

import (
	"strings"
	"sync"
	"time"

	"github.com/antyra/ranksync/internal/rank"
)

type entry struct {
	result  rank.Result
	expires time.Time
}

// ResultCache memoizes keyword/domain lookups for a fixed TTL so domains
// sharing keywords within a run reuse one API call. Safe for concurrent use.
type ResultCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	clock   rank.Clock
	entries map[string]entry
}

// New creates a ResultCache. A non-positive ttl disables caching.
func New(ttl time.Duration, clock rank.Clock) *ResultCache {
	return &ResultCache{
		ttl:     ttl,
		clock:   clock,
		entries: make(map[string]entry),
	}
}

// Get returns the cached result for the keyword/domain pair if present and
// not expired.
func (c *ResultCache) Get(keyword, domain string) (rank.Result, bool) {
	if c.ttl <= 0 {
		return rank.Result{}, false
	}
	key := cacheKey(keyword, domain)

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return rank.Result{}, false
	}
	if c.clock.Now().After(e.expires) {
		c.mu.Lock()
		if cur, still := c.entries[key]; still && cur.expires.Equal(e.expires) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return rank.Result{}, false
	}
	return e.result, true
}

// Set stores the result for the keyword/domain pair, refreshing its TTL.
func (c *ResultCache) Set(keyword, domain string, r rank.Result) {
	if c.ttl <= 0 {
		return
	}
	key := cacheKey(keyword, domain)
	exp := c.clock.Now().Add(c.ttl)

	c.mu.Lock()
	c.entries[key] = entry{result: r, expires: exp}
	c.mu.Unlock()
}

// Len reports the number of live entries, expired ones included until read.
func (c *ResultCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func cacheKey(keyword, domain string) string {
	return strings.ToLower(strings.TrimSpace(keyword)) + "|" + strings.ToLower(domain)
}
