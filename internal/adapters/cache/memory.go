package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hooplab/passport/pkg/metrics"
)

type memoryEntry struct {
	content []byte
	expiry  time.Time
}

// MemoryCache is the in-process backend. Expired entries are dropped lazily
// on read and swept whenever a write lands.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time

	hits   atomic.Uint64
	misses atomic.Uint64
}

// MemoryOption configures a MemoryCache.
type MemoryOption func(*MemoryCache)

// WithMemoryTTL sets the entry lifetime.
func WithMemoryTTL(ttl time.Duration) MemoryOption {
	return func(c *MemoryCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithMemoryClock replaces the wall clock, used by tests to force expiry.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(c *MemoryCache) {
		c.now = now
	}
}

// NewMemoryCache creates an in-process cache with configuration options.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	c := &MemoryCache{
		entries: make(map[string]memoryEntry),
		ttl:     time.Hour,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *MemoryCache) Get(_ context.Context, fingerprint string) ([]byte, bool) {
	c.mu.RLock()
	entry, ok := c.entries[fingerprint]
	c.mu.RUnlock()

	if ok && c.now().Before(entry.expiry) {
		c.hits.Add(1)
		metrics.RecordCacheHit()
		return entry.content, true
	}
	if ok {
		c.mu.Lock()
		delete(c.entries, fingerprint)
		c.mu.Unlock()
	}
	c.misses.Add(1)
	metrics.RecordCacheMiss()
	return nil, false
}

func (c *MemoryCache) Put(_ context.Context, fingerprint string, content []byte) {
	stored := make([]byte, len(content))
	copy(stored, content)

	now := c.now()
	c.mu.Lock()
	for key, entry := range c.entries {
		if !now.Before(entry.expiry) {
			delete(c.entries, key)
		}
	}
	c.entries[fingerprint] = memoryEntry{content: stored, expiry: now.Add(c.ttl)}
	c.mu.Unlock()
}

func (c *MemoryCache) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}
