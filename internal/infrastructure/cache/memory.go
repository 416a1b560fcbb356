package cache

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/janhq/answer-api/internal/domain/search"
	"github.com/janhq/answer-api/internal/infrastructure/metrics"
)

const defaultMemorySize = 1024

type memoryEntry struct {
	results   []search.Result
	expiresAt time.Time
}

// MemoryCache is a size-bounded in-process cache with per-entry expiry.
type MemoryCache struct {
	entries *lru.Cache
	now     func() time.Time
}

// NewMemoryCache creates a cache holding at most size keys.
func NewMemoryCache(size int) (*MemoryCache, error) {
	if size <= 0 {
		size = defaultMemorySize
	}
	entries, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create lru cache: %w", err)
	}
	return &MemoryCache{entries: entries, now: time.Now}, nil
}

// Get returns unexpired results for key.
func (c *MemoryCache) Get(_ context.Context, key string) ([]search.Result, bool, error) {
	value, ok := c.entries.Get(key)
	if !ok {
		metrics.RecordSearch("cache", "miss", 0)
		return nil, false, nil
	}
	entry := value.(memoryEntry)
	if !c.now().Before(entry.expiresAt) {
		c.entries.Remove(key)
		metrics.RecordSearch("cache", "expired", 0)
		return nil, false, nil
	}
	metrics.RecordSearch("cache", "hit", 0)
	return entry.results, true, nil
}

// Set stores results under key until ttl elapses.
func (c *MemoryCache) Set(_ context.Context, key string, results []search.Result, ttl time.Duration) error {
	stored := make([]search.Result, len(results))
	copy(stored, results)
	c.entries.Add(key, memoryEntry{results: stored, expiresAt: c.now().Add(ttl)})
	return nil
}

// Len reports the number of keys currently held, expired or not.
func (c *MemoryCache) Len() int {
	return c.entries.Len()
}
