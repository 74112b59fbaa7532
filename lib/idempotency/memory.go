package idempotency

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	response  Response
	expiresAt time.Time
}

// MemoryCache is the in-process Cache used when no REDIS_URL is configured.
// Expiry is lazy; Set additionally drops entries that are already past their
// deadline to bound memory without a background sweep.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry)}
}

func (c *MemoryCache) Get(ctx context.Context, operation, key string) (*Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[cacheKey(operation, key)]
	if !ok {
		return nil, nil
	}
	if !entry.expiresAt.After(time.Now()) {
		delete(c.entries, cacheKey(operation, key))
		return nil, nil
	}
	response := entry.response
	return &response, nil
}

func (c *MemoryCache) Set(ctx context.Context, operation, key string, statusCode int, body []byte, ttl time.Duration) error {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, entry := range c.entries {
		if !entry.expiresAt.After(now) {
			delete(c.entries, k)
		}
	}
	stored := make([]byte, len(body))
	copy(stored, body)
	c.entries[cacheKey(operation, key)] = memoryEntry{
		response:  Response{StatusCode: statusCode, Body: stored},
		expiresAt: now.Add(ttl),
	}
	return nil
}

var _ Cache = (*MemoryCache)(nil)
