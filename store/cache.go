package store

import (
	"context"
	"sync"
	"time"
)

// DashboardCache holds rendered dashboard payloads per tenant. Entries are
// invalidated whenever an analysis run or insight lifecycle change makes the
// cached payload stale.
type DashboardCache interface {
	Get(ctx context.Context, tenantID string) ([]byte, bool)
	Set(ctx context.Context, tenantID string, payload []byte)
	Invalidate(ctx context.Context, tenantID string)
}

type cacheEntry struct {
	payload   []byte
	expiresAt time.Time
}

// MemoryCache is a process-local DashboardCache with per-entry TTL.
type MemoryCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

// NewMemoryCache creates a MemoryCache. A non-positive ttl disables
// expiry.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

func (c *MemoryCache) Get(ctx context.Context, tenantID string) ([]byte, bool) {
	c.mu.RLock()
	entry, ok := c.entries[tenantID]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		c.Invalidate(ctx, tenantID)
		return nil, false
	}
	return entry.payload, true
}

func (c *MemoryCache) Set(ctx context.Context, tenantID string, payload []byte) {
	entry := cacheEntry{payload: payload}
	if c.ttl > 0 {
		entry.expiresAt = time.Now().Add(c.ttl)
	}
	c.mu.Lock()
	c.entries[tenantID] = entry
	c.mu.Unlock()
}

func (c *MemoryCache) Invalidate(ctx context.Context, tenantID string) {
	c.mu.Lock()
	delete(c.entries, tenantID)
	c.mu.Unlock()
}
