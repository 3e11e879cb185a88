package apitools

import (
	"sync"
	"time"

	"mcphub/internal/api"
)

// responseCache is a TTL-bounded cache of rendered-request → result.
// Entries are keyed by (tool id, canonical rendered request) so two calls
// with different arguments never share a slot.
type responseCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	result  *api.ToolResult
	expires time.Time
}

func newResponseCache() *responseCache {
	return &responseCache{entries: make(map[string]cacheEntry)}
}

func (c *responseCache) get(key string) (*api.ToolResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expires) {
		delete(c.entries, key)
		return nil, false
	}
	// Defensive copy so callers cannot mutate the cached result.
	return copyResult(e.result), true
}

func (c *responseCache) put(key string, result *api.ToolResult, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{result: copyResult(result), expires: time.Now().Add(ttl)}
}

func (c *responseCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

func copyResult(r *api.ToolResult) *api.ToolResult {
	out := &api.ToolResult{IsError: r.IsError, Content: make([]api.ContentItem, len(r.Content))}
	copy(out.Content, r.Content)
	return out
}
