// Package catalog maintains the per-group, TTL-bounded view of available
// tools across the server pool and the HTTP bridge.
package catalog

import (
	"fmt"
	"sync"
	"time"

	"mcphub/internal/api"
	"mcphub/internal/metrics"
	"mcphub/pkg/logging"
)

// TTL bounds how long a cached group listing may be served.
const TTL = 30 * time.Second

type cacheEntry struct {
	tools     []api.Tool
	updatedAt time.Time
}

// Catalog merges MCP tools and API tools per group and caches the result.
type Catalog struct {
	mu      sync.Mutex
	entries map[string]cacheEntry

	pool     api.ServerPoolHandler
	bridge   api.ToolBridgeHandler
	resolver api.GroupResolverHandler

	// clock is stubbed in tests to cross the TTL without sleeping.
	clock func() time.Time
}

// Compile-time interface compliance check
var _ api.CatalogHandler = (*Catalog)(nil)

// New creates an empty catalog over the given collaborators.
func New(pool api.ServerPoolHandler, bridge api.ToolBridgeHandler, resolver api.GroupResolverHandler) *Catalog {
	return &Catalog{
		entries:  make(map[string]cacheEntry),
		pool:     pool,
		bridge:   bridge,
		resolver: resolver,
		clock:    time.Now,
	}
}

// GetToolsForGroup returns the tools reachable from a group. Entries older
// than the TTL are never served; a miss aggregates a fresh list.
func (c *Catalog) GetToolsForGroup(groupID string) ([]api.Tool, error) {
	c.mu.Lock()
	if entry, ok := c.entries[groupID]; ok && c.clock().Sub(entry.updatedAt) < TTL {
		tools := copyTools(entry.tools)
		c.mu.Unlock()
		metrics.CatalogLookups.WithLabelValues("hit").Inc()
		return tools, nil
	}
	c.mu.Unlock()

	metrics.CatalogLookups.WithLabelValues("miss").Inc()
	return c.RefreshToolCache(groupID)
}

// RefreshToolCache rebuilds and caches the listing for one group.
func (c *Catalog) RefreshToolCache(groupID string) ([]api.Tool, error) {
	group, ok := c.resolver.GetGroup(groupID)
	if !ok {
		return nil, fmt.Errorf("group '%s': %w", groupID, api.ErrGroupNotFound)
	}

	allowed := make(map[string]struct{}, len(group.AllowedTools))
	for _, name := range group.AllowedTools {
		allowed[name] = struct{}{}
	}
	permitted := func(name string) bool {
		if len(allowed) == 0 {
			return true
		}
		_, ok := allowed[name]
		return ok
	}

	var tools []api.Tool
	for _, serverID := range group.Servers {
		for _, tool := range c.pool.GetServerTools(serverID) {
			if permitted(tool.Name) {
				tools = append(tools, tool)
			}
		}
	}
	for _, tool := range c.bridge.GetTools() {
		if permitted(tool.Name) {
			tools = append(tools, tool)
		}
	}

	c.mu.Lock()
	c.entries[groupID] = cacheEntry{tools: tools, updatedAt: c.clock()}
	c.mu.Unlock()

	logging.Debug("ToolCatalog", "Refreshed group %s: %d tools", groupID, len(tools))
	return copyTools(tools), nil
}

// ClearCache drops every cached group listing.
func (c *Catalog) ClearCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
	logging.Debug("ToolCatalog", "Cache cleared")
}

// ClearCacheForGroup drops one group's cached listing.
func (c *Catalog) ClearCacheForGroup(groupID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, groupID)
}

// InvalidateServer drops every cached group whose server set contains the
// given server. Called on server state transitions.
func (c *Catalog) InvalidateServer(serverID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for groupID := range c.entries {
		for _, id := range c.resolver.GetGroupServers(groupID) {
			if id == serverID {
				delete(c.entries, groupID)
				break
			}
		}
	}
}

// Stats exposes cache metadata for observability.
func (c *Catalog) Stats() api.CatalogStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := api.CatalogStats{Groups: len(c.entries)}
	for _, entry := range c.entries {
		stats.Tools += len(entry.tools)
		t := entry.updatedAt
		if stats.Oldest == nil || t.Before(*stats.Oldest) {
			ts := t
			stats.Oldest = &ts
		}
		if stats.Newest == nil || t.After(*stats.Newest) {
			ts := t
			stats.Newest = &ts
		}
	}
	return stats
}

func copyTools(tools []api.Tool) []api.Tool {
	out := make([]api.Tool, len(tools))
	copy(out, tools)
	return out
}
