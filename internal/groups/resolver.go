// Package groups answers which servers and tools a named group may reach.
package groups

import (
	"sort"
	"sync"

	"mcphub/internal/api"
	"mcphub/internal/config"
	"mcphub/pkg/logging"
)

// Resolver maps group ids to their allowed servers and tools. The group
// table is immutable after construction; only the synthesized default
// group is computed per call, from the pool's current connected set.
type Resolver struct {
	mu     sync.RWMutex
	groups map[string]config.GroupConfig
	order  []string

	pool api.ServerPoolHandler
}

// Compile-time interface compliance check
var _ api.GroupResolverHandler = (*Resolver)(nil)

// New builds a resolver from the configured group table. When no usable
// groups exist the resolver falls back to a synthesized "default" group
// spanning all connected servers with no tool restrictions, so the hub
// stays usable with an empty or broken group configuration.
func New(groupConfigs []config.GroupConfig, pool api.ServerPoolHandler) *Resolver {
	r := &Resolver{
		groups: make(map[string]config.GroupConfig, len(groupConfigs)),
		pool:   pool,
	}
	for _, g := range groupConfigs {
		if _, dup := r.groups[g.ID]; dup {
			logging.Warn("GroupResolver", "Duplicate group id %s, keeping first definition", g.ID)
			continue
		}
		r.groups[g.ID] = g
		r.order = append(r.order, g.ID)
	}
	if len(r.groups) == 0 {
		logging.Info("GroupResolver", "No groups configured, synthesizing default group over all connected servers")
	}
	return r
}

// GetGroup returns the group description. The "default" group is
// synthesized when not explicitly configured.
func (r *Resolver) GetGroup(id string) (api.GroupInfo, bool) {
	r.mu.RLock()
	g, ok := r.groups[id]
	r.mu.RUnlock()

	if ok {
		return toInfo(g), true
	}
	if id == api.DefaultGroupID {
		return r.synthesizedDefault(), true
	}
	return api.GroupInfo{}, false
}

// GetAllGroups lists every group, including a synthesized default when
// none is configured.
func (r *Resolver) GetAllGroups() []api.GroupInfo {
	r.mu.RLock()
	infos := make([]api.GroupInfo, 0, len(r.order)+1)
	hasDefault := false
	for _, id := range r.order {
		if id == api.DefaultGroupID {
			hasDefault = true
		}
		infos = append(infos, toInfo(r.groups[id]))
	}
	r.mu.RUnlock()

	if !hasDefault {
		infos = append(infos, r.synthesizedDefault())
	}
	return infos
}

// GetGroupServers returns the group's server ids preserving configured
// order. Unknown groups return nil.
func (r *Resolver) GetGroupServers(id string) []string {
	info, ok := r.GetGroup(id)
	if !ok {
		return nil
	}
	servers := make([]string, len(info.Servers))
	copy(servers, info.Servers)
	return servers
}

// ValidateToolAccess reports whether a tool name is permitted in a group.
// An empty allow-list admits every tool of the group's servers.
func (r *Resolver) ValidateToolAccess(groupID, toolName string) bool {
	info, ok := r.GetGroup(groupID)
	if !ok {
		return false
	}
	if len(info.AllowedTools) == 0 {
		return true
	}
	for _, allowed := range info.AllowedTools {
		if allowed == toolName {
			return true
		}
	}
	return false
}

// FindToolInGroup locates the owning server for a tool. When several
// servers in the group expose the same tool name, the first server in
// configured order wins.
func (r *Resolver) FindToolInGroup(groupID, toolName string) (string, bool) {
	info, ok := r.GetGroup(groupID)
	if !ok {
		return "", false
	}
	for _, serverID := range info.Servers {
		for _, tool := range r.pool.GetServerTools(serverID) {
			if tool.Name == toolName {
				return serverID, true
			}
		}
	}
	return "", false
}

// synthesizedDefault builds the fallback group from the current connected
// set. Sorted ids keep duplicate-name routing deterministic.
func (r *Resolver) synthesizedDefault() api.GroupInfo {
	servers := r.pool.ConnectedServerIDs()
	sort.Strings(servers)
	return api.GroupInfo{
		ID:      api.DefaultGroupID,
		Name:    "Default",
		Servers: servers,
	}
}

func toInfo(g config.GroupConfig) api.GroupInfo {
	name := g.Name
	if name == "" {
		name = g.ID
	}
	info := api.GroupInfo{
		ID:          g.ID,
		Name:        name,
		Description: g.Description,
	}
	info.Servers = make([]string, len(g.Servers))
	copy(info.Servers, g.Servers)
	if len(g.AllowedTools) > 0 {
		info.AllowedTools = make([]string, len(g.AllowedTools))
		copy(info.AllowedTools, g.AllowedTools)
	}
	return info
}
