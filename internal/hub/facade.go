package hub

import (
	"context"
	"time"

	"mcphub/internal/api"
)

// ListTools returns the tools reachable from a group. An empty groupID
// selects the default group.
func (h *Hub) ListTools(groupID string) ([]api.Tool, error) {
	if err := h.beginCall(); err != nil {
		return nil, err
	}
	defer h.inflight.Done()

	if groupID == "" {
		groupID = api.DefaultGroupID
	}
	return h.catalog.GetToolsForGroup(groupID)
}

// CallTool dispatches a tool call within a group. The result is always
// canonical; the error carries the failure category for envelope codes.
func (h *Hub) CallTool(ctx context.Context, toolName string, args map[string]interface{}, groupID string) (*api.ToolResult, error) {
	if err := h.beginCall(); err != nil {
		return api.ErrorResult("%v", err), err
	}
	defer h.inflight.Done()

	return h.engine.CallTool(ctx, toolName, args, groupID)
}

// GetAllGroups lists every configured group, plus the synthesized default
// when no default group is configured.
func (h *Hub) GetAllGroups() []api.GroupInfo {
	if h.resolver == nil {
		return nil
	}
	return h.resolver.GetAllGroups()
}

// GroupDetails pairs a group with the health of its member servers.
type GroupDetails struct {
	api.GroupInfo
	ServerHealth []api.ServerStatus `json:"serverHealth"`
}

// GetGroupInfo returns one group with per-server health.
func (h *Hub) GetGroupInfo(id string) (GroupDetails, bool) {
	if h.resolver == nil {
		return GroupDetails{}, false
	}
	group, ok := h.resolver.GetGroup(id)
	if !ok {
		return GroupDetails{}, false
	}
	details := GroupDetails{GroupInfo: group}
	for _, serverID := range group.Servers {
		if status, ok := h.pool.GetServerStatus(serverID); ok {
			details.ServerHealth = append(details.ServerHealth, status)
		}
	}
	return details, true
}

// GetServerHealth returns the status of every pooled server.
func (h *Hub) GetServerHealth() []api.ServerStatus {
	return h.pool.GetAllServerStatuses()
}

// ServiceStatus is the aggregate health summary.
type ServiceStatus struct {
	Status           Status    `json:"status"`
	ServersTotal     int       `json:"serversTotal"`
	ServersConnected int       `json:"serversConnected"`
	APIToolCount     int       `json:"apiToolCount"`
	Subscribers      int       `json:"subscribers"`
	Timestamp        time.Time `json:"timestamp"`
}

// GetServiceStatus reports the hub's aggregate health: healthy when every
// pooled server is connected, degraded otherwise, initializing before
// Initialize completes. Disabled servers have no pool entry and are not
// counted.
func (h *Hub) GetServiceStatus() ServiceStatus {
	h.mu.Lock()
	initialized := h.initialized
	h.mu.Unlock()

	statuses := h.pool.GetAllServerStatuses()
	connected := 0
	for _, s := range statuses {
		if s.State == api.StateConnected {
			connected++
		}
	}

	status := StatusHealthy
	switch {
	case !initialized:
		status = StatusInitializing
	case connected < len(statuses):
		status = StatusDegraded
	}

	return ServiceStatus{
		Status:           status,
		ServersTotal:     len(statuses),
		ServersConnected: connected,
		APIToolCount:     h.bridge.Health().ToolCount,
		Subscribers:      h.bus.SubscriberCount(),
		Timestamp:        time.Now(),
	}
}

// Diagnostics is the per-component observability snapshot.
type Diagnostics struct {
	Servers     []api.ServerStatus `json:"servers"`
	Groups      []api.GroupInfo    `json:"groups"`
	Catalog     api.CatalogStats   `json:"catalog"`
	Bridge      api.BridgeHealth   `json:"bridge"`
	Subscribers int                `json:"subscribers"`
}

// GetServiceDiagnostics returns counts and state for every component.
func (h *Hub) GetServiceDiagnostics() Diagnostics {
	d := Diagnostics{
		Servers:     h.pool.GetAllServerStatuses(),
		Bridge:      h.bridge.Health(),
		Subscribers: h.bus.SubscriberCount(),
	}
	if h.resolver != nil {
		d.Groups = h.resolver.GetAllGroups()
	}
	if h.catalog != nil {
		d.Catalog = h.catalog.Stats()
	}
	return d
}

// IsToolAvailable reports whether a tool is currently listed in a group.
func (h *Hub) IsToolAvailable(toolName, groupID string) bool {
	tools, err := h.ListTools(groupID)
	if err != nil {
		return false
	}
	for _, tool := range tools {
		if tool.Name == toolName {
			return true
		}
	}
	return false
}

// GetToolDetails returns the descriptor of one tool in a group.
func (h *Hub) GetToolDetails(toolName, groupID string) (api.Tool, bool) {
	tools, err := h.ListTools(groupID)
	if err != nil {
		return api.Tool{}, false
	}
	for _, tool := range tools {
		if tool.Name == toolName {
			return tool, true
		}
	}
	return api.Tool{}, false
}

// ReloadAPIToolConfig re-reads the HTTP-tool definitions.
func (h *Hub) ReloadAPIToolConfig() error {
	return h.bridge.ReloadConfig()
}

// BridgeHealth exposes the HTTP bridge's health.
func (h *Hub) BridgeHealth() api.BridgeHealth {
	return h.bridge.Health()
}

// HealthCheckServers pings every pooled server and publishes the results.
// Transports call this on their own cadence; the hub schedules neither
// health checks nor reconnects by itself.
func (h *Hub) HealthCheckServers(ctx context.Context) {
	for _, status := range h.pool.GetAllServerStatuses() {
		healthy := h.pool.HealthCheck(ctx, status.ID)
		h.bus.Publish(api.EventHealthCheck, api.HealthCheckEvent{
			ServerID: status.ID,
			Healthy:  healthy,
		})
	}
}
