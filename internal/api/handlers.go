package api

import (
	"context"
	"time"
)

// ServerPoolHandler is the capability set the server pool exposes to the
// rest of the hub.
type ServerPoolHandler interface {
	// GetServerTools returns the discovered tools of one server. The list
	// is empty unless the server is connected.
	GetServerTools(id string) []Tool

	// GetServerStatus returns a snapshot for one server.
	GetServerStatus(id string) (ServerStatus, bool)

	// GetAllServerStatuses returns snapshots for every pooled server.
	GetAllServerStatuses() []ServerStatus

	// ExecuteToolOnServer forwards a call to the owning server's client.
	ExecuteToolOnServer(ctx context.Context, id, toolName string, args map[string]interface{}) (*ToolResult, error)

	// HealthCheck pings one server and reports whether it is live.
	HealthCheck(ctx context.Context, id string) bool

	// ConnectedServerIDs lists the servers currently in the connected state.
	ConnectedServerIDs() []string
}

// ToolBridgeHandler is the capability set of the HTTP API-tool bridge.
type ToolBridgeHandler interface {
	// GetTools lists the bridged tools under the api-tools server id.
	GetTools() []Tool

	// HasTool reports whether the bridge owns a tool with the given name.
	HasTool(name string) bool

	// ExecuteTool renders and performs the configured HTTP request.
	ExecuteTool(ctx context.Context, name string, args map[string]interface{}) (*ToolResult, error)

	// Health reports the bridge's initialized/healthy flags and counters.
	Health() BridgeHealth
}

// BridgeHealth is the observable state of the API-tool bridge.
type BridgeHealth struct {
	Initialized bool       `json:"initialized"`
	Healthy     bool       `json:"healthy"`
	ToolCount   int        `json:"toolCount"`
	LastReload  *time.Time `json:"lastReload,omitempty"`
}

// GroupResolverHandler answers group membership and tool access questions.
type GroupResolverHandler interface {
	GetGroup(id string) (GroupInfo, bool)
	GetAllGroups() []GroupInfo
	GetGroupServers(id string) []string
	ValidateToolAccess(groupID, toolName string) bool
	FindToolInGroup(groupID, toolName string) (serverID string, found bool)
}

// CatalogHandler is the per-group tool catalog.
type CatalogHandler interface {
	GetToolsForGroup(groupID string) ([]Tool, error)
	ClearCache()
	ClearCacheForGroup(groupID string)
	RefreshToolCache(groupID string) ([]Tool, error)
	Stats() CatalogStats
}

// CatalogStats is the catalog's observability surface.
type CatalogStats struct {
	Groups int        `json:"groups"`
	Tools  int        `json:"tools"`
	Oldest *time.Time `json:"oldest,omitempty"`
	Newest *time.Time `json:"newest,omitempty"`
}

// EventPublisher is the write side of the event bus.
type EventPublisher interface {
	Publish(eventType EventType, data interface{})
}
