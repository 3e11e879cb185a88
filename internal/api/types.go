package api

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

// APIToolsServerID is the sentinel server identifier under which tools of
// the HTTP bridge are exposed.
const APIToolsServerID = "api-tools"

// DefaultGroupID is the group used when a caller does not name one.
const DefaultGroupID = "default"

// ServerState represents the connection state of an upstream MCP server.
type ServerState string

const (
	StateDisconnected ServerState = "disconnected"
	StateConnecting   ServerState = "connecting"
	StateConnected    ServerState = "connected"
	StateError        ServerState = "error"
	StateReconnecting ServerState = "reconnecting"
)

// TransportKind identifies how the hub talks to an upstream server.
type TransportKind string

const (
	TransportStdio          TransportKind = "stdio"
	TransportSSE            TransportKind = "sse"
	TransportStreamableHTTP TransportKind = "streamable-http"
)

// Tool describes a tool the hub can dispatch, regardless of whether it is
// served by an upstream MCP server or by the HTTP bridge.
type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	InputSchema InputSchema `json:"inputSchema"`
	// ServerID is the owning server, or APIToolsServerID for bridged tools.
	ServerID string `json:"serverId"`
}

// InputSchema is the JSON-schema-shaped argument description of a tool.
type InputSchema struct {
	Type                 string                 `json:"type,omitempty"`
	Properties           map[string]interface{} `json:"properties,omitempty"`
	Required             []string               `json:"required,omitempty"`
	AdditionalProperties *bool                  `json:"additionalProperties,omitempty"`
}

// ToolFromMCP converts an upstream mcp.Tool into the hub's tool descriptor.
func ToolFromMCP(t mcp.Tool, serverID string) Tool {
	schema := InputSchema{
		Type:       t.InputSchema.Type,
		Properties: t.InputSchema.Properties,
		Required:   t.InputSchema.Required,
	}
	return Tool{
		Name:        t.Name,
		Description: t.Description,
		InputSchema: schema,
		ServerID:    serverID,
	}
}

// ContentItem is one element of a canonical tool result.
type ContentItem struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// ToolResult is the canonical result shape every dispatch returns.
type ToolResult struct {
	Content []ContentItem `json:"content"`
	IsError bool          `json:"isError"`
}

// TextResult builds a single-item text result.
func TextResult(text string) *ToolResult {
	return &ToolResult{Content: []ContentItem{{Type: "text", Text: text}}}
}

// ErrorResult builds a single-item error result.
func ErrorResult(format string, args ...interface{}) *ToolResult {
	return &ToolResult{
		Content: []ContentItem{{Type: "text", Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}

// ServerStatus is the externally visible snapshot of one pooled server.
type ServerStatus struct {
	ID                string      `json:"id"`
	State             ServerState `json:"state"`
	Transport         TransportKind `json:"transport"`
	Enabled           bool        `json:"enabled"`
	ToolCount         int         `json:"toolCount"`
	LastConnected     *time.Time  `json:"lastConnected,omitempty"`
	LastError         string      `json:"lastError,omitempty"`
	ReconnectAttempts int         `json:"reconnectAttempts"`
	HealthChecks      int         `json:"healthChecks"`
}

// GroupInfo is the externally visible description of a group.
type GroupInfo struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Servers      []string `json:"servers"`
	AllowedTools []string `json:"allowedTools,omitempty"`
}

// EventType classifies hub events pushed to subscribers.
type EventType string

const (
	EventServerStatus  EventType = "server_status"
	EventToolExecution EventType = "tool_execution"
	EventSystemAlert   EventType = "system_alert"
	EventActivity      EventType = "activity"
	EventHealthCheck   EventType = "health_check"
	EventPing          EventType = "ping"
)

// Event is the tagged variant fanned out by the event bus.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// ServerStatusEvent is the payload of EventServerStatus.
type ServerStatusEvent struct {
	ServerID string      `json:"serverId"`
	OldState ServerState `json:"oldState"`
	NewState ServerState `json:"newState"`
	Error    string      `json:"error,omitempty"`
}

// ToolExecutionEvent is the payload of EventToolExecution.
type ToolExecutionEvent struct {
	ToolName string        `json:"toolName"`
	ServerID string        `json:"serverId"`
	GroupID  string        `json:"groupId"`
	Success  bool          `json:"success"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"durationMs"`
	Attempts int           `json:"attempts"`
}

// MarshalJSON writes Duration as whole milliseconds under durationMs.
func (e ToolExecutionEvent) MarshalJSON() ([]byte, error) {
	type plain ToolExecutionEvent
	return json.Marshal(struct {
		plain
		Duration int64 `json:"durationMs"`
	}{plain(e), e.Duration.Milliseconds()})
}

// HealthCheckEvent is the payload of EventHealthCheck.
type HealthCheckEvent struct {
	ServerID string `json:"serverId"`
	Healthy  bool   `json:"healthy"`
}

// SystemAlertEvent is the payload of EventSystemAlert.
type SystemAlertEvent struct {
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// MarshalData renders the event payload as JSON for wire delivery.
func (e Event) MarshalData() (json.RawMessage, error) {
	return json.Marshal(e.Data)
}
