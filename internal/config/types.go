package config

import "mcphub/internal/api"

// HubConfig is the top-level configuration structure for mcphub.
type HubConfig struct {
	HTTP       HTTPConfig     `yaml:"http,omitempty"`
	Log        LogConfig      `yaml:"log,omitempty"`
	MCPServers []ServerConfig `yaml:"mcpServers,omitempty"`
	Groups     []GroupConfig  `yaml:"groups,omitempty"`
	// APIToolsFile points at the HTTP-tool definitions consumed by the
	// bridge. Relative paths are resolved against the config directory.
	APIToolsFile string `yaml:"apiToolsFile,omitempty"`
}

// HTTPConfig defines the client-facing HTTP endpoint.
type HTTPConfig struct {
	Host string `yaml:"host,omitempty"` // default: localhost
	Port int    `yaml:"port,omitempty"` // default: 8080
}

// LogConfig defines log level and optional file rotation.
type LogConfig struct {
	Level      string `yaml:"level,omitempty"` // debug, info, warn, error
	File       string `yaml:"file,omitempty"`  // empty: stdout
	MaxSizeMB  int    `yaml:"maxSizeMB,omitempty"`
	MaxBackups int    `yaml:"maxBackups,omitempty"`
	MaxAgeDays int    `yaml:"maxAgeDays,omitempty"`
	Compress   bool   `yaml:"compress,omitempty"`
}

// ServerConfig describes one upstream MCP server.
type ServerConfig struct {
	ID        string            `yaml:"id"`
	Transport api.TransportKind `yaml:"transport"`

	// stdio transport
	Command string   `yaml:"command,omitempty"`
	Args    []string `yaml:"args,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`

	// sse / streamable-http transports
	URL     string            `yaml:"url,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`

	// Enabled defaults to true; disabled servers get no pool entry.
	Enabled *bool `yaml:"enabled,omitempty"`
}

// IsEnabled resolves the optional enabled flag.
func (s ServerConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// GroupConfig describes one access-control group.
type GroupConfig struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name,omitempty"`
	Description string   `yaml:"description,omitempty"`
	Servers     []string `yaml:"servers"`
	// AllowedTools empty means every tool of the listed servers.
	AllowedTools []string `yaml:"allowedTools,omitempty"`
}

// APIToolsConfig is the HTTP-tool definition file consumed by the bridge.
type APIToolsConfig struct {
	Tools []APIToolConfig `yaml:"tools"`
}

// APIToolConfig defines one HTTP-backed tool.
type APIToolConfig struct {
	ID          string          `yaml:"id"`
	Name        string          `yaml:"name,omitempty"` // defaults to ID
	Description string          `yaml:"description,omitempty"`
	Request     RequestSpec     `yaml:"request"`
	Parameters  api.InputSchema `yaml:"parameters,omitempty"`
	Response    ResponseSpec    `yaml:"response,omitempty"`
	Cache       CacheSpec       `yaml:"cache,omitempty"`
}

// ToolName resolves the exposed tool name.
func (t APIToolConfig) ToolName() string {
	if t.Name != "" {
		return t.Name
	}
	return t.ID
}

// RequestSpec is the HTTP request template. URL, headers, query and body
// support ${data.KEY} and ${env.KEY} substitution.
type RequestSpec struct {
	URL            string            `yaml:"url"`
	Method         string            `yaml:"method,omitempty"` // default: GET
	Headers        map[string]string `yaml:"headers,omitempty"`
	Query          map[string]string `yaml:"query,omitempty"`
	Body           string            `yaml:"body,omitempty"`
	TimeoutSeconds int               `yaml:"timeoutSeconds,omitempty"`
}

// ResponseSpec optionally reshapes the HTTP response body.
type ResponseSpec struct {
	// Transform is a gjson path selecting the result payload out of the
	// parsed JSON body. Empty keeps the whole body.
	Transform string `yaml:"transform,omitempty"`
	// Drop lists JSON paths pruned from the body before the transform.
	Drop []string `yaml:"drop,omitempty"`
}

// CacheSpec enables per-tool response caching.
type CacheSpec struct {
	Enabled    bool `yaml:"enabled,omitempty"`
	TTLSeconds int  `yaml:"ttlSeconds,omitempty"`
}
