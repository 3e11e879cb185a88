package config

import (
	"fmt"
	"net/http"

	"mcphub/internal/api"
)

// Validate cross-checks the hub configuration. Configuration errors are
// fatal at startup.
func Validate(config *HubConfig) error {
	serverIDs := make(map[string]struct{}, len(config.MCPServers))
	for _, server := range config.MCPServers {
		if server.ID == "" {
			return fmt.Errorf("mcpServers: server with empty id")
		}
		if server.ID == api.APIToolsServerID {
			return fmt.Errorf("mcpServers: id %q is reserved for the HTTP bridge", api.APIToolsServerID)
		}
		if _, dup := serverIDs[server.ID]; dup {
			return fmt.Errorf("mcpServers: duplicate server id %q", server.ID)
		}
		serverIDs[server.ID] = struct{}{}

		if err := validateServer(server); err != nil {
			return fmt.Errorf("mcpServers[%s]: %w", server.ID, err)
		}
	}

	groupIDs := make(map[string]struct{}, len(config.Groups))
	for _, group := range config.Groups {
		if group.ID == "" {
			return fmt.Errorf("groups: group with empty id")
		}
		if _, dup := groupIDs[group.ID]; dup {
			return fmt.Errorf("groups: duplicate group id %q", group.ID)
		}
		groupIDs[group.ID] = struct{}{}

		// A group's servers must be a subset of configured servers.
		for _, serverID := range group.Servers {
			if _, ok := serverIDs[serverID]; !ok && serverID != api.APIToolsServerID {
				return fmt.Errorf("groups[%s]: references unknown server %q", group.ID, serverID)
			}
		}
	}

	return nil
}

func validateServer(server ServerConfig) error {
	switch server.Transport {
	case api.TransportStdio:
		if server.Command == "" {
			return fmt.Errorf("command is required for stdio transport")
		}
	case api.TransportSSE, api.TransportStreamableHTTP:
		if server.URL == "" {
			return fmt.Errorf("url is required for %s transport", server.Transport)
		}
	default:
		return fmt.Errorf("unsupported transport %q (supported: %s, %s, %s)",
			server.Transport, api.TransportStdio, api.TransportSSE, api.TransportStreamableHTTP)
	}
	return nil
}

// ValidateAPITools checks the HTTP-tool definition file.
func ValidateAPITools(cfg *APIToolsConfig) error {
	ids := make(map[string]struct{}, len(cfg.Tools))
	names := make(map[string]struct{}, len(cfg.Tools))
	for _, tool := range cfg.Tools {
		if tool.ID == "" {
			return fmt.Errorf("tool with empty id")
		}
		if _, dup := ids[tool.ID]; dup {
			return fmt.Errorf("duplicate tool id %q", tool.ID)
		}
		ids[tool.ID] = struct{}{}

		name := tool.ToolName()
		if _, dup := names[name]; dup {
			return fmt.Errorf("duplicate tool name %q", name)
		}
		names[name] = struct{}{}

		if tool.Request.URL == "" {
			return fmt.Errorf("tool %s: request url is required", tool.ID)
		}
		switch tool.Request.Method {
		case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodHead:
		default:
			return fmt.Errorf("tool %s: unsupported method %q", tool.ID, tool.Request.Method)
		}
	}
	return nil
}
