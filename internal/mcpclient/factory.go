package mcpclient

import (
	"fmt"

	"mcphub/internal/api"
	"mcphub/internal/config"
)

// NewFromConfig creates the appropriate MCP client for a server
// configuration. This factory encapsulates the choice of transport so the
// pool never needs to know about concrete client types.
func NewFromConfig(cfg config.ServerConfig) (Client, error) {
	switch cfg.Transport {
	case api.TransportStdio:
		if cfg.Command == "" {
			return nil, fmt.Errorf("command is required for stdio transport")
		}
		return NewStdioClient(cfg.Command, cfg.Args, cfg.Env), nil

	case api.TransportSSE:
		if cfg.URL == "" {
			return nil, fmt.Errorf("url is required for sse transport")
		}
		return NewSSEClient(cfg.URL, cfg.Headers), nil

	case api.TransportStreamableHTTP:
		if cfg.URL == "" {
			return nil, fmt.Errorf("url is required for streamable-http transport")
		}
		return NewStreamableHTTPClient(cfg.URL, cfg.Headers), nil

	default:
		return nil, fmt.Errorf("unsupported transport %q (supported: %s, %s, %s)",
			cfg.Transport, api.TransportStdio, api.TransportSSE, api.TransportStreamableHTTP)
	}
}
