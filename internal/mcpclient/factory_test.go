package mcpclient

import (
	"testing"

	"mcphub/internal/api"
	"mcphub/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFromConfig(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.ServerConfig
		wantType interface{}
		wantErr  string
	}{
		{
			name:     "stdio",
			cfg:      config.ServerConfig{ID: "a", Transport: api.TransportStdio, Command: "server"},
			wantType: &StdioClient{},
		},
		{
			name:     "sse",
			cfg:      config.ServerConfig{ID: "a", Transport: api.TransportSSE, URL: "https://x/sse"},
			wantType: &SSEClient{},
		},
		{
			name:     "streamable-http",
			cfg:      config.ServerConfig{ID: "a", Transport: api.TransportStreamableHTTP, URL: "https://x/mcp"},
			wantType: &StreamableHTTPClient{},
		},
		{
			name:    "stdio without command",
			cfg:     config.ServerConfig{ID: "a", Transport: api.TransportStdio},
			wantErr: "command is required",
		},
		{
			name:    "sse without url",
			cfg:     config.ServerConfig{ID: "a", Transport: api.TransportSSE},
			wantErr: "url is required",
		},
		{
			name:    "unknown transport",
			cfg:     config.ServerConfig{ID: "a", Transport: "smoke-signal"},
			wantErr: "unsupported transport",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewFromConfig(tt.cfg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.wantType, client)
		})
	}
}

func TestClientNotConnectedErrors(t *testing.T) {
	c := NewStdioClient("server", nil, nil)

	_, err := c.ListTools(t.Context())
	assert.ErrorContains(t, err, "not connected")

	_, err = c.CallTool(t.Context(), "add", nil)
	assert.ErrorContains(t, err, "not connected")

	assert.Error(t, c.Ping(t.Context()))
	assert.NoError(t, c.Close(), "closing a never-opened client is a no-op")
}
