package groups

import (
	"context"
	"testing"

	"mcphub/internal/api"
	"mcphub/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticPool implements api.ServerPoolHandler over fixed tool tables.
type staticPool struct {
	tools     map[string][]api.Tool
	connected []string
}

func (s *staticPool) GetServerTools(id string) []api.Tool { return s.tools[id] }

func (s *staticPool) GetServerStatus(id string) (api.ServerStatus, bool) {
	if _, ok := s.tools[id]; !ok {
		return api.ServerStatus{}, false
	}
	return api.ServerStatus{ID: id, State: api.StateConnected}, true
}

func (s *staticPool) GetAllServerStatuses() []api.ServerStatus { return nil }

func (s *staticPool) ExecuteToolOnServer(ctx context.Context, id, toolName string, args map[string]interface{}) (*api.ToolResult, error) {
	return nil, nil
}

func (s *staticPool) HealthCheck(ctx context.Context, id string) bool { return true }

func (s *staticPool) ConnectedServerIDs() []string { return s.connected }

func testPool() *staticPool {
	return &staticPool{
		tools: map[string][]api.Tool{
			"math":  {{Name: "add", ServerID: "math"}, {Name: "mul", ServerID: "math"}},
			"files": {{Name: "read_file", ServerID: "files"}, {Name: "add", ServerID: "files"}},
		},
		connected: []string{"files", "math"},
	}
}

func testGroups() []config.GroupConfig {
	return []config.GroupConfig{
		{ID: "default", Servers: []string{"math", "files"}},
		{ID: "math-only", Name: "Math", Servers: []string{"math"}, AllowedTools: []string{"add", "mul"}},
		{ID: "files-first", Servers: []string{"files", "math"}},
	}
}

func TestGetGroup(t *testing.T) {
	r := New(testGroups(), testPool())

	g, ok := r.GetGroup("math-only")
	require.True(t, ok)
	assert.Equal(t, "Math", g.Name)
	assert.Equal(t, []string{"math"}, g.Servers)

	_, ok = r.GetGroup("ghost")
	assert.False(t, ok)
}

func TestGetAllGroups_PreservesOrder(t *testing.T) {
	r := New(testGroups(), testPool())
	all := r.GetAllGroups()
	require.Len(t, all, 3)
	assert.Equal(t, "default", all[0].ID)
	assert.Equal(t, "math-only", all[1].ID)
	assert.Equal(t, "files-first", all[2].ID)
}

func TestValidateToolAccess(t *testing.T) {
	r := New(testGroups(), testPool())

	tests := []struct {
		group   string
		tool    string
		allowed bool
	}{
		{"default", "add", true},
		{"default", "read_file", true},
		{"math-only", "add", true},
		{"math-only", "read_file", false},
		{"ghost", "add", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.allowed, r.ValidateToolAccess(tt.group, tt.tool),
			"group=%s tool=%s", tt.group, tt.tool)
	}
}

func TestFindToolInGroup_FirstServerWins(t *testing.T) {
	r := New(testGroups(), testPool())

	// "add" exists on both servers; configured order decides.
	serverID, found := r.FindToolInGroup("default", "add")
	require.True(t, found)
	assert.Equal(t, "math", serverID)

	serverID, found = r.FindToolInGroup("files-first", "add")
	require.True(t, found)
	assert.Equal(t, "files", serverID)

	_, found = r.FindToolInGroup("math-only", "read_file")
	assert.False(t, found)

	_, found = r.FindToolInGroup("ghost", "add")
	assert.False(t, found)
}

func TestSynthesizedDefaultGroup(t *testing.T) {
	pool := testPool()
	r := New(nil, pool)

	g, ok := r.GetGroup("default")
	require.True(t, ok, "default group synthesized when no groups are configured")
	assert.ElementsMatch(t, []string{"math", "files"}, g.Servers)
	assert.Empty(t, g.AllowedTools)

	assert.True(t, r.ValidateToolAccess("default", "anything"))

	serverID, found := r.FindToolInGroup("default", "read_file")
	require.True(t, found)
	assert.Equal(t, "files", serverID)

	all := r.GetAllGroups()
	require.Len(t, all, 1)
	assert.Equal(t, "default", all[0].ID)
}

func TestConfiguredDefaultNotShadowed(t *testing.T) {
	r := New([]config.GroupConfig{
		{ID: "default", Servers: []string{"math"}, AllowedTools: []string{"add"}},
	}, testPool())

	g, ok := r.GetGroup("default")
	require.True(t, ok)
	assert.Equal(t, []string{"math"}, g.Servers)
	assert.False(t, r.ValidateToolAccess("default", "read_file"))

	all := r.GetAllGroups()
	assert.Len(t, all, 1, "no synthesized duplicate next to a configured default")
}
