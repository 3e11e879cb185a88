package hub

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mcphub/internal/api"
	"mcphub/internal/config"
	"mcphub/internal/mcpclient"
	"mcphub/internal/pool"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hubMockClient implements mcpclient.Client for facade tests.
type hubMockClient struct {
	mu       sync.Mutex
	tools    []mcp.Tool
	initErr  error
	pingErr  error
	callFunc func(name string, args map[string]interface{}) (*mcp.CallToolResult, error)
}

func (m *hubMockClient) Initialize(ctx context.Context) error { return m.initErr }
func (m *hubMockClient) Close() error                         { return nil }

func (m *hubMockClient) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	return m.tools, nil
}

func (m *hubMockClient) CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error) {
	m.mu.Lock()
	fn := m.callFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(name, args)
	}
	return mcp.NewToolResultText("ok"), nil
}

func (m *hubMockClient) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pingErr
}

func (m *hubMockClient) setCallFunc(fn func(name string, args map[string]interface{}) (*mcp.CallToolResult, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callFunc = fn
}

func (m *hubMockClient) setPingErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingErr = err
}

func addTool() mcp.Tool {
	return mcp.Tool{
		Name: "add",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"a": map[string]interface{}{"type": "number"},
				"b": map[string]interface{}{"type": "number"},
			},
			Required: []string{"a", "b"},
		},
	}
}

func testHub(t *testing.T, client *hubMockClient) *Hub {
	t.Helper()
	cfg := config.HubConfig{
		MCPServers: []config.ServerConfig{
			{ID: "math", Transport: api.TransportStdio, Command: "math-server"},
		},
		Groups: []config.GroupConfig{
			{ID: "default", Servers: []string{"math"}},
		},
	}
	p := pool.NewWithFactory(func(c config.ServerConfig) (mcpclient.Client, error) {
		return client, nil
	})
	return NewWithPool(cfg, p)
}

func TestHubLifecycle(t *testing.T) {
	client := &hubMockClient{tools: []mcp.Tool{addTool()}}
	client.setCallFunc(func(name string, args map[string]interface{}) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText("7"), nil
	})
	h := testHub(t, client)

	ctx := context.Background()
	require.NoError(t, h.Initialize(ctx))
	// Initialize is idempotent.
	require.NoError(t, h.Initialize(ctx))

	tools, err := h.ListTools("")
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "add", tools[0].Name)

	result, err := h.CallTool(ctx, "add", map[string]interface{}{"a": 3.0, "b": 4.0}, "default")
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, "7", result.Content[0].Text)

	status := h.GetServiceStatus()
	assert.Equal(t, StatusHealthy, status.Status)
	assert.Equal(t, 1, status.ServersConnected)

	require.NoError(t, h.Shutdown(ctx))
}

func TestHubRejectsCallsBeforeInitialize(t *testing.T) {
	h := testHub(t, &hubMockClient{})

	_, err := h.ListTools("")
	assert.ErrorIs(t, err, api.ErrNotInitialized)

	result, err := h.CallTool(context.Background(), "add", nil, "")
	assert.ErrorIs(t, err, api.ErrNotInitialized)
	assert.True(t, result.IsError)
}

func TestHubRejectsCallsAfterShutdown(t *testing.T) {
	h := testHub(t, &hubMockClient{tools: []mcp.Tool{addTool()}})
	ctx := context.Background()
	require.NoError(t, h.Initialize(ctx))
	require.NoError(t, h.Shutdown(ctx))

	_, err := h.ListTools("")
	assert.ErrorIs(t, err, api.ErrShuttingDown)
}

func TestHubShutdownDrainsInflightCalls(t *testing.T) {
	client := &hubMockClient{tools: []mcp.Tool{addTool()}}
	started := make(chan struct{})
	client.setCallFunc(func(name string, args map[string]interface{}) (*mcp.CallToolResult, error) {
		close(started)
		time.Sleep(200 * time.Millisecond)
		return mcp.NewToolResultText("late"), nil
	})
	h := testHub(t, client)
	ctx := context.Background()
	require.NoError(t, h.Initialize(ctx))

	callDone := make(chan *api.ToolResult, 1)
	go func() {
		result, _ := h.CallTool(ctx, "add", map[string]interface{}{"a": 1.0, "b": 2.0}, "")
		callDone <- result
	}()

	<-started
	shutdownCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, h.Shutdown(shutdownCtx))

	select {
	case result := <-callDone:
		assert.Equal(t, "late", result.Content[0].Text, "in-flight call completed during shutdown")
	case <-time.After(time.Second):
		t.Fatal("in-flight call did not return")
	}
}

func TestHubConcurrentShutdownCoalesces(t *testing.T) {
	h := testHub(t, &hubMockClient{tools: []mcp.Tool{addTool()}})
	ctx := context.Background()
	require.NoError(t, h.Initialize(ctx))

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = h.Shutdown(ctx)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, results[0], results[1], "both shutdown callers receive the same result")
}

func TestHubCatalogReflectsServerFailure(t *testing.T) {
	client := &hubMockClient{tools: []mcp.Tool{addTool()}}
	h := testHub(t, client)
	ctx := context.Background()
	require.NoError(t, h.Initialize(ctx))
	defer h.Shutdown(ctx)

	tools, err := h.ListTools("")
	require.NoError(t, err)
	require.Len(t, tools, 1)

	// The server drops; the failed health check transitions it to error,
	// which invalidates the catalog immediately.
	client.setPingErr(errors.New("broken pipe"))
	h.HealthCheckServers(ctx)

	tools, err = h.ListTools("")
	require.NoError(t, err)
	assert.Empty(t, tools, "tools of a failed server disappear from the listing")
}

func TestHubIsToolAvailableAndDetails(t *testing.T) {
	h := testHub(t, &hubMockClient{tools: []mcp.Tool{addTool()}})
	ctx := context.Background()
	require.NoError(t, h.Initialize(ctx))
	defer h.Shutdown(ctx)

	assert.True(t, h.IsToolAvailable("add", ""))
	assert.False(t, h.IsToolAvailable("ghost", ""))

	tool, ok := h.GetToolDetails("add", "")
	require.True(t, ok)
	assert.Equal(t, "math", tool.ServerID)
	assert.Equal(t, []string{"a", "b"}, tool.InputSchema.Required)
}

func TestHubGroupInfoAndDiagnostics(t *testing.T) {
	h := testHub(t, &hubMockClient{tools: []mcp.Tool{addTool()}})
	ctx := context.Background()
	require.NoError(t, h.Initialize(ctx))
	defer h.Shutdown(ctx)

	details, ok := h.GetGroupInfo("default")
	require.True(t, ok)
	require.Len(t, details.ServerHealth, 1)
	assert.Equal(t, api.StateConnected, details.ServerHealth[0].State)

	_, ok = h.GetGroupInfo("ghost")
	assert.False(t, ok)

	diag := h.GetServiceDiagnostics()
	assert.Len(t, diag.Servers, 1)
	assert.NotEmpty(t, diag.Groups)
}

func TestFormatErrorResponse(t *testing.T) {
	resp := FormatErrorResponse(api.ErrGroupNotFound)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "GROUP_NOT_FOUND", resp.Error.Code)
	assert.False(t, resp.Timestamp.IsZero())

	ok := SuccessResponse(map[string]int{"n": 1})
	assert.True(t, ok.Success)
	assert.Nil(t, ok.Error)
}

func TestHubInitializeFailsWhenAllServersFail(t *testing.T) {
	client := &hubMockClient{initErr: errors.New("connection refused")}
	h := testHub(t, client)

	err := h.Initialize(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server pool initialization failed")
}
