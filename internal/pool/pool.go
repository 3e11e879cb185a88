package pool

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"mcphub/internal/api"
	"mcphub/internal/config"
	"mcphub/internal/mcpclient"
	"mcphub/pkg/logging"

	"golang.org/x/sync/errgroup"
)

const (
	// MaxReconnectAttempts bounds the reconnect counter per server.
	MaxReconnectAttempts = 3

	// reconnectBaseBackoff is the delay before the first reconnect attempt;
	// it doubles per attempt up to reconnectMaxBackoff.
	reconnectBaseBackoff = 1 * time.Second
	reconnectMaxBackoff  = 5 * time.Second
)

// ClientFactory builds an upstream client for a server configuration.
// Tests substitute this to inject mock clients.
type ClientFactory func(cfg config.ServerConfig) (mcpclient.Client, error)

// StateChangeCallback is invoked after every state transition, outside the
// pool lock. The coordinator wires it to the event bus and the catalog.
type StateChangeCallback func(serverID string, oldState, newState api.ServerState, err error)

// entry tracks one upstream server. All fields are guarded by the pool
// mutex; the client's own operations run outside the lock.
type entry struct {
	cfg               config.ServerConfig
	client            mcpclient.Client
	state             api.ServerState
	tools             []api.Tool
	lastConnected     *time.Time
	lastError         error
	reconnectAttempts int
	healthChecks      int
}

// Pool manages connections to all configured upstream MCP servers.
type Pool struct {
	mu      sync.RWMutex
	servers map[string]*entry

	factory       ClientFactory
	onStateChange StateChangeCallback

	shutdownMu   sync.Mutex
	shuttingDown bool
}

// Compile-time interface compliance check
var _ api.ServerPoolHandler = (*Pool)(nil)

// New creates an empty pool using the default client factory.
func New() *Pool {
	return NewWithFactory(mcpclient.NewFromConfig)
}

// NewWithFactory creates an empty pool with a custom client factory.
func NewWithFactory(factory ClientFactory) *Pool {
	return &Pool{
		servers: make(map[string]*entry),
		factory: factory,
	}
}

// SetStateChangeCallback registers the transition callback. Must be called
// before Initialize.
func (p *Pool) SetStateChangeCallback(cb StateChangeCallback) {
	p.onStateChange = cb
}

// Initialize connects every enabled server in parallel. Per-server
// failures are isolated; initialization fails only if every server fails
// to connect. A pool with no enabled servers initializes successfully.
func (p *Pool) Initialize(ctx context.Context, configs []config.ServerConfig) error {
	var enabled []config.ServerConfig
	for _, cfg := range configs {
		if !cfg.IsEnabled() {
			logging.Info("ServerPool", "Server %s is disabled, skipping", cfg.ID)
			continue
		}
		enabled = append(enabled, cfg)
	}

	if len(enabled) == 0 {
		logging.Warn("ServerPool", "No enabled MCP servers configured")
		return nil
	}

	// Connections are independent; one failure must not cancel the rest,
	// so the group carries no shared context.
	var g errgroup.Group
	var connMu sync.Mutex
	var failures []error

	for _, cfg := range enabled {
		cfg := cfg
		g.Go(func() error {
			if err := p.CreateConnection(ctx, cfg); err != nil {
				connMu.Lock()
				failures = append(failures, err)
				connMu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(failures) == len(enabled) {
		return fmt.Errorf("all %d MCP servers failed to connect: %w", len(enabled), failures[0])
	}

	connected := len(enabled) - len(failures)
	logging.Info("ServerPool", "Initialized with %d/%d servers connected", connected, len(enabled))
	return nil
}

// CreateConnection establishes a connection for one server. It is
// idempotent: an existing entry is closed and replaced. Disabled servers
// are skipped without creating an entry. A failed connection leaves the
// entry in the error state and returns a ConnectionError.
func (p *Pool) CreateConnection(ctx context.Context, cfg config.ServerConfig) error {
	if !cfg.IsEnabled() {
		return nil
	}

	// Replace any existing entry first.
	p.mu.Lock()
	if old, exists := p.servers[cfg.ID]; exists {
		client := old.client
		delete(p.servers, cfg.ID)
		p.mu.Unlock()
		if client != nil {
			if err := client.Close(); err != nil {
				logging.Warn("ServerPool", "Error closing previous client for %s: %v", cfg.ID, err)
			}
		}
		p.mu.Lock()
	}
	e := &entry{cfg: cfg, state: api.StateDisconnected}
	p.servers[cfg.ID] = e
	p.mu.Unlock()

	return p.connect(ctx, cfg.ID)
}

// connect drives the disconnected/error → connecting → connected|error
// transition for an existing entry.
func (p *Pool) connect(ctx context.Context, id string) error {
	p.mu.RLock()
	e, exists := p.servers[id]
	if !exists {
		p.mu.RUnlock()
		return fmt.Errorf("server %s not found", id)
	}
	cfg := e.cfg
	state := e.state
	p.mu.RUnlock()

	// A reconnect already sits in the reconnecting state and moves to
	// connected or error directly.
	if state != api.StateReconnecting {
		p.setState(id, api.StateConnecting, nil)
	}

	client, err := p.factory(cfg)
	if err != nil {
		p.setState(id, api.StateError, err)
		return &api.ConnectionError{ServerID: id, Err: err}
	}

	if err := client.Initialize(ctx); err != nil {
		p.setState(id, api.StateError, err)
		return &api.ConnectionError{ServerID: id, Err: err}
	}

	now := time.Now()
	p.mu.Lock()
	if e, exists := p.servers[id]; exists {
		e.client = client
		e.lastConnected = &now
		e.reconnectAttempts = 0
	}
	p.mu.Unlock()

	// Discover tools before announcing the connected state, so catalog
	// invalidation never observes a connected server with a stale list.
	p.discoverTools(ctx, id, client)
	p.setState(id, api.StateConnected, nil)

	logging.Info("ServerPool", "Server %s connected", id)
	return nil
}

// discoverTools refreshes the cached tool list. A discovery failure leaves
// the list empty but does not change the server's state.
func (p *Pool) discoverTools(ctx context.Context, id string, client mcpclient.Client) {
	tools, err := client.ListTools(ctx)
	if err != nil {
		logging.Warn("ServerPool", "Tool discovery failed for %s: %v", id, err)
		tools = nil
	}

	converted := make([]api.Tool, 0, len(tools))
	for _, t := range tools {
		converted = append(converted, api.ToolFromMCP(t, id))
	}

	p.mu.Lock()
	if e, exists := p.servers[id]; exists {
		e.tools = converted
	}
	p.mu.Unlock()

	logging.Debug("ServerPool", "Server %s has %d tools", id, len(converted))
}

// CloseConnection gracefully disconnects one server and removes its entry.
func (p *Pool) CloseConnection(id string) error {
	p.mu.Lock()
	e, exists := p.servers[id]
	if !exists {
		p.mu.Unlock()
		return fmt.Errorf("server %s not found", id)
	}
	client := e.client
	p.mu.Unlock()

	p.setState(id, api.StateDisconnected, nil)

	if client != nil {
		if err := client.Close(); err != nil {
			logging.Warn("ServerPool", "Error closing client for %s: %v", id, err)
		}
	}

	p.mu.Lock()
	delete(p.servers, id)
	p.mu.Unlock()

	logging.Info("ServerPool", "Server %s closed and removed from pool", id)
	return nil
}

// Reconnect retries a server in the error state. Attempts beyond
// MaxReconnectAttempts are rejected; backoff grows exponentially with the
// attempt counter.
func (p *Pool) Reconnect(ctx context.Context, id string) error {
	p.mu.Lock()
	e, exists := p.servers[id]
	if !exists {
		p.mu.Unlock()
		return fmt.Errorf("server %s not found", id)
	}
	if e.state != api.StateError {
		p.mu.Unlock()
		return fmt.Errorf("server %s is not in error state (state: %s)", id, e.state)
	}
	if e.reconnectAttempts >= MaxReconnectAttempts {
		p.mu.Unlock()
		return fmt.Errorf("server %s exceeded %d reconnect attempts", id, MaxReconnectAttempts)
	}
	e.reconnectAttempts++
	attempt := e.reconnectAttempts
	old := e.client
	e.client = nil
	p.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}

	p.setState(id, api.StateReconnecting, nil)

	backoff := backoffForAttempt(attempt)
	logging.Info("ServerPool", "Reconnecting server %s (attempt %d/%d) after %v", id, attempt, MaxReconnectAttempts, backoff)
	select {
	case <-time.After(backoff):
	case <-ctx.Done():
		p.setState(id, api.StateError, ctx.Err())
		return ctx.Err()
	}

	return p.connect(ctx, id)
}

// backoffForAttempt computes 1s × 2^(attempt−1), capped at 5s.
func backoffForAttempt(attempt int) time.Duration {
	backoff := reconnectBaseBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
		if backoff >= reconnectMaxBackoff {
			return reconnectMaxBackoff
		}
	}
	return backoff
}

// HealthCheck pings one server. It increments the health-check counter and
// returns true only when the server is connected and the underlying client
// answers. A failed check moves the server to the error state.
func (p *Pool) HealthCheck(ctx context.Context, id string) bool {
	p.mu.Lock()
	e, exists := p.servers[id]
	if !exists {
		p.mu.Unlock()
		return false
	}
	e.healthChecks++
	state := e.state
	client := e.client
	p.mu.Unlock()

	if state != api.StateConnected || client == nil {
		return false
	}

	if err := client.Ping(ctx); err != nil {
		logging.Warn("ServerPool", "Health check failed for %s: %v", id, err)
		p.setState(id, api.StateError, fmt.Errorf("health check failed: %w", err))
		return false
	}
	return true
}

// ExecuteToolOnServer forwards a tool call to the owning server's client.
func (p *Pool) ExecuteToolOnServer(ctx context.Context, id, toolName string, args map[string]interface{}) (*api.ToolResult, error) {
	p.mu.RLock()
	e, exists := p.servers[id]
	if !exists {
		p.mu.RUnlock()
		return nil, fmt.Errorf("server '%s' not found: %w", id, api.ErrServerNotConnected)
	}
	if e.state != api.StateConnected || e.client == nil {
		state := e.state
		p.mu.RUnlock()
		return nil, fmt.Errorf("server '%s' is not available (status: %s): %w", id, state, api.ErrServerNotConnected)
	}
	client := e.client
	known := false
	for _, t := range e.tools {
		if t.Name == toolName {
			known = true
			break
		}
	}
	p.mu.RUnlock()

	if !known {
		return nil, fmt.Errorf("tool '%s' not found on server '%s': %w", toolName, id, api.ErrToolNotFound)
	}

	result, err := client.CallTool(ctx, toolName, args)
	if err != nil {
		return nil, err
	}
	return normalizeMCPResult(result), nil
}

// GetServerTools returns a copy of the cached tool list. The list is empty
// unless the server is connected.
func (p *Pool) GetServerTools(id string) []api.Tool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	e, exists := p.servers[id]
	if !exists || e.state != api.StateConnected {
		return nil
	}
	tools := make([]api.Tool, len(e.tools))
	copy(tools, e.tools)
	return tools
}

// GetServerStatus returns a snapshot for one server.
func (p *Pool) GetServerStatus(id string) (api.ServerStatus, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	e, exists := p.servers[id]
	if !exists {
		return api.ServerStatus{}, false
	}
	return statusLocked(e), true
}

// GetAllServerStatuses returns snapshots for every pooled server, sorted
// by id for stable output.
func (p *Pool) GetAllServerStatuses() []api.ServerStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()

	statuses := make([]api.ServerStatus, 0, len(p.servers))
	for _, e := range p.servers {
		statuses = append(statuses, statusLocked(e))
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].ID < statuses[j].ID })
	return statuses
}

// ConnectedServerIDs lists servers currently in the connected state.
func (p *Pool) ConnectedServerIDs() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var ids []string
	for id, e := range p.servers {
		if e.state == api.StateConnected {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Shutdown closes every connection. It is idempotent; concurrent calls
// coalesce on the in-progress flag.
func (p *Pool) Shutdown() error {
	p.shutdownMu.Lock()
	if p.shuttingDown {
		p.shutdownMu.Unlock()
		return nil
	}
	p.shuttingDown = true
	p.shutdownMu.Unlock()

	p.mu.Lock()
	clients := make(map[string]mcpclient.Client, len(p.servers))
	for id, e := range p.servers {
		if e.client != nil {
			clients[id] = e.client
		}
		e.state = api.StateDisconnected
		e.client = nil
		e.tools = nil
	}
	p.servers = make(map[string]*entry)
	p.mu.Unlock()

	for id, client := range clients {
		if err := client.Close(); err != nil {
			logging.Warn("ServerPool", "Error closing client for %s during shutdown: %v", id, err)
		}
	}

	logging.Info("ServerPool", "Shut down, closed %d connections", len(clients))
	return nil
}

// setState applies a transition and fires the callback outside the lock.
func (p *Pool) setState(id string, newState api.ServerState, err error) {
	p.mu.Lock()
	e, exists := p.servers[id]
	if !exists {
		p.mu.Unlock()
		return
	}
	oldState := e.state
	e.state = newState
	if err != nil {
		e.lastError = err
	}
	if newState != api.StateConnected {
		// Invariant: a non-empty tool list implies the connected state.
		e.tools = nil
	}
	cb := p.onStateChange
	p.mu.Unlock()

	if oldState == newState {
		return
	}
	logging.Debug("ServerPool", "Server %s: %s -> %s", id, oldState, newState)
	if cb != nil {
		cb(id, oldState, newState, err)
	}
}

func statusLocked(e *entry) api.ServerStatus {
	status := api.ServerStatus{
		ID:                e.cfg.ID,
		State:             e.state,
		Transport:         e.cfg.Transport,
		Enabled:           e.cfg.IsEnabled(),
		ToolCount:         len(e.tools),
		ReconnectAttempts: e.reconnectAttempts,
		HealthChecks:      e.healthChecks,
	}
	if e.lastConnected != nil {
		t := *e.lastConnected
		status.LastConnected = &t
	}
	if e.lastError != nil {
		status.LastError = e.lastError.Error()
	}
	return status
}
