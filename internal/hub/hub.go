// Package hub composes the server pool, the HTTP bridge, the catalog, the
// group resolver, the dispatcher and the event bus behind one facade, and
// coordinates their ordered startup and shutdown.
package hub

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"mcphub/internal/api"
	"mcphub/internal/apitools"
	"mcphub/internal/catalog"
	"mcphub/internal/config"
	"mcphub/internal/dispatch"
	"mcphub/internal/events"
	"mcphub/internal/groups"
	"mcphub/internal/metrics"
	"mcphub/internal/pool"
	"mcphub/pkg/logging"
)

// InitTimeout is the overall deadline for hub initialization.
const InitTimeout = 30 * time.Second

// Status reports the hub's aggregate health.
type Status string

const (
	StatusInitializing Status = "initializing"
	StatusHealthy      Status = "healthy"
	StatusDegraded     Status = "degraded"
)

// Hub is the single outward-facing interface of the process. One instance
// exists per process, created at boot and owned by the CLI entrypoint.
type Hub struct {
	cfg config.HubConfig

	bus      *events.Bus
	pool     *pool.Pool
	bridge   *apitools.Bridge
	resolver *groups.Resolver
	catalog  *catalog.Catalog
	engine   *dispatch.Engine

	mu          sync.Mutex
	initialized bool

	// In-flight call tracking for graceful shutdown.
	inflight  sync.WaitGroup
	acceptMu  sync.RWMutex
	accepting bool
	rejectErr error

	shutdownMu  sync.Mutex
	isShutdown  bool
	shutdownErr error
}

// New creates an uninitialized hub for the given configuration.
func New(cfg config.HubConfig) *Hub {
	return NewWithPool(cfg, pool.New())
}

// NewWithPool creates a hub over a caller-supplied pool. Tests use this to
// inject mock client factories.
func NewWithPool(cfg config.HubConfig, p *pool.Pool) *Hub {
	return &Hub{
		cfg:       cfg,
		bus:       events.New(),
		pool:      p,
		bridge:    apitools.New(cfg.APIToolsFile),
		rejectErr: api.ErrNotInitialized,
	}
}

// Initialize brings the components up in dependency order: event bus,
// server pool (parallel per-server, isolated failures), HTTP bridge,
// group resolver, catalog, dispatcher. It enforces InitTimeout and fails
// only when a core component refuses to come up or every server fails.
func (h *Hub) Initialize(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.initialized {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, InitTimeout)
	defer cancel()

	h.bus.Start()

	// Pool state transitions feed the event bus and invalidate the
	// catalog; the callback is registered before any connection starts.
	h.pool.SetStateChangeCallback(func(serverID string, oldState, newState api.ServerState, err error) {
		errMsg := ""
		if err != nil {
			errMsg = err.Error()
		}
		h.bus.Publish(api.EventServerStatus, api.ServerStatusEvent{
			ServerID: serverID,
			OldState: oldState,
			NewState: newState,
			Error:    errMsg,
		})
		if h.catalog != nil && (oldState == api.StateConnected || newState == api.StateConnected) {
			h.catalog.InvalidateServer(serverID)
		}
		metrics.ServersConnected.Set(float64(len(h.pool.ConnectedServerIDs())))
	})

	if err := h.pool.Initialize(ctx, h.cfg.MCPServers); err != nil {
		h.bus.Shutdown()
		return fmt.Errorf("server pool initialization failed: %w", err)
	}

	if err := h.bridge.Initialize(); err != nil {
		// The bridge is optional; a broken tool file degrades rather than
		// aborts startup.
		logging.Error("Hub", err, "API tool bridge failed to initialize, continuing without it")
	}

	h.resolver = groups.New(h.cfg.Groups, h.pool)
	h.catalog = catalog.New(h.pool, h.bridge, h.resolver)
	h.bridge.SetReloadCallback(h.catalog.ClearCache)
	h.engine = dispatch.New(h.pool, h.bridge, h.resolver, h.bus)

	h.acceptMu.Lock()
	h.accepting = true
	h.acceptMu.Unlock()

	h.initialized = true
	h.bus.Publish(api.EventSystemAlert, api.SystemAlertEvent{
		Severity: "info",
		Message:  "mcphub initialized",
	})
	logging.Info("Hub", "Initialized")
	return nil
}

// Shutdown tears the hub down in reverse order: stop accepting calls,
// drain in-flight dispatches, stop the event bus, the bridge and the
// pool. It is idempotent; concurrent invocations coalesce and every
// caller receives the same aggregate error.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.shutdownMu.Lock()
	defer h.shutdownMu.Unlock()
	if h.isShutdown {
		return h.shutdownErr
	}
	h.isShutdown = true

	h.acceptMu.Lock()
	h.accepting = false
	h.rejectErr = api.ErrShuttingDown
	h.acceptMu.Unlock()

	// Drain in-flight calls up to the caller's deadline.
	drained := make(chan struct{})
	go func() {
		h.inflight.Wait()
		close(drained)
	}()
	var stepErrs []error
	select {
	case <-drained:
	case <-ctx.Done():
		stepErrs = append(stepErrs, fmt.Errorf("shutdown deadline reached with calls in flight: %w", ctx.Err()))
	}

	// Every step runs even when an earlier one fails; errors aggregate.
	h.bus.Shutdown()
	if err := h.bridge.Shutdown(); err != nil {
		stepErrs = append(stepErrs, fmt.Errorf("bridge shutdown: %w", err))
	}
	if err := h.pool.Shutdown(); err != nil {
		stepErrs = append(stepErrs, fmt.Errorf("pool shutdown: %w", err))
	}

	h.mu.Lock()
	h.initialized = false
	h.mu.Unlock()

	h.shutdownErr = errors.Join(stepErrs...)
	logging.Info("Hub", "Shutdown complete")
	return h.shutdownErr
}

// beginCall registers an in-flight call, rejecting new work during
// shutdown or before initialization.
func (h *Hub) beginCall() error {
	h.acceptMu.RLock()
	defer h.acceptMu.RUnlock()
	if !h.accepting {
		return h.rejectErr
	}
	h.inflight.Add(1)
	return nil
}

// EventBus exposes the bus for transports that attach subscribers.
func (h *Hub) EventBus() *events.Bus {
	return h.bus
}
