package apitools

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"mcphub/internal/api"
	"mcphub/internal/config"
	"mcphub/pkg/logging"
)

// ReloadCallback is invoked after a successful config reload so the
// coordinator can invalidate the tool catalog.
type ReloadCallback func()

// Bridge exposes HTTP-tool configs as MCP tools.
type Bridge struct {
	mu          sync.RWMutex
	byName      map[string]config.APIToolConfig
	initialized bool
	lastReload  *time.Time
	configPath  string

	httpClient *http.Client
	cache      *responseCache

	onReload ReloadCallback

	watcher *watcher
}

// Compile-time interface compliance check
var _ api.ToolBridgeHandler = (*Bridge)(nil)

// New creates a bridge with no tools loaded. Call Initialize (or
// ReloadConfig) to load definitions.
func New(configPath string) *Bridge {
	return &Bridge{
		byName:     make(map[string]config.APIToolConfig),
		configPath: configPath,
		httpClient: &http.Client{},
		cache:      newResponseCache(),
	}
}

// SetReloadCallback registers the post-reload hook.
func (b *Bridge) SetReloadCallback(cb ReloadCallback) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onReload = cb
}

// Initialize loads the tool definitions and starts the config watcher.
// A bridge without a config path initializes empty and healthy; the hub is
// usable without any HTTP tools.
func (b *Bridge) Initialize() error {
	if b.configPath == "" {
		b.mu.Lock()
		b.initialized = true
		b.mu.Unlock()
		logging.Info("APIToolBridge", "No API tool config, bridge starts empty")
		return nil
	}

	if err := b.ReloadConfig(); err != nil {
		return err
	}

	w, err := newWatcher(b.configPath, func() {
		if err := b.ReloadConfig(); err != nil {
			logging.Error("APIToolBridge", err, "Automatic reload failed, keeping previous tool set")
		}
	})
	if err != nil {
		logging.Warn("APIToolBridge", "Config watcher unavailable: %v", err)
	} else {
		b.watcher = w
	}
	return nil
}

// ReloadConfig atomically replaces the tool set from the config file.
// On failure the previous tool set stays in place.
func (b *Bridge) ReloadConfig() error {
	cfg, err := config.LoadAPITools(b.configPath)
	if err != nil {
		return err
	}

	byName := make(map[string]config.APIToolConfig, len(cfg.Tools))
	for _, tool := range cfg.Tools {
		byName[tool.ToolName()] = tool
	}

	now := time.Now()
	b.mu.Lock()
	b.byName = byName
	b.initialized = true
	b.lastReload = &now
	b.cache.clear()
	cb := b.onReload
	b.mu.Unlock()

	logging.Info("APIToolBridge", "Loaded %d API tools", len(byName))
	if cb != nil {
		cb()
	}
	return nil
}

// Shutdown stops the config watcher.
func (b *Bridge) Shutdown() error {
	if b.watcher != nil {
		b.watcher.stop()
	}
	return nil
}

// GetTools lists the bridged tools under the api-tools server id.
func (b *Bridge) GetTools() []api.Tool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	tools := make([]api.Tool, 0, len(b.byName))
	for name, cfg := range b.byName {
		tools = append(tools, api.Tool{
			Name:        name,
			Description: cfg.Description,
			InputSchema: cfg.Parameters,
			ServerID:    api.APIToolsServerID,
		})
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
	return tools
}

// HasTool reports whether the bridge owns a tool with the given name.
func (b *Bridge) HasTool(name string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.byName[name]
	return ok
}

// Health reports the bridge's observable state.
func (b *Bridge) Health() api.BridgeHealth {
	b.mu.RLock()
	defer b.mu.RUnlock()

	health := api.BridgeHealth{
		Initialized: b.initialized,
		Healthy:     b.initialized,
		ToolCount:   len(b.byName),
	}
	if b.lastReload != nil {
		t := *b.lastReload
		health.LastReload = &t
	}
	return health
}

// lookup returns the config for a tool name.
func (b *Bridge) lookup(name string) (config.APIToolConfig, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	cfg, ok := b.byName[name]
	return cfg, ok
}

// ExecuteTool renders and performs the configured HTTP request. See
// execute.go for the pipeline.
func (b *Bridge) ExecuteTool(ctx context.Context, name string, args map[string]interface{}) (*api.ToolResult, error) {
	cfg, ok := b.lookup(name)
	if !ok {
		return api.ErrorResult("API tool '%s' not found", name), nil
	}
	return b.execute(ctx, cfg, args)
}
