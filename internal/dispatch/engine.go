// Package dispatch orchestrates a tool call end to end: access check,
// routing, argument validation, execution with retry, result
// normalization and telemetry.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mcphub/internal/api"
	"mcphub/internal/metrics"
	"mcphub/pkg/logging"
)

// Engine routes validated tool calls to the server pool or the HTTP
// bridge.
type Engine struct {
	pool     api.ServerPoolHandler
	bridge   api.ToolBridgeHandler
	resolver api.GroupResolverHandler
	events   api.EventPublisher
}

// New wires a dispatch engine over its collaborators.
func New(pool api.ServerPoolHandler, bridge api.ToolBridgeHandler, resolver api.GroupResolverHandler, events api.EventPublisher) *Engine {
	return &Engine{
		pool:     pool,
		bridge:   bridge,
		resolver: resolver,
		events:   events,
	}
}

// CallTool performs the full dispatch pipeline. Every failure converts to
// a canonical error result; the second return value carries the category
// error for envelope formatting and is nil on success.
func (e *Engine) CallTool(ctx context.Context, toolName string, args map[string]interface{}, groupID string) (*api.ToolResult, error) {
	if groupID == "" {
		groupID = api.DefaultGroupID
	}
	if args == nil {
		args = make(map[string]interface{})
	}
	started := time.Now()

	// Access validation.
	group, ok := e.resolver.GetGroup(groupID)
	if !ok {
		err := fmt.Errorf("group '%s': %w", groupID, api.ErrGroupNotFound)
		return e.fail(toolName, "", groupID, started, 0, err), err
	}
	if len(group.Servers) == 0 && e.bridge.Health().ToolCount == 0 {
		err := &api.AccessError{GroupID: groupID, ToolName: toolName,
			Reason: fmt.Sprintf("Group '%s' has no available servers", groupID)}
		return e.fail(toolName, "", groupID, started, 0, err), err
	}

	// Tool-access validation.
	if !e.resolver.ValidateToolAccess(groupID, toolName) {
		err := &api.AccessError{GroupID: groupID, ToolName: toolName,
			Reason: fmt.Sprintf("Tool '%s' is not accessible in group '%s'", toolName, groupID)}
		return e.fail(toolName, "", groupID, started, 0, err), err
	}

	// Routing. The bridge wins name collisions with MCP tools.
	serverID, schema, routeErr := e.route(groupID, toolName)
	if routeErr != nil {
		return e.fail(toolName, serverID, groupID, started, 0, routeErr), routeErr
	}

	// Argument validation.
	if err := validateArgs(schema, args); err != nil {
		return e.fail(toolName, serverID, groupID, started, 0, err), err
	}

	// Execution with retry.
	result, attempts, execErr := e.executeWithRetry(ctx, serverID, toolName, args)

	duration := time.Since(started)
	metrics.ToolCallDuration.WithLabelValues(serverID).Observe(duration.Seconds())

	if execErr != nil {
		// Cancellation is surfaced distinctly and emits no execution event.
		if errors.Is(execErr, context.Canceled) || errors.Is(execErr, context.DeadlineExceeded) {
			metrics.ToolCalls.WithLabelValues(serverID, toolName, "error").Inc()
			return api.ErrorResult("Tool execution cancelled: %v", execErr), execErr
		}
		return e.fail(toolName, serverID, groupID, started, attempts, execErr), execErr
	}

	metrics.ToolCalls.WithLabelValues(serverID, toolName, "success").Inc()
	e.events.Publish(api.EventToolExecution, api.ToolExecutionEvent{
		ToolName: toolName,
		ServerID: serverID,
		GroupID:  groupID,
		Success:  !result.IsError,
		Duration: duration,
		Attempts: attempts,
	})
	return result, nil
}

// route resolves the owning server and the tool's input schema.
func (e *Engine) route(groupID, toolName string) (string, api.InputSchema, error) {
	if e.bridge.HasTool(toolName) {
		for _, tool := range e.bridge.GetTools() {
			if tool.Name == toolName {
				return api.APIToolsServerID, tool.InputSchema, nil
			}
		}
	}

	serverID, found := e.resolver.FindToolInGroup(groupID, toolName)
	if !found {
		return "", api.InputSchema{}, fmt.Errorf("tool '%s' not found in group '%s': %w", toolName, groupID, api.ErrToolNotFound)
	}

	status, ok := e.pool.GetServerStatus(serverID)
	if !ok || status.State != api.StateConnected {
		state := api.StateDisconnected
		if ok {
			state = status.State
		}
		return serverID, api.InputSchema{}, fmt.Errorf("server '%s' is not available (status: %s): %w", serverID, state, api.ErrServerNotConnected)
	}

	for _, tool := range e.pool.GetServerTools(serverID) {
		if tool.Name == toolName {
			return serverID, tool.InputSchema, nil
		}
	}
	return serverID, api.InputSchema{}, fmt.Errorf("tool '%s' not found on server '%s': %w", toolName, serverID, api.ErrToolNotFound)
}

// executeWithRetry runs the call. MCP tools get the retry loop; API tools
// execute once. Returns the attempts actually made.
func (e *Engine) executeWithRetry(ctx context.Context, serverID, toolName string, args map[string]interface{}) (*api.ToolResult, int, error) {
	if serverID == api.APIToolsServerID {
		result, err := e.bridge.ExecuteTool(ctx, toolName, args)
		if err != nil {
			return nil, 1, err
		}
		return Normalize(result), 1, nil
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, attempt - 1, err
		}

		result, err := e.pool.ExecuteToolOnServer(ctx, serverID, toolName, args)
		if err == nil {
			return Normalize(result), attempt, nil
		}
		lastErr = err

		if !isRetryable(err) || attempt == maxAttempts {
			return nil, attempt, err
		}

		metrics.ToolCallRetries.Inc()
		backoff := backoffForAttempt(attempt)
		logging.Warn("Dispatch", "Tool %s on %s failed (attempt %d/%d), retrying in %v: %v",
			toolName, serverID, attempt, maxAttempts, backoff, err)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, attempt, ctx.Err()
		}
	}
	return nil, maxAttempts, lastErr
}

// fail records metrics and the execution event, and wraps the error in a
// canonical result.
func (e *Engine) fail(toolName, serverID, groupID string, started time.Time, attempts int, err error) *api.ToolResult {
	metrics.ToolCalls.WithLabelValues(serverID, toolName, "error").Inc()
	e.events.Publish(api.EventToolExecution, api.ToolExecutionEvent{
		ToolName: toolName,
		ServerID: serverID,
		GroupID:  groupID,
		Success:  false,
		Error:    err.Error(),
		Duration: time.Since(started),
		Attempts: attempts,
	})

	if attempts > 1 {
		return api.ErrorResult("Tool execution failed after %d attempts: %v", attempts, err)
	}
	var accessErr *api.AccessError
	var validationErr *api.ValidationError
	if errors.As(err, &accessErr) || errors.As(err, &validationErr) {
		return api.ErrorResult("%v", err)
	}
	return api.ErrorResult("Tool execution failed: %v", err)
}
