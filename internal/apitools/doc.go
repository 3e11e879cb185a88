// Package apitools exposes config-defined HTTP endpoints as MCP tools
// under the sentinel server id "api-tools".
//
// Each tool is an HTTP request template. At call time the bridge renders
// the template from the call arguments (${data.*}) and the process
// environment (${env.*}), performs the request, optionally reshapes the
// JSON response with gjson/sjson expressions, and wraps the outcome in the
// hub's canonical tool result. Per-tool response caching and fsnotify-based
// config hot reload are supported.
package apitools
