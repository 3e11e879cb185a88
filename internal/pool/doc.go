// Package pool owns the connections to upstream MCP servers.
//
// Each configured server gets one entry with a small state machine
// (disconnected, connecting, connected, error, reconnecting). The pool
// creates connections in parallel at startup, discovers tools after a
// successful handshake, reconnects with exponential backoff, and isolates
// per-server failures: initialization succeeds as long as at least one
// server comes up.
package pool
