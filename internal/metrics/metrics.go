// Package metrics holds the hub's Prometheus instruments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ToolCalls counts dispatched tool calls.
	ToolCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mcphub_tool_calls_total",
		Help: "The total number of dispatched tool calls",
	}, []string{"server", "tool", "status"}) // status: success, error

	// ToolCallDuration measures end-to-end dispatch latency.
	ToolCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mcphub_tool_call_duration_seconds",
		Help:    "Time taken to dispatch a tool call",
		Buckets: prometheus.DefBuckets,
	}, []string{"server"})

	// ToolCallRetries counts retry attempts beyond the first.
	ToolCallRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mcphub_tool_call_retries_total",
		Help: "The total number of tool call retry attempts",
	})

	// ServersConnected tracks the number of connected upstream servers.
	ServersConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mcphub_servers_connected",
		Help: "Number of upstream MCP servers currently connected",
	})

	// CatalogLookups counts catalog reads by outcome.
	CatalogLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mcphub_catalog_lookups_total",
		Help: "The total number of tool catalog lookups",
	}, []string{"outcome"}) // outcome: hit, miss

	// EventSubscribers tracks attached event subscribers.
	EventSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mcphub_event_subscribers",
		Help: "Number of attached event stream subscribers",
	})
)
