package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"mcphub/internal/api"
	"mcphub/internal/metrics"
	"mcphub/pkg/logging"
)

// sseFrame is the wire shape of one event stream frame.
type sseFrame struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp string      `json:"timestamp"`
}

// handleEvents serves the SSE event stream. An optional "types" query
// parameter restricts the subscription, e.g. ?types=tool_execution,ping.
// Replayed history arrives first, then live events; the bus's ping ticker
// doubles as the stream heartbeat.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	var types []api.EventType
	if raw := r.URL.Query().Get("types"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				types = append(types, api.EventType(t))
			}
		}
	}

	bus := s.hub.EventBus()
	subID, ch := bus.Subscribe(types)
	defer bus.Unsubscribe(subID)

	metrics.EventSubscribers.Inc()
	defer metrics.EventSubscribers.Dec()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	logging.Debug("HTTPServer", "Event stream attached: %s", subID)

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-ch:
			if !ok {
				// Evicted or bus shut down.
				return
			}
			frame := sseFrame{
				Type:      string(event.Type),
				Data:      event.Data,
				Timestamp: event.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
			}
			payload, err := json.Marshal(frame)
			if err != nil {
				logging.Debug("HTTPServer", "Failed to marshal event: %v", err)
				continue
			}
			if _, err := w.Write([]byte("data: " + string(payload) + "\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
