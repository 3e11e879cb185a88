// Package server is the client-facing HTTP transport: the REST API, the
// SSE event stream and the Prometheus metrics endpoint.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"mcphub/internal/config"
	"mcphub/internal/hub"
	"mcphub/pkg/logging"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server owns the HTTP listener.
type Server struct {
	hub  *hub.Hub
	http *http.Server
}

// New builds the server and its route table.
func New(cfg config.HTTPConfig, h *hub.Hub) *Server {
	s := &Server{hub: h}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/groups", s.handleListGroups)
	mux.HandleFunc("GET /api/groups/{g}", s.handleGroupInfo)
	mux.HandleFunc("GET /api/groups/{g}/tools", s.handleGroupTools)
	mux.HandleFunc("GET /api/tools", s.handleDefaultTools)
	mux.HandleFunc("POST /api/groups/{g}/tools/{t}/execute", s.handleExecute)
	mux.HandleFunc("POST /api/tools/{t}/execute", s.handleExecuteDefault)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/diagnostics", s.handleDiagnostics)
	mux.HandleFunc("GET /api/api-tools/health", s.handleBridgeHealth)
	mux.HandleFunc("POST /api/api-tools/reload", s.handleBridgeReload)
	mux.HandleFunc("GET /api/ping", s.handlePing)
	mux.HandleFunc("GET /events", s.handleEvents)
	mux.Handle("GET /metrics", promhttp.Handler())

	s.http = &http.Server{
		Addr:    net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port)),
		Handler: mux,
	}
	return s
}

// Start runs the listener until the context is cancelled or the listener
// fails.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logging.Info("HTTPServer", "Listening on %s", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return nil
	}
}

// Stop gracefully drains the listener.
func (s *Server) Stop(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, hub.SuccessResponse(s.hub.GetAllGroups()))
}

func (s *Server) handleGroupInfo(w http.ResponseWriter, r *http.Request) {
	groupID := r.PathValue("g")
	details, ok := s.hub.GetGroupInfo(groupID)
	if !ok {
		writeJSON(w, http.StatusNotFound, hub.FormatErrorResponse(fmt.Errorf("group '%s' not found", groupID)))
		return
	}
	writeJSON(w, http.StatusOK, hub.SuccessResponse(details))
}

func (s *Server) handleGroupTools(w http.ResponseWriter, r *http.Request) {
	s.writeTools(w, r.PathValue("g"))
}

func (s *Server) handleDefaultTools(w http.ResponseWriter, r *http.Request) {
	s.writeTools(w, "")
}

func (s *Server) writeTools(w http.ResponseWriter, groupID string) {
	tools, err := s.hub.ListTools(groupID)
	if err != nil {
		status := http.StatusInternalServerError
		if groupID != "" {
			status = http.StatusNotFound
		}
		writeJSON(w, status, hub.FormatErrorResponse(err))
		return
	}
	writeJSON(w, http.StatusOK, hub.SuccessResponse(tools))
}

// executeBody accepts both spellings of the argument field.
type executeBody struct {
	Arguments map[string]interface{} `json:"arguments"`
	Args      map[string]interface{} `json:"args"`
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	s.execute(w, r, r.PathValue("g"), r.PathValue("t"))
}

func (s *Server) handleExecuteDefault(w http.ResponseWriter, r *http.Request) {
	s.execute(w, r, "", r.PathValue("t"))
}

func (s *Server) execute(w http.ResponseWriter, r *http.Request, groupID, toolName string) {
	var body executeBody
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			writeJSON(w, http.StatusInternalServerError, hub.FormatErrorResponse(fmt.Errorf("invalid request body: %w", err)))
			return
		}
	}
	args := body.Arguments
	if args == nil {
		args = body.Args
	}

	result, err := s.hub.CallTool(r.Context(), toolName, args, groupID)
	if err != nil && result == nil {
		writeJSON(w, http.StatusInternalServerError, hub.FormatErrorResponse(err))
		return
	}
	// Tool-level failures still travel as 200 with isError set; transport
	// errors are the only 5xx source here.
	writeJSON(w, http.StatusOK, hub.SuccessResponse(result))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.hub.GetServiceStatus()
	code := http.StatusOK
	if status.Status == hub.StatusInitializing {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, hub.SuccessResponse(status))
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, hub.SuccessResponse(s.hub.GetServiceDiagnostics()))
}

func (s *Server) handleBridgeHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, hub.SuccessResponse(s.hub.BridgeHealth()))
}

func (s *Server) handleBridgeReload(w http.ResponseWriter, r *http.Request) {
	if err := s.hub.ReloadAPIToolConfig(); err != nil {
		writeJSON(w, http.StatusInternalServerError, hub.FormatErrorResponse(err))
		return
	}
	writeJSON(w, http.StatusOK, hub.SuccessResponse(s.hub.BridgeHealth()))
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, hub.SuccessResponse(map[string]string{"status": "ok"}))
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Debug("HTTPServer", "Failed to encode response: %v", err)
	}
}
