// If you are AI: This file implements HTTP API handlers.
// All handlers read snapshots and never block media paths.

package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"mmsgo/internal/core/bus"
	"mmsgo/internal/svc/relay"
)

// ServerResponse represents the /api/server response.
type ServerResponse struct {
	Version         string   `json:"version"`
	Uptime          int64    `json:"uptime"` // seconds
	GoVersion       string   `json:"go_version"`
	EnabledServices []string `json:"enabled_services"`
	Streams         int      `json:"streams"`
	RelayTasks      int      `json:"relay_tasks"`
}

// StreamsResponse represents the /api/streams response.
type StreamsResponse struct {
	Streams []bus.StreamStats `json:"streams"`
}

// RelayResponse represents the /api/relay response.
type RelayResponse struct {
	Tasks []relay.Status `json:"tasks"`
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// handleServer handles GET /api/server.
func (s *Service) handleServer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	services := s.services
	if services == nil {
		services = []string{}
	}
	response := ServerResponse{
		Version:         Version,
		Uptime:          int64(time.Since(s.startTime) / time.Second),
		GoVersion:       runtime.Version(),
		EnabledServices: services,
		Streams:         s.registry.Count(),
	}
	if s.relayMgr != nil {
		response.RelayTasks = s.relayMgr.TaskCount()
	}

	s.writeJSON(w, http.StatusOK, response)
}

// handleStreams handles GET /api/streams.
// Returns every registered stream with its header size and counters.
func (s *Service) handleStreams(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	s.writeJSON(w, http.StatusOK, StreamsResponse{Streams: s.registry.Stats()})
}

// handleRelay handles GET /api/relay.
// Returns relay tasks with their state, session metadata and counters.
func (s *Service) handleRelay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	tasks := []relay.Status{}
	if s.relayMgr != nil {
		tasks = append(tasks, s.relayMgr.Statuses()...)
	}
	s.writeJSON(w, http.StatusOK, RelayResponse{Tasks: tasks})
}

// writeJSON writes a JSON response.
func (s *Service) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func (s *Service) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, ErrorResponse{Error: message})
}
