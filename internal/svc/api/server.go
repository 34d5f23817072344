// If you are AI: This file provides HTTP API service integration.
// The API exposes server, stream and relay state without touching media paths.

package api

import (
	"net/http"
	"time"

	"mmsgo/internal/core/bus"
	"mmsgo/internal/svc/relay"
)

// Version is reported by /api/server.
var Version = "dev"

// Service provides HTTP API functionality.
type Service struct {
	registry  *bus.Registry
	relayMgr  RelayManager
	services  []string
	startTime time.Time
}

// RelayManager is the read-only view of the relay manager the API needs.
type RelayManager interface {
	TaskCount() int
	Statuses() []relay.Status
}

// NewService creates a new API service. services names the enabled
// services reported by /api/server.
func NewService(registry *bus.Registry, relayMgr RelayManager, services ...string) *Service {
	return &Service{
		registry:  registry,
		relayMgr:  relayMgr,
		services:  services,
		startTime: time.Now(),
	}
}

// RegisterRoutes registers API routes on the provided mux.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/server", s.handleServer)
	mux.HandleFunc("/api/streams", s.handleStreams)
	mux.HandleFunc("/api/relay", s.handleRelay)
}
