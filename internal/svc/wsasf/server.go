// If you are AI: This file provides WebSocket-ASF service integration.
// The service is integrated into the main HTTP server.

package wsasf

import (
	"net/http"

	"go.uber.org/zap"

	"mmsgo/internal/core/bus"
)

// Service provides WebSocket-ASF streaming functionality.
type Service struct {
	handler *Handler
}

// NewService creates a new WebSocket-ASF service.
func NewService(registry *bus.Registry, logger *zap.Logger) *Service {
	return &Service{
		handler: NewHandler(registry, logger),
	}
}

// RegisterRoutes registers WebSocket-ASF routes on the provided mux.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.handler.RegisterRoutes(mux)
}
