// If you are AI: This file provides HTTP-ASF service integration.
// The service is integrated into the main HTTP server.

package httpasf

import (
	"net/http"

	"go.uber.org/zap"

	"mmsgo/internal/core/bus"
)

// Service provides HTTP-ASF streaming functionality.
type Service struct {
	handler *Handler
}

// NewService creates a new HTTP-ASF service.
func NewService(registry *bus.Registry, logger *zap.Logger) *Service {
	return &Service{
		handler: NewHandler(registry, logger),
	}
}

// RegisterRoutes registers HTTP-ASF routes on the provided mux.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.handler.RegisterRoutes(mux)
}
