// If you are AI: This file implements the health check endpoint for monitoring.

package health

import (
	"net/http"
)

// Check reports an unhealthy dependency as an error.
type Check func() error

// Service provides health check functionality.
type Service struct {
	checks []Check
}

// New creates a new health service. With no checks /healthz always returns 200.
func New(checks ...Check) *Service {
	return &Service{checks: checks}
}

// RegisterRoutes adds /healthz to the provided mux.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", s.handleHealth)
}

// handleHealth returns 200 when every check passes, else 503 with the first error.
func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	for _, check := range s.checks {
		if err := check(); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}
