// If you are AI: This file implements the HTTP handler for ASF stream requests.
// Handles GET /{app}/{name}.asf requests and manages subscriber lifecycle.

package httpasf

import (
	"net/http"
	"path"
	"strings"

	"go.uber.org/zap"

	"mmsgo/internal/core/bus"
	"mmsgo/internal/log"
)

// ContentType is the MIME type of a served ASF stream.
const ContentType = "video/x-ms-asf"

// Handler handles HTTP-ASF requests.
type Handler struct {
	registry *bus.Registry
	log      *zap.Logger
}

// NewHandler creates a new HTTP-ASF handler.
func NewHandler(registry *bus.Registry, logger *zap.Logger) *Handler {
	return &Handler{
		registry: registry,
		log:      log.OrNop(logger),
	}
}

// ServeHTTP streams one relayed stream.
// Endpoint: GET /{app}/{name}.asf
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if path.Ext(r.URL.Path) != ".asf" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	key, err := bus.ParseStreamKey(strings.TrimSuffix(r.URL.Path, ".asf"))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	stream := h.registry.Get(key)
	if stream == nil || !stream.HasPublisher() {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	rc := http.NewResponseController(w)
	sub := NewSubscriber(w, rc.Flush, stream)
	sub.Attach()
	defer sub.Detach()

	w.Header().Set("Content-Type", ContentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		return
	}

	h.log.Info("http client attached", zap.String("stream", key.String()), zap.String("remote", r.RemoteAddr))
	if err := sub.WriteHeader(); err != nil {
		return
	}
	err = sub.ProcessPackets(r.Context())
	h.log.Info("http client detached", zap.String("stream", key.String()), zap.Error(err))
}

// RegisterRoutes registers the catch-all route. Paths other than *.asf get 404,
// so more specific routes must be registered on the same mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if path.Ext(r.URL.Path) == ".asf" {
			h.ServeHTTP(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})
}
