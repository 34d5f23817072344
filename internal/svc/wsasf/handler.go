// If you are AI: This file implements the WebSocket handler for ASF stream requests.
// Handles GET /ws/{app}/{name} requests and manages subscriber lifecycle.

package wsasf

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"mmsgo/internal/core/bus"
	"mmsgo/internal/log"
)

// Handler handles WebSocket-ASF requests.
type Handler struct {
	registry *bus.Registry
	upgrader websocket.Upgrader
	log      *zap.Logger
}

// NewHandler creates a new WebSocket-ASF handler. All origins are accepted.
func NewHandler(registry *bus.Registry, logger *zap.Logger) *Handler {
	return &Handler{
		registry: registry,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: log.OrNop(logger),
	}
}

// ServeHTTP upgrades the connection and streams ASF frames.
// Endpoint: GET /ws/{app}/{name}
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	rest, ok := strings.CutPrefix(r.URL.Path, "/ws/")
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	key, err := bus.ParseStreamKey(rest)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	stream := h.registry.Get(key)
	if stream == nil || !stream.HasPublisher() {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		return
	}

	sub := NewSubscriber(conn, stream)
	sub.Attach()
	defer func() {
		sub.Detach()
		conn.Close()
	}()

	// The client never sends data; a read error means it went away.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	h.log.Info("ws client attached", zap.String("stream", key.String()), zap.String("remote", r.RemoteAddr))
	if err := sub.WriteHeader(); err != nil {
		return
	}
	err = sub.ProcessPackets(ctx)
	h.log.Info("ws client detached", zap.String("stream", key.String()), zap.Error(err))
}

// RegisterRoutes registers WebSocket-ASF routes on the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/", h.ServeHTTP)
}
