// If you are AI: This file implements the relay server lifecycle and routing.
// The health endpoint and the media/API endpoints listen on separate ports.

package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"mmsgo/internal/config"
	"mmsgo/internal/core/bus"
	"mmsgo/internal/log"
	"mmsgo/internal/svc/api"
	"mmsgo/internal/svc/health"
	"mmsgo/internal/svc/httpasf"
	"mmsgo/internal/svc/relay"
	"mmsgo/internal/svc/wsasf"
)

// Server wraps the HTTP servers, the stream registry and the relay manager.
type Server struct {
	cfg        *config.Config
	log        *zap.Logger
	registry   *bus.Registry
	relays     *relay.Manager
	healthSrv  *http.Server
	mediaSrv   *http.Server
	listenErrs chan error

	// baseCancel ends every media request context.
	baseCancel context.CancelFunc
	healthAddr net.Addr
	mediaAddr  net.Addr
}

// New creates a server for cfg. A nil open uses real MMS sessions.
// Nothing listens until Start is called.
func New(cfg *config.Config, logger *zap.Logger, open relay.Opener) *Server {
	logger = log.OrNop(logger)
	registry := bus.NewRegistry()
	relays := relay.NewManager(registry, logger.Named("relay"), open)

	healthMux := http.NewServeMux()
	health.New().RegisterRoutes(healthMux)

	mediaMux := http.NewServeMux()
	api.NewService(registry, relays, "relay", "http_asf", "ws_asf").RegisterRoutes(mediaMux)
	wsasf.NewService(registry, logger.Named("ws")).RegisterRoutes(mediaMux)
	httpasf.NewService(registry, logger.Named("http")).RegisterRoutes(mediaMux)

	baseCtx, baseCancel := context.WithCancel(context.Background())
	return &Server{
		cfg:      cfg,
		log:      logger,
		registry: registry,
		relays:   relays,
		healthSrv: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.HealthPort),
			Handler:           healthMux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		mediaSrv: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
			Handler:           mediaMux,
			ReadHeaderTimeout: 10 * time.Second,
			BaseContext:       func(net.Listener) context.Context { return baseCtx },
		},
		listenErrs: make(chan error, 2),
		baseCancel: baseCancel,
	}
}

// Registry returns the stream registry.
func (s *Server) Registry() *bus.Registry {
	return s.registry
}

// Relays returns the relay manager.
func (s *Server) Relays() *relay.Manager {
	return s.relays
}

// Start binds both listeners, then starts the relay tasks.
// Serving continues in background goroutines; failures surface on Errors.
func (s *Server) Start() error {
	healthLn, err := net.Listen("tcp", s.healthSrv.Addr)
	if err != nil {
		return fmt.Errorf("health listener: %w", err)
	}
	mediaLn, err := net.Listen("tcp", s.mediaSrv.Addr)
	if err != nil {
		healthLn.Close()
		return fmt.Errorf("http listener: %w", err)
	}
	s.healthAddr, s.mediaAddr = healthLn.Addr(), mediaLn.Addr()
	s.serve(s.healthSrv, healthLn)
	s.serve(s.mediaSrv, mediaLn)
	s.log.Info("server listening",
		zap.Stringer("health", s.healthAddr), zap.Stringer("http", s.mediaAddr))

	return s.relays.StartTasks(s.cfg)
}

func (s *Server) serve(srv *http.Server, ln net.Listener) {
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.listenErrs <- err
		}
	}()
}

// Addrs returns the bound health and media addresses after Start.
func (s *Server) Addrs() (healthAddr, mediaAddr net.Addr) {
	return s.healthAddr, s.mediaAddr
}

// Errors delivers listener failures after Start.
func (s *Server) Errors() <-chan error {
	return s.listenErrs
}

// Shutdown stops the relay tasks, ends streaming responses, then stops both
// HTTP servers.
func (s *Server) Shutdown(ctx context.Context) error {
	relayErr := s.relays.Stop(ctx)
	s.baseCancel()
	healthErr := s.healthSrv.Shutdown(ctx)
	mediaErr := s.mediaSrv.Shutdown(ctx)
	if mediaErr != nil {
		s.mediaSrv.Close()
	}
	return errors.Join(relayErr, healthErr, mediaErr)
}

// ShutdownWithTimeout stops the server with a fixed 5-second timeout.
func (s *Server) ShutdownWithTimeout() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}
