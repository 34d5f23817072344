// If you are AI: This file handles graceful shutdown orchestration for the server process.

package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// ShutdownHandler manages graceful shutdown on SIGINT or SIGTERM.
type ShutdownHandler struct {
	server  *Server
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration
}

// NewShutdownHandler creates a handler that listens for termination signals.
// The provided context is used as the parent for shutdown operations.
func NewShutdownHandler(ctx context.Context, server *Server) *ShutdownHandler {
	shutdownCtx, cancel := context.WithCancel(ctx)
	return &ShutdownHandler{
		server:  server,
		ctx:     shutdownCtx,
		cancel:  cancel,
		timeout: 5 * time.Second,
	}
}

// Wait blocks until a termination signal arrives, the parent context ends or a
// listener fails, then shuts the server down. A listener failure is returned.
func (h *ShutdownHandler) Wait() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var cause error
	select {
	case sig := <-sigChan:
		h.server.log.Info("signal received", zap.String("signal", sig.String()))
	case <-h.ctx.Done():
	case cause = <-h.server.Errors():
		h.server.log.Error("listener failed", zap.Error(cause))
	}
	h.cancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()
	if err := h.server.Shutdown(shutdownCtx); err != nil && cause == nil {
		cause = err
	}
	return cause
}

// Context returns the shutdown context that is cancelled when shutdown begins.
func (h *ShutdownHandler) Context() context.Context {
	return h.ctx
}
