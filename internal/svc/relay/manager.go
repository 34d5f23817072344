// If you are AI: This file implements the relay manager.
// Manages lifecycle of all relay tasks (start, stop, status).

package relay

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"mmsgo/internal/config"
	"mmsgo/internal/core/bus"
	"mmsgo/internal/log"
	"mmsgo/internal/metrics"
)

// Manager manages relay tasks lifecycle.
type Manager struct {
	registry *bus.Registry
	open     Opener
	log      *zap.Logger

	mu     sync.Mutex
	tasks  []Task
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewManager creates a relay manager. A nil open uses OpenSession.
func NewManager(registry *bus.Registry, logger *zap.Logger, open Opener) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		registry: registry,
		open:     open,
		log:      log.OrNop(logger),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// StartTasks validates every relay entry, then starts one pull task per entry.
func (m *Manager) StartTasks(cfg *config.Config) error {
	for i := range cfg.Relays {
		if err := cfg.Relays[i].Validate(); err != nil {
			return fmt.Errorf("relay %d: %w", i, err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rc := range cfg.Relays {
		opts, err := SessionOptions(cfg.Session, m.log, metrics.NewCollector())
		if err != nil {
			return fmt.Errorf("relay %s/%s: %w", rc.App, rc.Name, err)
		}
		task := NewPullTask(m.registry, rc, opts, m.open)
		m.tasks = append(m.tasks, task)

		m.wg.Add(1)
		go func(t Task, rc config.RelayConfig) {
			defer m.wg.Done()
			if err := t.Start(m.ctx); err != nil {
				m.log.Error("relay task failed",
					zap.String("stream", rc.App+"/"+rc.Name), zap.Error(err))
			}
		}(task, rc)
	}
	m.log.Info("relay tasks started", zap.Int("count", len(cfg.Relays)))
	return nil
}

// Stop stops all relay tasks and waits for them until ctx ends.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	m.cancel()
	for _, task := range m.tasks {
		task.Stop()
	}
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("relay shutdown: %w", ctx.Err())
	}
}

// TaskCount returns the number of relay tasks.
func (m *Manager) TaskCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// Statuses returns the status of every task in start order.
func (m *Manager) Statuses() []Status {
	m.mu.Lock()
	tasks := append([]Task(nil), m.tasks...)
	m.mu.Unlock()

	out := make([]Status, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.Status())
	}
	return out
}
