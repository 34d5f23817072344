// If you are AI: This file implements the MMS pull relay.
// It opens a session, republishes the ASF header and media packets on the bus and
// reopens the session after it ends when reconnect is enabled.

package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"mmsgo/internal/config"
	"mmsgo/internal/core/bus"
	"mmsgo/internal/core/protocol/mms"
	"mmsgo/internal/log"
	"mmsgo/internal/metrics"
	"mmsgo/internal/svc/player"
)

// ErrStreamBusy means another publisher owns the stream key.
var ErrStreamBusy = errors.New("stream already has publisher")

var publisherIDs atomic.Uint64

// PullTask pulls one MMS URL into one bus stream.
type PullTask struct {
	registry *bus.Registry
	cfg      config.RelayConfig
	opts     player.Options
	open     Opener
	log      *zap.Logger
	metrics  *metrics.Collector

	running  atomic.Bool
	stopCh   chan struct{}
	stopOnce sync.Once

	mu       sync.Mutex
	state    State
	since    time.Time
	sessions int
	lastErr  error
	meta     *player.Metadata
}

// NewPullTask creates a pull task. A nil open uses OpenSession.
func NewPullTask(registry *bus.Registry, cfg config.RelayConfig, opts player.Options, open Opener) *PullTask {
	if open == nil {
		open = OpenSession
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.NewCollector()
	}
	l := log.OrNop(opts.Logger).With(zap.String("stream", cfg.App+"/"+cfg.Name))
	opts.Metrics = m
	opts.Logger = l
	return &PullTask{
		registry: registry,
		cfg:      cfg,
		opts:     opts,
		open:     open,
		log:      l,
		metrics:  m,
		stopCh:   make(chan struct{}),
		state:    StateIdle,
		since:    time.Now(),
	}
}

// Start runs the relay loop.
func (t *PullTask) Start(ctx context.Context) error {
	t.running.Store(true)
	defer t.running.Store(false)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-t.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	key := bus.NewStreamKey(t.cfg.App, t.cfg.Name)
	stream, _ := t.registry.GetOrCreate(key)
	if !stream.AttachPublisher(publisherIDs.Add(1)) {
		t.finish(StateFailed, ErrStreamBusy)
		return fmt.Errorf("%s: %w", key, ErrStreamBusy)
	}
	defer func() {
		stream.DetachPublisher()
		t.registry.RemoveIfEmpty(key)
	}()

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			t.metrics.IncReconnect()
		}
		err := t.runSession(ctx, stream)
		if ctx.Err() != nil {
			t.finish(StateStopped, nil)
			return nil
		}
		if !t.cfg.Reconnect {
			if errors.Is(err, io.EOF) {
				t.finish(StateStopped, nil)
				return nil
			}
			t.finish(StateFailed, err)
			return err
		}

		t.setState(StateWaiting, err)
		t.log.Warn("session ended, reconnecting",
			zap.Error(err), zap.Duration("delay", t.cfg.ReconnectDelay.Duration))
		select {
		case <-ctx.Done():
			t.finish(StateStopped, nil)
			return nil
		case <-time.After(t.cfg.ReconnectDelay.Duration):
		}
	}
}

// runSession opens one session and publishes until it ends.
func (t *PullTask) runSession(ctx context.Context, stream *bus.Stream) error {
	t.setState(StateConnecting, nil)
	src, err := t.open(ctx, t.cfg.URL, t.opts)
	if err != nil {
		t.log.Error("open failed", zap.String("url", t.cfg.URL), zap.Error(err))
		return err
	}
	md := src.Metadata()
	t.mu.Lock()
	t.meta = &md
	t.sessions++
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		t.meta = nil
		t.mu.Unlock()
		src.Close()
	}()

	t.setState(StateStreaming, nil)
	t.log.Info("relay streaming", zap.String("url", t.cfg.URL))
	for {
		chunk, err := src.ReadNext(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				t.log.Info("source reached end of stream")
			}
			return err
		}
		switch chunk.Kind {
		case mms.ChunkHeader:
			stream.SetHeader(chunk.Payload)
		case mms.ChunkMedia:
			stream.Publish(bus.NewPacket(bus.PacketMedia, chunk.Sequence, chunk.Payload))
		}
	}
}

// Stop signals the task to stop.
func (t *PullTask) Stop() error {
	t.stopOnce.Do(func() { close(t.stopCh) })
	return nil
}

// IsRunning returns true if the task is running.
func (t *PullTask) IsRunning() bool {
	return t.running.Load()
}

// Status returns the current task status.
func (t *PullTask) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	st := Status{
		App:      t.cfg.App,
		Name:     t.cfg.Name,
		URL:      t.cfg.URL,
		State:    t.state,
		Sessions: t.sessions,
		Since:    t.since,
		Metrics:  t.metrics.Snapshot(),
	}
	if t.lastErr != nil {
		st.LastError = t.lastErr.Error()
	}
	if t.meta != nil {
		md := *t.meta
		st.Session = &md
	}
	return st
}

func (t *PullTask) setState(s State, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != s {
		t.since = time.Now()
	}
	t.state = s
	if err != nil {
		t.lastErr = err
	}
}

func (t *PullTask) finish(s State, err error) {
	t.setState(s, err)
	t.log.Info("relay finished", zap.String("state", string(s)), zap.Error(err))
}
