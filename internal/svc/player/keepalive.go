// If you are AI: This file implements the keep-alive task.
// While paused it sends 0x1b itself; while playing it flags the reader to send one.

package player

import (
	"time"

	"go.uber.org/zap"

	"mmsgo/internal/core/protocol/mms"
)

// keepAliveInterval is the configured timeout minus two seconds, at least one second.
func (s *Session) keepAliveInterval() time.Duration {
	d := s.opts.KeepAliveTimeout - 2*time.Second
	if d < time.Second {
		d = time.Second
	}
	return d
}

// startKeepAlive launches the task for the current channel.
func (s *Session) startKeepAlive() {
	s.kaStop = make(chan struct{})
	s.kaDone = make(chan struct{})
	go s.keepAlive(s.channel, s.kaStop, s.kaDone, s.keepAliveInterval())
}

// stopKeepAlive wakes the task and waits for it to exit.
func (s *Session) stopKeepAlive() {
	if s.kaStop == nil {
		return
	}
	close(s.kaStop)
	<-s.kaDone
	s.kaStop = nil
}

// keepAlive never reads from the network, so it cannot race with receive
// buffer compaction. The paused and due flags are atomics.
func (s *Session) keepAlive(ch *mms.Channel, stop <-chan struct{}, done chan<- struct{}, every time.Duration) {
	defer close(done)
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		if ch.EOF() {
			return
		}
		if !s.paused.Load() {
			s.keepAliveDue.Store(true)
			continue
		}
		if err := ch.Send(mms.CmdKeepAlive, commandLevel, 0x0001ffff, nil); err != nil {
			s.log.Warn("keep-alive failed", zap.Error(err))
			return
		}
		s.opts.Metrics.IncKeepAlive()
		s.log.Debug("keep-alive sent while paused")
	}
}

// sendDueKeepAlive sends the keep-alive requested by the task, if any.
func (s *Session) sendDueKeepAlive() {
	if !s.keepAliveDue.CompareAndSwap(true, false) {
		return
	}
	if err := s.channel.Send(mms.CmdKeepAlive, commandLevel, 0x0001ffff, nil); err != nil {
		s.log.Warn("keep-alive failed", zap.Error(err))
		return
	}
	s.opts.Metrics.IncKeepAlive()
}
