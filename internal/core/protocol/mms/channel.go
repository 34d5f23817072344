// If you are AI: This file implements the MMS command channel.
// Sends are serialized by a mutex; reads pump the Receiver with bounded retries.

package mms

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"mmsgo/internal/log"
	"mmsgo/internal/metrics"
)

// ChannelOptions configure a Channel.
type ChannelOptions struct {
	RetryDelay time.Duration
	Logger     *zap.Logger
	Metrics    *metrics.Collector
}

// Channel exchanges commands with an MMS server.
// Send is safe for concurrent use. Read and ReadPacket must be called from
// one goroutine, the one driving the Receiver.
type Channel struct {
	w    io.Writer
	recv *Receiver

	sendMu sync.Mutex
	seq    uint32

	eof  atomic.Bool
	last Command

	retryDelay time.Duration
	log        *zap.Logger
	metrics    *metrics.Collector
}

// NewChannel creates a channel writing to w and reading through recv.
func NewChannel(w io.Writer, recv *Receiver, opts ChannelOptions) *Channel {
	c := &Channel{
		w:          w,
		recv:       recv,
		retryDelay: opts.RetryDelay,
		log:        log.OrNop(opts.Logger),
		metrics:    opts.Metrics,
	}
	if c.retryDelay <= 0 {
		c.retryDelay = RetryDelay
	}
	return c
}

// Receiver returns the packet receiver behind the channel.
func (c *Channel) Receiver() *Receiver {
	return c.recv
}

// EOF reports whether the session reached a terminal state.
func (c *Channel) EOF() bool {
	return c.eof.Load()
}

// SetEOF marks the session terminal. No further commands are sent.
func (c *Channel) SetEOF() {
	c.eof.Store(true)
}

// Last returns the most recent command read from the server.
func (c *Channel) Last() Command {
	return c.last
}

// Send writes one command frame.
func (c *Channel) Send(id uint16, prefix1, prefix2 uint32, payload []byte) error {
	if c.eof.Load() {
		return Fatal("send", ErrSessionEOF)
	}

	c.sendMu.Lock()
	seq := c.seq
	c.seq++
	frame := EncodeCommand(seq, id, prefix1, prefix2, payload)
	_, err := c.w.Write(frame)
	c.sendMu.Unlock()

	if err != nil {
		c.SetEOF()
		return Fatal("send", fmt.Errorf("command 0x%02x: %w", id, err))
	}
	c.metrics.IncCommandSent()
	c.log.Debug("command sent", zap.Uint16("cmd", id), zap.Uint32("seq", seq), zap.Int("payload", len(payload)))
	return nil
}

// Read waits for a command whose id is expected1 or expected2 (0/0 accepts any).
// Unexpected 0x03 and 0x1e end the session at once. Other ids and transient
// receive errors are retried up to RetryMax times.
func (c *Channel) Read(expected1, expected2 uint16) (Command, error) {
	if c.eof.Load() {
		return Command{}, Fatal("read command", ErrSessionEOF)
	}

	retries := 0
	for {
		chunk, err := c.receive()
		if err != nil {
			if err := c.retry(&retries, "read command", err); err != nil {
				return Command{}, err
			}
			continue
		}
		if chunk.Kind != ChunkCommand {
			continue
		}

		cmd := c.keep(chunk)
		if (expected1 == 0 && expected2 == 0) || cmd.ID == expected1 || cmd.ID == expected2 {
			return cmd, nil
		}
		switch cmd.ID {
		case ReplySocketClosed:
			c.SetEOF()
			return cmd, Fatal("read command", ErrServerClosed)
		case ReplyEndOfStream:
			c.SetEOF()
			return cmd, Fatal("read command", ErrEndOfStream)
		}

		c.log.Warn("unexpected command",
			zap.Uint16("cmd", cmd.ID), zap.Uint16("expected1", expected1), zap.Uint16("expected2", expected2))
		mismatch := newError(KindMismatch, "read command",
			fmt.Errorf("%w: got 0x%02x, awaiting 0x%02x/0x%02x", ErrUnexpectedCommand, cmd.ID, expected1, expected2))
		if err := c.retry(&retries, "read command", mismatch); err != nil {
			return cmd, err
		}
	}
}

// ReadPacket waits for a frame of the wanted kind. Header and media payloads
// are accumulated on the Receiver as they pass. Commands 0x03, 0x1e and 0x20
// end the session unless a command was wanted.
// A silent server is waited on indefinitely; only malformed frames count
// toward RetryMax. Closing the transport ends the wait.
func (c *Channel) ReadPacket(want ChunkKind) (Chunk, error) {
	if c.eof.Load() {
		return Chunk{}, Fatal("read packet", ErrSessionEOF)
	}

	retries := 0
	for {
		chunk, err := c.receive()
		if err != nil {
			if isPollTimeout(err) {
				c.metrics.IncPollTimeout()
				c.log.Debug("no data within poll timeout, waiting")
				continue
			}
			if err := c.retry(&retries, "read packet", err); err != nil {
				return Chunk{}, err
			}
			continue
		}
		if chunk.Kind == ChunkCommand {
			cmd := c.keep(chunk)
			chunk.Command = &cmd
			chunk.Payload = cmd.Payload
		}
		if chunk.Kind == want {
			return chunk, nil
		}
		if chunk.Kind != ChunkCommand {
			continue
		}

		switch chunk.Type {
		case ReplySocketClosed:
			c.SetEOF()
			return chunk, Fatal("read packet", ErrServerClosed)
		case ReplyEndOfStream:
			c.SetEOF()
			return chunk, Fatal("read packet", ErrEndOfStream)
		case ReplyReinit:
			c.SetEOF()
			return chunk, Fatal("read packet", ErrReinitRequired)
		}
		c.log.Debug("ignoring command while reading packets", zap.Uint16("cmd", chunk.Type))
	}
}

// receive pulls one frame and answers server keep-alive probes.
func (c *Channel) receive() (Chunk, error) {
	chunk, err := c.recv.Receive()
	if err != nil {
		return chunk, err
	}
	if chunk.Kind == ChunkCommand && chunk.Type == ReplyKeepAlive {
		c.metrics.IncKeepAlive()
		if err := c.Send(CmdKeepAlive, 0, 0, nil); err != nil {
			return Chunk{}, err
		}
		return Chunk{Kind: ChunkOther}, nil
	}
	return chunk, nil
}

// keep copies a command out of the receive buffer and records it as last.
func (c *Channel) keep(chunk Chunk) Command {
	cmd := *chunk.Command
	cmd.Payload = append([]byte(nil), cmd.Payload...)
	c.last = cmd
	return cmd
}

// retry counts a failed attempt. Fatal errors and an exhausted bound set EOF
// and are returned; otherwise it pauses after receive errors and returns nil.
func (c *Channel) retry(retries *int, op string, err error) error {
	if KindOf(err) == KindFatal || KindOf(err) == KindRejected {
		c.SetEOF()
		return err
	}
	*retries++
	c.metrics.IncRetry()
	if *retries >= RetryMax {
		c.SetEOF()
		return Fatal(op, fmt.Errorf("%w after %d attempts: %v", ErrRetryExhausted, *retries, err))
	}
	if KindOf(err) == KindTransient {
		time.Sleep(c.retryDelay)
	}
	return nil
}

// isPollTimeout reports whether err is the transient empty-poll result.
func isPollTimeout(err error) bool {
	return KindOf(err) == KindTransient && errors.Is(err, ErrPollTimeout)
}
