// If you are AI: This file implements playback control: start, pull reads and close.

package player

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"mmsgo/internal/core/protocol/mms"
	"mmsgo/internal/core/protocol/wire"
)

// Start asks the server to stream from packet (PlayFromCurrent for the
// beginning) and primes the first media packet.
func (s *Session) Start(ctx context.Context, packet uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkActive(); err != nil {
		return err
	}
	if s.State() != StateStreamsSelected {
		return fmt.Errorf("start in state %s: %w", s.State(), ErrWrongState)
	}
	defer s.watch(ctx)()

	s.setState(StateStarting)
	if err := s.play(packet); err != nil {
		return err
	}
	if _, err := s.channel.Read(mms.ReplyPlay, 0); err != nil {
		return err
	}
	if err := s.prime(); err != nil {
		return err
	}
	if packet != mms.PlayFromCurrent {
		s.packet = packet
		s.position = int64(len(s.header)) + int64(packet)*int64(s.desc.packetLength)
	}
	s.setState(StatePlaying)
	return nil
}

// ReadNext returns the next unit of the stream: the ASF header once, then
// media packets padded to the negotiated packet length. The payload is valid
// until the next call. After a terminal condition it returns io.EOF.
func (s *Session) ReadNext(ctx context.Context) (mms.Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkReadable(); err != nil {
		return mms.Chunk{}, err
	}
	defer s.watch(ctx)()
	s.sendDueKeepAlive()

	headerID, mediaID := s.recv.PacketIDs()
	if h := int64(len(s.header)); s.position < h {
		p := s.header[s.position:]
		s.position = h
		return mms.Chunk{Kind: mms.ChunkHeader, Type: uint16(headerID), Payload: p}, nil
	}
	if s.mediaUsed >= len(s.mediaBuf) {
		if err := s.nextMedia(); err != nil {
			return mms.Chunk{}, endOf(err)
		}
	}
	p := s.mediaBuf[s.mediaUsed:]
	s.mediaUsed = len(s.mediaBuf)
	s.position += int64(len(p))
	return mms.Chunk{Kind: mms.ChunkMedia, Type: uint16(mediaID), Sequence: s.packet, Payload: p}, nil
}

// Read implements io.Reader over the header bytes followed by padded media packets.
func (s *Session) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkReadable(); err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, nil
	}
	s.sendDueKeepAlive()

	if h := int64(len(s.header)); s.position < h {
		n := copy(p, s.header[s.position:])
		s.position += int64(n)
		return n, nil
	}
	if s.mediaUsed >= len(s.mediaBuf) {
		if err := s.nextMedia(); err != nil {
			return 0, endOf(err)
		}
	}
	n := copy(p, s.mediaBuf[s.mediaUsed:])
	s.mediaUsed += n
	s.position += int64(n)
	return n, nil
}

// Position returns the byte offset of the next byte Read would deliver.
func (s *Session) Position() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

// Close stops the keep-alive task, tells the server we are leaving and
// releases both sockets. Calling Close again is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.stopKeepAlive()
	if s.channel == nil {
		s.setState(StateDisconnected)
		return nil
	}

	s.setState(StateStopping)
	if !s.channel.EOF() {
		if err := s.channel.Send(mms.CmdClose, commandLevel, 1, nil); err != nil {
			s.log.Debug("close notification failed", zap.Error(err))
		}
		s.channel.SetEOF()
	}
	s.recv.Close()
	err := s.transport.Close()
	s.setState(StateDisconnected)
	s.log.Info("session closed")
	return err
}

// play sends the 0x07 play command from packet.
func (s *Session) play(packet uint32) error {
	_, mediaID := s.recv.PacketIDs()
	w := wire.NewWriter(24)
	w.Write64(0)
	w.Write32(0xffffffff)
	w.Write32(packet)
	w.Write8(0xff)
	w.Write8(0xff)
	w.Write8(0xff)
	w.Write8(0x00)
	w.Write32(uint32(mediaID))
	s.recv.ResetSequence()
	return s.channel.Send(mms.CmdPlay, commandLevel, 0x0001ffff, w.Bytes())
}

// prime reads one media packet into the delivery buffer.
func (s *Session) prime() error {
	if _, err := s.channel.ReadPacket(mms.ChunkMedia); err != nil {
		return err
	}
	s.loadMedia()
	return nil
}

// nextMedia advances to the next media packet.
func (s *Session) nextMedia() error {
	if err := s.prime(); err != nil {
		return err
	}
	s.packet++
	return nil
}

// loadMedia copies the last media payload, zero padded to the packet length.
func (s *Session) loadMedia() {
	media := s.recv.Media()
	n := max(len(media), int(s.desc.packetLength))
	if cap(s.mediaBuf) < n {
		s.mediaBuf = make([]byte, n)
	}
	s.mediaBuf = s.mediaBuf[:n]
	copy(s.mediaBuf, media)
	clear(s.mediaBuf[len(media):])
	s.mediaUsed = 0
}

// checkReadable gates the pull API.
func (s *Session) checkReadable() error {
	if s.channel == nil || s.closed {
		return ErrNotConnected
	}
	if s.channel.EOF() {
		return io.EOF
	}
	if s.paused.Load() {
		return ErrPaused
	}
	if s.State() != StatePlaying {
		return fmt.Errorf("read in state %s: %w", s.State(), ErrWrongState)
	}
	return nil
}

// watch closes the transport if ctx is cancelled before the returned func runs.
func (s *Session) watch(ctx context.Context) func() {
	t := s.transport
	stop := context.AfterFunc(ctx, func() { t.Close() })
	return func() { stop() }
}

// endOf maps the normal end of a stream to io.EOF.
func endOf(err error) error {
	if errors.Is(err, mms.ErrEndOfStream) || errors.Is(err, mms.ErrServerClosed) || errors.Is(err, mms.ErrSessionEOF) {
		return io.EOF
	}
	return err
}
