// If you are AI: This file implements repositioning: seek on on-demand streams and pause/resume.

package player

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"mmsgo/internal/core/protocol/mms"
)

// SeekPoint is a byte offset translated to the packet grid.
type SeekPoint struct {
	Packet uint32
	Offset int64
}

// SeekTarget converts a byte offset into a packet index and intra-packet offset.
// Offsets inside the header map to PlayFromCurrent with no skip.
func SeekTarget(offset, headerSize int64, packetLength uint32) SeekPoint {
	if offset < headerSize || packetLength == 0 {
		return SeekPoint{Packet: mms.PlayFromCurrent}
	}
	rel := offset - headerSize
	return SeekPoint{
		Packet: uint32(rel / int64(packetLength)),
		Offset: rel % int64(packetLength),
	}
}

// Seek repositions an on-demand stream at a byte offset of the
// header-plus-packets byte stream.
func (s *Session) Seek(ctx context.Context, offset int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkActive(); err != nil {
		return err
	}
	if st := s.State(); st != StatePlaying && st != StatePaused {
		return fmt.Errorf("seek in state %s: %w", st, ErrWrongState)
	}
	if s.desc.broadcast {
		return ErrNotSeekable
	}
	if offset < 0 {
		return fmt.Errorf("seek to %d: negative offset", offset)
	}

	h := int64(len(s.header))
	if offset < h && s.position < h {
		// still inside the header, nothing to restart
		s.position = offset
		return nil
	}
	defer s.watch(ctx)()

	point := SeekTarget(offset, h, s.desc.packetLength)
	s.log.Debug("seek", zap.Int64("offset", offset), zap.Uint32("packet", point.Packet), zap.Int64("intra", point.Offset))
	s.setState(StateSeeking)
	if err := s.channel.Send(mms.CmdStop, commandLevel, 0x001fffff, nil); err != nil {
		return err
	}
	if err := s.restart(point); err != nil {
		return err
	}
	s.position = offset
	s.paused.Store(false)
	s.setState(StatePlaying)
	return nil
}

// SetPause stops the stream while keeping the session alive, or resumes it
// from the current position.
func (s *Session) SetPause(ctx context.Context, pause bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkActive(); err != nil {
		return err
	}
	if pause == s.paused.Load() {
		return nil
	}
	if st := s.State(); st != StatePlaying && st != StatePaused {
		return fmt.Errorf("pause in state %s: %w", st, ErrWrongState)
	}
	defer s.watch(ctx)()

	if pause {
		if err := s.channel.Send(mms.CmdStop, commandLevel, 0x001fffff, nil); err != nil {
			return err
		}
		s.paused.Store(true)
		s.setState(StatePaused)
		return nil
	}

	point := SeekPoint{Packet: mms.PlayFromCurrent}
	if !s.desc.broadcast {
		point = SeekTarget(s.position, int64(len(s.header)), s.desc.packetLength)
	}
	if err := s.restart(point); err != nil {
		return err
	}
	s.paused.Store(false)
	s.setState(StatePlaying)
	return nil
}

// restart replays from point and skips to the intra-packet offset.
func (s *Session) restart(point SeekPoint) error {
	if err := s.play(point.Packet); err != nil {
		return err
	}
	if err := s.waitPlay(); err != nil {
		return err
	}
	if err := s.prime(); err != nil {
		return err
	}
	s.packet = 0
	if point.Packet != mms.PlayFromCurrent {
		s.packet = point.Packet
	}
	s.mediaUsed = int(min(point.Offset, int64(len(s.mediaBuf))))
	return nil
}

// waitPlay waits for the 0x05 play reply. End-of-stream notices for the
// stream that was just stopped may arrive first and are skipped.
func (s *Session) waitPlay() error {
	for i := 0; i < mms.RetryMax; i++ {
		cmd, err := s.channel.Read(mms.ReplyPlay, mms.ReplyEndOfStream)
		if err != nil {
			return err
		}
		if cmd.ID == mms.ReplyPlay {
			return nil
		}
	}
	s.channel.SetEOF()
	return mms.Fatal("play", mms.ErrRetryExhausted)
}
