// If you are AI: This file implements media description: path request, header download,
// ASF parsing and the stream selection command.

package player

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"mmsgo/internal/core/protocol/asf"
	"mmsgo/internal/core/protocol/mms"
	"mmsgo/internal/core/protocol/wire"
)

// Describe requests the media path, downloads and parses the ASF header and
// selects streams. An empty path uses the path from the connect URL.
func (s *Session) Describe(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkActive(); err != nil {
		return err
	}
	if s.State() != StateNegotiating {
		return fmt.Errorf("describe in state %s: %w", s.State(), ErrWrongState)
	}
	if path == "" {
		path = s.url.Path
	}
	defer s.watch(ctx)()

	s.setState(StateDescribing)
	if err := s.describe(path); err != nil {
		s.log.Error("describe failed", zap.String("path", path), zap.Error(err))
		return err
	}
	s.setState(StateStreamsSelected)
	return nil
}

// describe runs the 0x05 / 0x15 / 0x33 exchange.
func (s *Session) describe(path string) error {
	w := wire.NewWriter(64)
	w.Write64(0)
	if err := w.WriteUTF16(path); err != nil {
		return err
	}
	if err := s.channel.Send(mms.CmdMediaPath, commandLevel, 0xffffffff, w.Bytes()); err != nil {
		return err
	}
	cmd, err := s.channel.Read(mms.ReplyMediaPath, mms.ReplyAuthRequired)
	if err != nil {
		return err
	}
	if cmd.ID == mms.ReplyAuthRequired {
		s.channel.SetEOF()
		return mms.Rejected("describe", ErrAuthRequired)
	}

	desc, err := parseDescription(cmd.Payload)
	if err != nil {
		s.channel.SetEOF()
		return err
	}
	s.desc = desc
	s.log.Info("media described",
		zap.Uint32("header_size", desc.headerSize),
		zap.Uint32("packet_length", desc.packetLength),
		zap.Uint32("packet_count", desc.packetCount),
		zap.Uint32("max_bitrate", desc.maxBitrate),
		zap.Bool("broadcast", desc.broadcast))

	if err := s.readHeader(); err != nil {
		return err
	}
	return s.selectStreams()
}

// parseDescription decodes the 0x06 reply payload.
func parseDescription(p []byte) (description, error) {
	r := wire.NewReader(p)
	code, err := r.Read32()
	if err != nil {
		return description{}, mms.Fatal("describe", fmt.Errorf("%w: reply too short", ErrBadDescription))
	}
	if code != 1 && code != 2 {
		return description{}, mms.Rejected("describe", fmt.Errorf("%w: code 0x%x", ErrMediaRejected, code))
	}
	if len(p) < 64 {
		return description{}, mms.Fatal("describe", fmt.Errorf("%w: %d byte reply", ErrBadDescription, len(p)))
	}

	var d description
	field := func(off int) uint32 {
		v, _ := wire.NewReader(p[off:]).Read32()
		return v
	}
	d.flags = field(12)
	d.mediaLength = field(24)
	d.packetLength = field(44)
	d.packetCount = field(48)
	d.maxBitrate = field(56)
	d.headerSize = field(60)
	d.broadcast = d.packetCount == 0 || d.flags>>24 == 0x02

	if d.headerSize == 0 || d.packetLength == 0 {
		return description{}, mms.Fatal("describe", fmt.Errorf("%w: header %d, packet %d",
			ErrBadDescription, d.headerSize, d.packetLength))
	}
	return d, nil
}

// readHeader requests the ASF header and collects header packets until the
// announced size has arrived.
func (s *Session) readHeader() error {
	header, _ := s.recv.PacketIDs()
	w := wire.NewWriter(40)
	w.Write32(0)
	w.Write32(0x8000)
	w.Write32(0xffffffff)
	w.Write32(0)
	w.Write32(0)
	w.Write32(0)
	w.Write64(0x40ac200000000000)
	w.Write32(uint32(header))
	w.Write32(0)

	s.recv.ResetHeader()
	s.recv.ResetSequence()
	if err := s.channel.Send(mms.CmdHeaderRequest, commandLevel, 0, w.Bytes()); err != nil {
		return err
	}
	for len(s.recv.Header()) < int(s.desc.headerSize) {
		if _, err := s.channel.ReadPacket(mms.ChunkHeader); err != nil {
			return err
		}
	}
	s.header = append([]byte(nil), s.recv.Header()...)

	h, err := asf.ParseHeader(s.header)
	if err != nil {
		s.channel.SetEOF()
		return mms.Fatal("describe", err)
	}
	s.asf = h
	return nil
}

// selectStreams runs the selector and sends the 0x33 stream selection.
func (s *Session) selectStreams() error {
	h := s.asf
	var total int
	if len(s.opts.Streams) > 0 {
		total = asf.SelectByIndex(h, s.opts.Streams)
	} else {
		total = asf.SelectStreams(h, s.opts.MaxBitrate, s.opts.AllStreams, !s.opts.DisableAudio, !s.opts.DisableVideo)
	}

	w := wire.NewWriter(64)
	count, first := 0, -1
	for i := 1; i < asf.MaxStreams; i++ {
		st := h.Streams[i]
		if st.Category == asf.CategoryUnknown {
			continue
		}
		count++
		if first == -1 {
			first = i
		} else {
			w.Write16(0xffff)
			w.Write16(uint16(i))
		}
		if st.Selected {
			w.Write16(0x0000)
			s.log.Info("selecting stream", zap.Int("stream", i),
				zap.Stringer("category", st.Category), zap.Int32("bitrate", st.Bitrate))
		} else {
			w.Write16(0x0002)
			s.log.Debug("ignoring stream", zap.Int("stream", i),
				zap.Stringer("category", st.Category), zap.Int32("bitrate", st.Bitrate))
		}
	}
	if count == 0 {
		s.channel.SetEOF()
		return mms.Fatal("describe", ErrNoStreams)
	}
	s.log.Debug("stream selection", zap.Int("streams", count), zap.Int("total_bitrate", total))

	if err := s.channel.Send(mms.CmdStreamSelect, uint32(count), 0xffff|uint32(first)<<16, w.Bytes()); err != nil {
		return err
	}
	_, err := s.channel.Read(mms.ReplyStreamSelection, 0)
	return err
}
