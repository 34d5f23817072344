// If you are AI: This file contains end-to-end tests of the playback controller against a scripted server.

package player

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"testing"
	"time"

	"mmsgo/internal/core/protocol/mms"
	"mmsgo/internal/metrics"
)

func TestOpenBroadcastReadsHeaderThenMedia(t *testing.T) {
	srv, dial := newFakeServer(t)
	srv.flags = 0x02 << 24
	srv.count = 0
	srv.media = srv.media[:2]
	srv.endOfMedia = true

	s, err := Open(context.Background(), testURL, testOptions(dial))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if s.State() != StatePlaying {
		t.Fatalf("state = %s, want playing", s.State())
	}
	md := s.Metadata()
	if !md.Broadcast || md.Seekable {
		t.Errorf("broadcast = %v, seekable = %v", md.Broadcast, md.Seekable)
	}
	if md.Server.Version != "9.1.1.3862" {
		t.Errorf("server version = %q", md.Server.Version)
	}
	if len(md.Streams) != 2 || !md.Streams[0].Selected || !md.Streams[1].Selected {
		t.Errorf("streams = %+v", md.Streams)
	}

	chunk, err := s.ReadNext(context.Background())
	if err != nil {
		t.Fatalf("ReadNext header: %v", err)
	}
	if chunk.Kind != mms.ChunkHeader || !bytes.Equal(chunk.Payload, srv.header) {
		t.Fatalf("first chunk kind %s, %d bytes", chunk.Kind, len(chunk.Payload))
	}

	chunk, err = s.ReadNext(context.Background())
	if err != nil {
		t.Fatalf("ReadNext media: %v", err)
	}
	if chunk.Kind != mms.ChunkMedia || len(chunk.Payload) != testPacketLength {
		t.Fatalf("media chunk kind %s, %d bytes", chunk.Kind, len(chunk.Payload))
	}
	if chunk.Payload[0] != 1 || chunk.Payload[999] != 1 || chunk.Payload[1000] != 0 || chunk.Payload[2999] != 0 {
		t.Error("media payload not copied and zero padded")
	}

	if err := s.Seek(context.Background(), 0); !errors.Is(err, ErrNotSeekable) {
		t.Errorf("Seek on broadcast = %v", err)
	}

	if _, err := s.ReadNext(context.Background()); err != nil {
		t.Fatalf("ReadNext second media: %v", err)
	}
	if _, err := s.ReadNext(context.Background()); err != io.EOF {
		t.Fatalf("ReadNext after end of stream = %v, want io.EOF", err)
	}
	if _, err := s.ReadNext(context.Background()); err != io.EOF {
		t.Errorf("ReadNext after EOF = %v, want io.EOF", err)
	}
}

func TestHandshakeCommands(t *testing.T) {
	srv, dial := newFakeServer(t)
	s, err := Open(context.Background(), testURL, testOptions(dial))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	var ids []uint16
	var sel, play mms.Command
	for _, c := range srv.received() {
		ids = append(ids, c.ID)
		switch c.ID {
		case mms.CmdStreamSelect:
			sel = c
		case mms.CmdPlay:
			play = c
		}
	}
	want := []uint16{mms.CmdConnect, mms.CmdProtocolSelect, mms.CmdMediaPath, mms.CmdHeaderRequest, mms.CmdStreamSelect, mms.CmdPlay}
	if len(ids) != len(want) {
		t.Fatalf("commands = %x, want %x", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("commands = %x, want %x", ids, want)
		}
	}

	if sel.Prefix1 != 2 || sel.Prefix2 != 0xffff|1<<16 {
		t.Errorf("stream select prefixes = %d, 0x%x", sel.Prefix1, sel.Prefix2)
	}
	le := binary.LittleEndian
	if le.Uint16(sel.Payload[0:]) != 0 || le.Uint16(sel.Payload[2:]) != 0xffff ||
		le.Uint16(sel.Payload[4:]) != 2 || le.Uint16(sel.Payload[6:]) != 0 {
		t.Errorf("stream select payload = % x", sel.Payload[:8])
	}
	if got := le.Uint32(play.Payload[12:]); got != mms.PlayFromCurrent {
		t.Errorf("play packet = 0x%x", got)
	}
	if play.Prefix1 != 1 || play.Prefix2 != 0x0001ffff {
		t.Errorf("play prefixes = %d, 0x%x", play.Prefix1, play.Prefix2)
	}
}

func TestDescribeSocketClosedEndsSession(t *testing.T) {
	srv, dial := newFakeServer(t)
	srv.handle = func(f *fakeServer, cmd mms.Command) bool {
		if cmd.ID == mms.CmdMediaPath {
			f.reply(mms.ReplySocketClosed, nil)
			return true
		}
		return false
	}
	m := metrics.NewCollector()
	opts := testOptions(dial)
	opts.Metrics = m

	s := NewSession(opts)
	if err := s.Connect(context.Background(), testURL); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer s.Close()

	err := s.Describe(context.Background(), "")
	if err == nil || !mms.IsFatal(err) {
		t.Fatalf("Describe = %v, want fatal error", err)
	}
	if !s.EOF() {
		t.Error("session not at EOF")
	}
	if got := m.Snapshot().Retries; got != 0 {
		t.Errorf("retries = %d, want 0", got)
	}
	if err := s.Start(context.Background(), mms.PlayFromCurrent); !errors.Is(err, mms.ErrSessionEOF) {
		t.Errorf("Start after EOF = %v", err)
	}
}

func TestProtocolRejected(t *testing.T) {
	srv, dial := newFakeServer(t)
	srv.handle = func(f *fakeServer, cmd mms.Command) bool {
		if cmd.ID == mms.CmdProtocolSelect {
			f.reply(mms.ReplySocketClosed, nil)
			return true
		}
		return false
	}
	s := NewSession(testOptions(dial))
	err := s.Connect(context.Background(), testURL)
	if !errors.Is(err, ErrProtocolRejected) {
		t.Fatalf("Connect = %v, want ErrProtocolRejected", err)
	}
	if s.State() != StateDisconnected {
		t.Errorf("state = %s", s.State())
	}
}

func TestStartGivesUpAfterRetryBound(t *testing.T) {
	srv, dial := newFakeServer(t)
	srv.handle = func(f *fakeServer, cmd mms.Command) bool {
		if cmd.ID != mms.CmdPlay {
			return false
		}
		for i := 0; i < mms.RetryMax; i++ {
			f.reply(0x11, nil)
		}
		return true
	}
	m := metrics.NewCollector()
	opts := testOptions(dial)
	opts.Metrics = m

	s := NewSession(opts)
	if err := s.Connect(context.Background(), testURL); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer s.Close()
	if err := s.Describe(context.Background(), ""); err != nil {
		t.Fatalf("Describe: %v", err)
	}

	err := s.Start(context.Background(), mms.PlayFromCurrent)
	if !errors.Is(err, mms.ErrRetryExhausted) {
		t.Fatalf("Start = %v, want retry exhaustion", err)
	}
	if !s.EOF() {
		t.Error("session not at EOF")
	}
	if got := m.Snapshot().Retries; got != mms.RetryMax {
		t.Errorf("retries = %d, want %d", got, mms.RetryMax)
	}
}

func TestSeekRestartsAtPacket(t *testing.T) {
	srv, dial := newFakeServer(t)
	s, err := Open(context.Background(), testURL, testOptions(dial))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	// inside the header: served from memory
	if err := s.Seek(context.Background(), 10); err != nil {
		t.Fatalf("Seek header: %v", err)
	}
	chunk, err := s.ReadNext(context.Background())
	if err != nil {
		t.Fatalf("ReadNext: %v", err)
	}
	if !bytes.Equal(chunk.Payload, srv.header[10:]) {
		t.Fatalf("header tail is %d bytes", len(chunk.Payload))
	}

	target := int64(testHeaderSize + 2*testPacketLength + 17)
	if err := s.Seek(context.Background(), target); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if s.Position() != target {
		t.Errorf("position = %d, want %d", s.Position(), target)
	}
	if _, ok := srv.waitFor(mms.CmdStop, time.Second); !ok {
		t.Fatal("no stop command before seek play")
	}

	chunk, err = s.ReadNext(context.Background())
	if err != nil {
		t.Fatalf("ReadNext after seek: %v", err)
	}
	if len(chunk.Payload) != testPacketLength-17 || chunk.Payload[0] != 3 {
		t.Errorf("after seek got %d bytes starting with %d", len(chunk.Payload), chunk.Payload[0])
	}

	var plays []uint32
	for _, c := range srv.received() {
		if c.ID == mms.CmdPlay {
			plays = append(plays, binary.LittleEndian.Uint32(c.Payload[12:]))
		}
	}
	if len(plays) != 2 || plays[1] != 2 {
		t.Errorf("play packets = %v", plays)
	}
}
