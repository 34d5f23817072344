// If you are AI: This file contains tests for UDP delivery, corrupt command
// headers and packet waits that outlast the retry bound.

package mms

import (
	"bytes"
	"errors"
	"net"
	"testing"
	"time"

	"mmsgo/internal/metrics"
)

func TestEmptyChunkHasNoKind(t *testing.T) {
	var c Chunk
	if c.Kind != ChunkNone || c.Kind.String() != "none" {
		t.Errorf("zero chunk kind = %s", c.Kind)
	}
}

func TestReceiverFramesUDPDatagrams(t *testing.T) {
	_, conn := newPipe(t)
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen udp: %v", err)
	}
	defer pc.Close()

	m := metrics.NewCollector()
	recv := NewReceiver(conn, pc, ReceiverOptions{PollTimeout: 200 * time.Millisecond, Metrics: m})
	defer recv.Close()

	sender, err := net.Dial("udp", pc.LocalAddr().String())
	if err != nil {
		t.Fatalf("dial udp: %v", err)
	}
	defer sender.Close()

	media := bytes.Repeat([]byte{0x42}, 700)
	if _, err := sender.Write(EncodePacket(0, TimingPacketID, 0, make([]byte, 8))); err != nil {
		t.Fatalf("send timing: %v", err)
	}
	if _, err := sender.Write(EncodePacket(7, MediaPacketID, 0, media)); err != nil {
		t.Fatalf("send media: %v", err)
	}

	chunk, err := recv.Receive()
	if err != nil || chunk.Kind != ChunkTiming {
		t.Fatalf("first datagram kind=%s err=%v", chunk.Kind, err)
	}
	chunk, err = recv.Receive()
	if err != nil || chunk.Kind != ChunkMedia {
		t.Fatalf("second datagram kind=%s err=%v", chunk.Kind, err)
	}
	if chunk.Sequence != 7 || !bytes.Equal(chunk.Payload, media) {
		t.Errorf("media seq %d, %d bytes", chunk.Sequence, len(chunk.Payload))
	}
	if !bytes.Equal(recv.Media(), media) {
		t.Errorf("stored media length = %d", len(recv.Media()))
	}
	s := m.Snapshot()
	if s.TimingPackets != 1 || s.MediaPackets != 1 {
		t.Errorf("timing = %d, media = %d", s.TimingPackets, s.MediaPackets)
	}
}

func TestReceiverBadMagicIsFatal(t *testing.T) {
	peer, conn := newPipe(t)
	ch := newTestChannel(conn, nil)

	frame := EncodeCommand(0, ReplyPlay, 0, 0, nil)
	frame[4] ^= 0xff
	peer.write(t, frame)

	_, err := ch.ReadPacket(ChunkMedia)
	if !errors.Is(err, ErrBadMagic) || !IsFatal(err) {
		t.Fatalf("error = %v, want fatal bad magic", err)
	}
	if !ch.EOF() {
		t.Error("EOF not set after bad magic")
	}
}

func TestReceiverSequenceOneIsData(t *testing.T) {
	peer, conn := newPipe(t)
	ch := newTestChannel(conn, nil)
	peer.write(t, EncodePacket(1, MediaPacketID, 0, []byte("payload-bytes")))

	chunk, err := ch.ReadPacket(ChunkMedia)
	if err != nil || string(chunk.Payload) != "payload-bytes" {
		t.Fatalf("ReadPacket = %q, %v", chunk.Payload, err)
	}
}

func TestChannelReadPacketWaitsThroughSilence(t *testing.T) {
	peer, conn := newPipe(t)
	m := metrics.NewCollector()
	ch := newTestChannel(conn, m)

	// newTestChannel polls every 50ms, so this gap spans well over RetryMax polls.
	gap := 50 * time.Millisecond * (RetryMax + 4)
	go func() {
		if _, err := peer.conn.Write(EncodePacket(0, MediaPacketID, 0, []byte("first"))); err != nil {
			return
		}
		time.Sleep(gap)
		peer.conn.Write(EncodePacket(1, MediaPacketID, 0, []byte("second")))
	}()

	for _, want := range []string{"first", "second"} {
		chunk, err := ch.ReadPacket(ChunkMedia)
		if err != nil {
			t.Fatalf("ReadPacket %s: %v", want, err)
		}
		if string(chunk.Payload) != want {
			t.Fatalf("payload = %q, want %q", chunk.Payload, want)
		}
	}
	if ch.EOF() {
		t.Error("a silent server must not end the session")
	}
	s := m.Snapshot()
	if s.Retries != 0 {
		t.Errorf("Retries = %d, want 0", s.Retries)
	}
	if s.PollTimeouts < RetryMax {
		t.Errorf("PollTimeouts = %d, want at least %d", s.PollTimeouts, RetryMax)
	}
}

func TestChannelReadPacketEndsWhenClosed(t *testing.T) {
	_, conn := newPipe(t)
	ch := newTestChannel(conn, nil)
	go func() {
		time.Sleep(100 * time.Millisecond)
		conn.Close()
	}()
	_, err := ch.ReadPacket(ChunkMedia)
	if !IsFatal(err) || !ch.EOF() {
		t.Errorf("error = %v, eof=%v", err, ch.EOF())
	}
}
