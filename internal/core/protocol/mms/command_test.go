// If you are AI: This file contains tests for command frame encoding and parsing.

package mms

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math/rand"
	"testing"
)

func TestEncodeCommandLayout(t *testing.T) {
	payload := []byte{1, 2, 3, 4, 5}
	frame := EncodeCommand(7, CmdConnect, 0, 0x0004000b, payload)

	if len(frame) != CommandHeaderSize+8 {
		t.Fatalf("frame length = %d, want %d", len(frame), CommandHeaderSize+8)
	}
	le := binary.LittleEndian
	checks := []struct {
		name string
		off  int
		want uint32
	}{
		{"start", 0, 1},
		{"magic", 4, CommandMagic},
		{"length", 8, 8 + 32},
		{"tag", 12, ProtocolTag},
		{"words+4", 16, 1 + 4},
		{"seq", 20, 7},
		{"words+2", 32, 1 + 2},
		{"direction", 36, DirectionToServer | CmdConnect},
		{"prefix1", 40, 0},
		{"prefix2", 44, 0x0004000b},
	}
	for _, c := range checks {
		if got := le.Uint32(frame[c.off:]); got != c.want {
			t.Errorf("%s = 0x%x, want 0x%x", c.name, got, c.want)
		}
	}
	if !bytes.Equal(frame[48:53], payload) || !bytes.Equal(frame[53:], []byte{0, 0, 0}) {
		t.Errorf("payload region = % x", frame[48:])
	}
}

func TestCommandRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for n := 0; n <= 4096; n += 1 + n/8 {
		payload := make([]byte, n)
		rng.Read(payload)
		id := uint16(rng.Intn(0x40))

		frame := EncodeCommand(uint32(n), id, 1, 2, payload)
		if len(frame)%8 != 0 {
			t.Fatalf("n=%d: frame length %d not 8-aligned", n, len(frame))
		}
		cmd, used, err := ParseCommand(frame)
		if err != nil {
			t.Fatalf("n=%d: ParseCommand failed: %v", n, err)
		}
		if used != len(frame) {
			t.Errorf("n=%d: consumed %d of %d", n, used, len(frame))
		}
		if cmd.ID != id || cmd.Sequence != uint32(n) || cmd.Prefix1 != 1 || cmd.Prefix2 != 2 {
			t.Errorf("n=%d: header = %+v", n, cmd)
		}
		if !bytes.Equal(cmd.Payload[:n], payload) {
			t.Fatalf("n=%d: payload mismatch", n)
		}
		for _, b := range cmd.Payload[n:] {
			if b != 0 {
				t.Fatalf("n=%d: non-zero padding", n)
			}
		}
	}
}

func TestParseCommandErrors(t *testing.T) {
	frame := EncodeCommand(0, CmdPlay, 0, 0, []byte("abc"))

	if _, _, err := ParseCommand(frame[:20]); !errors.Is(err, ErrTruncatedCommand) {
		t.Errorf("partial frame error = %v, want ErrTruncatedCommand", err)
	}

	bad := append([]byte(nil), frame...)
	bad[4] = 0
	if _, _, err := ParseCommand(bad); !errors.Is(err, ErrBadMagic) {
		t.Errorf("bad magic error = %v, want ErrBadMagic", err)
	}

	short := append([]byte(nil), frame...)
	binary.LittleEndian.PutUint32(short[8:], 8)
	_, used, err := ParseCommand(short)
	if !errors.Is(err, ErrTruncatedCommand) {
		t.Errorf("undersized frame error = %v, want ErrTruncatedCommand", err)
	}
	if used != 24 {
		t.Errorf("undersized frame consumed %d, want 24", used)
	}
}

func TestEncodePacket(t *testing.T) {
	p := EncodePacket(9, MediaPacketID, 0x80, []byte("media"))
	h, ok := parsePacketHeader(p)
	if !ok {
		t.Fatal("parsePacketHeader failed")
	}
	if h.sequence != 9 || h.id != MediaPacketID || h.flags != 0x80 || int(h.length) != len(p) {
		t.Errorf("header = %+v", h)
	}
}

func TestErrorClassification(t *testing.T) {
	err := Fatal("read", ErrServerClosed)
	if !IsFatal(err) || !errors.Is(err, ErrServerClosed) {
		t.Errorf("Fatal error not classified: %v", err)
	}
	if !IsFatal(Rejected("describe", errors.New("denied"))) {
		t.Error("rejections are fatal")
	}
	if IsFatal(newError(KindTransient, "receive", ErrPollTimeout)) {
		t.Error("transient errors are not fatal")
	}
	if KindOf(errors.New("plain")) != KindFatal {
		t.Error("unclassified errors default to fatal")
	}
}
