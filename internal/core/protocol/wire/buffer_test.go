// If you are AI: This file contains unit tests for the binary buffer codec.

package wire

import (
	"bytes"
	"errors"
	"testing"
)

func TestWriterLittleEndian(t *testing.T) {
	w := NewWriter(0)
	w.Write8(0x01)
	w.Write16(0x0302)
	w.Write32(0x07060504)
	w.Write64(0x0f0e0d0c0b0a0908)

	want := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}
	if !bytes.Equal(w.Bytes(), want) {
		t.Errorf("Bytes() = %v, want %v", w.Bytes(), want)
	}
	if w.Len() != 15 {
		t.Errorf("Len() = %d, want 15", w.Len())
	}

	w.Reset()
	if w.Len() != 0 {
		t.Errorf("Len() after Reset = %d, want 0", w.Len())
	}
}

func TestReaderRoundTrip(t *testing.T) {
	w := NewWriter(8)
	w.Write8(0xab)
	w.Write16(0xbeef)
	w.Write32(0xb00bface)
	w.Write64(0x40ac200000000000)
	w.WriteMemory([]byte("MMS "))

	r := NewReader(w.Bytes())
	if v, err := r.Read8(); err != nil || v != 0xab {
		t.Errorf("Read8 = %x, %v", v, err)
	}
	if v, err := r.Read16(); err != nil || v != 0xbeef {
		t.Errorf("Read16 = %x, %v", v, err)
	}
	if v, err := r.Read32(); err != nil || v != 0xb00bface {
		t.Errorf("Read32 = %x, %v", v, err)
	}
	if v, err := r.Read64(); err != nil || v != 0x40ac200000000000 {
		t.Errorf("Read64 = %x, %v", v, err)
	}
	if p, err := r.ReadMemory(4); err != nil || string(p) != "MMS " {
		t.Errorf("ReadMemory = %q, %v", p, err)
	}
	if !r.Empty() {
		t.Error("Reader should be empty")
	}
}

func TestReaderShortReadDoesNotAdvance(t *testing.T) {
	r := NewReader([]byte{1, 2, 3})
	if _, err := r.Read32(); !errors.Is(err, ErrShortRead) {
		t.Fatalf("Read32 error = %v, want ErrShortRead", err)
	}
	if r.Pos() != 0 {
		t.Errorf("Pos() = %d after failed read, want 0", r.Pos())
	}
	if v, err := r.Read16(); err != nil || v != 0x0201 {
		t.Errorf("Read16 = %x, %v", v, err)
	}
}

func TestReaderReadMemoryShortfall(t *testing.T) {
	r := NewReader([]byte{1, 2, 3})
	p, err := r.ReadMemory(5)
	if !errors.Is(err, ErrShortRead) {
		t.Errorf("error = %v, want ErrShortRead", err)
	}
	if len(p) != 3 {
		t.Errorf("len = %d, want the 3 available bytes", len(p))
	}
	if !r.Empty() {
		t.Error("Reader should be drained after a short ReadMemory")
	}
}

func TestReaderSkip(t *testing.T) {
	r := NewReader(make([]byte, 10))
	if err := r.Skip(4); err != nil {
		t.Fatalf("Skip(4) failed: %v", err)
	}
	if r.Remaining() != 6 {
		t.Errorf("Remaining() = %d, want 6", r.Remaining())
	}
	if err := r.Skip(100); !errors.Is(err, ErrShortRead) {
		t.Errorf("Skip(100) error = %v, want ErrShortRead", err)
	}
	if !r.Empty() {
		t.Error("Reader should be empty after overlong skip")
	}
	if err := r.Skip(-1); err == nil {
		t.Error("negative Skip should fail")
	}
}

func TestUTF16RoundTrip(t *testing.T) {
	w := NewWriter(0)
	if err := w.WriteUTF16("NSPlayer/7.0"); err != nil {
		t.Fatalf("WriteUTF16 failed: %v", err)
	}
	b := w.Bytes()
	if len(b) != (12+1)*2 {
		t.Fatalf("encoded length = %d, want %d", len(b), 26)
	}
	if b[0] != 'N' || b[1] != 0 {
		t.Errorf("first code unit = %v, want little-endian 'N'", b[:2])
	}
	if b[len(b)-2] != 0 || b[len(b)-1] != 0 {
		t.Error("missing NUL terminator")
	}

	r := NewReader(b)
	s, err := r.ReadUTF16(13)
	if err != nil {
		t.Fatalf("ReadUTF16 failed: %v", err)
	}
	if s != "NSPlayer/7.0" {
		t.Errorf("ReadUTF16 = %q", s)
	}
}

func TestGUIDWireOrder(t *testing.T) {
	g := MustParseGUID("75B22630-668E-11CF-A6D9-00AA0062CE6C")
	if g.Data1 != 0x75B22630 || g.Data2 != 0x668E || g.Data3 != 0x11CF {
		t.Fatalf("parsed fields = %x %x %x", g.Data1, g.Data2, g.Data3)
	}

	w := NewWriter(0)
	w.WriteGUID(g)
	want := []byte{0x30, 0x26, 0xB2, 0x75, 0x8E, 0x66, 0xCF, 0x11,
		0xA6, 0xD9, 0x00, 0xAA, 0x00, 0x62, 0xCE, 0x6C}
	if !bytes.Equal(w.Bytes(), want) {
		t.Errorf("wire form = % x, want % x", w.Bytes(), want)
	}
	if !bytes.Equal(g.Bytes(), want) {
		t.Errorf("Bytes() = % x, want % x", g.Bytes(), want)
	}

	got, err := NewReader(want).ReadGUID()
	if err != nil {
		t.Fatalf("ReadGUID failed: %v", err)
	}
	if got != g {
		t.Errorf("ReadGUID = %s, want %s", got, g)
	}
	if got.String() != "75B22630-668E-11CF-A6D9-00AA0062CE6C" {
		t.Errorf("String() = %s", got.String())
	}
}

func TestNewSessionGUID(t *testing.T) {
	a := NewSessionGUID()
	b := NewSessionGUID()
	if a.Data1 != SessionGUIDSentinel || b.Data1 != SessionGUIDSentinel {
		t.Errorf("Data1 = %x/%x, want sentinel", a.Data1, b.Data1)
	}
	if a == b {
		t.Error("two session GUIDs should differ")
	}
}

func TestParseGUIDInvalid(t *testing.T) {
	if _, err := ParseGUID("not-a-guid"); err == nil {
		t.Error("ParseGUID should reject malformed text")
	}
}
