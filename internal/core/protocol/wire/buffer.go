// If you are AI: This file implements the little-endian read/write buffer used for MMS and ASF.
// Writers grow on append; Readers keep a cursor and bounds-check every access.

package wire

import (
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/text/encoding/unicode"
)

var (
	ErrShortRead = errors.New("short read")
)

// utf16le transcodes between UTF-8 and UTF-16LE without a byte order mark.
var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// Writer appends little-endian values to a growable byte slice.
type Writer struct {
	buf []byte
}

// NewWriter creates a writer with the given initial capacity.
func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity)}
}

// Write8 appends one byte.
func (w *Writer) Write8(v uint8) {
	w.buf = append(w.buf, v)
}

// Write16 appends a little-endian uint16.
func (w *Writer) Write16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

// Write32 appends a little-endian uint32.
func (w *Writer) Write32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

// Write64 appends a little-endian uint64.
func (w *Writer) Write64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

// WriteMemory appends a raw byte span.
func (w *Writer) WriteMemory(p []byte) {
	w.buf = append(w.buf, p...)
}

// WriteGUID appends a GUID in wire field order.
func (w *Writer) WriteGUID(g GUID) {
	w.Write32(g.Data1)
	w.Write16(g.Data2)
	w.Write16(g.Data3)
	w.buf = append(w.buf, g.Data4[:]...)
}

// WriteUTF16 appends s as UTF-16LE followed by a 16-bit NUL terminator.
func (w *Writer) WriteUTF16(s string) error {
	enc, err := utf16le.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return fmt.Errorf("encode utf16: %w", err)
	}
	w.buf = append(w.buf, enc...)
	w.Write16(0)
	return nil
}

// Bytes returns the written bytes. The slice aliases the writer's storage.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the number of bytes written.
func (w *Writer) Len() int {
	return len(w.buf)
}

// Reset discards written bytes but keeps capacity.
func (w *Writer) Reset() {
	w.buf = w.buf[:0]
}

// Reader decodes little-endian values from a byte slice with a cursor.
// A failed read never advances the cursor except ReadMemory and Skip,
// which consume whatever is available.
type Reader struct {
	buf []byte
	pos int
}

// NewReader creates a reader over b. The reader does not copy b.
func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

// Read8 reads one byte.
func (r *Reader) Read8() (uint8, error) {
	if r.Remaining() < 1 {
		return 0, ErrShortRead
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

// Read16 reads a little-endian uint16.
func (r *Reader) Read16() (uint16, error) {
	if r.Remaining() < 2 {
		return 0, ErrShortRead
	}
	v := binary.LittleEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

// Read32 reads a little-endian uint32.
func (r *Reader) Read32() (uint32, error) {
	if r.Remaining() < 4 {
		return 0, ErrShortRead
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

// Read64 reads a little-endian uint64.
func (r *Reader) Read64() (uint64, error) {
	if r.Remaining() < 8 {
		return 0, ErrShortRead
	}
	v := binary.LittleEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

// ReadMemory returns up to n bytes. On a shortfall it returns the bytes that
// were available together with ErrShortRead. The result aliases the input.
func (r *Reader) ReadMemory(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative length %d", n)
	}
	if n > r.Remaining() {
		p := r.buf[r.pos:]
		r.pos = len(r.buf)
		return p, ErrShortRead
	}
	p := r.buf[r.pos : r.pos+n]
	r.pos += n
	return p, nil
}

// Skip advances the cursor by n bytes, stopping at the end of the buffer.
func (r *Reader) Skip(n int64) error {
	if n < 0 {
		return fmt.Errorf("negative skip %d", n)
	}
	if n > int64(r.Remaining()) {
		r.pos = len(r.buf)
		return ErrShortRead
	}
	r.pos += int(n)
	return nil
}

// ReadGUID reads a GUID in wire field order.
func (r *Reader) ReadGUID() (GUID, error) {
	if r.Remaining() < GUIDSize {
		return GUID{}, ErrShortRead
	}
	g, err := GUIDFromBytes(r.buf[r.pos:])
	if err != nil {
		return GUID{}, err
	}
	r.pos += GUIDSize
	return g, nil
}

// ReadUTF16 reads chars UTF-16LE code units and returns them as UTF-8.
// A trailing NUL inside the span is dropped.
func (r *Reader) ReadUTF16(chars int) (string, error) {
	if chars < 0 || chars*2 > r.Remaining() {
		return "", ErrShortRead
	}
	raw := r.buf[r.pos : r.pos+chars*2]
	for len(raw) >= 2 && raw[len(raw)-2] == 0 && raw[len(raw)-1] == 0 {
		raw = raw[:len(raw)-2]
	}
	dec, err := utf16le.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("decode utf16: %w", err)
	}
	r.pos += chars * 2
	return string(dec), nil
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.pos
}

// Pos returns the cursor offset from the start of the buffer.
func (r *Reader) Pos() int {
	return r.pos
}

// Empty reports whether every byte has been consumed.
func (r *Reader) Empty() bool {
	return r.pos >= len(r.buf)
}
