// If you are AI: This file implements the packet capture format: length-prefixed msgpack records.

package capture

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"mmsgo/internal/core/protocol/mms"
)

const (
	// LengthPrefixSize is the size of the big-endian record length.
	LengthPrefixSize = 4
	// MaxRecordSize bounds a single encoded record.
	MaxRecordSize = 1 << 20
)

// ErrPartialRecord means the capture ends in the middle of a record.
var ErrPartialRecord = errors.New("partial capture record")

// Record is one captured unit of an MMS stream.
type Record struct {
	Kind     string    `msgpack:"kind"`
	Type     uint16    `msgpack:"type"`
	Sequence uint32    `msgpack:"seq"`
	Size     int       `msgpack:"size"`
	Payload  []byte    `msgpack:"payload"`
	At       time.Time `msgpack:"at"`
}

// FromChunk builds a record from a delivered chunk, copying the payload.
func FromChunk(c mms.Chunk, at time.Time) Record {
	return Record{
		Kind:     c.Kind.String(),
		Type:     c.Type,
		Sequence: c.Sequence,
		Size:     len(c.Payload),
		Payload:  append([]byte(nil), c.Payload...),
		At:       at,
	}
}

// Writer appends records to a stream. Safe for concurrent use.
type Writer struct {
	mu  sync.Mutex
	w   *bufio.Writer
	n   int
	buf [LengthPrefixSize]byte
}

// NewWriter creates a capture writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Write encodes and appends one record.
func (w *Writer) Write(rec Record) error {
	payload, err := msgpack.Marshal(&rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if len(payload) > MaxRecordSize {
		return fmt.Errorf("record of %d bytes exceeds %d", len(payload), MaxRecordSize)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	binary.BigEndian.PutUint32(w.buf[:], uint32(len(payload)))
	if _, err := w.w.Write(w.buf[:]); err != nil {
		return err
	}
	if _, err := w.w.Write(payload); err != nil {
		return err
	}
	w.n++
	return nil
}

// Count returns the number of records written.
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.n
}

// Flush writes buffered records to the underlying writer.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.w.Flush()
}

// Reader decodes records written by Writer.
type Reader struct {
	r *bufio.Reader
}

// NewReader creates a capture reader.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Next returns the next record, or io.EOF at a clean end of stream.
func (r *Reader) Next() (Record, error) {
	var prefix [LengthPrefixSize]byte
	if _, err := io.ReadFull(r.r, prefix[:]); err != nil {
		if err == io.EOF {
			return Record{}, io.EOF
		}
		return Record{}, fmt.Errorf("%w: length prefix: %v", ErrPartialRecord, err)
	}
	size := binary.BigEndian.Uint32(prefix[:])
	if size > MaxRecordSize {
		return Record{}, fmt.Errorf("record of %d bytes exceeds %d", size, MaxRecordSize)
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(r.r, payload); err != nil {
		return Record{}, fmt.Errorf("%w: payload: %v", ErrPartialRecord, err)
	}

	var rec Record
	if err := msgpack.Unmarshal(payload, &rec); err != nil {
		return Record{}, fmt.Errorf("decode record: %w", err)
	}
	return rec, nil
}
