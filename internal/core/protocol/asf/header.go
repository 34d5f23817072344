// If you are AI: This file parses the ASF header object delivered by an MMS server.
// Only the fields needed for stream selection and seeking are extracted.

package asf

import (
	"errors"
	"math"

	"mmsgo/internal/core/protocol/wire"
)

// MaxStreams is the number of stream slots; ASF stream numbers are 7 bits.
const MaxStreams = 128

const (
	// objectHeaderSize is GUID + u64 size.
	objectHeaderSize = 24
	// topHeaderSize is the header object's GUID, size, object count and two reserved bytes.
	topHeaderSize = 30
	// headerExtensionPrefix is reserved GUID + u16 + u32 data size.
	headerExtensionPrefix = 22
	// extendedStreamFixed covers the fixed fields before the two sub-list counts.
	extendedStreamFixed = 64
)

var (
	ErrNotHeader = errors.New("not an asf header object")
	ErrTruncated = errors.New("asf header truncated")
)

// Category classifies a stream by its stream-type GUID.
type Category int8

const (
	CategoryUnknown Category = iota
	CategoryAudio
	CategoryVideo
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryAudio:
		return "audio"
	case CategoryVideo:
		return "video"
	default:
		return "unknown"
	}
}

// Stream describes one ASF stream slot.
type Stream struct {
	Category Category
	// Bitrate is -1 when no bitrate property was seen.
	Bitrate  int32
	Selected bool
}

// Header is the subset of an ASF header used by the player.
type Header struct {
	FileSize          uint64
	DataPacketsCount  uint64
	MinDataPacketSize uint32
	Streams           [MaxStreams]Stream
}

// NewHeader returns a header with every stream unknown and bitrate -1.
func NewHeader() *Header {
	h := &Header{}
	for i := range h.Streams {
		h.Streams[i].Bitrate = -1
	}
	return h
}

// ParseHeader walks the ASF object chain in b.
// A truncated chain ends the walk without error; only a missing or
// foreign top-level object is rejected.
func ParseHeader(b []byte) (*Header, error) {
	r := wire.NewReader(b)
	top, err := r.ReadGUID()
	if err != nil {
		return nil, ErrTruncated
	}
	if top != GUIDHeader {
		return nil, ErrNotHeader
	}
	h := NewHeader()
	if err := r.Skip(topHeaderSize - wire.GUIDSize); err != nil {
		return h, nil
	}

	for !r.Empty() {
		guid, err := r.ReadGUID()
		if err != nil {
			break
		}
		size, err := r.Read64()
		if err != nil || size < objectHeaderSize {
			break
		}
		body := objectBody(size)

		switch KindOf(guid) {
		case ObjectFileProperties:
			h.parseFileProperties(r, body)
		case ObjectHeaderExtension:
			// sub-objects follow the prefix and are walked by this loop
			_ = r.Skip(headerExtensionPrefix)
		case ObjectExtendedStreamProperties:
			parseExtendedStreamProperties(r, size)
		case ObjectStreamProperties:
			h.parseStreamProperties(r, body)
		case ObjectStreamBitrateProperties:
			h.parseBitrateProperties(r, body)
		default:
			_ = r.Skip(body)
		}
	}
	return h, nil
}

// objectBody returns the payload length of an object, clamped to int64.
func objectBody(size uint64) int64 {
	body := size - objectHeaderSize
	if body > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(body)
}

// parseFileProperties reads file size, packet count and minimum packet size.
func (h *Header) parseFileProperties(r *wire.Reader, body int64) {
	p, _ := r.ReadMemory(clampInt(body))
	sub := wire.NewReader(p)
	if sub.Skip(wire.GUIDSize) != nil {
		return
	}
	if v, err := sub.Read64(); err == nil {
		h.FileSize = v
	}
	if sub.Skip(8) != nil {
		return
	}
	if v, err := sub.Read64(); err == nil {
		h.DataPacketsCount = v
	}
	// play duration, send duration, preroll, flags
	if sub.Skip(8+8+8+4) != nil {
		return
	}
	if v, err := sub.Read32(); err == nil {
		h.MinDataPacketSize = v
	}
}

// parseStreamProperties classifies a stream by its type GUID.
func (h *Header) parseStreamProperties(r *wire.Reader, body int64) {
	p, _ := r.ReadMemory(clampInt(body))
	sub := wire.NewReader(p)
	streamType, err := sub.ReadGUID()
	if err != nil {
		return
	}
	// error correction GUID, time offset, type-specific and error correction lengths
	if sub.Skip(wire.GUIDSize+8+4+4) != nil {
		return
	}
	flags, err := sub.Read8()
	if err != nil {
		return
	}
	id := flags & 0x7f
	h.Streams[id].Category = streamCategories[streamType]
}

// parseBitrateProperties records per-stream average bitrates.
func (h *Header) parseBitrateProperties(r *wire.Reader, body int64) {
	p, _ := r.ReadMemory(clampInt(body))
	sub := wire.NewReader(p)
	count, err := sub.Read16()
	if err != nil {
		return
	}
	for i := 0; i < int(count); i++ {
		flags, err := sub.Read16()
		if err != nil {
			return
		}
		bitrate, err := sub.Read32()
		if err != nil {
			return
		}
		h.Streams[flags&0x7f].Bitrate = int32(bitrate)
	}
}

// parseExtendedStreamProperties consumes the two counted sub-lists.
// The remainder is skipped only when it fits in one object header; otherwise
// the cursor stays put so an embedded Stream Properties object is walked next.
func parseExtendedStreamProperties(r *wire.Reader, size uint64) {
	if r.Skip(extendedStreamFixed) != nil {
		return
	}
	names, err := r.Read16()
	if err != nil {
		return
	}
	extensions, err := r.Read16()
	if err != nil {
		return
	}
	consumed := uint64(objectHeaderSize + extendedStreamFixed + 4)

	for i := 0; i < int(names); i++ {
		if _, err := r.Read16(); err != nil {
			return
		}
		n, err := r.Read16()
		if err != nil {
			return
		}
		if r.Skip(int64(n)) != nil {
			return
		}
		consumed += 4 + uint64(n)
	}
	for i := 0; i < int(extensions); i++ {
		if r.Skip(wire.GUIDSize+2) != nil {
			return
		}
		n, err := r.Read32()
		if err != nil {
			return
		}
		if r.Skip(int64(n)) != nil {
			return
		}
		consumed += wire.GUIDSize + 6 + uint64(n)
	}

	if size > consumed && size-consumed <= objectHeaderSize {
		_ = r.Skip(int64(size - consumed))
	}
}

// clampInt converts an object body length to a slice length.
func clampInt(n int64) int {
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(n)
}

// SelectedCount returns how many streams are selected.
func (h *Header) SelectedCount() int {
	n := 0
	for i := range h.Streams {
		if h.Streams[i].Selected {
			n++
		}
	}
	return n
}

// KnownCount returns how many stream slots have a known category.
func (h *Header) KnownCount() int {
	n := 0
	for i := range h.Streams {
		if h.Streams[i].Category != CategoryUnknown {
			n++
		}
	}
	return n
}
