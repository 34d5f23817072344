// If you are AI: This file defines the Chunk unit produced by the receiver and data packet parsing.

package mms

import "encoding/binary"

// ChunkKind classifies a received frame.
type ChunkKind int

const (
	// ChunkNone is the kind of the empty Chunk returned with errors.
	ChunkNone ChunkKind = iota
	ChunkCommand
	ChunkHeader
	ChunkMedia
	ChunkTiming
	ChunkOther
)

// String returns the kind name.
func (k ChunkKind) String() string {
	switch k {
	case ChunkNone:
		return "none"
	case ChunkCommand:
		return "command"
	case ChunkHeader:
		return "header"
	case ChunkMedia:
		return "media"
	case ChunkTiming:
		return "timing"
	default:
		return "other"
	}
}

// Chunk is one framed unit read from the transport.
// Payload aliases the receive buffer and is valid until the next receive call.
type Chunk struct {
	Kind ChunkKind
	// Type is the packet id for data packets and the command id for commands.
	Type     uint16
	Size     uint16
	Sequence uint32
	Flags    uint8
	Payload  []byte
	Command  *Command
}

// packetHeader is the decoded 8-byte data packet pre-header.
type packetHeader struct {
	sequence uint32
	id       uint8
	flags    uint8
	length   uint16
}

// parsePacketHeader decodes the data packet pre-header at the start of b.
func parsePacketHeader(b []byte) (packetHeader, bool) {
	if len(b) < PacketHeaderSize {
		return packetHeader{}, false
	}
	return packetHeader{
		sequence: binary.LittleEndian.Uint32(b[0:4]),
		id:       b[4],
		flags:    b[5],
		length:   binary.LittleEndian.Uint16(b[6:8]),
	}, true
}

// EncodePacket builds a data packet frame. Used by test servers and capture replay.
func EncodePacket(seq uint32, id, flags uint8, payload []byte) []byte {
	b := make([]byte, PacketHeaderSize+len(payload))
	binary.LittleEndian.PutUint32(b[0:4], seq)
	b[4] = id
	b[5] = flags
	binary.LittleEndian.PutUint16(b[6:8], uint16(PacketHeaderSize+len(payload)))
	copy(b[PacketHeaderSize:], payload)
	return b
}
