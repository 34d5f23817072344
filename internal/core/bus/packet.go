// If you are AI: This file defines Packet, the unit of ASF data flowing through the bus.

package bus

import "time"

// PacketKind says whether a packet carries the ASF header or a media packet.
type PacketKind uint8

const (
	// PacketHeader carries the complete ASF header of the current session.
	PacketHeader PacketKind = iota
	// PacketMedia carries one fixed-length ASF data packet.
	PacketMedia
)

// String returns the kind name.
func (k PacketKind) String() string {
	switch k {
	case PacketHeader:
		return "header"
	case PacketMedia:
		return "media"
	default:
		return "unknown"
	}
}

// Packet is immutable once published; every subscriber shares the same value.
type Packet struct {
	Kind     PacketKind
	Sequence uint32
	Payload  []byte
	Received time.Time
}

// NewPacket copies payload into a new packet.
func NewPacket(kind PacketKind, seq uint32, payload []byte) *Packet {
	return &Packet{
		Kind:     kind,
		Sequence: seq,
		Payload:  append([]byte(nil), payload...),
		Received: time.Now(),
	}
}
