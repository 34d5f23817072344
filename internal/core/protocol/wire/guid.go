// If you are AI: This file defines the GUID value type shared by ASF parsing and MMS sessions.
// GUIDs are stored in their wire field layout (32/16/16/8x8 bits).

package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
)

// GUIDSize is the encoded size of a GUID in bytes.
const GUIDSize = 16

// SessionGUIDSentinel occupies Data1 of every locally generated session GUID.
const SessionGUIDSentinel = 0xbabac001

// GUID is a 16-byte identifier in Microsoft field order.
// On the wire Data1, Data2 and Data3 are little-endian; Data4 is raw bytes.
type GUID struct {
	Data1 uint32
	Data2 uint16
	Data3 uint16
	Data4 [8]byte
}

// ParseGUID parses the canonical text form "XXXXXXXX-XXXX-XXXX-XXXX-XXXXXXXXXXXX".
// Braces are accepted and ignored.
func ParseGUID(s string) (GUID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return GUID{}, fmt.Errorf("parse guid %q: %w", s, err)
	}
	// uuid keeps the text order, which is big-endian for the first three fields
	g := GUID{
		Data1: binary.BigEndian.Uint32(u[0:4]),
		Data2: binary.BigEndian.Uint16(u[4:6]),
		Data3: binary.BigEndian.Uint16(u[6:8]),
	}
	copy(g.Data4[:], u[8:16])
	return g, nil
}

// MustParseGUID is ParseGUID for package-level constants. It panics on bad input.
func MustParseGUID(s string) GUID {
	g, err := ParseGUID(s)
	if err != nil {
		panic(err)
	}
	return g
}

// NewSessionGUID generates the client identifier sent in the connect command.
// Data1 is fixed to SessionGUIDSentinel, the remaining fields are random.
func NewSessionGUID() GUID {
	u := uuid.New()
	g := GUID{
		Data1: SessionGUIDSentinel,
		Data2: binary.BigEndian.Uint16(u[4:6]),
		Data3: binary.BigEndian.Uint16(u[6:8]),
	}
	copy(g.Data4[:], u[8:16])
	return g
}

// GUIDFromBytes decodes a GUID from its 16-byte wire form.
func GUIDFromBytes(b []byte) (GUID, error) {
	if len(b) < GUIDSize {
		return GUID{}, ErrShortRead
	}
	g := GUID{
		Data1: binary.LittleEndian.Uint32(b[0:4]),
		Data2: binary.LittleEndian.Uint16(b[4:6]),
		Data3: binary.LittleEndian.Uint16(b[6:8]),
	}
	copy(g.Data4[:], b[8:16])
	return g, nil
}

// Bytes returns the 16-byte wire form of the GUID.
func (g GUID) Bytes() []byte {
	b := make([]byte, GUIDSize)
	binary.LittleEndian.PutUint32(b[0:4], g.Data1)
	binary.LittleEndian.PutUint16(b[4:6], g.Data2)
	binary.LittleEndian.PutUint16(b[6:8], g.Data3)
	copy(b[8:16], g.Data4[:])
	return b
}

// String returns the canonical upper-case text form without braces.
func (g GUID) String() string {
	return fmt.Sprintf("%08X-%04X-%04X-%02X%02X-%02X%02X%02X%02X%02X%02X",
		g.Data1, g.Data2, g.Data3,
		g.Data4[0], g.Data4[1], g.Data4[2], g.Data4[3],
		g.Data4[4], g.Data4[5], g.Data4[6], g.Data4[7])
}

// IsZero reports whether every field of the GUID is zero.
func (g GUID) IsZero() bool {
	return g == GUID{}
}
