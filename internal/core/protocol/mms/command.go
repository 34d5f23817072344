// If you are AI: This file encodes and decodes MMS command frames.
// A frame is a 48-byte pre-header followed by the payload padded to 8 bytes.

package mms

import (
	"encoding/binary"
	"fmt"

	"mmsgo/internal/core/protocol/wire"
)

// Command is a decoded MMS command frame.
type Command struct {
	ID       uint16
	Sequence uint32
	Prefix1  uint32
	Prefix2  uint32
	// Payload is everything after the pre-header, including padding.
	Payload []byte
}

// paddedLen rounds n up to a multiple of 8.
func paddedLen(n int) int {
	return (n + 7) &^ 7
}

// EncodeCommand builds a command frame. The payload is zero padded to an
// 8-byte boundary; the padding is the only trailer that reaches the wire.
func EncodeCommand(seq uint32, id uint16, prefix1, prefix2 uint32, payload []byte) []byte {
	padded := paddedLen(len(payload))
	words := uint32(padded / 8)

	w := wire.NewWriter(CommandHeaderSize + padded)
	w.Write32(commandStart)
	w.Write32(CommandMagic)
	w.Write32(uint32(padded + CommandHeaderSize - 16))
	w.Write32(ProtocolTag)
	w.Write32(words + 4)
	w.Write32(seq)
	w.Write64(0)
	w.Write32(words + 2)
	w.Write32(DirectionToServer | uint32(id))
	w.Write32(prefix1)
	w.Write32(prefix2)
	w.WriteMemory(payload)
	w.WriteMemory(make([]byte, padded-len(payload)))
	return w.Bytes()
}

// isCommand reports whether b starts with a command pre-header.
func isCommand(b []byte) bool {
	return len(b) >= 8 && binary.LittleEndian.Uint32(b[4:8]) == CommandMagic
}

// looksLikeCommand reports whether b carries the command start word and
// protocol tag but a different magic.
func looksLikeCommand(b []byte) bool {
	return len(b) >= 16 &&
		binary.LittleEndian.Uint32(b[0:4]) == commandStart &&
		binary.LittleEndian.Uint32(b[12:16]) == ProtocolTag &&
		!isCommand(b)
}

// commandLength returns the total frame length declared by a command pre-header.
func commandLength(b []byte) (int, bool) {
	if len(b) < 12 {
		return 0, false
	}
	return int(binary.LittleEndian.Uint32(b[8:12])) + 16, true
}

// ParseCommand decodes one complete command frame at the start of b and
// returns it with the number of bytes consumed. The payload aliases b.
func ParseCommand(b []byte) (Command, int, error) {
	if len(b) < 8 {
		return Command{}, 0, ErrTruncatedCommand
	}
	if !isCommand(b) {
		return Command{}, 0, ErrBadMagic
	}
	total, ok := commandLength(b)
	if !ok || total > len(b) {
		return Command{}, 0, ErrTruncatedCommand
	}
	if total < CommandHeaderSize {
		return Command{}, total, fmt.Errorf("%w: declared %d bytes", ErrTruncatedCommand, total)
	}

	r := wire.NewReader(b[:total])
	_ = r.Skip(20)
	seq, _ := r.Read32()
	_ = r.Skip(12)
	word, _ := r.Read32()
	p1, _ := r.Read32()
	p2, _ := r.Read32()
	return Command{
		ID:       uint16(word & 0xffff),
		Sequence: seq,
		Prefix1:  p1,
		Prefix2:  p2,
		Payload:  b[CommandHeaderSize:total],
	}, total, nil
}
