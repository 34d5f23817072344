// If you are AI: This file defines MMS protocol constants: command ids, framing sizes and defaults.

package mms

import "time"

// Default ports
const (
	DefaultPort    = 1755
	DefaultUDPPort = 7000
)

// Command framing
const (
	CommandHeaderSize = 48         // pre-header through prefix2
	CommandMagic      = 0xB00BFACE // session id field of every command
	ProtocolTag       = 0x20534d4d // "MMS "
	DirectionToServer = 0x00030000 // high half of the direction|command word
	commandStart      = 0x00000001
)

// Data packet framing
const (
	PacketHeaderSize = 8    // u32 seq, u8 id, u8 flags, u16 length
	TimingPacketID   = 0xff // UDP timing packet
	HeaderPacketID   = 0x02 // default negotiated header packet id
	MediaPacketID    = 0x04 // default negotiated media packet id
)

// Client to server commands
const (
	CmdConnect        = 0x01
	CmdProtocolSelect = 0x02
	CmdMediaPath      = 0x05
	CmdPlay           = 0x07
	CmdStop           = 0x09
	CmdClose          = 0x0d
	CmdHeaderRequest  = 0x15
	CmdKeepAlive      = 0x1b
	CmdStreamSelect   = 0x33
)

// Server to client replies
const (
	ReplyConnect         = 0x01
	ReplyProtocolOK      = 0x02
	ReplyPlay            = 0x05
	ReplyMediaPath       = 0x06
	ReplyAuthRequired    = 0x1a
	ReplyKeepAlive       = 0x1b
	ReplyEndOfStream     = 0x1e
	ReplyReinit          = 0x20
	ReplyStreamSelection = 0x21
	ReplySocketClosed    = 0x03 // also refuses the protocol during negotiation
)

// Retry and polling bounds
const (
	RetryMax           = 10
	RetryDelay         = 50 * time.Millisecond
	PollTimeout        = 500 * time.Millisecond
	EmptyPollTolerance = 3
)

// PlayFromCurrent asks the server to play from the start or current position.
const PlayFromCurrent = 0xffffffff

// ClientVersion is announced in the connect command.
const ClientVersion = "NSPlayer/7.0.0.1956"
