// If you are AI: This file defines the MMS playback session and its state machine.
// A Session owns one connection; reconnecting means creating a new Session.

package player

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"mmsgo/internal/core/protocol/asf"
	"mmsgo/internal/core/protocol/mms"
	"mmsgo/internal/core/protocol/wire"
	"mmsgo/internal/log"
	"mmsgo/internal/metrics"
)

// commandLevel is the first prefix of session-level commands.
const commandLevel = 1

// DefaultKeepAliveTimeout is the server session timeout assumed when none is configured.
const DefaultKeepAliveTimeout = 5 * time.Second

var (
	ErrAlreadyConnected = errors.New("session already connected")
	ErrNotConnected     = errors.New("session not connected")
	ErrWrongState       = errors.New("operation not valid in current state")
	ErrProtocolRejected = errors.New("server rejected transport protocol")
	ErrAuthRequired     = errors.New("server requires authentication")
	ErrMediaRejected    = errors.New("server rejected media path")
	ErrBadDescription   = errors.New("invalid media description")
	ErrNoStreams        = errors.New("no usable stream in header")
	ErrNotSeekable      = errors.New("broadcast stream is not seekable")
	ErrPaused           = errors.New("session is paused")
)

// State is the playback controller state.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateNegotiating
	StateDescribing
	StateStreamsSelected
	StateStarting
	StatePlaying
	StatePaused
	StateSeeking
	StateStopping
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateNegotiating:
		return "negotiating"
	case StateDescribing:
		return "describing"
	case StateStreamsSelected:
		return "streams_selected"
	case StateStarting:
		return "starting"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateSeeking:
		return "seeking"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Options configure a Session.
type Options struct {
	Protocol       mms.Protocol
	ConnectTimeout time.Duration
	PollTimeout    time.Duration
	RetryDelay     time.Duration
	// KeepAliveTimeout is the server session timeout; keep-alives go out 2s before it.
	KeepAliveTimeout time.Duration
	MaxBitrate       int
	AllStreams       bool
	DisableAudio     bool
	DisableVideo     bool
	// Streams forces an explicit stream list instead of the selector.
	Streams []int
	// UDPPort is the local UDP data port; 0 picks an ephemeral port.
	UDPPort int
	Dial    mms.DialFunc
	Logger  *zap.Logger
	Metrics *metrics.Collector
}

// ServerInfo holds the informational strings from the connect reply.
type ServerInfo struct {
	Version        string `json:"version"`
	ToolVersion    string `json:"tool_version"`
	UpdateURL      string `json:"update_url"`
	EncryptionType string `json:"encryption_type"`
}

// description is the media description from the 0x06 reply.
type description struct {
	flags        uint32
	mediaLength  uint32
	packetLength uint32
	packetCount  uint32
	maxBitrate   uint32
	headerSize   uint32
	broadcast    bool
}

// Session is an MMS playback controller.
// Controller methods are serialized by mu; the keep-alive goroutine only
// touches the channel's send path and the atomic flags.
type Session struct {
	mu   sync.Mutex
	opts Options
	log  *zap.Logger

	state  atomic.Int32
	paused atomic.Bool
	closed bool

	url       *mms.URL
	proto     mms.Protocol
	guid      wire.GUID
	transport *mms.Transport
	channel   *mms.Channel
	recv      *mms.Receiver
	server    ServerInfo

	desc   description
	header []byte
	asf    *asf.Header

	// position is the byte offset of the next byte delivered by Read/ReadNext.
	position  int64
	packet    uint32
	mediaBuf  []byte
	mediaUsed int

	keepAliveDue atomic.Bool
	kaStop       chan struct{}
	kaDone       chan struct{}
}

// NewSession creates a disconnected session.
func NewSession(opts Options) *Session {
	if opts.KeepAliveTimeout <= 0 {
		opts.KeepAliveTimeout = DefaultKeepAliveTimeout
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = mms.PollTimeout
	}
	s := &Session{
		opts: opts,
		log:  log.OrNop(opts.Logger),
	}
	s.state.Store(int32(StateDisconnected))
	return s
}

// State returns the current controller state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// setState records a transition.
func (s *Session) setState(st State) {
	prev := State(s.state.Swap(int32(st)))
	if prev != st {
		s.log.Debug("state change", zap.Stringer("from", prev), zap.Stringer("to", st))
	}
}

// EOF reports whether the session hit a terminal condition.
func (s *Session) EOF() bool {
	return s.channel != nil && s.channel.EOF()
}

// Paused reports whether playback is paused.
func (s *Session) Paused() bool {
	return s.paused.Load()
}

// Metrics returns the session's collector, which may be nil.
func (s *Session) Metrics() *metrics.Collector {
	return s.opts.Metrics
}

// checkActive returns an error when the session cannot issue commands.
func (s *Session) checkActive() error {
	if s.channel == nil || s.closed {
		return ErrNotConnected
	}
	if s.channel.EOF() {
		return mms.Fatal("session", mms.ErrSessionEOF)
	}
	return nil
}
