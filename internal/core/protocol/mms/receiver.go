// If you are AI: This file implements the MMS packet receiver.
// It frames commands and data packets out of the TCP stream and UDP datagrams.

package mms

import (
	"encoding/binary"
	"errors"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"mmsgo/internal/log"
	"mmsgo/internal/metrics"
)

// udpSlice bounds a single TCP wait so queued datagrams are noticed quickly.
const udpSlice = 20 * time.Millisecond

// ReceiverOptions configure a Receiver.
type ReceiverOptions struct {
	PollTimeout time.Duration
	Logger      *zap.Logger
	Metrics     *metrics.Collector
}

// parseResult says what a framing attempt produced.
type parseResult int

const (
	needMore parseResult = iota
	gotFrame
	skipped
)

// Receiver owns the receive buffers of one connection.
// It is driven from a single goroutine; only Close may be called concurrently.
type Receiver struct {
	tcp net.Conn
	udp net.PacketConn

	tcpBuf  []byte
	udpBuf  []byte
	tcpUsed int // length of the frame handed out by the last Receive
	udpUsed int
	scratch []byte

	udpIn     chan []byte
	done      chan struct{}
	closeOnce sync.Once

	headerID uint8
	mediaID  uint8
	nextSeq  uint32
	seqKnown bool

	header []byte
	media  []byte

	pollTimeout time.Duration
	log         *zap.Logger
	metrics     *metrics.Collector
}

// NewReceiver creates a receiver over the control socket and an optional UDP socket.
func NewReceiver(tcp net.Conn, udp net.PacketConn, opts ReceiverOptions) *Receiver {
	r := &Receiver{
		tcp:         tcp,
		udp:         udp,
		scratch:     make([]byte, 64*1024),
		done:        make(chan struct{}),
		headerID:    HeaderPacketID,
		mediaID:     MediaPacketID,
		pollTimeout: opts.PollTimeout,
		log:         log.OrNop(opts.Logger),
		metrics:     opts.Metrics,
	}
	if r.pollTimeout <= 0 {
		r.pollTimeout = PollTimeout
	}
	if udp != nil {
		r.udpIn = make(chan []byte, 256)
		go r.readUDP()
	}
	return r
}

// PacketIDs returns the negotiated header and media packet ids.
func (r *Receiver) PacketIDs() (header, media uint8) {
	return r.headerID, r.mediaID
}

// Header returns the accumulated header bytes.
func (r *Receiver) Header() []byte {
	return r.header
}

// ResetHeader discards accumulated header bytes.
func (r *Receiver) ResetHeader() {
	r.header = r.header[:0]
}

// Media returns the most recent media packet payload.
func (r *Receiver) Media() []byte {
	return r.media
}

// ResetSequence forgets the expected packet sequence, e.g. after a restart.
func (r *Receiver) ResetSequence() {
	r.seqKnown = false
}

// Buffered returns the number of bytes waiting to be framed.
func (r *Receiver) Buffered() int {
	return len(r.tcpBuf) - r.tcpUsed + len(r.udpBuf) - r.udpUsed
}

// Close stops the UDP reader goroutine. Sockets are owned by the Transport.
func (r *Receiver) Close() {
	r.closeOnce.Do(func() { close(r.done) })
}

// Receive returns the next complete frame. Header and media payloads are also
// stored on the receiver. The returned payload is valid until the next call.
func (r *Receiver) Receive() (Chunk, error) {
	r.tcpBuf = compact(r.tcpBuf, r.tcpUsed)
	r.udpBuf = compact(r.udpBuf, r.udpUsed)
	r.tcpUsed, r.udpUsed = 0, 0

	empty := 0
	for {
		chunk, res, err := r.parseTCP()
		if err != nil || res == gotFrame {
			return chunk, err
		}
		if res == skipped {
			continue
		}
		chunk, res, err = r.parseData(&r.udpBuf, &r.udpUsed)
		if err != nil || res == gotFrame {
			return chunk, err
		}
		if res == skipped {
			continue
		}

		err = r.fill()
		if err == nil {
			empty = 0
			continue
		}
		if !errors.Is(err, ErrPollTimeout) {
			return Chunk{}, err
		}
		empty++
		if r.Buffered() == 0 || empty >= EmptyPollTolerance {
			return Chunk{}, newError(KindTransient, "receive", ErrPollTimeout)
		}
	}
}

// parseTCP frames the head of the TCP buffer.
func (r *Receiver) parseTCP() (Chunk, parseResult, error) {
	b := r.tcpBuf
	if len(b) < PacketHeaderSize {
		return Chunk{}, needMore, nil
	}
	if !isCommand(b) {
		if looksLikeCommand(b) {
			r.log.Error("command pre-header with bad magic",
				zap.Uint32("magic", binary.LittleEndian.Uint32(b[4:8])))
			return Chunk{}, skipped, Fatal("receive", ErrBadMagic)
		}
		return r.parseData(&r.tcpBuf, &r.tcpUsed)
	}

	total, ok := commandLength(b)
	if !ok || total > len(b) {
		return Chunk{}, needMore, nil
	}
	cmd, n, err := ParseCommand(b)
	if err != nil {
		r.tcpBuf = compact(b, n)
		r.log.Warn("truncated command", zap.Int("length", n))
		return Chunk{}, skipped, newError(KindTransient, "receive", err)
	}
	r.tcpUsed = n
	r.metrics.IncCommandReceived()
	r.log.Debug("command received", zap.Uint16("cmd", cmd.ID), zap.Uint32("seq", cmd.Sequence))
	return Chunk{
		Kind:     ChunkCommand,
		Type:     cmd.ID,
		Size:     uint16(n),
		Sequence: cmd.Sequence,
		Payload:  cmd.Payload,
		Command:  &cmd,
	}, gotFrame, nil
}

// parseData frames a data packet at the head of *buf.
func (r *Receiver) parseData(buf *[]byte, used *int) (Chunk, parseResult, error) {
	h, ok := parsePacketHeader(*buf)
	if !ok {
		return Chunk{}, needMore, nil
	}
	if h.length < PacketHeaderSize {
		// no way to find the next frame boundary
		r.log.Warn("malformed data packet", zap.Uint16("length", h.length), zap.Int("dropped", len(*buf)))
		*buf = (*buf)[:0]
		return Chunk{}, skipped, newError(KindTransient, "receive", ErrMalformedPacket)
	}
	if int(h.length) > len(*buf) {
		return Chunk{}, needMore, nil
	}

	payload := (*buf)[PacketHeaderSize:h.length]
	chunk := Chunk{
		Type:     uint16(h.id),
		Size:     h.length,
		Sequence: h.sequence,
		Flags:    h.flags,
		Payload:  payload,
	}

	switch h.id {
	case TimingPacketID:
		chunk.Kind = ChunkTiming
		r.metrics.IncTimingPacket()
	case r.headerID:
		chunk.Kind = ChunkHeader
		r.checkSequence(h.sequence)
		r.header = append(r.header, payload...)
		r.metrics.AddHeaderPacket(len(payload))
	case r.mediaID:
		chunk.Kind = ChunkMedia
		r.checkSequence(h.sequence)
		r.media = append(r.media[:0], payload...)
		r.metrics.AddMediaPacket(len(payload))
	default:
		r.log.Warn("dropping packet with unknown id", zap.Uint8("id", h.id), zap.Uint32("seq", h.sequence))
		r.metrics.IncDropped()
		*buf = compact(*buf, int(h.length))
		return Chunk{}, skipped, nil
	}
	*used = int(h.length)
	return chunk, gotFrame, nil
}

// checkSequence logs and counts gaps in the packet sequence.
func (r *Receiver) checkSequence(seq uint32) {
	if r.seqKnown && seq != r.nextSeq {
		r.log.Warn("packet lost", zap.Uint32("expected", r.nextSeq), zap.Uint32("seq", seq))
		if seq > r.nextSeq {
			r.metrics.AddLost(int64(seq - r.nextSeq))
		}
	}
	r.nextSeq = seq + 1
	r.seqKnown = true
}
