// If you are AI: This file implements the Stream type that manages publisher and subscribers.
// A stream allows exactly one publisher, keeps the current ASF header for late joiners
// and fans packets out to every subscriber.

package bus

import (
	"sync"
)

// DefaultSubscriberCapacity is the ring size used by the HTTP and WebSocket outputs.
const DefaultSubscriberCapacity = 1024

// Stream is a live ASF stream instance.
type Stream struct {
	key         StreamKey
	mu          sync.RWMutex
	publisher   *Publisher
	header      *Packet
	subscribers map[uint64]*Subscriber
	nextSubID   uint64

	packets uint64
	bytes   uint64
}

// Publisher represents a stream publisher.
type Publisher struct {
	id uint64
}

// StreamStats is a point-in-time view of a stream.
type StreamStats struct {
	Key          string `json:"key"`
	HasPublisher bool   `json:"has_publisher"`
	HeaderSize   int    `json:"header_size"`
	Subscribers  int    `json:"subscribers"`
	Packets      uint64 `json:"packets"`
	Bytes        uint64 `json:"bytes"`
}

// NewStream creates a new stream with the given key.
func NewStream(key StreamKey) *Stream {
	return &Stream{
		key:         key,
		subscribers: make(map[uint64]*Subscriber),
		nextSubID:   1,
	}
}

// Key returns the stream's key.
func (s *Stream) Key() StreamKey {
	return s.key
}

// AttachPublisher attaches a publisher to the stream.
// Returns true if attached, false if a publisher is already attached.
func (s *Stream) AttachPublisher(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.publisher != nil {
		return false
	}
	s.publisher = &Publisher{id: id}
	return true
}

// DetachPublisher detaches the publisher and forgets its header.
func (s *Stream) DetachPublisher() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publisher = nil
	s.header = nil
}

// HasPublisher returns true if a publisher is currently attached.
func (s *Stream) HasPublisher() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.publisher != nil
}

// SetHeader stores the ASF header of a new session and forwards it to
// current subscribers, so they see the header change on reconnect.
func (s *Stream) SetHeader(header []byte) {
	pkt := NewPacket(PacketHeader, 0, header)
	s.mu.Lock()
	s.header = pkt
	subs := s.snapshot()
	s.mu.Unlock()

	for _, sub := range subs {
		sub.deliver(pkt)
	}
}

// Header returns the current header packet, or nil before the first session.
func (s *Stream) Header() *Packet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.header
}

// AttachSubscriber attaches a new subscriber to the stream.
// Returns the subscriber and a unique subscriber ID.
func (s *Stream) AttachSubscriber(capacity uint32, strategy BackpressureStrategy) (*Subscriber, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubID
	s.nextSubID++

	sub := NewSubscriber(id, capacity, strategy)
	s.subscribers[id] = sub
	return sub, id
}

// DetachSubscriber detaches a subscriber from the stream.
func (s *Stream) DetachSubscriber(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subscribers, id)
}

// Publish delivers a media packet to all subscribers. Never blocks on slow consumers.
func (s *Stream) Publish(pkt *Packet) {
	if pkt == nil {
		return
	}
	if pkt.Kind == PacketHeader {
		s.SetHeader(pkt.Payload)
		return
	}

	s.mu.Lock()
	s.packets++
	s.bytes += uint64(len(pkt.Payload))
	subs := s.snapshot()
	s.mu.Unlock()

	for _, sub := range subs {
		sub.deliver(pkt)
	}
}

// snapshot copies the subscriber set. Caller holds mu.
func (s *Stream) snapshot() []*Subscriber {
	subs := make([]*Subscriber, 0, len(s.subscribers))
	for _, sub := range s.subscribers {
		subs = append(subs, sub)
	}
	return subs
}

// SubscriberCount returns the number of active subscribers.
func (s *Stream) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers)
}

// IsEmpty returns true if the stream has no publisher and no subscribers.
func (s *Stream) IsEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.publisher == nil && len(s.subscribers) == 0
}

// Stats returns counters for the API.
func (s *Stream) Stats() StreamStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := StreamStats{
		Key:          s.key.String(),
		HasPublisher: s.publisher != nil,
		Subscribers:  len(s.subscribers),
		Packets:      s.packets,
		Bytes:        s.bytes,
	}
	if s.header != nil {
		st.HeaderSize = len(s.header.Payload)
	}
	return st
}
