// If you are AI: This file implements bus subscribers.
// Each subscriber owns a ring buffer and a wakeup channel for its consumer goroutine.

package bus

import "context"

// Subscriber is one consumer of a stream.
type Subscriber struct {
	id     uint64
	buffer *RingBuffer
	notify chan struct{}
}

// NewSubscriber creates a subscriber with the given buffer capacity and strategy.
func NewSubscriber(id uint64, capacity uint32, strategy BackpressureStrategy) *Subscriber {
	return &Subscriber{
		id:     id,
		buffer: NewRingBuffer(capacity, strategy),
		notify: make(chan struct{}, 1),
	}
}

// ID returns the unique subscriber identifier.
func (s *Subscriber) ID() uint64 {
	return s.id
}

// Buffer returns the subscriber's ring buffer.
func (s *Subscriber) Buffer() *RingBuffer {
	return s.buffer
}

// deliver queues pkt and wakes the consumer. Never blocks.
func (s *Subscriber) deliver(pkt *Packet) {
	s.buffer.Write(pkt)
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Next waits for the next packet or for ctx to end.
func (s *Subscriber) Next(ctx context.Context) (*Packet, error) {
	for {
		if pkt, ok := s.buffer.Read(); ok {
			return pkt, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.notify:
		}
	}
}

// Dropped returns the number of packets dropped due to backpressure.
func (s *Subscriber) Dropped() uint64 {
	return s.buffer.Dropped()
}
