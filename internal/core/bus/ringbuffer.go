// If you are AI: This file implements the bounded ring buffer behind each subscriber.
// Positions are free-running counters; only the mask is applied when indexing.

package bus

import "sync"

// BackpressureStrategy defines how the ring buffer handles overflow.
type BackpressureStrategy uint8

const (
	// BackpressureDropOldest drops the oldest packet when the buffer is full.
	BackpressureDropOldest BackpressureStrategy = iota
	// BackpressureDropNewest drops the incoming packet when the buffer is full.
	BackpressureDropNewest
)

// RingBuffer is a bounded circular buffer of packets with one writer and one reader.
type RingBuffer struct {
	mu       sync.Mutex
	slots    []*Packet
	mask     uint32
	writePos uint32
	readPos  uint32
	strategy BackpressureStrategy
	dropped  uint64
}

// NewRingBuffer creates a buffer; capacity is rounded up to a power of two.
func NewRingBuffer(capacity uint32, strategy BackpressureStrategy) *RingBuffer {
	size := uint32(1)
	for size < capacity {
		size <<= 1
	}
	return &RingBuffer{
		slots:    make([]*Packet, size),
		mask:     size - 1,
		strategy: strategy,
	}
}

// Write stores pkt. It returns false when pkt itself was dropped.
func (rb *RingBuffer) Write(pkt *Packet) bool {
	if pkt == nil {
		return false
	}
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.writePos-rb.readPos > rb.mask {
		rb.dropped++
		if rb.strategy == BackpressureDropNewest {
			return false
		}
		rb.slots[rb.readPos&rb.mask] = nil
		rb.readPos++
	}
	rb.slots[rb.writePos&rb.mask] = pkt
	rb.writePos++
	return true
}

// Read removes the oldest packet, if any.
func (rb *RingBuffer) Read() (*Packet, bool) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.readPos == rb.writePos {
		return nil, false
	}
	i := rb.readPos & rb.mask
	pkt := rb.slots[i]
	rb.slots[i] = nil
	rb.readPos++
	return pkt, true
}

// Len returns the number of buffered packets.
func (rb *RingBuffer) Len() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return int(rb.writePos - rb.readPos)
}

// Available returns the number of free slots.
func (rb *RingBuffer) Available() int {
	return len(rb.slots) - rb.Len()
}

// Dropped returns the number of packets lost to backpressure.
func (rb *RingBuffer) Dropped() uint64 {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.dropped
}
