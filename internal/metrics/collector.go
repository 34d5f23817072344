// If you are AI: This file implements per-session protocol counters.
// All increment methods are nil-receiver safe so components can run without metrics.

package metrics

import "sync"

// Snapshot is an immutable view of the counters.
type Snapshot struct {
	CommandsSent     int64 `json:"commands_sent"`
	CommandsReceived int64 `json:"commands_received"`
	Retries          int64 `json:"retries"`
	PollTimeouts     int64 `json:"poll_timeouts"`
	KeepAlives       int64 `json:"keep_alives"`
	HeaderPackets    int64 `json:"header_packets"`
	MediaPackets     int64 `json:"media_packets"`
	TimingPackets    int64 `json:"timing_packets"`
	DroppedPackets   int64 `json:"dropped_packets"`
	PacketsLost      int64 `json:"packets_lost"`
	BytesReceived    int64 `json:"bytes_received"`
	Reconnects       int64 `json:"reconnects"`
}

// Collector accumulates counters for one session or relay task.
type Collector struct {
	mu sync.Mutex
	s  Snapshot
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// add applies fn under the lock.
func (c *Collector) add(fn func(s *Snapshot)) {
	if c == nil {
		return
	}
	c.mu.Lock()
	fn(&c.s)
	c.mu.Unlock()
}

// IncCommandSent records a command written to the server.
func (c *Collector) IncCommandSent() {
	c.add(func(s *Snapshot) { s.CommandsSent++ })
}

// IncCommandReceived records a command read from the server.
func (c *Collector) IncCommandReceived() {
	c.add(func(s *Snapshot) { s.CommandsReceived++ })
}

// IncRetry records one retry of a command read.
func (c *Collector) IncRetry() {
	c.add(func(s *Snapshot) { s.Retries++ })
}

// IncPollTimeout records a packet wait that saw no data within the poll timeout.
func (c *Collector) IncPollTimeout() {
	c.add(func(s *Snapshot) { s.PollTimeouts++ })
}

// IncKeepAlive records a keep-alive sent or echoed.
func (c *Collector) IncKeepAlive() {
	c.add(func(s *Snapshot) { s.KeepAlives++ })
}

// AddHeaderPacket records a header packet of n payload bytes.
func (c *Collector) AddHeaderPacket(n int) {
	c.add(func(s *Snapshot) {
		s.HeaderPackets++
		s.BytesReceived += int64(n)
	})
}

// AddMediaPacket records a media packet of n payload bytes.
func (c *Collector) AddMediaPacket(n int) {
	c.add(func(s *Snapshot) {
		s.MediaPackets++
		s.BytesReceived += int64(n)
	})
}

// IncTimingPacket records a UDP timing packet.
func (c *Collector) IncTimingPacket() {
	c.add(func(s *Snapshot) { s.TimingPackets++ })
}

// IncDropped records a packet with an unknown id.
func (c *Collector) IncDropped() {
	c.add(func(s *Snapshot) { s.DroppedPackets++ })
}

// AddLost records a sequence gap of n packets.
func (c *Collector) AddLost(n int64) {
	c.add(func(s *Snapshot) { s.PacketsLost += n })
}

// IncReconnect records a relay reconnection.
func (c *Collector) IncReconnect() {
	c.add(func(s *Snapshot) { s.Reconnects++ })
}

// Snapshot returns a copy of the counters. A nil collector yields zeroes.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.s
}
