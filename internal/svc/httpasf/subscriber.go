// If you are AI: This file implements the HTTP-ASF subscriber that reads from the bus
// and writes the ASF header followed by media packets to the response.

package httpasf

import (
	"bufio"
	"context"
	"io"

	"mmsgo/internal/core/bus"
)

// Subscriber is one HTTP-ASF client.
type Subscriber struct {
	writer        *bufio.Writer
	flush         func() error
	busSubscriber *bus.Subscriber
	stream        *bus.Stream
	subscriberID  uint64
	header        *bus.Packet // last header written
}

// NewSubscriber creates a subscriber writing to w. flush, if not nil, is called
// after every packet so the client sees data without delay.
func NewSubscriber(w io.Writer, flush func() error, stream *bus.Stream) *Subscriber {
	return &Subscriber{
		writer: bufio.NewWriter(w),
		flush:  flush,
		stream: stream,
	}
}

// Attach attaches the subscriber to the stream with a drop-oldest buffer,
// so a slow client never blocks the relay.
func (s *Subscriber) Attach() uint64 {
	busSub, id := s.stream.AttachSubscriber(bus.DefaultSubscriberCapacity, bus.BackpressureDropOldest)
	s.busSubscriber = busSub
	s.subscriberID = id
	return id
}

// Detach detaches the subscriber from the stream.
func (s *Subscriber) Detach() {
	if s.stream != nil && s.busSubscriber != nil {
		s.stream.DetachSubscriber(s.subscriberID)
		s.busSubscriber = nil
	}
}

// WriteHeader writes the stream's current header if one is known.
func (s *Subscriber) WriteHeader() error {
	if h := s.stream.Header(); h != nil {
		return s.write(h)
	}
	return nil
}

// ProcessPackets copies packets until ctx ends or a write fails.
// Media is held back until a header has been written. A new header
// (the relay reconnected) is written in stream order.
func (s *Subscriber) ProcessPackets(ctx context.Context) error {
	if s.busSubscriber == nil {
		return nil
	}
	for {
		pkt, err := s.busSubscriber.Next(ctx)
		if err != nil {
			return err
		}
		switch pkt.Kind {
		case bus.PacketHeader:
			if pkt == s.header {
				continue
			}
		case bus.PacketMedia:
			if s.header == nil {
				continue
			}
		}
		if err := s.write(pkt); err != nil {
			return err
		}
	}
}

func (s *Subscriber) write(pkt *bus.Packet) error {
	if _, err := s.writer.Write(pkt.Payload); err != nil {
		return err
	}
	if err := s.writer.Flush(); err != nil {
		return err
	}
	if pkt.Kind == bus.PacketHeader {
		s.header = pkt
	}
	if s.flush != nil {
		return s.flush()
	}
	return nil
}
