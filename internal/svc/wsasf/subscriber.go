// If you are AI: This file implements the WebSocket-ASF subscriber that reads from the bus
// and sends the ASF header and each media packet as one binary frame.

package wsasf

import (
	"context"

	"github.com/gorilla/websocket"

	"mmsgo/internal/core/bus"
)

// WebSocketConn defines the WebSocket operations the subscriber needs.
type WebSocketConn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Subscriber is one WebSocket-ASF client.
type Subscriber struct {
	conn          WebSocketConn
	busSubscriber *bus.Subscriber
	stream        *bus.Stream
	subscriberID  uint64
	header        *bus.Packet
}

// NewSubscriber creates a new WebSocket-ASF subscriber.
func NewSubscriber(conn WebSocketConn, stream *bus.Stream) *Subscriber {
	return &Subscriber{
		conn:   conn,
		stream: stream,
	}
}

// Attach attaches the subscriber to the stream with a drop-oldest buffer.
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

// WriteHeader sends the stream's current header, if any, as the first frame.
func (s *Subscriber) WriteHeader() error {
	if h := s.stream.Header(); h != nil {
		return s.send(h)
	}
	return nil
}

// ProcessPackets sends packets until ctx ends or a write fails.
// Media before the first header is dropped.
func (s *Subscriber) ProcessPackets(ctx context.Context) error {
	if s.busSubscriber == nil {
		return nil
	}
	for {
		pkt, err := s.busSubscriber.Next(ctx)
		if err != nil {
			return err
		}
		if pkt.Kind == bus.PacketHeader && pkt == s.header {
			continue
		}
		if pkt.Kind == bus.PacketMedia && s.header == nil {
			continue
		}
		if err := s.send(pkt); err != nil {
			return err
		}
	}
}

func (s *Subscriber) send(pkt *bus.Packet) error {
	if err := s.conn.WriteMessage(websocket.BinaryMessage, pkt.Payload); err != nil {
		return err
	}
	if pkt.Kind == bus.PacketHeader {
		s.header = pkt
	}
	return nil
}
