// If you are AI: This file contains unit tests for stream lifecycle, header retention and fanout.

package bus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestStreamKey(t *testing.T) {
	key := NewStreamKey("live", "mystream")
	if key.String() != "live/mystream" {
		t.Errorf("Expected 'live/mystream', got '%s'", key.String())
	}
}

func TestPublisherExclusivity(t *testing.T) {
	stream := NewStream(NewStreamKey("live", "test"))

	if !stream.AttachPublisher(1) {
		t.Error("First publisher should attach")
	}
	if stream.AttachPublisher(2) {
		t.Error("Second publisher should not attach")
	}
	stream.DetachPublisher()
	if stream.HasPublisher() {
		t.Error("Stream should not have publisher after detach")
	}
	if !stream.AttachPublisher(3) {
		t.Error("Publisher should attach after previous detach")
	}
}

func TestSubscriberAttachDetach(t *testing.T) {
	stream := NewStream(NewStreamKey("live", "test"))

	_, id1 := stream.AttachSubscriber(16, BackpressureDropOldest)
	_, id2 := stream.AttachSubscriber(16, BackpressureDropOldest)
	if id1 == 0 || id1 == id2 {
		t.Errorf("subscriber ids %d and %d", id1, id2)
	}
	if stream.SubscriberCount() != 2 {
		t.Errorf("Expected 2 subscribers, got %d", stream.SubscriberCount())
	}
	stream.DetachSubscriber(id1)
	stream.DetachSubscriber(id2)
	if !stream.IsEmpty() {
		t.Error("Stream should be empty after removing all subscribers")
	}
}

func TestHeaderRetainedForLateJoiners(t *testing.T) {
	stream := NewStream(NewStreamKey("live", "test"))
	stream.AttachPublisher(1)
	if stream.Header() != nil {
		t.Error("new stream should have no header")
	}

	hdr := []byte("asf header")
	stream.SetHeader(hdr)
	hdr[0] = 'X'
	if got := stream.Header(); got == nil || string(got.Payload) != "asf header" {
		t.Errorf("header = %+v", got)
	}

	stream.DetachPublisher()
	if stream.Header() != nil {
		t.Error("header should be cleared with the publisher")
	}
}

func TestPublishFanout(t *testing.T) {
	stream := NewStream(NewStreamKey("live", "test"))
	sub1, _ := stream.AttachSubscriber(16, BackpressureDropOldest)
	sub2, _ := stream.AttachSubscriber(16, BackpressureDropOldest)

	stream.Publish(NewPacket(PacketHeader, 0, []byte("hdr")))
	stream.Publish(NewPacket(PacketMedia, 7, []byte("media")))

	for i, sub := range []*Subscriber{sub1, sub2} {
		first, ok := sub.Buffer().Read()
		if !ok || first.Kind != PacketHeader {
			t.Errorf("subscriber %d: first packet %+v", i, first)
		}
		second, ok := sub.Buffer().Read()
		if !ok || second.Kind != PacketMedia || second.Sequence != 7 {
			t.Errorf("subscriber %d: second packet %+v", i, second)
		}
	}

	st := stream.Stats()
	if st.Packets != 1 || st.Bytes != 5 || st.HeaderSize != 3 || st.Subscribers != 2 {
		t.Errorf("stats = %+v", st)
	}
}

func TestSubscriberNextWaits(t *testing.T) {
	stream := NewStream(NewStreamKey("live", "test"))
	sub, _ := stream.AttachSubscriber(16, BackpressureDropOldest)

	var wg sync.WaitGroup
	wg.Add(1)
	var got *Packet
	go func() {
		defer wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		got, _ = sub.Next(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	stream.Publish(NewPacket(PacketMedia, 3, []byte("x")))
	wg.Wait()
	if got == nil || got.Sequence != 3 {
		t.Errorf("Next = %+v", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := sub.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Next on cancelled context = %v", err)
	}
}

func BenchmarkPublishFanout(b *testing.B) {
	stream := NewStream(NewStreamKey("live", "bench"))
	subs := make([]*Subscriber, 8)
	for i := range subs {
		subs[i], _ = stream.AttachSubscriber(DefaultSubscriberCapacity, BackpressureDropOldest)
	}
	pkt := NewPacket(PacketMedia, 0, make([]byte, 3000))

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		stream.Publish(pkt)
		for _, s := range subs {
			s.Buffer().Read()
		}
	}
}
