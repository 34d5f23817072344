// If you are AI: This file contains unit tests for the WebSocket-ASF handler.
// Tests verify WebSocket upgrade, frame order and subscriber lifecycle.

package wsasf

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"mmsgo/internal/core/bus"
)

func TestWSASFHandlerNotFound(t *testing.T) {
	handler := NewHandler(bus.NewRegistry(), nil)

	req := httptest.NewRequest("GET", "/ws/live/nonexistent", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestWSASFHandlerNoPublisher(t *testing.T) {
	registry := bus.NewRegistry()
	handler := NewHandler(registry, nil)
	registry.GetOrCreate(bus.NewStreamKey("live", "test"))

	req := httptest.NewRequest("GET", "/ws/live/test", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 (no publisher), got %d", w.Code)
	}
}

func TestWSASFHandlerBadPath(t *testing.T) {
	handler := NewHandler(bus.NewRegistry(), nil)

	for _, target := range []string{"/live/test", "/ws/live"} {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", target, nil))
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected status 400, got %d", target, w.Code)
		}
	}
}

func TestWSASFHandlerUpgrade(t *testing.T) {
	registry := bus.NewRegistry()
	stream, _ := registry.GetOrCreate(bus.NewStreamKey("live", "test"))
	stream.AttachPublisher(1)
	stream.SetHeader([]byte("HDR"))

	server := httptest.NewServer(NewHandler(registry, nil))
	defer server.Close()

	wsURL := "ws" + server.URL[4:] + "/ws/live/test"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect WebSocket: %v", err)
	}
	defer conn.Close()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Errorf("Expected status 101, got %d", resp.StatusCode)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	messageType, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read message: %v", err)
	}
	if messageType != websocket.BinaryMessage || string(data) != "HDR" {
		t.Errorf("first frame = %d %q", messageType, data)
	}

	stream.Publish(bus.NewPacket(bus.PacketMedia, 7, []byte("media")))
	_, data, err = conn.ReadMessage()
	if err != nil || string(data) != "media" {
		t.Fatalf("second frame = %q, %v", data, err)
	}

	conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for stream.SubscriberCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if stream.SubscriberCount() != 0 {
		t.Error("subscriber not detached after client closed")
	}
}

type fakeConn struct {
	frames [][]byte
	fail   bool
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	if c.fail {
		return errors.New("broken pipe")
	}
	c.frames = append(c.frames, data)
	return nil
}

func (c *fakeConn) Close() error { return nil }

func TestSubscriberWriteError(t *testing.T) {
	stream := bus.NewStream(bus.NewStreamKey("live", "test"))
	stream.SetHeader([]byte("H"))
	conn := &fakeConn{fail: true}
	sub := NewSubscriber(conn, stream)
	sub.Attach()
	defer sub.Detach()

	if err := sub.WriteHeader(); err == nil {
		t.Error("expected write error")
	}
}

func TestSubscriberSkipsRepeatedHeader(t *testing.T) {
	stream := bus.NewStream(bus.NewStreamKey("live", "test"))
	conn := &fakeConn{}
	sub := NewSubscriber(conn, stream)
	sub.Attach()
	defer sub.Detach()

	stream.SetHeader([]byte("H"))
	if err := sub.WriteHeader(); err != nil {
		t.Fatal(err)
	}
	stream.Publish(bus.NewPacket(bus.PacketMedia, 0, []byte("m")))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	sub.ProcessPackets(ctx)
	if len(conn.frames) != 2 || string(conn.frames[0]) != "H" || string(conn.frames[1]) != "m" {
		t.Errorf("frames = %q", conn.frames)
	}
}
