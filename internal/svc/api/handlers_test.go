// If you are AI: This file contains unit tests for API handlers.
// Tests verify JSON responses and error handling.

package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mmsgo/internal/core/bus"
	"mmsgo/internal/metrics"
	"mmsgo/internal/svc/player"
	"mmsgo/internal/svc/relay"
)

type fakeRelays struct {
	statuses []relay.Status
}

func (f *fakeRelays) TaskCount() int           { return len(f.statuses) }
func (f *fakeRelays) Statuses() []relay.Status { return f.statuses }

func TestHandleServer(t *testing.T) {
	registry := bus.NewRegistry()
	registry.GetOrCreate(bus.NewStreamKey("live", "a"))
	service := NewService(registry, &fakeRelays{statuses: make([]relay.Status, 2)}, "relay", "http_asf")

	req := httptest.NewRequest("GET", "/api/server", nil)
	w := httptest.NewRecorder()
	service.handleServer(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	var response ServerResponse
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response.Version == "" {
		t.Error("Version should not be empty")
	}
	if response.Uptime < 0 {
		t.Error("Uptime should be non-negative")
	}
	if response.GoVersion == "" {
		t.Error("GoVersion should not be empty")
	}
	if len(response.EnabledServices) != 2 {
		t.Errorf("EnabledServices = %v", response.EnabledServices)
	}
	if response.Streams != 1 || response.RelayTasks != 2 {
		t.Errorf("streams %d, relay tasks %d", response.Streams, response.RelayTasks)
	}
}

func TestHandleStreams(t *testing.T) {
	registry := bus.NewRegistry()
	service := NewService(registry, nil)

	req := httptest.NewRequest("GET", "/api/streams", nil)
	w := httptest.NewRecorder()
	service.handleStreams(w, req)

	var response StreamsResponse
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response.Streams == nil || len(response.Streams) != 0 {
		t.Errorf("Expected empty stream list, got %v", response.Streams)
	}

	stream, _ := registry.GetOrCreate(bus.NewStreamKey("live", "test"))
	stream.AttachPublisher(1)
	stream.SetHeader(make([]byte, 120))
	stream.Publish(bus.NewPacket(bus.PacketMedia, 0, make([]byte, 30)))

	w2 := httptest.NewRecorder()
	service.handleStreams(w2, httptest.NewRequest("GET", "/api/streams", nil))

	var response2 StreamsResponse
	if err := json.NewDecoder(w2.Body).Decode(&response2); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(response2.Streams) != 1 {
		t.Fatalf("Expected 1 stream, got %d", len(response2.Streams))
	}
	got := response2.Streams[0]
	if got.Key != "live/test" || !got.HasPublisher || got.HeaderSize != 120 || got.Packets != 1 || got.Bytes != 30 {
		t.Errorf("stream stats = %+v", got)
	}
}

func TestHandleRelay(t *testing.T) {
	registry := bus.NewRegistry()

	w := httptest.NewRecorder()
	NewService(registry, nil).handleRelay(w, httptest.NewRequest("GET", "/api/relay", nil))
	var empty RelayResponse
	if err := json.NewDecoder(w.Body).Decode(&empty); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if empty.Tasks == nil {
		t.Error("Tasks should not be nil")
	}

	relays := &fakeRelays{statuses: []relay.Status{{
		App:      "live",
		Name:     "radio",
		URL:      "mms://example/radio",
		State:    relay.StateStreaming,
		Sessions: 2,
		Since:    time.Unix(100, 0).UTC(),
		Session:  &player.Metadata{URL: "mms://example/radio", Broadcast: true},
		Metrics:  metrics.Snapshot{MediaPackets: 42, Reconnects: 1},
	}}}
	w2 := httptest.NewRecorder()
	NewService(registry, relays).handleRelay(w2, httptest.NewRequest("GET", "/api/relay", nil))

	var response RelayResponse
	if err := json.NewDecoder(w2.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(response.Tasks) != 1 {
		t.Fatalf("Expected 1 task, got %d", len(response.Tasks))
	}
	task := response.Tasks[0]
	if task.State != relay.StateStreaming || task.Sessions != 2 {
		t.Errorf("task = %+v", task)
	}
	if task.Session == nil || !task.Session.Broadcast {
		t.Errorf("session = %+v", task.Session)
	}
	if task.Metrics.MediaPackets != 42 || task.Metrics.Reconnects != 1 {
		t.Errorf("metrics = %+v", task.Metrics)
	}
}

func TestHandlersRejectPost(t *testing.T) {
	service := NewService(bus.NewRegistry(), nil)
	mux := http.NewServeMux()
	service.RegisterRoutes(mux)

	for _, path := range []string{"/api/server", "/api/streams", "/api/relay"} {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest("POST", path, nil))
		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s: expected 405, got %d", path, w.Code)
		}
	}
}
