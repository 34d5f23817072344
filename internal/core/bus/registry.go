// If you are AI: This file implements the Registry for managing stream lifecycle.
// The registry maps StreamKey to Stream instances and handles creation/teardown.

package bus

import (
	"sort"
	"sync"
)

// Registry maps stream keys to streams. Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	streams map[StreamKey]*Stream
}

// NewRegistry creates a new stream registry.
func NewRegistry() *Registry {
	return &Registry{
		streams: make(map[StreamKey]*Stream),
	}
}

// GetOrCreate retrieves an existing stream or creates a new one.
// Returns the stream and true if it was newly created.
func (r *Registry) GetOrCreate(key StreamKey) (*Stream, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if stream, exists := r.streams[key]; exists {
		return stream, false
	}
	stream := NewStream(key)
	r.streams[key] = stream
	return stream, true
}

// Get retrieves a stream by key, returning nil if not found.
func (r *Registry) Get(key StreamKey) *Stream {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.streams[key]
}

// RemoveIfEmpty removes a stream that has no publisher and no subscribers.
func (r *Registry) RemoveIfEmpty(key StreamKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	stream, exists := r.streams[key]
	if !exists || !stream.IsEmpty() {
		return false
	}
	delete(r.streams, key)
	return true
}

// Count returns the number of streams in the registry.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.streams)
}

// List returns all stream keys sorted by app/name.
func (r *Registry) List() []StreamKey {
	r.mu.RLock()
	keys := make([]StreamKey, 0, len(r.streams))
	for key := range r.streams {
		keys = append(keys, key)
	}
	r.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})
	return keys
}

// Stats returns per-stream counters in List order.
func (r *Registry) Stats() []StreamStats {
	keys := r.List()
	out := make([]StreamStats, 0, len(keys))
	for _, k := range keys {
		if s := r.Get(k); s != nil {
			out = append(out, s.Stats())
		}
	}
	return out
}
