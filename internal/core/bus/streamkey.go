// If you are AI: This file defines StreamKey for uniquely identifying streams.

package bus

import (
	"errors"
	"strings"
)

// ErrBadStreamKey is returned for paths that are not app/name.
var ErrBadStreamKey = errors.New("stream path must be app/name")

// StreamKey uniquely identifies a stream by application and stream name.
type StreamKey struct {
	App  string // Application name (e.g., "live")
	Name string // Stream name (e.g., "news")
}

// String returns "app/name".
func (k StreamKey) String() string {
	return k.App + "/" + k.Name
}

// NewStreamKey creates a new StreamKey from app and name.
func NewStreamKey(app, name string) StreamKey {
	return StreamKey{App: app, Name: name}
}

// ParseStreamKey parses "app/name", ignoring a leading slash.
// The name may itself contain slashes.
func ParseStreamKey(path string) (StreamKey, error) {
	app, name, ok := strings.Cut(strings.TrimPrefix(path, "/"), "/")
	if !ok || app == "" || name == "" {
		return StreamKey{}, ErrBadStreamKey
	}
	return NewStreamKey(app, name), nil
}
