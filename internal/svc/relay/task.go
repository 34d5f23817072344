// If you are AI: This file defines the relay task interface, task status and the
// session source abstraction the pull task reads from.

package relay

import (
	"context"
	"time"

	"mmsgo/internal/core/protocol/mms"
	"mmsgo/internal/metrics"
	"mmsgo/internal/svc/player"
)

// Task is a relay task. Tasks run in their own goroutines.
type Task interface {
	// Start runs the task until ctx is cancelled, Stop is called or it fails.
	Start(ctx context.Context) error
	// Stop stops the task.
	Stop() error
	// IsRunning returns true while Start has not returned.
	IsRunning() bool
	// Status returns a snapshot for the API.
	Status() Status
}

// State is the lifecycle state of a relay task.
type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateStreaming  State = "streaming"
	StateWaiting    State = "waiting"
	StateStopped    State = "stopped"
	StateFailed     State = "failed"
)

// Status is the API view of one relay task.
type Status struct {
	App       string           `json:"app"`
	Name      string           `json:"name"`
	URL       string           `json:"url"`
	State     State            `json:"state"`
	Sessions  int              `json:"sessions"`
	LastError string           `json:"last_error,omitempty"`
	Since     time.Time        `json:"since"`
	Session   *player.Metadata `json:"session,omitempty"`
	Metrics   metrics.Snapshot `json:"metrics"`
}

// Source is an open MMS session delivering ASF units.
type Source interface {
	ReadNext(ctx context.Context) (mms.Chunk, error)
	Metadata() player.Metadata
	Close() error
}

// Opener opens a playing session for a URL.
type Opener func(ctx context.Context, url string, opts player.Options) (Source, error)

// OpenSession opens a real MMS session.
func OpenSession(ctx context.Context, url string, opts player.Options) (Source, error) {
	s, err := player.Open(ctx, url, opts)
	if err != nil {
		return nil, err
	}
	return s, nil
}
