package sensor

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Session is the handle for one start request. It lives until the matching
// stop, across any suspend/resume in between.
type Session struct {
	ID        string
	Frequency float64
	StartedAt time.Time

	sampleErr chan error
	reported  bool // delivery goroutine only
}

func newSession(hz float64) *Session {
	return &Session{
		ID:        uuid.NewString(),
		Frequency: hz,
		StartedAt: time.Now(),
		sampleErr: make(chan error, 1),
	}
}

// SampleErr yields the first per-sample source error of the session, wrapped in
// ErrSensorSource. Later errors are not reported. The channel is never closed.
func (s *Session) SampleErr() <-chan error {
	return s.sampleErr
}

// reportSampleError returns the wrapped error the first time it is called and nil after that
func (s *Session) reportSampleError(err error) error {
	if s.reported {
		return nil
	}
	s.reported = true
	wrapped := fmt.Errorf("%w: %v", ErrSensorSource, err)
	s.sampleErr <- wrapped
	return wrapped
}

// EventKind classifies a SessionEvent
type EventKind string

const (
	EventStarted     EventKind = "started"
	EventStopped     EventKind = "stopped"
	EventSuspended   EventKind = "suspended"
	EventResumed     EventKind = "resumed"
	EventSampleError EventKind = "sample_error"
)

// SessionEvent describes a state change of the manager, or the first sample
// error of a session (From == To == StateActive).
type SessionEvent struct {
	Kind      EventKind
	SessionID string
	From      State
	To        State
	Frequency float64
	Readings  uint64
	Err       error
	At        time.Time
}

// Status is a point-in-time snapshot of the manager
type Status struct {
	State     State
	Frequency float64
	SessionID string
	Readings  uint64
	Listeners int
}
