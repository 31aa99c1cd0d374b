package stream

import (
	"context"

	"github.com/go-go-golems/pulse/pkg/events"
)

// SessionInfo identifies a session to observers.
type SessionInfo struct {
	ID      string
	Slot    string
	Method  string
	URL     string
	Started int64 // unix millis
}

// Observation is one dispatched event as seen by a Tap.
type Observation struct {
	Session SessionInfo
	Seq     uint64
	Event   events.Event
}

// Tap observes a session without mutating its projection. Tap errors are
// logged and never abort the session. The context passed to a Tap is not
// cancelled when the session is.
type Tap interface {
	SessionStarted(ctx context.Context, info SessionInfo) error
	EventObserved(ctx context.Context, obs Observation) error
	SessionEnded(ctx context.Context, info SessionInfo, res Result, runErr error) error
}

// EventTapFunc adapts a function to a Tap that only sees events.
type EventTapFunc func(ctx context.Context, obs Observation) error

func (f EventTapFunc) SessionStarted(context.Context, SessionInfo) error { return nil }

func (f EventTapFunc) EventObserved(ctx context.Context, obs Observation) error { return f(ctx, obs) }

func (f EventTapFunc) SessionEnded(context.Context, SessionInfo, Result, error) error { return nil }
