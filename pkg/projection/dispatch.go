// Package projection holds the observable state that stream sessions mutate:
// result and log sequences for paper streams, the in-progress assistant
// message for chat.
package projection

import (
	"github.com/go-go-golems/pulse/pkg/events"
)

// Target is a projection a session can write into.
type Target interface {
	events.Handler
	// Reset restores the initial state before a session starts.
	Reset()
	// Fail records a session-level failure (setup or transport), which is
	// distinct from an in-band error event.
	Fail(err error)
}

// Dispatch applies ev to h with exactly one handler call. Unknown kinds are
// ignored.
func Dispatch(h events.Handler, ev events.Event) {
	if h == nil || ev == nil {
		return
	}
	ev.Accept(h)
}

// DispatchAll applies evs in order. It is repeated Dispatch, so applying a
// batch and applying its events one at a time give the same state.
func DispatchAll(h events.Handler, evs []events.Event) {
	for _, ev := range evs {
		Dispatch(h, ev)
	}
}
