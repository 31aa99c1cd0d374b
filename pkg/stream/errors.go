package stream

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrSlotBusy is returned by a ReplaceReject slot that already runs a session.
	ErrSlotBusy = errors.New("stream slot busy")
	// ErrSessionUsed is returned when Run is called twice on one Session.
	ErrSessionUsed = errors.New("stream session already run")
)

// SetupError is a failure before any event bytes were read: the request could
// not be sent, or the server answered with a non-2xx status.
type SetupError struct {
	URL    string
	Status int
	Body   string
	Err    error
}

func (e *SetupError) Error() string {
	if e.Status != 0 {
		if e.Body != "" {
			return fmt.Sprintf("stream %s: status %d: %s", e.URL, e.Status, e.Body)
		}
		return fmt.Sprintf("stream %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("stream %s: %v", e.URL, e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }

// TransportError is a read failure after the stream was established.
type TransportError struct {
	URL    string
	Events int
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("stream %s: read failed after %d events: %v", e.URL, e.Events, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
