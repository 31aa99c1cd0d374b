package sse

import (
	"strings"

	"github.com/go-go-golems/pulse/pkg/events"
)

// DataPrefix marks lines that carry an event payload. Every other line
// (blank keep-alives, comments, `event:` fields) is skipped.
const DataPrefix = "data: "

// MalformedLineError reports a `data: ` line whose payload is not a valid event.
type MalformedLineError struct {
	Line string
	Err  error
}

func (e *MalformedLineError) Error() string {
	return "malformed event line: " + e.Err.Error()
}

func (e *MalformedLineError) Unwrap() error { return e.Err }

// ParseLine decodes one complete line. ok is false for lines that do not
// carry an event; err is a *MalformedLineError when the payload fails to decode.
func ParseLine(line string) (ev events.Event, ok bool, err error) {
	payload, found := strings.CutPrefix(line, DataPrefix)
	if !found {
		return nil, false, nil
	}
	ev, err = events.NewEventFromJSON([]byte(payload))
	if err != nil {
		return nil, false, &MalformedLineError{Line: line, Err: err}
	}
	return ev, true, nil
}
