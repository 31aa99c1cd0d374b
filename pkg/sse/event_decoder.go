package sse

import (
	"strings"

	"github.com/go-go-golems/pulse/pkg/events"
)

// EventDecoder combines line framing and payload decoding for one session.
// Malformed lines and an unterminated final fragment are reported to the hook
// and dropped.
type EventDecoder struct {
	sessionID string
	lines     *LineDecoder
	hook      DiagnosticHook
	dropped   int
}

type EventDecoderOption func(*EventDecoder)

func WithDiagnosticHook(h DiagnosticHook) EventDecoderOption {
	return func(d *EventDecoder) {
		if h != nil {
			d.hook = h
		}
	}
}

func WithSessionID(id string) EventDecoderOption {
	return func(d *EventDecoder) {
		d.sessionID = id
	}
}

func NewEventDecoder(opts ...EventDecoderOption) *EventDecoder {
	d := &EventDecoder{
		lines: NewLineDecoder(),
		hook:  LogDiagnostics,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Feed returns the events completed by chunk, in arrival order.
func (d *EventDecoder) Feed(chunk []byte) []events.Event {
	lines := d.lines.Feed(chunk)
	if len(lines) == 0 {
		return nil
	}
	out := make([]events.Event, 0, len(lines))
	for _, line := range lines {
		ev, ok, err := ParseLine(line)
		if err != nil {
			d.drop(DropMalformed, line, err)
			continue
		}
		if !ok {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// Close ends the input. A leftover fragment is not emitted, even if it would
// parse; it is only reported.
func (d *EventDecoder) Close() {
	rest := d.lines.Flush()
	if strings.TrimSpace(rest) == "" {
		return
	}
	d.drop(DropUnterminated, rest, nil)
}

// Dropped counts the inputs reported to the hook so far.
func (d *EventDecoder) Dropped() int {
	return d.dropped
}

func (d *EventDecoder) drop(reason DropReason, line string, err error) {
	d.dropped++
	d.hook(Diagnostic{
		SessionID: d.sessionID,
		Reason:    reason,
		Line:      line,
		Err:       err,
	})
}
