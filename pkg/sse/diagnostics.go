package sse

import (
	"github.com/rs/zerolog/log"
)

type DropReason string

const (
	// DropMalformed is a `data: ` line whose JSON did not decode.
	DropMalformed DropReason = "malformed"
	// DropUnterminated is carry-over left when the stream ended without a newline.
	DropUnterminated DropReason = "unterminated"
)

// Diagnostic describes input that was dropped instead of dispatched.
type Diagnostic struct {
	SessionID string
	Reason    DropReason
	Line      string
	Err       error
}

// DiagnosticHook observes dropped input. Dropping is the policy; the hook only
// makes it visible.
type DiagnosticHook func(Diagnostic)

// LogDiagnostics is the default hook: a debug-level zerolog entry per drop.
func LogDiagnostics(d Diagnostic) {
	ev := log.Debug().
		Str("component", "sse").
		Str("session_id", d.SessionID).
		Str("reason", string(d.Reason)).
		Int("bytes", len(d.Line))
	if d.Err != nil {
		ev = ev.Err(d.Err)
	}
	ev.Msg("dropped stream input")
}

// Collect returns a hook appending into dst, for tests and reports.
func Collect(dst *[]Diagnostic) DiagnosticHook {
	return func(d Diagnostic) {
		*dst = append(*dst, d)
	}
}
