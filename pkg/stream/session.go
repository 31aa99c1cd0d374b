// Package stream runs streamed requests against the Pulse server: it opens the
// request, decodes the line-framed events and dispatches them into a
// projection until the stream ends or the caller cancels.
package stream

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/pulse/pkg/events"
	"github.com/go-go-golems/pulse/pkg/projection"
	"github.com/go-go-golems/pulse/pkg/sse"
)

const (
	defaultReadSize  = 4096
	maxErrorBodySize = 4096
)

// Result summarises a finished session.
type Result struct {
	SessionID string
	Events    int
	Dropped   int
	Done      bool
	Cancelled bool
	Duration  time.Duration
}

// Session is one streamed request. It is single-use: Run may be called once.
type Session struct {
	id       string
	slot     string
	endpoint Endpoint
	client   *http.Client
	hook     sse.DiagnosticHook
	taps     []Tap
	onDone   func(Result)
	readSize int

	used atomic.Bool
	done atomic.Bool
}

type SessionOption func(*Session)

// WithHTTPClient sets the client used for the request. It must not carry an
// overall timeout: a stream lasts as long as the server keeps writing.
func WithHTTPClient(c *http.Client) SessionOption {
	return func(s *Session) {
		if c != nil {
			s.client = c
		}
	}
}

func WithTaps(taps ...Tap) SessionOption {
	return func(s *Session) {
		for _, t := range taps {
			if t != nil {
				s.taps = append(s.taps, t)
			}
		}
	}
}

func WithDiagnosticHook(h sse.DiagnosticHook) SessionOption {
	return func(s *Session) {
		s.hook = h
	}
}

// WithSlotName labels the session for taps and logs.
func WithSlotName(name string) SessionOption {
	return func(s *Session) {
		s.slot = name
	}
}

// WithOnDone registers a completion callback. It runs once, after the stream
// is drained, and only if a done event was dispatched.
func WithOnDone(f func(Result)) SessionOption {
	return func(s *Session) {
		s.onDone = f
	}
}

func WithReadSize(n int) SessionOption {
	return func(s *Session) {
		if n > 0 {
			s.readSize = n
		}
	}
}

func NewSession(ep Endpoint, opts ...SessionOption) *Session {
	s := &Session{
		id:       uuid.NewString(),
		endpoint: ep,
		client:   &http.Client{},
		hook:     sse.LogDiagnostics,
		readSize: defaultReadSize,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Session) ID() string { return s.id }

// Completed reports whether a done event has been dispatched.
func (s *Session) Completed() bool { return s.done.Load() }

func (s *Session) info(started time.Time) SessionInfo {
	return SessionInfo{
		ID:      s.id,
		Slot:    s.slot,
		Method:  s.endpoint.Method,
		URL:     s.endpoint.URL,
		Started: started.UnixMilli(),
	}
}

// Run opens the stream and dispatches every decoded event into h until the
// server closes the stream.
//
// Cancelling ctx stops reading at the next read boundary; Run then returns a
// Result with Cancelled set and a nil error, and whatever was dispatched so
// far stays applied. Failures before the first byte are *SetupError, read
// failures afterwards are *TransportError. In-band error events are not Go
// errors; they are dispatched like any other event.
func (s *Session) Run(ctx context.Context, h events.Handler) (Result, error) {
	if !s.used.CompareAndSwap(false, true) {
		return Result{SessionID: s.id}, ErrSessionUsed
	}
	started := time.Now()
	info := s.info(started)
	res := Result{SessionID: s.id}
	logger := log.With().
		Str("component", "stream").
		Str("session_id", s.id).
		Str("slot", s.slot).
		Logger()

	tapCtx := context.WithoutCancel(ctx)
	s.notifyStarted(tapCtx, logger, info)

	runErr := s.run(ctx, h, info, &res, logger)
	res.Duration = time.Since(started)
	if s.done.Load() {
		res.Done = true
	}

	s.notifyEnded(tapCtx, logger, info, res, runErr)
	switch {
	case runErr != nil:
		logger.Warn().Err(runErr).Int("events", res.Events).Msg("stream session failed")
	case res.Cancelled:
		logger.Debug().Int("events", res.Events).Msg("stream session cancelled")
	default:
		logger.Debug().Int("events", res.Events).Bool("done", res.Done).Dur("duration", res.Duration).Msg("stream session finished")
	}

	if runErr == nil && res.Done && s.onDone != nil {
		s.onDone(res)
	}
	return res, runErr
}

func (s *Session) run(ctx context.Context, h events.Handler, info SessionInfo, res *Result, logger zerolog.Logger) error {
	req, err := s.endpoint.NewRequest(ctx)
	if err != nil {
		return &SetupError{URL: s.endpoint.URL, Err: err}
	}

	logger.Debug().Str("method", req.Method).Str("url", s.endpoint.URL).Msg("opening stream")
	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			res.Cancelled = true
			return nil
		}
		return &SetupError{URL: s.endpoint.URL, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return &SetupError{
			URL:    s.endpoint.URL,
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(body)),
		}
	}

	dec := sse.NewEventDecoder(sse.WithSessionID(s.id), sse.WithDiagnosticHook(s.hook))
	defer func() {
		res.Dropped = dec.Dropped()
	}()

	tapCtx := context.WithoutCancel(ctx)
	buf := make([]byte, s.readSize)
	var seq uint64
	for {
		if ctx.Err() != nil {
			res.Cancelled = true
			return nil
		}
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			for _, ev := range dec.Feed(buf[:n]) {
				projection.Dispatch(h, ev)
				res.Events++
				if ev.Kind() == events.KindDone {
					s.done.Store(true)
				}
				seq++
				s.notifyEvent(tapCtx, logger, Observation{Session: info, Seq: seq, Event: ev})
			}
		}
		if rerr == io.EOF {
			dec.Close()
			return nil
		}
		if rerr != nil {
			if ctx.Err() != nil {
				res.Cancelled = true
				return nil
			}
			return &TransportError{URL: s.endpoint.URL, Events: res.Events, Err: rerr}
		}
	}
}

func (s *Session) notifyStarted(ctx context.Context, logger zerolog.Logger, info SessionInfo) {
	for _, t := range s.taps {
		if err := t.SessionStarted(ctx, info); err != nil {
			logger.Warn().Err(err).Msg("stream tap: session start failed")
		}
	}
}

func (s *Session) notifyEvent(ctx context.Context, logger zerolog.Logger, obs Observation) {
	for _, t := range s.taps {
		if err := t.EventObserved(ctx, obs); err != nil {
			logger.Warn().Err(err).Str("kind", string(obs.Event.Kind())).Msg("stream tap: event failed")
		}
	}
}

func (s *Session) notifyEnded(ctx context.Context, logger zerolog.Logger, info SessionInfo, res Result, runErr error) {
	for _, t := range s.taps {
		if err := t.SessionEnded(ctx, info, res, runErr); err != nil {
			logger.Warn().Err(err).Msg("stream tap: session end failed")
		}
	}
}
