package stream

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/pulse/pkg/projection"
)

// ReplacePolicy decides what happens when a session is started on a slot
// that already runs one.
type ReplacePolicy int

const (
	// ReplaceCancel cancels the running session, waits for its read loop to
	// exit, then starts the new one. The old session never writes after the
	// new one has reset the projection.
	ReplaceCancel ReplacePolicy = iota
	// ReplaceReject refuses the new session with ErrSlotBusy.
	ReplaceReject
)

func (p ReplacePolicy) String() string {
	switch p {
	case ReplaceCancel:
		return "cancel"
	case ReplaceReject:
		return "reject"
	default:
		return "unknown"
	}
}

var errClaimCancelled = errors.New("stream slot: cancelled while waiting")

type activeRun struct {
	sessionID string
	cancel    context.CancelFunc
	done      chan struct{}
}

// Slot serialises the sessions of one logical operation (one search box, one
// chat panel) over a single projection.
type Slot struct {
	name   string
	policy ReplacePolicy

	mu     sync.Mutex
	active *activeRun
}

func NewSlot(name string, policy ReplacePolicy) *Slot {
	return &Slot{name: name, policy: policy}
}

func (s *Slot) Name() string { return s.name }

func (s *Slot) Policy() ReplacePolicy { return s.policy }

// Active returns the ID of the running session, if any.
func (s *Slot) Active() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return "", false
	}
	return s.active.sessionID, true
}

// Cancel stops the running session, if any, and waits for it to exit.
func (s *Slot) Cancel() {
	s.mu.Lock()
	run := s.active
	s.mu.Unlock()
	if run == nil {
		return
	}
	run.cancel()
	<-run.done
}

// Run resets target, runs sess into it and records session-level failures on
// the projection through target.Fail. Cancellation is not a failure: if ctx
// ends while a replaced session is still winding down, Run returns a
// cancelled Result, sess never starts and target is left as it was.
func (s *Slot) Run(ctx context.Context, sess *Session, target projection.Target) (Result, error) {
	runCtx, run, err := s.claim(ctx, sess.ID())
	if errors.Is(err, errClaimCancelled) {
		return Result{SessionID: sess.ID(), Cancelled: true}, nil
	}
	if err != nil {
		return Result{SessionID: sess.ID()}, err
	}

	defer func() {
		run.cancel()
		s.mu.Lock()
		if s.active == run {
			s.active = nil
		}
		s.mu.Unlock()
		close(run.done)
	}()

	if sess.slot == "" {
		sess.slot = s.name
	}
	target.Reset()
	res, err := sess.Run(runCtx, target)
	if err != nil {
		target.Fail(err)
	}
	return res, err
}

// claim installs a new active run, applying the replace policy to a running one.
func (s *Slot) claim(ctx context.Context, sessionID string) (context.Context, *activeRun, error) {
	for {
		s.mu.Lock()
		prev := s.active
		if prev == nil {
			runCtx, cancel := context.WithCancel(ctx)
			run := &activeRun{
				sessionID: sessionID,
				cancel:    cancel,
				done:      make(chan struct{}),
			}
			s.active = run
			s.mu.Unlock()
			return runCtx, run, nil
		}
		s.mu.Unlock()

		if s.policy == ReplaceReject {
			return nil, nil, ErrSlotBusy
		}
		log.Debug().
			Str("component", "stream").
			Str("slot", s.name).
			Str("replaced_session_id", prev.sessionID).
			Str("session_id", sessionID).
			Msg("replacing running session")
		prev.cancel()
		select {
		case <-prev.done:
		case <-ctx.Done():
			return nil, nil, errClaimCancelled
		}
	}
}
