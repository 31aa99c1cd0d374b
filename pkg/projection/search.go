package projection

import (
	"sync"

	"github.com/go-go-golems/pulse/pkg/events"
)

const (
	MsgNoMatches    = "no matching papers found"
	MsgNoRecent     = "no recent papers yet, sync papers first"
	MsgFailedPrefix = " failed: "
)

// SearchState is a copy of a Search projection.
type SearchState struct {
	Logs     []LogEntry
	Results  []events.Paper
	Total    int
	HasTotal bool
	Progress *Progress
	Done     bool
	Errored  bool
}

// Search is the projection of a paper search or quick-fetch stream.
// Results are appended in arrival order without deduplication, and the
// stated total is never checked against the number of results.
type Search struct {
	op string

	mu    sync.Mutex
	state SearchState
}

var _ Target = (*Search)(nil)

// NewSearch returns an empty projection. op names the operation in failure
// messages ("search", "quick search").
func NewSearch(op string) *Search {
	return &Search{op: op}
}

func (s *Search) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = SearchState{}
}

func (s *Search) Snapshot() SearchState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	st.Logs = append([]LogEntry(nil), s.state.Logs...)
	st.Results = append([]events.Paper(nil), s.state.Results...)
	if s.state.Progress != nil {
		p := *s.state.Progress
		st.Progress = &p
	}
	return st
}

func (s *Search) HandleLog(e *events.EventLog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Logs = append(s.state.Logs, LogEntry{Level: levelOf(e), Message: e.Message})
}

func (s *Search) HandlePaper(e *events.EventPaper) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Results = append(s.state.Results, e.Paper)
}

func (s *Search) HandleTotal(e *events.EventTotal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Total = e.Total
	s.state.HasTotal = true
}

func (s *Search) HandleProgress(e *events.EventProgress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Progress = progressFrom(e)
}

// HandleChunk only clears the progress slot: search sessions have no
// streaming message.
func (s *Search) HandleChunk(*events.EventChunk) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Progress = nil
}

func (s *Search) HandleDone(e *events.EventDone) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Done = true
	if e.Total != nil && *e.Total == 0 {
		s.state.Logs = append(s.state.Logs, LogEntry{Level: events.LevelInfo, Message: MsgNoMatches})
	}
}

func (s *Search) HandleError(e *events.EventError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Errored = true
	s.state.Logs = append(s.state.Logs, LogEntry{Level: events.LevelError, Message: e.Message})
}

func (s *Search) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Errored = true
	s.state.Logs = append(s.state.Logs, LogEntry{Level: events.LevelError, Message: s.op + MsgFailedPrefix + err.Error()})
}
