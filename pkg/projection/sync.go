package projection

import (
	"sync"

	"github.com/go-go-golems/pulse/pkg/events"
)

const (
	MsgSyncCompleted = "sync completed"
	MsgErrorPrefix   = " error: "
)

// SyncLogState is a copy of a SyncLog projection.
type SyncLogState struct {
	Logs     []LogEntry
	Progress *Progress
	Total    int
	Added    int
	Papers   int
	Done     bool
	Errored  bool
}

// SyncLog projects a server-side sync job: the paper sync task and the
// initial sync after setup. Only the log is user-facing; progress and the
// done counters are kept for status lines.
type SyncLog struct {
	op string

	mu    sync.Mutex
	state SyncLogState
}

var _ Target = (*SyncLog)(nil)

// NewSyncLog returns an empty projection. op names the job in failure
// messages ("sync", "initial sync").
func NewSyncLog(op string) *SyncLog {
	return &SyncLog{op: op}
}

func (l *SyncLog) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = SyncLogState{}
}

func (l *SyncLog) Snapshot() SyncLogState {
	l.mu.Lock()
	defer l.mu.Unlock()
	st := l.state
	st.Logs = append([]LogEntry(nil), l.state.Logs...)
	if l.state.Progress != nil {
		p := *l.state.Progress
		st.Progress = &p
	}
	return st
}

func (l *SyncLog) HandleLog(e *events.EventLog) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state.Logs = append(l.state.Logs, LogEntry{Level: levelOf(e), Message: e.Message})
}

// HandlePaper is a no-op: sync jobs report counts, not papers.
func (l *SyncLog) HandlePaper(*events.EventPaper) {}

func (l *SyncLog) HandleTotal(e *events.EventTotal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state.Total = e.Total
}

func (l *SyncLog) HandleProgress(e *events.EventProgress) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state.Progress = progressFrom(e)
	l.state.Added += e.Added
}

func (l *SyncLog) HandleChunk(*events.EventChunk) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state.Progress = nil
}

func (l *SyncLog) HandleDone(e *events.EventDone) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state.Done = true
	l.state.Progress = nil
	if e.TotalAdded > 0 {
		l.state.Added = e.TotalAdded
	}
	l.state.Papers = e.TotalPapers
	l.state.Logs = append(l.state.Logs, LogEntry{Level: events.LevelSuccess, Message: MsgSyncCompleted})
}

func (l *SyncLog) HandleError(e *events.EventError) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state.Errored = true
	l.state.Logs = append(l.state.Logs, LogEntry{Level: events.LevelError, Message: e.Message})
}

func (l *SyncLog) Fail(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state.Errored = true
	l.state.Progress = nil
	l.state.Logs = append(l.state.Logs, LogEntry{Level: events.LevelError, Message: l.op + MsgErrorPrefix + err.Error()})
}
