package projection

import (
	"sync"

	"github.com/go-go-golems/pulse/pkg/events"
)

// RecentCacheState is a copy of a RecentCache projection.
type RecentCacheState struct {
	Logs     []LogEntry
	Papers   []events.Paper
	Loaded   int
	Expected int
	NeedSync bool
	Done     bool
	Errored  bool
}

// RecentCache projects the cached recent-papers stream. Every paper bumps the
// loaded counter; the done event says whether the cache needs a sync.
type RecentCache struct {
	mu    sync.Mutex
	state RecentCacheState
}

var _ Target = (*RecentCache)(nil)

func NewRecentCache() *RecentCache {
	r := &RecentCache{}
	r.Reset()
	return r
}

func (r *RecentCache) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = RecentCacheState{NeedSync: true}
}

func (r *RecentCache) Snapshot() RecentCacheState {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.state
	st.Logs = append([]LogEntry(nil), r.state.Logs...)
	st.Papers = append([]events.Paper(nil), r.state.Papers...)
	return st
}

func (r *RecentCache) HandleLog(e *events.EventLog) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Logs = append(r.state.Logs, LogEntry{Level: levelOf(e), Message: e.Message})
}

func (r *RecentCache) HandlePaper(e *events.EventPaper) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Papers = append(r.state.Papers, e.Paper)
	r.state.Loaded++
}

func (r *RecentCache) HandleTotal(e *events.EventTotal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Expected = e.Total
}

func (r *RecentCache) HandleProgress(*events.EventProgress) {}

func (r *RecentCache) HandleChunk(*events.EventChunk) {}

func (r *RecentCache) HandleDone(e *events.EventDone) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Done = true
	r.state.NeedSync = e.NeedSync != nil && *e.NeedSync
	if len(r.state.Papers) == 0 {
		r.state.Logs = append(r.state.Logs, LogEntry{Level: events.LevelInfo, Message: MsgNoRecent})
	}
}

func (r *RecentCache) HandleError(e *events.EventError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Errored = true
	r.state.Logs = append(r.state.Logs, LogEntry{Level: events.LevelError, Message: e.Message})
}

func (r *RecentCache) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Errored = true
	r.state.Logs = append(r.state.Logs, LogEntry{Level: events.LevelError, Message: "loading" + MsgFailedPrefix + err.Error()})
}

// RecentUpdateState is a copy of a RecentUpdate projection.
type RecentUpdateState struct {
	Logs     []LogEntry
	Papers   []events.Paper
	Progress *Progress
	Synced   int
	Done     bool
	Errored  bool
}

// RecentUpdate projects the sync-and-refresh stream of recent papers. Papers
// are kept in arrival order.
type RecentUpdate struct {
	mu    sync.Mutex
	state RecentUpdateState
}

var _ Target = (*RecentUpdate)(nil)

func NewRecentUpdate() *RecentUpdate {
	return &RecentUpdate{}
}

func (r *RecentUpdate) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = RecentUpdateState{}
}

func (r *RecentUpdate) Snapshot() RecentUpdateState {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.state
	st.Logs = append([]LogEntry(nil), r.state.Logs...)
	st.Papers = append([]events.Paper(nil), r.state.Papers...)
	if r.state.Progress != nil {
		p := *r.state.Progress
		st.Progress = &p
	}
	return st
}

func (r *RecentUpdate) HandleLog(e *events.EventLog) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Logs = append(r.state.Logs, LogEntry{Level: levelOf(e), Message: e.Message})
}

func (r *RecentUpdate) HandlePaper(e *events.EventPaper) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Papers = append(r.state.Papers, e.Paper)
}

func (r *RecentUpdate) HandleTotal(*events.EventTotal) {}

func (r *RecentUpdate) HandleProgress(e *events.EventProgress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Progress = progressFrom(e)
}

func (r *RecentUpdate) HandleChunk(*events.EventChunk) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Progress = nil
}

func (r *RecentUpdate) HandleDone(e *events.EventDone) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Done = true
	r.state.Progress = nil
	r.state.Synced = e.Synced
}

func (r *RecentUpdate) HandleError(e *events.EventError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Errored = true
	r.state.Logs = append(r.state.Logs, LogEntry{Level: events.LevelError, Message: e.Message})
}

func (r *RecentUpdate) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Errored = true
	r.state.Logs = append(r.state.Logs, LogEntry{Level: events.LevelError, Message: "update" + MsgFailedPrefix + err.Error()})
}
