package store

import (
	"context"

	"github.com/pkg/errors"

	"github.com/go-go-golems/pulse/pkg/api"
	"github.com/go-go-golems/pulse/pkg/projection"
	"github.com/go-go-golems/pulse/pkg/stream"
)

// ErrSyncBusy is returned when a sync job is started while one is running.
var ErrSyncBusy = errors.New("store: a sync is already running")

// TaskStore runs the server-side sync jobs and keeps their logs. A job keeps
// running on the server after the client stops reading, so a second start
// is refused instead of replacing the first.
type TaskStore struct {
	client *api.Client
	st     *streamer

	syncSlot *stream.Slot
	initSlot *stream.Slot

	sync    *projection.SyncLog
	initial *projection.SyncLog
}

func newTaskStore(client *api.Client, st *streamer) *TaskStore {
	return &TaskStore{
		client:   client,
		st:       st,
		syncSlot: stream.NewSlot(SlotSync, stream.ReplaceReject),
		initSlot: stream.NewSlot(SlotInitSync, stream.ReplaceReject),
		sync:     projection.NewSyncLog("sync"),
		initial:  projection.NewSyncLog("initial sync"),
	}
}

// Sync streams a paper sync going yearsBack years back. force re-fetches
// papers already in the database.
func (t *TaskStore) Sync(ctx context.Context, yearsBack int, force bool) (stream.Result, error) {
	ep := t.client.Tasks.Sync(yearsBack, force)
	return t.run(ctx, t.syncSlot, ep, SlotSync, t.sync)
}

// InitialSync streams the first sync after setup.
func (t *TaskStore) InitialSync(ctx context.Context) (stream.Result, error) {
	ep := t.client.Config.InitSync()
	return t.run(ctx, t.initSlot, ep, SlotInitSync, t.initial)
}

func (t *TaskStore) run(ctx context.Context, slot *stream.Slot, ep stream.Endpoint, name string, target *projection.SyncLog) (stream.Result, error) {
	res, err := slot.Run(ctx, t.st.session(ep, name), target)
	if errors.Is(err, stream.ErrSlotBusy) {
		return res, ErrSyncBusy
	}
	return res, err
}

func (t *TaskStore) SyncState() projection.SyncLogState { return t.sync.Snapshot() }

func (t *TaskStore) InitialSyncState() projection.SyncLogState { return t.initial.Snapshot() }

// Syncing reports whether either sync job is being read.
func (t *TaskStore) Syncing() bool {
	_, a := t.syncSlot.Active()
	_, b := t.initSlot.Active()
	return a || b
}

func (t *TaskStore) Status(ctx context.Context) (api.Object, error) {
	return t.client.Tasks.Status(ctx)
}

// CancelAll stops reading the running jobs.
func (t *TaskStore) CancelAll() {
	t.syncSlot.Cancel()
	t.initSlot.Cancel()
}
