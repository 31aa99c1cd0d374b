// Package store holds the client's application state: paper listings and the
// cart, the chat transcript, and collections. Each streamed listing runs in
// its own stream.Slot and projects into its own projection, as do the
// server-side sync jobs.
package store

import (
	"context"
	"net/http"

	"github.com/pkg/errors"

	"github.com/go-go-golems/pulse/pkg/api"
	"github.com/go-go-golems/pulse/pkg/sse"
	"github.com/go-go-golems/pulse/pkg/stream"
)

// Slot names, also used as bus topics and event log labels.
const (
	SlotSearch       = "search"
	SlotQuick        = "quick"
	SlotRecentCache  = "recent-cache"
	SlotRecentUpdate = "recent-update"
	SlotChat         = "chat"
	SlotSync         = "sync"
	SlotInitSync     = "init-sync"
)

// Slots lists every slot name, in a stable order.
func Slots() []string {
	return []string{SlotSearch, SlotQuick, SlotRecentCache, SlotRecentUpdate, SlotChat, SlotSync, SlotInitSync}
}

type App struct {
	Client      *api.Client
	Papers      *PaperStore
	Chat        *ChatStore
	Collections *CollectionStore
	Tasks       *TaskStore
}

type options struct {
	httpClient *http.Client
	taps       []stream.Tap
	diag       sse.DiagnosticHook
	policy     stream.ReplacePolicy
}

type Option func(*options)

// WithStreamHTTPClient sets the client used for streams. It should not carry
// an overall timeout.
func WithStreamHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

func WithTaps(taps ...stream.Tap) Option {
	return func(o *options) { o.taps = append(o.taps, taps...) }
}

func WithDiagnosticHook(h sse.DiagnosticHook) Option {
	return func(o *options) { o.diag = h }
}

// WithReplacePolicy sets the policy of the paper listing slots. The chat and
// sync slots always reject.
func WithReplacePolicy(p stream.ReplacePolicy) Option {
	return func(o *options) { o.policy = p }
}

// NewApp builds one application state container around client.
func NewApp(client *api.Client, opts ...Option) *App {
	o := options{policy: stream.ReplaceCancel}
	for _, opt := range opts {
		opt(&o)
	}
	st := &streamer{opts: o}
	return &App{
		Client:      client,
		Papers:      newPaperStore(client, st),
		Chat:        newChatStore(client, st),
		Collections: newCollectionStore(client),
		Tasks:       newTaskStore(client, st),
	}
}

// Close cancels every running stream and waits for it to exit.
func (a *App) Close() {
	a.Papers.CancelAll()
	a.Chat.Cancel()
	a.Tasks.CancelAll()
}

type ctxKey struct{}

func WithApp(ctx context.Context, app *App) context.Context {
	return context.WithValue(ctx, ctxKey{}, app)
}

func FromContext(ctx context.Context) (*App, error) {
	app, ok := ctx.Value(ctxKey{}).(*App)
	if !ok || app == nil {
		return nil, errors.New("store: no app in context")
	}
	return app, nil
}

// streamer builds sessions with the app-wide options.
type streamer struct {
	opts options
}

func (s *streamer) session(ep stream.Endpoint, slot string, extra ...stream.SessionOption) *stream.Session {
	opts := []stream.SessionOption{stream.WithSlotName(slot)}
	if s.opts.httpClient != nil {
		opts = append(opts, stream.WithHTTPClient(s.opts.httpClient))
	}
	if len(s.opts.taps) > 0 {
		opts = append(opts, stream.WithTaps(s.opts.taps...))
	}
	if s.opts.diag != nil {
		opts = append(opts, stream.WithDiagnosticHook(s.opts.diag))
	}
	opts = append(opts, extra...)
	return stream.NewSession(ep, opts...)
}
