package store

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/go-go-golems/pulse/pkg/api"
	"github.com/go-go-golems/pulse/pkg/events"
	"github.com/go-go-golems/pulse/pkg/projection"
	"github.com/go-go-golems/pulse/pkg/stream"
)

// ErrEmptyCart is returned when exporting an empty cart.
var ErrEmptyCart = errors.New("store: cart is empty")

// PaperStore runs the paper listing streams and keeps the paper cart.
type PaperStore struct {
	client *api.Client
	st     *streamer

	searchSlot *stream.Slot
	quickSlot  *stream.Slot
	cacheSlot  *stream.Slot
	updateSlot *stream.Slot

	search *projection.Search
	quick  *projection.Search
	cache  *projection.RecentCache
	update *projection.RecentUpdate

	mu   sync.Mutex
	cart []events.Paper
}

func newPaperStore(client *api.Client, st *streamer) *PaperStore {
	p := st.opts.policy
	return &PaperStore{
		client:     client,
		st:         st,
		searchSlot: stream.NewSlot(SlotSearch, p),
		quickSlot:  stream.NewSlot(SlotQuick, p),
		cacheSlot:  stream.NewSlot(SlotRecentCache, p),
		updateSlot: stream.NewSlot(SlotRecentUpdate, p),
		search:     projection.NewSearch("search"),
		quick:      projection.NewSearch("quick fetch"),
		cache:      projection.NewRecentCache(),
		update:     projection.NewRecentUpdate(),
	}
}

// Search streams a paper search into the search projection. A blank query
// does nothing.
func (p *PaperStore) Search(ctx context.Context, query string, limit int) (stream.Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return stream.Result{}, nil
	}
	ep := p.client.Papers.SearchStream(query, limit)
	return p.searchSlot.Run(ctx, p.st.session(ep, SlotSearch), p.search)
}

// Quick streams the home page quick fetch into its own projection. A blank
// query does nothing.
func (p *PaperStore) Quick(ctx context.Context, query string) (stream.Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return stream.Result{}, nil
	}
	ep := p.client.Papers.Quick(query)
	return p.quickSlot.Run(ctx, p.st.session(ep, SlotQuick), p.quick)
}

func (p *PaperStore) LoadRecentCache(ctx context.Context) (stream.Result, error) {
	ep := p.client.Papers.RecentCacheStream()
	return p.cacheSlot.Run(ctx, p.st.session(ep, SlotRecentCache), p.cache)
}

func (p *PaperStore) UpdateRecent(ctx context.Context, days, limit int) (stream.Result, error) {
	ep := p.client.Papers.RecentUpdate(days, limit)
	return p.updateSlot.Run(ctx, p.st.session(ep, SlotRecentUpdate), p.update)
}

func (p *PaperStore) SearchState() projection.SearchState { return p.search.Snapshot() }

func (p *PaperStore) QuickState() projection.SearchState { return p.quick.Snapshot() }

func (p *PaperStore) RecentCacheState() projection.RecentCacheState { return p.cache.Snapshot() }

func (p *PaperStore) RecentUpdateState() projection.RecentUpdateState { return p.update.Snapshot() }

// NeedSync reports whether the recent listing still needs a sync. A finished
// update clears it.
func (p *PaperStore) NeedSync() bool {
	if p.update.Snapshot().Done {
		return false
	}
	return p.cache.Snapshot().NeedSync
}

// CancelAll cancels every running listing stream.
func (p *PaperStore) CancelAll() {
	for _, s := range []*stream.Slot{p.searchSlot, p.quickSlot, p.cacheSlot, p.updateSlot} {
		s.Cancel()
	}
}

func (p *PaperStore) AddToCart(paper events.Paper) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.indexInCart(paper.ArxivID) >= 0 {
		return false
	}
	p.cart = append(p.cart, paper)
	return true
}

func (p *PaperStore) RemoveFromCart(arxivID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.indexInCart(arxivID)
	if i < 0 {
		return false
	}
	p.cart = append(p.cart[:i], p.cart[i+1:]...)
	return true
}

func (p *PaperStore) InCart(arxivID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.indexInCart(arxivID) >= 0
}

func (p *PaperStore) Cart() []events.Paper {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.Paper(nil), p.cart...)
}

func (p *PaperStore) ClearCart() {
	p.mu.Lock()
	p.cart = nil
	p.mu.Unlock()
}

func (p *PaperStore) indexInCart(arxivID string) int {
	for i, c := range p.cart {
		if c.ArxivID == arxivID {
			return i
		}
	}
	return -1
}

// ExportCart exports the cart's papers in format. Papers without a database
// ID cannot be exported and are skipped.
func (p *PaperStore) ExportCart(ctx context.Context, format string) ([]byte, error) {
	var ids []int64
	for _, paper := range p.Cart() {
		if paper.ID != 0 {
			ids = append(ids, paper.ID)
		}
	}
	if len(ids) == 0 {
		return nil, ErrEmptyCart
	}
	return p.client.Export.Papers(ctx, ids, format)
}

func (p *PaperStore) FetchStats(ctx context.Context) (api.Object, error) {
	return p.client.Stats.Get(ctx)
}

func (p *PaperStore) FetchFieldStats(ctx context.Context) (api.Object, error) {
	return p.client.Stats.Fields(ctx)
}
