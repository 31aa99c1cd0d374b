package store

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/go-go-golems/pulse/pkg/api"
)

// CollectionStore keeps the collection list and the page being viewed.
type CollectionStore struct {
	client *api.Client

	mu          sync.Mutex
	collections []api.Collection
	viewing     int64
	query       api.PageQuery
	page        api.CollectionPage
}

func newCollectionStore(client *api.Client) *CollectionStore {
	return &CollectionStore{client: client}
}

func (s *CollectionStore) Refresh(ctx context.Context) ([]api.Collection, error) {
	list, err := s.client.Collections.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "fetch collections")
	}
	s.mu.Lock()
	s.collections = list
	s.mu.Unlock()
	return append([]api.Collection(nil), list...), nil
}

func (s *CollectionStore) Collections() []api.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]api.Collection(nil), s.collections...)
}

// Create adds a collection and refreshes the list.
func (s *CollectionStore) Create(ctx context.Context, in api.CollectionInput) (api.Collection, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return api.Collection{}, errors.New("store: collection name is empty")
	}
	c, err := s.client.Collections.Create(ctx, in)
	if err != nil {
		return api.Collection{}, errors.Wrap(err, "create collection")
	}
	if _, err := s.Refresh(ctx); err != nil {
		return c, err
	}
	return c, nil
}

func (s *CollectionStore) Delete(ctx context.Context, id int64) error {
	if err := s.client.Collections.Delete(ctx, id); err != nil {
		return errors.Wrapf(err, "delete collection %d", id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.collections {
		if c.ID == id {
			s.collections = append(s.collections[:i], s.collections[i+1:]...)
			break
		}
	}
	if s.viewing == id {
		s.viewing = 0
		s.page = api.CollectionPage{}
		s.query = api.PageQuery{}
	}
	return nil
}

// Update edits a collection's name, description or color. Empty fields are
// left unchanged.
func (s *CollectionStore) Update(ctx context.Context, id int64, in api.CollectionInput) (api.Collection, error) {
	in.Name = strings.TrimSpace(in.Name)
	c, err := s.client.Collections.Update(ctx, id, in)
	if err != nil {
		return api.Collection{}, errors.Wrapf(err, "update collection %d", id)
	}
	if _, err := s.Refresh(ctx); err != nil {
		return c, err
	}
	return c, nil
}

// Duplicate creates an empty copy of a collection named "<name> (copy)".
func (s *CollectionStore) Duplicate(ctx context.Context, id int64) (api.Collection, error) {
	src, ok := s.find(id)
	if !ok {
		if _, err := s.Refresh(ctx); err != nil {
			return api.Collection{}, err
		}
		if src, ok = s.find(id); !ok {
			return api.Collection{}, errors.Errorf("store: no collection %d", id)
		}
	}
	return s.Create(ctx, api.CollectionInput{
		Name:        src.Name + " (copy)",
		Description: src.Description,
		Color:       src.Color,
	})
}

// Merge moves the papers of fromID into toID and refreshes the list.
func (s *CollectionStore) Merge(ctx context.Context, fromID, toID int64) (api.Object, error) {
	if fromID == toID {
		return nil, errors.New("store: cannot merge a collection into itself")
	}
	out, err := s.client.Collections.Merge(ctx, fromID, toID)
	if err != nil {
		return nil, errors.Wrapf(err, "merge collection %d into %d", fromID, toID)
	}
	if _, err := s.Refresh(ctx); err != nil {
		return out, err
	}
	return out, nil
}

// RemovePaper takes a paper out of a collection. The viewed page is reloaded
// when it belongs to that collection.
func (s *CollectionStore) RemovePaper(ctx context.Context, id, paperID int64) error {
	if err := s.client.Collections.RemovePaper(ctx, id, paperID); err != nil {
		return errors.Wrapf(err, "remove paper %d from collection %d", paperID, id)
	}
	s.mu.Lock()
	viewing, q := s.viewing, s.query
	s.mu.Unlock()
	if viewing == id {
		if _, err := s.ListPapers(ctx, id, q.Page, q.Search); err != nil {
			return err
		}
	}
	_, err := s.Refresh(ctx)
	return err
}

func (s *CollectionStore) find(id int64) (api.Collection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.collections {
		if c.ID == id {
			return c, true
		}
	}
	return api.Collection{}, false
}

// AddPapers adds papers by database ID and refreshes the list so paper
// counts are current.
func (s *CollectionStore) AddPapers(ctx context.Context, id int64, paperIDs []int64) (api.Object, error) {
	if len(paperIDs) == 0 {
		return nil, errors.New("store: no papers to add")
	}
	out, err := s.client.Collections.AddPapersBatch(ctx, id, paperIDs)
	if err != nil {
		return nil, errors.Wrapf(err, "add papers to collection %d", id)
	}
	if _, err := s.Refresh(ctx); err != nil {
		return out, err
	}
	return out, nil
}

// ListPapers loads one page of a collection and makes it the viewed page.
// page < 1 is page 1.
func (s *CollectionStore) ListPapers(ctx context.Context, id int64, page int, search string) (api.CollectionPage, error) {
	if page < 1 {
		page = 1
	}
	q := api.PageQuery{Page: page, Search: strings.TrimSpace(search)}
	res, err := s.client.Collections.Papers(ctx, id, q)
	if err != nil {
		return api.CollectionPage{}, errors.Wrapf(err, "list papers of collection %d", id)
	}
	if res.Page == 0 {
		res.Page = page
	}
	s.mu.Lock()
	s.viewing = id
	s.query = q
	s.page = res
	s.mu.Unlock()
	return res, nil
}

// NextPage loads the page after the viewed one. ok is false when there is no
// viewed collection or it is already on the last page.
func (s *CollectionStore) NextPage(ctx context.Context) (api.CollectionPage, bool, error) {
	s.mu.Lock()
	id, q, cur := s.viewing, s.query, s.page
	s.mu.Unlock()
	if id == 0 || cur.Page >= cur.TotalPages {
		return cur, false, nil
	}
	res, err := s.ListPapers(ctx, id, cur.Page+1, q.Search)
	return res, err == nil, err
}

// Viewing returns the viewed collection ID and page.
func (s *CollectionStore) Viewing() (int64, api.CollectionPage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewing, s.page
}

func (s *CollectionStore) Export(ctx context.Context, id int64, format string) ([]byte, error) {
	return s.client.Export.Collection(ctx, id, format)
}
