package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-go-golems/pulse/pkg/events"
)

type Collection struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color,omitempty"`
	Icon        string `json:"icon,omitempty"`
	SortOrder   int    `json:"sort_order,omitempty"`
	PaperCount  int    `json:"paper_count,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

// CollectionInput is the create/update body. Empty fields are omitted so an
// update only touches what is set.
type CollectionInput struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color,omitempty"`
	Icon        string `json:"icon,omitempty"`
}

// CollectionPage is one page of GET /collections/{id}/papers.
type CollectionPage struct {
	Papers     []events.Paper `json:"papers"`
	TotalCount int            `json:"total_count"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalPages int            `json:"total_pages"`
}

type PageQuery struct {
	Page      int
	PageSize  int
	Search    string
	SortBy    string
	SortOrder string
}

func (q PageQuery) params() Params {
	return Params{
		"page":       itoa(q.Page),
		"page_size":  itoa(q.PageSize),
		"search":     q.Search,
		"sort_by":    q.SortBy,
		"sort_order": q.SortOrder,
	}
}

// CollectionsService covers /api/collections.
type CollectionsService struct {
	c *Client
}

func collectionPath(id int64, rest string) string {
	return "/collections/" + strconv.FormatInt(id, 10) + rest
}

func (s *CollectionsService) List(ctx context.Context) ([]Collection, error) {
	var out []Collection
	err := s.c.doJSON(ctx, http.MethodGet, "/collections", nil, nil, &out)
	return out, err
}

func (s *CollectionsService) Get(ctx context.Context, id int64) (Object, error) {
	var out Object
	err := s.c.doJSON(ctx, http.MethodGet, collectionPath(id, ""), nil, nil, &out)
	return out, err
}

func (s *CollectionsService) Create(ctx context.Context, in CollectionInput) (Collection, error) {
	var out Collection
	err := s.c.doJSON(ctx, http.MethodPost, "/collections", nil, in, &out)
	return out, err
}

func (s *CollectionsService) Update(ctx context.Context, id int64, in CollectionInput) (Collection, error) {
	var out Collection
	err := s.c.doJSON(ctx, http.MethodPut, collectionPath(id, ""), nil, in, &out)
	return out, err
}

func (s *CollectionsService) Delete(ctx context.Context, id int64) error {
	return s.c.doJSON(ctx, http.MethodDelete, collectionPath(id, ""), nil, nil, nil)
}

// Merge moves the papers of id into targetID.
func (s *CollectionsService) Merge(ctx context.Context, id, targetID int64) (Object, error) {
	var out Object
	body := map[string]int64{"target_collection_id": targetID}
	err := s.c.doJSON(ctx, http.MethodPost, collectionPath(id, "/merge"), nil, body, &out)
	return out, err
}

func (s *CollectionsService) AISearch(ctx context.Context, id int64, query string) (Object, error) {
	var out Object
	body := map[string]string{"query": query}
	err := s.c.doJSON(ctx, http.MethodPost, collectionPath(id, "/ai-search"), nil, body, &out)
	return out, err
}

func (s *CollectionsService) Papers(ctx context.Context, id int64, q PageQuery) (CollectionPage, error) {
	var out CollectionPage
	err := s.c.doJSON(ctx, http.MethodGet, collectionPath(id, "/papers"), q.params(), nil, &out)
	return out, err
}

func (s *CollectionsService) AddPaper(ctx context.Context, id, paperID int64) (Object, error) {
	var out Object
	body := map[string]int64{"paper_id": paperID}
	err := s.c.doJSON(ctx, http.MethodPost, collectionPath(id, "/papers"), nil, body, &out)
	return out, err
}

func (s *CollectionsService) RemovePaper(ctx context.Context, id, paperID int64) error {
	path := collectionPath(id, "/papers/"+strconv.FormatInt(paperID, 10))
	return s.c.doJSON(ctx, http.MethodDelete, path, nil, nil, nil)
}

func (s *CollectionsService) AddPapersBatch(ctx context.Context, id int64, paperIDs []int64) (Object, error) {
	var out Object
	body := map[string][]int64{"paper_ids": paperIDs}
	err := s.c.doJSON(ctx, http.MethodPost, collectionPath(id, "/papers/batch"), nil, body, &out)
	return out, err
}
