package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-go-golems/pulse/pkg/stream"
)

// ConfigService covers /api/config.
type ConfigService struct {
	c *Client
}

func (s *ConfigService) Get(ctx context.Context) (Object, error) {
	var out Object
	err := s.c.doJSON(ctx, http.MethodGet, "/config", nil, nil, &out)
	return out, err
}

func (s *ConfigService) Update(ctx context.Context, changes Object) (Object, error) {
	var out Object
	err := s.c.doJSON(ctx, http.MethodPut, "/config", nil, changes, &out)
	return out, err
}

func (s *ConfigService) Status(ctx context.Context) (Object, error) {
	var out Object
	err := s.c.doJSON(ctx, http.MethodGet, "/config/status", nil, nil, &out)
	return out, err
}

func (s *ConfigService) Categories(ctx context.Context) (Object, error) {
	var out Object
	err := s.c.doJSON(ctx, http.MethodGet, "/config/categories", nil, nil, &out)
	return out, err
}

func (s *ConfigService) TestAI(ctx context.Context, req Object) (Object, error) {
	var out Object
	err := s.c.doJSON(ctx, http.MethodPost, "/config/test-ai", nil, req, &out)
	return out, err
}

func (s *ConfigService) Init(ctx context.Context, req Object) (Object, error) {
	var out Object
	err := s.c.doJSON(ctx, http.MethodPost, "/config/init", nil, req, &out)
	return out, err
}

// InitSync streams the first sync after setup, over the configured fields.
func (s *ConfigService) InitSync() stream.Endpoint {
	return s.c.streamPost("/config/init/sync", nil)
}

// StatsService covers /api/stats.
type StatsService struct {
	c *Client
}

func (s *StatsService) Get(ctx context.Context) (Object, error) {
	var out Object
	err := s.c.doJSON(ctx, http.MethodGet, "/stats", nil, nil, &out)
	return out, err
}

func (s *StatsService) Fields(ctx context.Context) (Object, error) {
	var out Object
	err := s.c.doJSON(ctx, http.MethodGet, "/stats/fields", nil, nil, &out)
	return out, err
}

func (s *StatsService) Refresh(ctx context.Context) (Object, error) {
	var out Object
	err := s.c.doJSON(ctx, http.MethodPost, "/stats/refresh", nil, nil, &out)
	return out, err
}

// TasksService covers /api/tasks.
type TasksService struct {
	c *Client
}

func (s *TasksService) Status(ctx context.Context) (Object, error) {
	var out Object
	err := s.c.doJSON(ctx, http.MethodGet, "/tasks/status", nil, nil, &out)
	return out, err
}

// Sync streams a paper sync job. yearsBack <= 0 leaves the server default.
func (s *TasksService) Sync(yearsBack int, force bool) stream.Endpoint {
	return s.c.streamPost("/tasks/sync", Params{
		"years_back": itoa(yearsBack),
		"force":      strconv.FormatBool(force),
	})
}

// CacheService covers /api/cache.
type CacheService struct {
	c *Client
}

func (s *CacheService) Stats(ctx context.Context) (Object, error) {
	var out Object
	err := s.c.doJSON(ctx, http.MethodGet, "/cache/stats", nil, nil, &out)
	return out, err
}

// Clear drops one cache type, or all of them when cacheType is empty.
func (s *CacheService) Clear(ctx context.Context, cacheType string) (Object, error) {
	body := Object{}
	if cacheType != "" {
		body["cache_type"] = cacheType
	}
	var out Object
	err := s.c.doJSON(ctx, http.MethodPost, "/cache/clear", nil, body, &out)
	return out, err
}
