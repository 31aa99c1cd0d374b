package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pkg/errors"

	"github.com/go-go-golems/pulse/pkg/stream"
)

// PapersService covers /api/papers. The listing endpoints are streams.
type PapersService struct {
	c *Client
}

func (s *PapersService) RecentCacheStream() stream.Endpoint {
	return s.c.streamGet("/papers/recent/cache/stream", nil)
}

// RecentUpdate syncs recent papers; days and limit <= 0 leave the server
// defaults in place.
func (s *PapersService) RecentUpdate(days, limit int) stream.Endpoint {
	return s.c.streamPost("/papers/recent/update", Params{
		"days":  itoa(days),
		"limit": itoa(limit),
	})
}

func (s *PapersService) SearchStream(query string, limit int) stream.Endpoint {
	return s.c.streamGet("/papers/search/stream", Params{
		"q":     query,
		"limit": itoa(limit),
	})
}

func (s *PapersService) Quick(query string) stream.Endpoint {
	return s.c.streamGet("/papers/quick", Params{"q": query})
}

func (s *PapersService) AIFilter(ctx context.Context, req Object) (Object, error) {
	var out Object
	err := s.c.doJSON(ctx, http.MethodPost, "/papers/ai-filter", nil, req, &out)
	return out, err
}

// PDFURL is where the server proxies a paper's PDF.
func (s *PapersService) PDFURL(arxivID string) (string, error) {
	if arxivID == "" {
		return "", errors.New("pdf: empty arxiv id")
	}
	return s.c.url("/papers/pdf/"+url.PathEscape(arxivID), nil), nil
}

func itoa(n int) string {
	if n <= 0 {
		return ""
	}
	return strconv.Itoa(n)
}
