package api

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
)

// Export formats accepted by the server.
const (
	FormatMarkdown = "markdown"
	FormatBibTeX   = "bibtex"
	FormatJSON     = "json"
	FormatCSV      = "csv"
)

// FileExtension maps an export format to its file extension.
func FileExtension(format string) string {
	switch format {
	case FormatMarkdown:
		return "md"
	case FormatBibTeX:
		return "bib"
	default:
		return format
	}
}

// ExportService covers /api/export. Responses are the raw file bytes.
type ExportService struct {
	c *Client
}

// Papers exports papers by database ID.
func (s *ExportService) Papers(ctx context.Context, paperIDs []int64, format string) ([]byte, error) {
	if len(paperIDs) == 0 {
		return nil, errors.New("export: no papers selected")
	}
	body := struct {
		PaperIDs       []int64 `json:"paper_ids"`
		Format         string  `json:"format"`
		IncludeSummary bool    `json:"include_summary"`
	}{paperIDs, formatOrDefault(format), true}
	return s.c.do(ctx, http.MethodPost, "/export/papers", nil, body)
}

func (s *ExportService) Collection(ctx context.Context, collectionID int64, format string) ([]byte, error) {
	body := struct {
		CollectionID   int64  `json:"collection_id"`
		Format         string `json:"format"`
		IncludeSummary bool   `json:"include_summary"`
	}{collectionID, formatOrDefault(format), true}
	return s.c.do(ctx, http.MethodPost, "/export/collection", nil, body)
}

func formatOrDefault(f string) string {
	if f == "" {
		return FormatMarkdown
	}
	return f
}
