package projection

import (
	"github.com/go-go-golems/pulse/pkg/events"
)

// LogEntry is one line of a session's visible log.
type LogEntry struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Progress is the single "current progress" slot. A new progress event
// replaces it.
type Progress struct {
	Stage       string  `json:"stage,omitempty"`
	Message     string  `json:"message,omitempty"`
	ArxivID     string  `json:"arxiv_id,omitempty"`
	PaperIndex  int     `json:"paper_index,omitempty"`
	TotalPapers int     `json:"total_papers,omitempty"`
	Percent     float64 `json:"progress,omitempty"`
	TextLength  int     `json:"text_length,omitempty"`
	PageCount   int     `json:"page_count,omitempty"`
	Current     int     `json:"current,omitempty"`
	Total       int     `json:"total,omitempty"`
	Added       int     `json:"added,omitempty"`
}

func progressFrom(e *events.EventProgress) *Progress {
	return &Progress{
		Stage:       e.Stage,
		Message:     e.Message,
		ArxivID:     e.ArxivID,
		PaperIndex:  e.PaperIndex,
		TotalPapers: e.TotalPapers,
		Percent:     e.Progress,
		TextLength:  e.TextLength,
		PageCount:   e.PageCount,
		Current:     e.Current,
		Total:       e.Total,
		Added:       e.Added,
	}
}

func levelOf(e *events.EventLog) string {
	if e.Level == "" {
		return events.LevelInfo
	}
	return e.Level
}
