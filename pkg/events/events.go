package events

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Kind is the discriminator carried in the `type` field of every stream event.
type Kind string

const (
	KindLog      Kind = "log"
	KindResult   Kind = "result"
	KindPaper    Kind = "paper"
	KindTotal    Kind = "total"
	KindProgress Kind = "progress"
	KindChunk    Kind = "chunk"
	KindDone     Kind = "done"
	KindError    Kind = "error"
)

// Known reports whether k belongs to the fixed vocabulary.
func (k Kind) Known() bool {
	switch k {
	case KindLog, KindResult, KindPaper, KindTotal, KindProgress, KindChunk, KindDone, KindError:
		return true
	}
	return false
}

// Event is one decoded stream event. The set of implementations is closed:
// only this package can add variants.
type Event interface {
	Kind() Kind
	// Raw returns the JSON object the event was decoded from.
	Raw() []byte
	// Accept calls the Handler method matching the event kind.
	Accept(h Handler)

	isStreamEvent()
}

// Handler has one method per event kind. Projections implement it, so a new
// kind fails to compile until every projection handles it.
type Handler interface {
	HandleLog(e *EventLog)
	HandlePaper(e *EventPaper)
	HandleTotal(e *EventTotal)
	HandleProgress(e *EventProgress)
	HandleChunk(e *EventChunk)
	HandleDone(e *EventDone)
	HandleError(e *EventError)
}

type eventBase struct {
	raw json.RawMessage
}

func (b *eventBase) Raw() []byte { return b.raw }
func (b *eventBase) isStreamEvent() {}

const (
	LevelInfo    = "info"
	LevelError   = "error"
	LevelSuccess = "success"
)

type EventLog struct {
	eventBase
	Level   string `json:"level,omitempty"`
	Message string `json:"message"`
}

func (e *EventLog) Kind() Kind { return KindLog }
func (e *EventLog) Accept(h Handler) { h.HandleLog(e) }

// EventPaper covers both `result` (search) and `paper` (recent cache/update).
type EventPaper struct {
	eventBase
	Type      Kind   `json:"type"`
	Paper     Paper  `json:"paper"`
	Index     int    `json:"index,omitempty"`
	Total     int    `json:"total,omitempty"`
	MatchType string `json:"match_type,omitempty"`
}

func (e *EventPaper) Kind() Kind { return e.Type }
func (e *EventPaper) Accept(h Handler) { h.HandlePaper(e) }

type EventTotal struct {
	eventBase
	Total int `json:"total"`
}

func (e *EventTotal) Kind() Kind { return KindTotal }
func (e *EventTotal) Accept(h Handler) { h.HandleTotal(e) }

type EventProgress struct {
	eventBase
	Stage       string  `json:"stage,omitempty"`
	Message     string  `json:"message,omitempty"`
	ArxivID     string  `json:"arxiv_id,omitempty"`
	PaperIndex  int     `json:"paper_index,omitempty"`
	TotalPapers int     `json:"total_papers,omitempty"`
	Progress    float64 `json:"progress,omitempty"`
	TextLength  int     `json:"text_length,omitempty"`
	PageCount   int     `json:"page_count,omitempty"`
	// Current and Total count sync steps (one per search query).
	Current int `json:"current,omitempty"`
	Total   int `json:"total,omitempty"`
	Added   int `json:"added,omitempty"`
}

func (e *EventProgress) Kind() Kind { return KindProgress }
func (e *EventProgress) Accept(h Handler) { h.HandleProgress(e) }

type EventChunk struct {
	eventBase
	Content string `json:"content"`
}

func (e *EventChunk) Kind() Kind { return KindChunk }
func (e *EventChunk) Accept(h Handler) { h.HandleChunk(e) }

// EventDone terminates a session successfully. Pointer fields distinguish an
// absent value from zero.
type EventDone struct {
	eventBase
	NeedSync   *bool `json:"need_sync,omitempty"`
	Total      *int  `json:"total,omitempty"`
	Synced     int   `json:"synced,omitempty"`
	Summarized int   `json:"summarized,omitempty"`
	Figures    int   `json:"figures,omitempty"`
	// Sync streams report what was added.
	TotalAdded  int `json:"total_added,omitempty"`
	TotalPapers int `json:"total_papers,omitempty"`
}

func (e *EventDone) Kind() Kind { return KindDone }
func (e *EventDone) Accept(h Handler) { h.HandleDone(e) }

type EventError struct {
	eventBase
	Message string `json:"message"`
}

func (e *EventError) Kind() Kind { return KindError }
func (e *EventError) Accept(h Handler) { h.HandleError(e) }

// EventUnknown is produced for kinds outside the vocabulary. Accept is a no-op.
type EventUnknown struct {
	eventBase
	Type Kind
}

func (e *EventUnknown) Kind() Kind { return e.Type }
func (e *EventUnknown) Accept(Handler) {}

type typePeek struct {
	Type Kind `json:"type"`
}

// NewEventFromJSON decodes a single event object, selecting the variant by
// its `type` field.
func NewEventFromJSON(b []byte) (Event, error) {
	var peek typePeek
	if err := json.Unmarshal(b, &peek); err != nil {
		return nil, errors.Wrap(err, "decode event type")
	}
	raw := append(json.RawMessage(nil), b...)

	var ev Event
	switch peek.Type {
	case KindLog:
		e := &EventLog{}
		if err := json.Unmarshal(b, e); err != nil {
			return nil, errors.Wrap(err, "decode log event")
		}
		if e.Level == "" {
			e.Level = LevelInfo
		}
		ev = e
	case KindResult, KindPaper:
		e := &EventPaper{}
		if err := json.Unmarshal(b, e); err != nil {
			return nil, errors.Wrapf(err, "decode %s event", peek.Type)
		}
		ev = e
	case KindTotal:
		e := &EventTotal{}
		if err := json.Unmarshal(b, e); err != nil {
			return nil, errors.Wrap(err, "decode total event")
		}
		ev = e
	case KindProgress:
		e := &EventProgress{}
		if err := json.Unmarshal(b, e); err != nil {
			return nil, errors.Wrap(err, "decode progress event")
		}
		ev = e
	case KindChunk:
		e := &EventChunk{}
		if err := json.Unmarshal(b, e); err != nil {
			return nil, errors.Wrap(err, "decode chunk event")
		}
		ev = e
	case KindDone:
		e := &EventDone{}
		if err := json.Unmarshal(b, e); err != nil {
			return nil, errors.Wrap(err, "decode done event")
		}
		ev = e
	case KindError:
		e := &EventError{}
		if err := json.Unmarshal(b, e); err != nil {
			return nil, errors.Wrap(err, "decode error event")
		}
		ev = e
	default:
		ev = &EventUnknown{Type: peek.Type}
	}
	setRaw(ev, raw)
	return ev, nil
}

func setRaw(ev Event, raw json.RawMessage) {
	type rawSetter interface{ setRaw(json.RawMessage) }
	if s, ok := ev.(rawSetter); ok {
		s.setRaw(raw)
	}
}

func (b *eventBase) setRaw(raw json.RawMessage) { b.raw = raw }
