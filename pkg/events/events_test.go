package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	calls []string
}

func (r *recordingHandler) HandleLog(*EventLog)           { r.calls = append(r.calls, "log") }
func (r *recordingHandler) HandlePaper(*EventPaper)       { r.calls = append(r.calls, "paper") }
func (r *recordingHandler) HandleTotal(*EventTotal)       { r.calls = append(r.calls, "total") }
func (r *recordingHandler) HandleProgress(*EventProgress) { r.calls = append(r.calls, "progress") }
func (r *recordingHandler) HandleChunk(*EventChunk)       { r.calls = append(r.calls, "chunk") }
func (r *recordingHandler) HandleDone(*EventDone)         { r.calls = append(r.calls, "done") }
func (r *recordingHandler) HandleError(*EventError)       { r.calls = append(r.calls, "error") }

func TestNewEventFromJSON_Variants(t *testing.T) {
	cases := []struct {
		in   string
		kind Kind
		call string
	}{
		{`{"type":"log","message":"hi"}`, KindLog, "log"},
		{`{"type":"result","paper":{"arxiv_id":"2401.00001"}}`, KindResult, "paper"},
		{`{"type":"paper","paper":{"arxiv_id":"2401.00002"}}`, KindPaper, "paper"},
		{`{"type":"total","total":5}`, KindTotal, "total"},
		{`{"type":"progress","message":"m","progress":40}`, KindProgress, "progress"},
		{`{"type":"chunk","content":"ab"}`, KindChunk, "chunk"},
		{`{"type":"done"}`, KindDone, "done"},
		{`{"type":"error","message":"boom"}`, KindError, "error"},
	}
	for _, tc := range cases {
		ev, err := NewEventFromJSON([]byte(tc.in))
		require.NoError(t, err, tc.in)
		require.Equal(t, tc.kind, ev.Kind())
		require.JSONEq(t, tc.in, string(ev.Raw()))

		h := &recordingHandler{}
		ev.Accept(h)
		require.Equal(t, []string{tc.call}, h.calls)
	}
}

func TestNewEventFromJSON_UnknownKindIsIgnoredByHandlers(t *testing.T) {
	ev, err := NewEventFromJSON([]byte(`{"type":"ai_parsed","terms":["a","b"]}`))
	require.NoError(t, err)
	require.Equal(t, Kind("ai_parsed"), ev.Kind())
	require.False(t, ev.Kind().Known())

	h := &recordingHandler{}
	ev.Accept(h)
	require.Empty(t, h.calls)
}

func TestNewEventFromJSON_LogDefaultsToInfo(t *testing.T) {
	ev, err := NewEventFromJSON([]byte(`{"type":"log","message":"x"}`))
	require.NoError(t, err)
	require.Equal(t, LevelInfo, ev.(*EventLog).Level)

	ev, err = NewEventFromJSON([]byte(`{"type":"log","message":"x","level":"error"}`))
	require.NoError(t, err)
	require.Equal(t, LevelError, ev.(*EventLog).Level)
}

func TestNewEventFromJSON_DoneOptionalFields(t *testing.T) {
	ev, err := NewEventFromJSON([]byte(`{"type":"done"}`))
	require.NoError(t, err)
	done := ev.(*EventDone)
	require.Nil(t, done.NeedSync)
	require.Nil(t, done.Total)

	ev, err = NewEventFromJSON([]byte(`{"type":"done","need_sync":false,"total":0}`))
	require.NoError(t, err)
	done = ev.(*EventDone)
	require.NotNil(t, done.NeedSync)
	require.False(t, *done.NeedSync)
	require.NotNil(t, done.Total)
	require.Equal(t, 0, *done.Total)
}

func TestNewEventFromJSON_Malformed(t *testing.T) {
	_, err := NewEventFromJSON([]byte(`{not json`))
	require.Error(t, err)

	_, err = NewEventFromJSON([]byte(`{"type":"total","total":"five"}`))
	require.Error(t, err)
}

func TestPaper_ExtraFieldsSurviveRoundTrip(t *testing.T) {
	in := `{"arxiv_id":"2401.00001","title":"T","authors":[{"name":"A"},{"name":"B","affiliation":"X"}],"index_hint":7}`
	var p Paper
	require.NoError(t, json.Unmarshal([]byte(in), &p))
	require.Equal(t, "2401.00001", p.ArxivID)
	require.Equal(t, []string{"A", "B"}, p.AuthorNames())
	require.Contains(t, p.Extra, "index_hint")

	out, err := json.Marshal(p)
	require.NoError(t, err)
	var back map[string]any
	require.NoError(t, json.Unmarshal(out, &back))
	require.Equal(t, float64(7), back["index_hint"])
	require.Equal(t, "T", back["title"])
}
