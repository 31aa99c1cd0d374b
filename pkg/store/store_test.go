package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/pulse/pkg/api"
	"github.com/go-go-golems/pulse/pkg/events"
	"github.com/go-go-golems/pulse/pkg/projection"
	"github.com/go-go-golems/pulse/pkg/stream"
)

type fakeServer struct {
	listCalls atomic.Int32
	started   chan struct{}
	release   chan struct{}
}

func writeFrames(w http.ResponseWriter, frames ...string) {
	w.Header().Set("Content-Type", "text/event-stream")
	f, _ := w.(http.Flusher)
	for _, fr := range frames {
		_, _ = fmt.Fprintf(w, "data: %s\n\n", fr)
		if f != nil {
			f.Flush()
		}
	}
}

func (s *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/papers/search/stream":
		if r.URL.Query().Get("q") == "nothing" {
			writeFrames(w, `{"type":"log","message":"searching"}`, `{"type":"done","total":0}`)
			return
		}
		writeFrames(w,
			`{"type":"log","message":"searching"}`,
			`{"type":"total","total":2}`,
			`{"type":"result","paper":{"id":1,"arxiv_id":"2401.00001","title":"A"}}`,
			`{"type":"result","paper":{"id":2,"arxiv_id":"2401.00002","title":"B"}}`,
			`{"type":"done","total":2}`,
		)
	case r.URL.Path == "/api/papers/quick":
		writeFrames(w, `{"type":"paper","paper":{"arxiv_id":"2401.00009"}}`, `{"type":"done","total":1}`)
	case r.URL.Path == "/api/papers/recent/cache/stream":
		writeFrames(w,
			`{"type":"total","total":1}`,
			`{"type":"paper","paper":{"id":5,"arxiv_id":"2401.00005"}}`,
			`{"type":"done","need_sync":true}`,
		)
	case r.URL.Path == "/api/papers/recent/update" && r.Method == http.MethodPost:
		writeFrames(w,
			`{"type":"log","message":"syncing"}`,
			`{"type":"paper","paper":{"arxiv_id":"x1"}}`,
			`{"type":"paper","paper":{"arxiv_id":"x2"}}`,
			`{"type":"done","synced":2}`,
		)
	case r.URL.Path == "/api/chat/sessions" && r.Method == http.MethodGet:
		s.listCalls.Add(1)
		_ = json.NewEncoder(w).Encode([]api.ChatSession{{ID: 1, Title: "renamed"}})
	case r.URL.Path == "/api/chat/sessions" && r.Method == http.MethodPost:
		_ = json.NewEncoder(w).Encode(api.ChatSession{ID: 1, Title: "new"})
	case r.URL.Path == "/api/chat/sessions/1" && r.Method == http.MethodGet:
		_ = json.NewEncoder(w).Encode(api.ChatTranscript{
			Session: api.ChatSession{ID: 1},
			Messages: []api.ChatMessage{
				{ID: 7, Role: "user", Content: "q", CreatedAt: "2024-05-01T10:00:00.123456"},
				{ID: 8, Role: "assistant", Content: "a"},
			},
		})
	case r.URL.Path == "/api/chat/sessions/1" && r.Method == http.MethodDelete:
		_ = json.NewEncoder(w).Encode(map[string]bool{"success": true})
	case r.URL.Path == "/api/chat/sessions/1/send":
		var req api.SendRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		switch req.Content {
		case "block":
			writeFrames(w, `{"type":"chunk","content":"partial"}`)
			close(s.started)
			select {
			case <-s.release:
			case <-r.Context().Done():
			}
		case "fail":
			writeFrames(w, `{"type":"chunk","content":"x"}`, `{"type":"error","message":"model offline"}`, `{"type":"done"}`)
		default:
			writeFrames(w,
				`{"type":"progress","stage":"fetch","message":"reading","paper_index":1,"total_papers":1}`,
				`{"type":"chunk","content":"Hello"}`,
				`{"type":"chunk","content":", world"}`,
				`{"type":"done"}`,
			)
		}
	case r.URL.Path == "/api/tasks/sync" && r.Method == http.MethodPost:
		if r.URL.Query().Get("years_back") == "20" {
			writeFrames(w, `{"type":"log","message":"starting sync"}`)
			close(s.started)
			select {
			case <-s.release:
			case <-r.Context().Done():
			}
			return
		}
		writeFrames(w,
			`{"type":"log","message":"years back: `+r.URL.Query().Get("years_back")+`"}`,
			`{"type":"log","message":"mode: force=`+r.URL.Query().Get("force")+`"}`,
			`{"type":"progress","current":1,"total":1}`,
			`{"type":"log","message":"added 3 papers"}`,
			`{"type":"done"}`,
		)
	case r.URL.Path == "/api/config/init/sync" && r.Method == http.MethodPost:
		writeFrames(w,
			`{"type":"log","message":"initial sync"}`,
			`{"type":"total","total":2}`,
			`{"type":"progress","current":1,"total":2,"added":4}`,
			`{"type":"progress","current":2,"total":2,"added":1}`,
			`{"type":"done","total_added":5,"total_papers":40}`,
		)
	case r.URL.Path == "/api/export/papers":
		_, _ = w.Write([]byte("@article{...}"))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestApp(t *testing.T, opts ...Option) (*App, *fakeServer) {
	t.Helper()
	fs := &fakeServer{started: make(chan struct{}), release: make(chan struct{})}
	srv := httptest.NewServer(fs)
	t.Cleanup(srv.Close)
	client := api.NewClient(srv.URL, api.WithHTTPClient(srv.Client()))
	opts = append([]Option{WithStreamHTTPClient(srv.Client())}, opts...)
	app := NewApp(client, opts...)
	t.Cleanup(app.Close)
	return app, fs
}

func TestContextInjection(t *testing.T) {
	_, err := FromContext(context.Background())
	require.Error(t, err)

	app, _ := newTestApp(t)
	got, err := FromContext(WithApp(context.Background(), app))
	require.NoError(t, err)
	require.Same(t, app, got)
}

func TestPaperStore_Search(t *testing.T) {
	app, _ := newTestApp(t)
	ctx := context.Background()

	res, err := app.Papers.Search(ctx, "  transformers ", 20)
	require.NoError(t, err)
	require.True(t, res.Done)

	st := app.Papers.SearchState()
	require.True(t, st.Done)
	require.Equal(t, 2, st.Total)
	require.Len(t, st.Results, 2)
	require.Equal(t, "2401.00002", st.Results[1].ArxivID)

	_, err = app.Papers.Search(ctx, "nothing", 20)
	require.NoError(t, err)
	st = app.Papers.SearchState()
	require.Empty(t, st.Results)
	require.Equal(t, projection.MsgNoMatches, st.Logs[len(st.Logs)-1].Message)

	res, err = app.Papers.Search(ctx, "   ", 20)
	require.NoError(t, err)
	require.Empty(t, res.SessionID)
	require.Equal(t, projection.MsgNoMatches, app.Papers.SearchState().Logs[len(st.Logs)-1].Message)
}

func TestPaperStore_QuickAndRecent(t *testing.T) {
	var observed atomic.Int32
	tap := stream.EventTapFunc(func(context.Context, stream.Observation) error {
		observed.Add(1)
		return nil
	})
	app, _ := newTestApp(t, WithTaps(tap))
	ctx := context.Background()

	_, err := app.Papers.Quick(ctx, "2401.00009")
	require.NoError(t, err)
	require.Len(t, app.Papers.QuickState().Results, 1)
	require.Empty(t, app.Papers.SearchState().Results)

	_, err = app.Papers.LoadRecentCache(ctx)
	require.NoError(t, err)
	cache := app.Papers.RecentCacheState()
	require.Equal(t, 1, cache.Loaded)
	require.Equal(t, 1, cache.Expected)
	require.True(t, app.Papers.NeedSync())

	_, err = app.Papers.UpdateRecent(ctx, 7, 64)
	require.NoError(t, err)
	up := app.Papers.RecentUpdateState()
	require.Equal(t, []string{"x1", "x2"}, []string{up.Papers[0].ArxivID, up.Papers[1].ArxivID})
	require.Equal(t, 2, up.Synced)
	require.False(t, app.Papers.NeedSync())

	require.Equal(t, int32(2+3+4), observed.Load())
}

func TestPaperStore_Cart(t *testing.T) {
	app, _ := newTestApp(t)
	p := app.Papers

	_, err := p.ExportCart(context.Background(), api.FormatBibTeX)
	require.ErrorIs(t, err, ErrEmptyCart)

	require.True(t, p.AddToCart(events.Paper{ID: 1, ArxivID: "a"}))
	require.False(t, p.AddToCart(events.Paper{ID: 1, ArxivID: "a", Title: "dup"}))
	require.True(t, p.AddToCart(events.Paper{ArxivID: "b"}))
	require.True(t, p.InCart("b"))
	require.Len(t, p.Cart(), 2)

	data, err := p.ExportCart(context.Background(), api.FormatBibTeX)
	require.NoError(t, err)
	require.Equal(t, "@article{...}", string(data))

	require.True(t, p.RemoveFromCart("a"))
	require.False(t, p.RemoveFromCart("a"))
	_, err = p.ExportCart(context.Background(), api.FormatBibTeX)
	require.ErrorIs(t, err, ErrEmptyCart)

	p.ClearCart()
	require.Empty(t, p.Cart())
}

func TestChatStore_SendStreamsReply(t *testing.T) {
	app, fs := newTestApp(t)
	ctx := context.Background()

	res, err := app.Chat.Send(ctx, "hi", []string{"2401.00001"}, "en")
	require.NoError(t, err)
	require.True(t, res.Done)

	cur, ok := app.Chat.Current()
	require.True(t, ok)
	require.Equal(t, int64(1), cur.ID)

	msgs := app.Chat.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, projection.RoleUser, msgs[0].Role)
	require.Equal(t, []string{"2401.00001"}, msgs[0].PaperIDs)
	require.Equal(t, projection.RoleAssistant, msgs[1].Role)
	require.Equal(t, "Hello, world", msgs[1].Content)
	require.False(t, msgs[1].Streaming)
	require.Nil(t, app.Chat.Progress())
	require.False(t, app.Chat.Typing())

	require.Equal(t, int32(1), fs.listCalls.Load())
	require.Equal(t, "renamed", app.Chat.Sessions()[0].Title)
}

func TestChatStore_InBandError(t *testing.T) {
	app, _ := newTestApp(t)
	_, err := app.Chat.Send(context.Background(), "fail", nil, "en")
	require.NoError(t, err)

	msgs := app.Chat.Messages()
	require.Equal(t, "**Error**: model offline", msgs[len(msgs)-1].Content)
}

func TestChatStore_BlankMessageIgnored(t *testing.T) {
	app, fs := newTestApp(t)
	res, err := app.Chat.Send(context.Background(), "  ", nil, "en")
	require.NoError(t, err)
	require.Empty(t, res.SessionID)
	require.Empty(t, app.Chat.Messages())
	_, ok := app.Chat.Current()
	require.False(t, ok)
	require.Zero(t, fs.listCalls.Load())
}

func TestChatStore_BusyAndCancel(t *testing.T) {
	app, fs := newTestApp(t)
	ctx := context.Background()

	type outcome struct {
		res stream.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := app.Chat.Send(ctx, "block", nil, "en")
		done <- outcome{res, err}
	}()

	select {
	case <-fs.started:
	case <-time.After(2 * time.Second):
		t.Fatal("send did not start")
	}
	require.Eventually(t, func() bool {
		msgs := app.Chat.Messages()
		return len(msgs) == 2 && msgs[1].Content == "partial"
	}, 2*time.Second, 5*time.Millisecond)
	require.True(t, app.Chat.Typing())
	require.True(t, app.Chat.Messages()[1].Streaming)

	_, err := app.Chat.Send(ctx, "second", nil, "en")
	require.ErrorIs(t, err, ErrChatBusy)

	app.Chat.Cancel()
	out := <-done
	require.NoError(t, out.err)
	require.True(t, out.res.Cancelled)

	msgs := app.Chat.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, "partial", msgs[1].Content)
	require.False(t, msgs[1].Streaming)
	require.Zero(t, fs.listCalls.Load())
}

func TestChatStore_SessionsLifecycle(t *testing.T) {
	app, _ := newTestApp(t)
	ctx := context.Background()

	_, err := app.Chat.NewSession(ctx)
	require.NoError(t, err)
	require.Len(t, app.Chat.Sessions(), 1)

	require.NoError(t, app.Chat.SelectSession(ctx, 1))
	msgs := app.Chat.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, "7", msgs[0].ID)
	require.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 123456000, time.UTC), msgs[0].CreatedAt)
	require.True(t, msgs[1].CreatedAt.IsZero())

	require.NoError(t, app.Chat.ClearAll(ctx))
	require.Empty(t, app.Chat.Sessions())
	_, ok := app.Chat.Current()
	require.False(t, ok)
	require.Empty(t, app.Chat.Messages())

	require.Error(t, app.Chat.SelectSession(ctx, 99))
}
