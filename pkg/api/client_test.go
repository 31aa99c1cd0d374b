package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type recorded struct {
	Method string
	Path   string
	Query  string
	Body   string
}

type recorder struct {
	mu    sync.Mutex
	calls []recorded
}

func (r *recorder) at(i int) recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[i]
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func newServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*Client, *recorder) {
	t.Helper()
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		rec.mu.Lock()
		rec.calls = append(rec.calls, recorded{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Body: string(b)})
		rec.mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", WithHTTPClient(srv.Client())), rec
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestParams_DropsEmpty(t *testing.T) {
	require.Equal(t, "limit=20&q=graph+neural", Params{"q": "graph neural", "limit": "20", "days": ""}.Encode())
	require.Empty(t, Params{"a": ""}.Encode())
	require.Empty(t, Params(nil).Encode())
}

func TestStatusError_Detail(t *testing.T) {
	c, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Session not found"}`))
	})
	_, err := c.Chat.Get(context.Background(), 9)
	require.Error(t, err)
	require.True(t, IsNotFound(err))
	require.Contains(t, err.Error(), "Session not found")
	require.Contains(t, err.Error(), "/chat/sessions/9")
}

func TestChatService(t *testing.T) {
	c, calls := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/chat/sessions":
			writeJSON(w, []ChatSession{{ID: 2, Title: "b"}, {ID: 1, Title: "a"}})
		case r.Method == http.MethodPost && r.URL.Path == "/api/chat/sessions":
			writeJSON(w, ChatSession{ID: 3, Title: "new"})
		case r.Method == http.MethodGet && r.URL.Path == "/api/chat/sessions/3":
			writeJSON(w, ChatTranscript{
				Session:  ChatSession{ID: 3},
				Messages: []ChatMessage{{ID: 10, SessionID: 3, Role: "user", Content: "hi", PaperIDs: []string{"2401.00001"}}},
			})
		case r.Method == http.MethodDelete:
			writeJSON(w, map[string]bool{"success": true})
		default:
			w.WriteHeader(http.StatusTeapot)
		}
	})
	ctx := context.Background()

	list, err := c.Chat.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)

	s, err := c.Chat.Create(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(3), s.ID)

	tr, err := c.Chat.Get(ctx, 3)
	require.NoError(t, err)
	require.Len(t, tr.Messages, 1)
	require.Equal(t, []string{"2401.00001"}, tr.Messages[0].PaperIDs)

	require.NoError(t, c.Chat.Delete(ctx, 3))
	require.Equal(t, "/api/chat/sessions/3", calls.at(3).Path)
	require.Equal(t, http.MethodDelete, calls.at(3).Method)
}

func TestChatSendEndpoint(t *testing.T) {
	c := NewClient("http://pulse.test")
	ep, err := c.Chat.Send(7, SendRequest{Content: "summarize", Language: "en"})
	require.NoError(t, err)
	require.Equal(t, http.MethodPost, ep.Method)
	require.Equal(t, "http://pulse.test/api/chat/sessions/7/send", ep.URL)
	require.JSONEq(t, `{"content":"summarize","paper_ids":[],"language":"en"}`, string(ep.Body))
	require.Equal(t, "application/json", ep.Header.Get("Content-Type"))
}

func TestPaperStreamEndpoints(t *testing.T) {
	c := NewClient("http://pulse.test/")
	require.Equal(t, "http://pulse.test/api/papers/search/stream?limit=20&q=diffusion+models", c.Papers.SearchStream("diffusion models", 20).URL)
	require.Equal(t, "http://pulse.test/api/papers/quick?q=2401.12345", c.Papers.Quick("2401.12345").URL)
	require.Equal(t, "http://pulse.test/api/papers/recent/cache/stream", c.Papers.RecentCacheStream().URL)

	up := c.Papers.RecentUpdate(7, 0)
	require.Equal(t, http.MethodPost, up.Method)
	require.Equal(t, "http://pulse.test/api/papers/recent/update?days=7", up.URL)

	pdf, err := c.Papers.PDFURL("2401.12345")
	require.NoError(t, err)
	require.Equal(t, "http://pulse.test/api/papers/pdf/2401.12345", pdf)
	_, err = c.Papers.PDFURL("")
	require.Error(t, err)
}

func TestSyncStreamEndpoints(t *testing.T) {
	c := NewClient("http://pulse.test")

	job := c.Tasks.Sync(5, true)
	require.Equal(t, http.MethodPost, job.Method)
	require.Equal(t, "http://pulse.test/api/tasks/sync?force=true&years_back=5", job.URL)
	require.Equal(t, "http://pulse.test/api/tasks/sync?force=false", c.Tasks.Sync(0, false).URL)

	initSync := c.Config.InitSync()
	require.Equal(t, http.MethodPost, initSync.Method)
	require.Equal(t, "http://pulse.test/api/config/init/sync", initSync.URL)
	require.Nil(t, initSync.Body)
}

func TestCollectionsService(t *testing.T) {
	c, calls := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/collections":
			if r.Method == http.MethodGet {
				writeJSON(w, []Collection{{ID: 1, Name: "reading", PaperCount: 4}})
				return
			}
			writeJSON(w, Collection{ID: 2, Name: "new"})
		case "/api/collections/1/papers":
			writeJSON(w, CollectionPage{TotalCount: 21, Page: 2, PageSize: 20, TotalPages: 2})
		default:
			writeJSON(w, Object{"success": true})
		}
	})
	ctx := context.Background()

	list, err := c.Collections.List(ctx)
	require.NoError(t, err)
	require.Equal(t, 4, list[0].PaperCount)

	created, err := c.Collections.Create(ctx, CollectionInput{Name: "new"})
	require.NoError(t, err)
	require.Equal(t, int64(2), created.ID)
	require.JSONEq(t, `{"name":"new"}`, calls.at(1).Body)

	page, err := c.Collections.Papers(ctx, 1, PageQuery{Page: 2, Search: "llm"})
	require.NoError(t, err)
	require.Equal(t, 2, page.TotalPages)
	require.Equal(t, "page=2&search=llm", calls.at(2).Query)

	_, err = c.Collections.AddPapersBatch(ctx, 1, []int64{5, 6})
	require.NoError(t, err)
	require.JSONEq(t, `{"paper_ids":[5,6]}`, calls.at(3).Body)

	_, err = c.Collections.Merge(ctx, 1, 2)
	require.NoError(t, err)
	require.Equal(t, "/api/collections/1/merge", calls.at(4).Path)
	require.JSONEq(t, `{"target_collection_id":2}`, calls.at(4).Body)

	require.NoError(t, c.Collections.RemovePaper(ctx, 1, 5))
	require.Equal(t, "/api/collections/1/papers/5", calls.at(5).Path)
}

func TestExportService(t *testing.T) {
	c, calls := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("# Papers\n"))
	})
	ctx := context.Background()

	_, err := c.Export.Papers(ctx, nil, "")
	require.Error(t, err)
	require.Zero(t, calls.len())

	data, err := c.Export.Papers(ctx, []int64{1, 2}, "")
	require.NoError(t, err)
	require.Equal(t, "# Papers\n", string(data))
	require.JSONEq(t, `{"paper_ids":[1,2],"format":"markdown","include_summary":true}`, calls.at(0).Body)

	require.Equal(t, "md", FileExtension(FormatMarkdown))
	require.Equal(t, "bib", FileExtension(FormatBibTeX))
	require.Equal(t, "json", FileExtension(FormatJSON))
}

func TestCacheClear(t *testing.T) {
	c, calls := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, Object{"cleared": true})
	})
	out, err := c.Cache.Clear(context.Background(), "translation")
	require.NoError(t, err)
	require.Equal(t, true, out["cleared"])
	require.JSONEq(t, `{"cache_type":"translation"}`, calls.at(0).Body)
}
