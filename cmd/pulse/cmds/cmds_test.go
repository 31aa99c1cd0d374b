package cmds

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func pulseServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/papers/search/stream":
			w.Header().Set("Content-Type", "text/event-stream")
			for _, f := range []string{
				`{"type":"log","message":"searching"}`,
				`{"type":"total","total":1}`,
				`{"type":"result","paper":{"id":3,"arxiv_id":"2401.00003","title":"Sparse Attention"}}`,
				`{"type":"done","total":1}`,
			} {
				_, _ = fmt.Fprintf(w, "data: %s\n\n", f)
			}
		case "/api/tasks/sync", "/api/config/init/sync":
			w.Header().Set("Content-Type", "text/event-stream")
			for _, f := range []string{
				`{"type":"log","message":"sync ` + r.URL.RawQuery + `"}`,
				`{"type":"progress","current":1,"total":1,"added":2}`,
				`{"type":"done","total_added":2}`,
			} {
				_, _ = fmt.Fprintf(w, "data: %s\n\n", f)
			}
		case "/api/collections":
			_, _ = w.Write([]byte(`[{"id":1,"name":"a","paper_count":0},{"id":2,"name":"b","paper_count":5}]`))
		case "/api/collections/1/merge":
			_, _ = w.Write([]byte(`{"success":true}`))
		case "/api/config/status", "/api/stats", "/api/tasks/status":
			_, _ = w.Write([]byte(`{"ok":true}`))
		case "/api/export/papers":
			_, _ = w.Write([]byte("exported"))
		default:
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"detail":"boom"}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("PULSE_BASE_URL", "")
	t.Setenv("PULSE_LANGUAGE", "")
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSearchCommand(t *testing.T) {
	srv := pulseServer(t)
	out, err := run(t, "--base-url", srv.URL, "search", "sparse", "attention")
	require.NoError(t, err)
	require.Contains(t, out, "[info] searching")
	require.Contains(t, out, "1. 2401.00003 Sparse Attention")
}

func TestSearchCommand_ExportsCart(t *testing.T) {
	srv := pulseServer(t)
	out, err := run(t, "--base-url", srv.URL, "search", "sparse", "--export", "bibtex")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(out, "exported"))
}

func TestHistoryCommand_ReadsEventLog(t *testing.T) {
	srv := pulseServer(t)
	db := filepath.Join(t.TempDir(), "events.db")

	_, err := run(t, "--base-url", srv.URL, "--event-log", db, "search", "sparse")
	require.NoError(t, err)

	out, err := run(t, "--base-url", srv.URL, "--event-log", db, "history")
	require.NoError(t, err)
	require.Contains(t, out, "search")
	require.Contains(t, out, "4 events  done")

	sessionID := strings.Fields(out)[0]
	out, err = run(t, "--base-url", srv.URL, "--event-log", db, "history", sessionID)
	require.NoError(t, err)
	require.Contains(t, out, "   2  total 1")
	require.Contains(t, out, "   4  done")
}

func TestHistoryCommand_RequiresEventLog(t *testing.T) {
	srv := pulseServer(t)
	_, err := run(t, "--base-url", srv.URL, "history")
	require.ErrorContains(t, err, "no event log configured")
}

func TestStatusCommand_ReportsPerCallErrors(t *testing.T) {
	srv := pulseServer(t)
	out, err := run(t, "--base-url", srv.URL, "status")
	require.NoError(t, err)
	require.Contains(t, out, "server: "+srv.URL)
	require.Contains(t, out, "ok: true")
	require.Contains(t, out, "boom")
}

func TestExportCommand_Validation(t *testing.T) {
	srv := pulseServer(t)
	_, err := run(t, "--base-url", srv.URL, "export")
	require.Error(t, err)
	_, err = run(t, "--base-url", srv.URL, "export", "--collection", "1", "--papers", "2")
	require.Error(t, err)

	out, err := run(t, "--base-url", srv.URL, "export", "--papers", "1,2")
	require.NoError(t, err)
	require.Equal(t, "exported", out)
}

func TestWatchCommand_NeedsRedis(t *testing.T) {
	srv := pulseServer(t)
	_, err := run(t, "--base-url", srv.URL, "watch")
	require.ErrorContains(t, err, "--redis-enabled")
}

func TestBadBaseURL(t *testing.T) {
	_, err := run(t, "--base-url", "ftp://nope", "search", "x")
	require.Error(t, err)
}

func TestSyncCommand(t *testing.T) {
	srv := pulseServer(t)
	out, err := run(t, "--base-url", srv.URL, "sync", "--years-back", "3", "--force")
	require.NoError(t, err)
	require.Contains(t, out, "[info] sync force=true&years_back=3")
	require.Contains(t, out, "[success] sync completed")
	require.Contains(t, out, "added 2 papers")

	out, err = run(t, "--base-url", srv.URL, "sync", "--init")
	require.NoError(t, err)
	require.Contains(t, out, "[success] sync completed")

	_, err = run(t, "--base-url", srv.URL, "sync", "--years-back", "40")
	require.Error(t, err)
	_, err = run(t, "--base-url", srv.URL, "sync", "--init", "--force")
	require.Error(t, err)
}

func TestCollectionsCommands(t *testing.T) {
	srv := pulseServer(t)
	out, err := run(t, "--base-url", srv.URL, "collections", "merge", "1", "2")
	require.NoError(t, err)
	require.Contains(t, out, "success: true")

	_, err = run(t, "--base-url", srv.URL, "collections", "merge", "1", "1")
	require.Error(t, err)
	_, err = run(t, "--base-url", srv.URL, "collections", "update", "1")
	require.Error(t, err)
	_, err = run(t, "--base-url", srv.URL, "collections", "remove", "1", "x")
	require.Error(t, err)
}
