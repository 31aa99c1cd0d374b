// Package eventlog records stream sessions and their decoded events in SQLite.
package eventlog

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/go-go-golems/pulse/pkg/stream"
)

// SessionRecord is one row of the sessions table.
type SessionRecord struct {
	ID          string
	Slot        string
	Method      string
	URL         string
	StartedAtMs int64
	EndedAtMs   int64
	Events      int
	Dropped     int
	Done        bool
	Cancelled   bool
	Error       string
}

// EventRecord is one row of the stream_events table.
type EventRecord struct {
	SessionID    string
	Seq          uint64
	Kind         string
	Payload      []byte
	ObservedAtMs int64
}

// SQLiteStore is a stream.Tap that persists what it observes.
type SQLiteStore struct {
	db *sql.DB
}

var _ stream.Tap = &SQLiteStore{}

func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	if dsn == "" {
		return nil, errors.New("sqlite event log: empty dsn")
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Open opens (creating if needed) the event log at path.
func Open(path string) (*SQLiteStore, error) {
	dsn, err := DSNForFile(path)
	if err != nil {
		return nil, err
	}
	return NewSQLiteStore(dsn)
}

func DSNForFile(path string) (string, error) {
	if path == "" {
		return "", errors.New("sqlite event log: empty path")
	}
	// WAL for concurrent readers + writer. busy_timeout to avoid transient SQLITE_BUSY.
	return fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", path), nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	if s == nil || s.db == nil {
		return errors.New("sqlite event log: db is nil")
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
		  id TEXT PRIMARY KEY,
		  slot TEXT NOT NULL DEFAULT '',
		  method TEXT NOT NULL DEFAULT '',
		  url TEXT NOT NULL DEFAULT '',
		  started_at_ms INTEGER NOT NULL,
		  ended_at_ms INTEGER NOT NULL DEFAULT 0,
		  events INTEGER NOT NULL DEFAULT 0,
		  dropped INTEGER NOT NULL DEFAULT 0,
		  done INTEGER NOT NULL DEFAULT 0,
		  cancelled INTEGER NOT NULL DEFAULT 0,
		  error TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE INDEX IF NOT EXISTS sessions_by_started
		  ON sessions(started_at_ms DESC, id ASC);`,
		`CREATE TABLE IF NOT EXISTS stream_events (
		  session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		  seq INTEGER NOT NULL,
		  kind TEXT NOT NULL,
		  payload TEXT NOT NULL,
		  observed_at_ms INTEGER NOT NULL,
		  PRIMARY KEY (session_id, seq)
		);`,
	}
	for _, st := range stmts {
		if _, err := s.db.Exec(st); err != nil {
			return errors.Wrap(err, "sqlite event log: migrate")
		}
	}
	return nil
}

func (s *SQLiteStore) SessionStarted(ctx context.Context, info stream.SessionInfo) error {
	if info.ID == "" {
		return errors.New("sqlite event log: session id is empty")
	}
	started := info.Started
	if started == 0 {
		started = time.Now().UnixMilli()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, slot, method, url, started_at_ms)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, info.ID, info.Slot, info.Method, info.URL, started)
	if err != nil {
		return errors.Wrap(err, "sqlite event log: insert session")
	}
	return nil
}

func (s *SQLiteStore) EventObserved(ctx context.Context, obs stream.Observation) error {
	if obs.Event == nil {
		return nil
	}
	seq, err := uint64ToInt64(obs.Seq)
	if err != nil {
		return errors.Wrap(err, "sqlite event log: seq overflow")
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO stream_events (session_id, seq, kind, payload, observed_at_ms)
		VALUES (?, ?, ?, ?, ?)
	`, obs.Session.ID, seq, string(obs.Event.Kind()), string(obs.Event.Raw()), time.Now().UnixMilli())
	if err != nil {
		return errors.Wrap(err, "sqlite event log: insert event")
	}
	return nil
}

func (s *SQLiteStore) SessionEnded(ctx context.Context, info stream.SessionInfo, res stream.Result, runErr error) error {
	errText := ""
	if runErr != nil {
		errText = runErr.Error()
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET
		  ended_at_ms = ?, events = ?, dropped = ?, done = ?, cancelled = ?, error = ?
		WHERE id = ?
	`, time.Now().UnixMilli(), res.Events, res.Dropped, boolToInt(res.Done), boolToInt(res.Cancelled), errText, info.ID)
	if err != nil {
		return errors.Wrap(err, "sqlite event log: update session")
	}
	return nil
}

// ListSessions returns the most recent sessions first. limit <= 0 means all.
func (s *SQLiteStore) ListSessions(ctx context.Context, limit int) ([]SessionRecord, error) {
	q := `SELECT id, slot, method, url, started_at_ms, ended_at_ms, events, dropped, done, cancelled, error
		FROM sessions ORDER BY started_at_ms DESC, id ASC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite event log: list sessions")
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []SessionRecord
	for rows.Next() {
		var r SessionRecord
		var done, cancelled int
		if err := rows.Scan(&r.ID, &r.Slot, &r.Method, &r.URL, &r.StartedAtMs, &r.EndedAtMs,
			&r.Events, &r.Dropped, &done, &cancelled, &r.Error); err != nil {
			return nil, err
		}
		r.Done = done != 0
		r.Cancelled = cancelled != 0
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Events returns a session's events in sequence order.
func (s *SQLiteStore) Events(ctx context.Context, sessionID string) ([]EventRecord, error) {
	if sessionID == "" {
		return nil, errors.New("sqlite event log: session id is empty")
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, seq, kind, payload, observed_at_ms
		FROM stream_events WHERE session_id = ? ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite event log: query events")
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []EventRecord
	for rows.Next() {
		var r EventRecord
		var seq int64
		var payload string
		if err := rows.Scan(&r.SessionID, &seq, &r.Kind, &payload, &r.ObservedAtMs); err != nil {
			return nil, err
		}
		if seq < 0 {
			return nil, errors.Errorf("sqlite event log: negative seq %d", seq)
		}
		r.Seq = uint64(seq)
		r.Payload = []byte(payload)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func uint64ToInt64(v uint64) (int64, error) {
	if v > math.MaxInt64 {
		return 0, errors.Errorf("value %d overflows int64", v)
	}
	return int64(v), nil
}
