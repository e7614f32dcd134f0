// Package history persists chat sessions in SQLite.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/i2y/indexpilot/chat"
	"github.com/i2y/indexpilot/llm"
)

// SQLiteStore records committed turns. It implements chat.Recorder.
type SQLiteStore struct {
	path string

	mu sync.Mutex
	db *sql.DB
}

var _ chat.Recorder = (*SQLiteStore)(nil)

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode=WAL;`); err != nil {
		_ = db.Close()
		return err
	}

	schema := `
CREATE TABLE IF NOT EXISTS messages (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  session_id TEXT NOT NULL,
  seq INTEGER NOT NULL,
  role TEXT NOT NULL,
  content TEXT NOT NULL DEFAULT '',
  name TEXT NOT NULL DEFAULT '',
  tool_call_id TEXT NOT NULL DEFAULT '',
  tool_calls TEXT NOT NULL DEFAULT '',
  created_unix INTEGER NOT NULL DEFAULT 0,
  UNIQUE(session_id, seq)
);

CREATE TABLE IF NOT EXISTS invocations (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  session_id TEXT NOT NULL,
  call_id TEXT NOT NULL DEFAULT '',
  name TEXT NOT NULL,
  arguments TEXT NOT NULL DEFAULT '{}',
  result TEXT NOT NULL DEFAULT '',
  error TEXT NOT NULL DEFAULT '',
  success INTEGER NOT NULL DEFAULT 0,
  ts_unix_ms INTEGER NOT NULL,
  duration_ms INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_invocations_session ON invocations(session_id);
`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

// RecordTurn appends the messages and invocations of one turn atomically.
func (s *SQLiteStore) RecordTurn(ctx context.Context, sessionID string, messages []llm.Message, invocations []chat.Invocation) error {
	db, err := s.ensureDB(ctx)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var next int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM messages WHERE session_id = ?`, sessionID,
	).Scan(&next); err != nil {
		return err
	}

	now := time.Now().Unix()
	for _, m := range messages {
		next++
		calls := ""
		if len(m.ToolCalls) > 0 {
			b, err := json.Marshal(m.ToolCalls)
			if err != nil {
				return fmt.Errorf("encoding tool calls: %w", err)
			}
			calls = string(b)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO messages(session_id, seq, role, content, name, tool_call_id, tool_calls, created_unix)
			 VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
			sessionID, next, string(m.Role), m.Content, m.Name, m.ToolID, calls, now,
		); err != nil {
			return err
		}
	}

	for _, inv := range invocations {
		args, err := json.Marshal(inv.Arguments)
		if err != nil {
			return fmt.Errorf("encoding arguments of %s: %w", inv.Name, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO invocations(session_id, call_id, name, arguments, result, error, success, ts_unix_ms, duration_ms)
			 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sessionID, inv.CallID, inv.Name, string(args), inv.Result, inv.Error,
			boolToInt(inv.Success), inv.Timestamp.UnixMilli(), inv.Duration.Milliseconds(),
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Messages returns the recorded conversation of a session in order.
func (s *SQLiteStore) Messages(ctx context.Context, sessionID string) ([]llm.Message, error) {
	db, err := s.ensureDB(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT role, content, name, tool_call_id, tool_calls FROM messages WHERE session_id = ? ORDER BY seq`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []llm.Message
	for rows.Next() {
		var (
			m     llm.Message
			role  string
			calls string
		)
		if err := rows.Scan(&role, &m.Content, &m.Name, &m.ToolID, &calls); err != nil {
			return nil, err
		}
		m.Role = llm.Role(role)
		if calls != "" {
			if err := json.Unmarshal([]byte(calls), &m.ToolCalls); err != nil {
				return nil, fmt.Errorf("decoding tool calls: %w", err)
			}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Invocations returns the recorded invocations of a session in order.
func (s *SQLiteStore) Invocations(ctx context.Context, sessionID string) ([]chat.Invocation, error) {
	db, err := s.ensureDB(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT call_id, name, arguments, result, error, success, ts_unix_ms, duration_ms
		 FROM invocations WHERE session_id = ? ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []chat.Invocation
	for rows.Next() {
		var (
			inv     chat.Invocation
			args    string
			success int
			tsMS    int64
			durMS   int64
		)
		if err := rows.Scan(&inv.CallID, &inv.Name, &args, &inv.Result, &inv.Error, &success, &tsMS, &durMS); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(args), &inv.Arguments); err != nil {
			return nil, fmt.Errorf("decoding arguments: %w", err)
		}
		inv.Success = success == 1
		inv.Timestamp = time.UnixMilli(tsMS)
		inv.Duration = time.Duration(durMS) * time.Millisecond
		out = append(out, inv)
	}
	return out, rows.Err()
}

// Sessions lists recorded session ids, most recent first.
func (s *SQLiteStore) Sessions(ctx context.Context) ([]string, error) {
	db, err := s.ensureDB(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT session_id FROM messages GROUP BY session_id ORDER BY MAX(id) DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) ensureDB(ctx context.Context) (*sql.DB, error) {
	if err := s.Init(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, errors.New("sqlite db not initialized")
	}
	return s.db, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
