// Package execlog journals terminal engine events (fires, failures,
// cancellations, chained closes) to SQLite for later inspection. It is an
// append-only outcome log; nothing is ever restored from it.
package execlog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Action values recorded per entry.
const (
	ActionFire      = "fire"
	ActionCancel    = "cancel"
	ActionTimeClose = "time_close"
	ActionFillClose = "fill_close"
)

type Entry struct {
	ID       int64     `json:"id"`
	Time     time.Time `json:"time"`
	RecordID string    `json:"record_id"`
	Symbol   string    `json:"symbol"`
	Action   string    `json:"action"`
	Status   string    `json:"status"`
	OrderID  int64     `json:"order_id,omitempty"`
	DriftMs  int64     `json:"drift_ms,omitempty"`
	Error    string    `json:"error,omitempty"`
}

type Store struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("execution log path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)
	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

func ensureSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS executions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	ts INTEGER NOT NULL,
	record_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	action TEXT NOT NULL,
	status TEXT NOT NULL,
	order_id INTEGER NOT NULL DEFAULT 0,
	drift_ms INTEGER NOT NULL DEFAULT 0,
	error TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_executions_record ON executions(record_id);
CREATE INDEX IF NOT EXISTS idx_executions_ts ON executions(ts);`)
	return err
}

func (s *Store) Append(ctx context.Context, e Entry) error {
	if s == nil {
		return nil
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return fmt.Errorf("execution log is closed")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO executions (ts, record_id, symbol, action, status, order_id, drift_ms, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Time.UnixMilli(), e.RecordID, e.Symbol, e.Action, e.Status, e.OrderID, e.DriftMs, e.Error)
	return err
}

func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if s == nil {
		return nil, nil
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, fmt.Errorf("execution log is closed")
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ts, record_id, symbol, action, status, order_id, drift_ms, error
		 FROM executions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		var ts int64
		if err := rows.Scan(&e.ID, &ts, &e.RecordID, &e.Symbol, &e.Action, &e.Status, &e.OrderID, &e.DriftMs, &e.Error); err != nil {
			return nil, err
		}
		e.Time = time.UnixMilli(ts)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
