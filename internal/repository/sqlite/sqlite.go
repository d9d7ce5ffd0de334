// Package sqlite is the embedded single-file backend for every store.
package sqlite

import (
	"database/sql"
	"fmt"
	"moodwave/internal/logger"
	"moodwave/internal/repository/db"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS observations (
	seq             INTEGER PRIMARY KEY AUTOINCREMENT,
	id              TEXT NOT NULL UNIQUE,
	user_id         TEXT NOT NULL,
	ts              TEXT NOT NULL,
	mood            REAL,
	sleep_time      REAL,
	to_sleep_time   REAL,
	training_time   REAL,
	weight          REAL,
	typing_speed    REAL,
	typing_accuracy REAL
);

CREATE INDEX IF NOT EXISTS idx_observations_user_ts ON observations (user_id, ts, seq);

CREATE TABLE IF NOT EXISTS models (
	user_id      TEXT PRIMARY KEY,
	kind         TEXT NOT NULL,
	data         BLOB NOT NULL,
	trained_rows INTEGER NOT NULL,
	version      INTEGER NOT NULL,
	trained_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS training_runs (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	id          TEXT NOT NULL UNIQUE,
	user_id     TEXT NOT NULL,
	history_len INTEGER NOT NULL,
	decision    TEXT NOT NULL,
	reason      TEXT NOT NULL DEFAULT '',
	created_at  TEXT NOT NULL
);
`

// timeLayout is fixed-width so lexical order matches chronological order.
// Readers still sort in Go because legacy rows may use any RFC 3339 offset.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

var _ db.Database = (*Store)(nil)

// Store implements db.Database on a SQLite file
type Store struct {
	db *sql.DB
}

// NewStore opens (creating if needed) a SQLite database and applies the schema
func NewStore(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// one connection keeps the pragmas in effect and serializes writers
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("pragma busy_timeout: %w", err)
	}
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Log.WithField("path", dbPath).Info("Opened SQLite store")

	return &Store{db: conn}, nil
}

// Close closes the underlying database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		// rows written by hand or by older tools
		t, err = time.Parse(time.RFC3339Nano, s)
	}
	return t.UTC(), err
}
