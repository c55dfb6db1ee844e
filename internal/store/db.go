// Package store persists discovered businesses and harvested emails in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps the SQLite handle
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS businesses (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	business_name TEXT NOT NULL,
	website       TEXT NOT NULL DEFAULT '',
	category      TEXT NOT NULL DEFAULT '',
	address       TEXT NOT NULL DEFAULT '',
	phone         TEXT NOT NULL DEFAULT '',
	city          TEXT NOT NULL,
	keyword       TEXT NOT NULL DEFAULT '',
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE (business_name, website, city)
);

CREATE TABLE IF NOT EXISTS emails (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	business_id INTEGER NOT NULL REFERENCES businesses(id) ON DELETE CASCADE,
	email       TEXT NOT NULL,
	source_page TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE (business_id, email)
);

CREATE INDEX IF NOT EXISTS idx_businesses_keyword_city ON businesses (keyword, city);
CREATE INDEX IF NOT EXISTS idx_emails_business ON emails (business_id);
`

// Open opens (creating if needed) the database at path and applies the schema
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	// modernc sqlite uses DSN like: file:foo.db?_pragma=busy_timeout(5000)
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_time_format=sqlite", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// one writer; readers from the API queue behind it for at most busy_timeout
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
