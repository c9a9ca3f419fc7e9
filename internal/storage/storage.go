// Package storage persists visitor preferences, privacy-preserving visit
// records and contact submissions in sqlite.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the sqlite handle shared by the site.
type DB struct {
	sql *sql.DB
	now func() time.Time
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS preferences (
		visitor_id TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (visitor_id, key)
	)`,
	`CREATE TABLE IF NOT EXISTS visitors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		hashed_ip TEXT NOT NULL, -- never the raw address
		user_agent TEXT,
		path TEXT,
		visited_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_visitors_visited_at ON visitors (visited_at)`,
	`CREATE TABLE IF NOT EXISTS contact_messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		subject TEXT,
		status TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`,
}

// Open opens (creating if needed) the database at path and applies the
// schema. ":memory:" gives a private in-memory database.
func Open(path string) (*DB, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
	}

	handle, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// One connection: sqlite serialises writers anyway, and ":memory:"
	// databases are per connection.
	handle.SetMaxOpenConns(1)

	db := &DB{sql: handle, now: time.Now}
	if err := db.migrate(); err != nil {
		_ = handle.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) migrate() error {
	for _, stmt := range migrations {
		if _, err := db.sql.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Ping reports whether the database is reachable.
func (db *DB) Ping() error {
	return db.sql.Ping()
}

func (db *DB) Close() error {
	return db.sql.Close()
}
