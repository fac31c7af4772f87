// Package store implements the durable SQLite-backed Store for the
// orchestration core: projects, phases, tasks, dependencies, sessions,
// events, and bootstrap checks.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"terminal-coder/internal/logging"
)

// Store wraps a single-writer SQLite connection. Every call to Open returns
// a fresh handle bound to the same on-disk file - callers that need a
// short-lived handle (the Reporting Channel) are expected to Open and Close
// around a single operation rather than share a long-lived Store.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Open creates (if needed) and opens the SQLite database at path, applying
// schema and migrations. Mirrors the teacher's NewLocalStore: WAL journal
// mode, a busy timeout so concurrent short-lived handles don't immediately
// fail, and a single open connection since SQLite serializes writers anyway.
func Open(path string) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Open")
	defer timer.Stop()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			logging.StoreDebug("failed to set pragma %q: %v", pragma, err)
		}
	}

	if _, err := db.Exec(schemaDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB, for callers that need to run a
// transaction spanning multiple Store calls.
func (s *Store) DB() *sql.DB {
	return s.db
}
