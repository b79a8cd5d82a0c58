/*
Package sqlite provides SQLite-backed persistence for the safety board.

PURPOSE:

	The board persists one JSON snapshot document per calendar year plus a
	handful of independently keyed scalar preferences (the kiosk font
	scale). This package owns the raw storage; shape validation of the
	document lives in the persist package, which treats everything read
	here as untrusted input.

KEY TABLES:

	board_snapshots:  year-keyed JSON documents (last write wins)
	preferences:      independently keyed scalar settings

CONCURRENCY:

	Uses sync.RWMutex for thread-safety. SQLite is opened with WAL mode
	for better crash recovery on kiosk hardware that loses power.

USAGE:

	store, err := sqlite.New("./data/board.db")
	if err != nil {
	    log.Fatal(err)
	}
	defer store.Close()

MIGRATION:

	Schema is auto-migrated on New(). Use ":memory:" for tests.

SEE ALSO:
  - persist/snapshot.go: document decoding and defaults
  - persist/saver.go: debounced writes
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store implements snapshot and preference storage using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- One snapshot document per calendar year
	CREATE TABLE IF NOT EXISTS board_snapshots (
		year INTEGER PRIMARY KEY,
		doc TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Independently keyed scalar preferences (font scale, etc.)
	CREATE TABLE IF NOT EXISTS preferences (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// LoadSnapshot returns the raw snapshot document for year, or nil when no
// document exists. The caller is responsible for validating the contents.
func (s *Store) LoadSnapshot(ctx context.Context, year int) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var doc string
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM board_snapshots WHERE year = ?`, year).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot for %d: %w", year, err)
	}
	return []byte(doc), nil
}

// SaveSnapshot upserts the snapshot document for year. Last write wins.
func (s *Store) SaveSnapshot(ctx context.Context, year int, doc []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO board_snapshots (year, doc, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(year) DO UPDATE SET
			doc = excluded.doc,
			updated_at = excluded.updated_at`,
		year, string(doc), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save snapshot for %d: %w", year, err)
	}
	return nil
}

// GetPreference returns the value for key and whether it was set.
func (s *Store) GetPreference(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM preferences WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get preference %q: %w", key, err)
	}
	return value, true, nil
}

// SetPreference upserts a scalar preference.
func (s *Store) SetPreference(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO preferences (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to set preference %q: %w", key, err)
	}
	return nil
}
