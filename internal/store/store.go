// Package store persists the operation history (completed installs,
// uninstalls, updates) in a local SQLite database.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
    id TEXT PRIMARY KEY,
    package TEXT NOT NULL,
    operation TEXT NOT NULL,
    success BOOLEAN NOT NULL,
    duration_ms INTEGER NOT NULL,
    output TEXT,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_package ON events(package);
CREATE INDEX IF NOT EXISTS idx_events_created ON events(created_at);
`

// Event is one terminal operation outcome.
type Event struct {
	ID        string
	PackageID string
	Operation string
	Success   bool
	Duration  time.Duration
	Output    string // failure output tail; empty on success
	CreatedAt time.Time
}

// Store provides SQLite operations for the history database.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the history database at dbPath. Use ":memory:" for
// tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// RecordEvent inserts one event.
func (s *Store) RecordEvent(ev Event) error {
	_, err := s.db.Exec(`
		INSERT INTO events (id, package, operation, success, duration_ms, output, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.ID,
		ev.PackageID,
		ev.Operation,
		ev.Success,
		ev.Duration.Milliseconds(),
		ev.Output,
		ev.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert event for %s: %w", ev.PackageID, err)
	}
	return nil
}

// RecentEvents returns up to limit events, newest first.
func (s *Store) RecentEvents(limit int) ([]Event, error) {
	rows, err := s.db.Query(`
		SELECT id, package, operation, success, duration_ms, output, created_at
		FROM events
		ORDER BY created_at DESC, id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		var durationMs int64
		var createdAt string
		if err := rows.Scan(&ev.ID, &ev.PackageID, &ev.Operation, &ev.Success,
			&durationMs, &ev.Output, &createdAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Duration = time.Duration(durationMs) * time.Millisecond
		ev.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// PackageEvents returns events for one package id, newest first.
func (s *Store) PackageEvents(pkgID string, limit int) ([]Event, error) {
	rows, err := s.db.Query(`
		SELECT id, package, operation, success, duration_ms, output, created_at
		FROM events
		WHERE package = ?
		ORDER BY created_at DESC, id
		LIMIT ?`, pkgID, limit)
	if err != nil {
		return nil, fmt.Errorf("query events for %s: %w", pkgID, err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		var durationMs int64
		var createdAt string
		if err := rows.Scan(&ev.ID, &ev.PackageID, &ev.Operation, &ev.Success,
			&durationMs, &ev.Output, &createdAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Duration = time.Duration(durationMs) * time.Millisecond
		ev.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
