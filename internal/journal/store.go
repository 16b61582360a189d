// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package journal persists finished load tasks in SQLite so diagnostics can
// list what was loaded, how long it took and why it failed.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cursedearth/engine/internal/persistence/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS loads (
	id          TEXT PRIMARY KEY,
	kind        TEXT NOT NULL,
	name        TEXT NOT NULL,
	status      TEXT NOT NULL,
	items       INTEGER NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT '',
	queued_at   INTEGER NOT NULL,
	finished_at INTEGER
)`

const indexFinished = `CREATE INDEX IF NOT EXISTS loads_queued_at ON loads (queued_at DESC)`

// Entry statuses.
const (
	StatusQueued = "queued"
	StatusDone   = "done"
	StatusFailed = "failed"
	// StatusCancelled marks loads dropped by a loader reset or shutdown.
	StatusCancelled = "cancelled"
)

// Entry is one journal row.
type Entry struct {
	ID         string     `json:"id"`
	Kind       string     `json:"kind"`
	Name       string     `json:"name"`
	Status     string     `json:"status"`
	Items      int        `json:"items"`
	Error      string     `json:"error,omitempty"`
	QueuedAt   time.Time  `json:"queued_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Store is the SQLite-backed journal table.
type Store struct {
	db *sql.DB
}

// OpenStore opens or creates the journal database at path.
func OpenStore(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("journal: empty database path")
	}
	db, err := sqlite.Open(path, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}
	if err := sqlite.Migrate(ctx, db, schema, indexFinished); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Queued inserts a row for a newly registered task.
func (s *Store) Queued(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO loads (id, kind, name, status, queued_at) VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.Kind, e.Name, StatusQueued, e.QueuedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("journal: insert %s: %w", e.ID, err)
	}
	return nil
}

// Finished records the outcome of a task. A task never seen as queued is
// inserted with its final status.
func (s *Store) Finished(ctx context.Context, e Entry) error {
	var finished int64
	if e.FinishedAt != nil {
		finished = e.FinishedAt.UnixNano()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO loads (id, kind, name, status, items, error, queued_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET status = excluded.status, items = excluded.items,
		   error = excluded.error, finished_at = excluded.finished_at`,
		e.ID, e.Kind, e.Name, e.Status, e.Items, e.Error, e.QueuedAt.UnixNano(), finished)
	if err != nil {
		return fmt.Errorf("journal: finish %s: %w", e.ID, err)
	}
	return nil
}

// Recent returns up to limit rows, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, name, status, items, error, queued_at, finished_at
		 FROM loads ORDER BY queued_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: query recent: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e        Entry
			queued   int64
			finished sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &e.Kind, &e.Name, &e.Status, &e.Items, &e.Error, &queued, &finished); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		e.QueuedAt = time.Unix(0, queued).UTC()
		if finished.Valid && finished.Int64 != 0 {
			t := time.Unix(0, finished.Int64).UTC()
			e.FinishedAt = &t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the database.
// Ping checks the database handle.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}
