// Package checkpoint persists sieve progress to a SQLite database so a
// long-running sieve over a huge interval can be interrupted and resumed
// without starting over from start. It is adapted from huge_mersenne's
// candidate-tracking database: the same "one row per run, updated as work
// completes" pattern, narrowed from a multi-method candidate table down to
// a single progress row per (interval, config) signature.
package checkpoint

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is a SQLite-backed progress log. Open one per checkpoint database
// file; a single Store can track many runs, keyed by Key.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the checkpoint database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: open %s: %w", path, err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS progress (
		run_key TEXT PRIMARY KEY,
		start INTEGER NOT NULL,
		stop INTEGER NOT NULL,
		next_segment_low INTEGER NOT NULL,
		count INTEGER NOT NULL,
		updated_at TEXT NOT NULL DEFAULT (datetime('now'))
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("checkpoint: create table: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("checkpoint: set journal mode: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

// Key derives a run signature from the parameters that must match exactly
// for a resume to be valid: changing sieveSizeKiB or preSieveLimit changes
// the segment schedule, so a checkpoint taken under one config cannot be
// safely resumed under another.
func Key(start, stop uint64, sieveSizeKiB, preSieveLimit uint32) string {
	return fmt.Sprintf("%d:%d:%d:%d", start, stop, sieveSizeKiB, preSieveLimit)
}

// Progress is the last durably recorded state of a run.
type Progress struct {
	NextSegmentLow uint64
	Count          uint64
}

// Load returns the most recent progress recorded for key, or found=false if
// no checkpoint exists yet.
func (s *Store) Load(key string) (p Progress, found bool, err error) {
	row := s.db.QueryRow(`SELECT next_segment_low, count FROM progress WHERE run_key = ?`, key)
	err = row.Scan(&p.NextSegmentLow, &p.Count)
	if err == sql.ErrNoRows {
		return Progress{}, false, nil
	}
	if err != nil {
		return Progress{}, false, fmt.Errorf("checkpoint: load %s: %w", key, err)
	}
	return p, true, nil
}

// Save upserts the progress for key. Called after each completed segment,
// so a crash loses at most one segment's worth of work.
func (s *Store) Save(key string, start, stop uint64, p Progress) error {
	_, err := s.db.Exec(`
		INSERT INTO progress (run_key, start, stop, next_segment_low, count, updated_at)
		VALUES (?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT(run_key) DO UPDATE SET
			next_segment_low = excluded.next_segment_low,
			count = excluded.count,
			updated_at = excluded.updated_at
	`, key, start, stop, p.NextSegmentLow, p.Count)
	if err != nil {
		return fmt.Errorf("checkpoint: save %s: %w", key, err)
	}
	return nil
}

// Clear removes the checkpoint for key, e.g. once a run finishes cleanly.
func (s *Store) Clear(key string) error {
	if _, err := s.db.Exec(`DELETE FROM progress WHERE run_key = ?`, key); err != nil {
		return fmt.Errorf("checkpoint: clear %s: %w", key, err)
	}
	return nil
}
