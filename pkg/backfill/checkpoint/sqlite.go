package checkpoint

import (
	"database/sql"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	bferrors "github.com/genomehubs/backfill/pkg/backfill/errors"
)

// SQLiteStore persists completed root accessions to SQLite.
// It is suitable for single-process production use; a transaction commit
// plays the role of the atomic flush. Deleting the database file forces a
// full rerun, same as FileStore.
type SQLiteStore struct {
	db      *sql.DB
	path    string
	mu      sync.RWMutex
	done    map[string]struct{}
	pending []string
	closed  bool
}

// NewSQLiteStore opens (or initializes) a SQLite checkpoint store.
// The path should be a file path (e.g., "./checkpoint.db") or ":memory:"
// for testing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &bferrors.CheckpointIOError{Op: "open", Path: path, Err: err}
	}

	// Enable WAL mode for better crash durability with concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, &bferrors.CheckpointIOError{Op: "open", Path: path, Err: err}
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS processed (
			root_id TEXT PRIMARY KEY,
			completed_at TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, &bferrors.CheckpointIOError{Op: "init", Path: path, Err: err}
	}

	s := &SQLiteStore{
		db:   db,
		path: path,
		done: make(map[string]struct{}),
	}

	rows, err := db.Query(`SELECT root_id FROM processed`)
	if err != nil {
		db.Close()
		return nil, &bferrors.CheckpointIOError{Op: "load", Path: path, Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			db.Close()
			return nil, &bferrors.CheckpointIOError{Op: "load", Path: path, Err: err}
		}
		s.done[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		db.Close()
		return nil, &bferrors.CheckpointIOError{Op: "load", Path: path, Err: err}
	}

	return s, nil
}

// MarkDone implements Store.
func (s *SQLiteStore) MarkDone(rootID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if _, ok := s.done[rootID]; !ok {
		s.done[rootID] = struct{}{}
		s.pending = append(s.pending, rootID)
	}
}

// Contains implements Store.
func (s *SQLiteStore) Contains(rootID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.done[rootID]
	return ok
}

// Done implements Store.
func (s *SQLiteStore) Done() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.done)
}

// Flush implements Store. All pending accessions are committed in a single
// transaction so a crash cannot record a partial batch.
func (s *SQLiteStore) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	if len(s.pending) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return &bferrors.CheckpointIOError{Op: "flush", Path: s.path, Err: err}
	}

	stmt, err := tx.Prepare(`
		INSERT INTO processed (root_id, completed_at) VALUES (?, ?)
		ON CONFLICT(root_id) DO NOTHING
	`)
	if err != nil {
		tx.Rollback()
		return &bferrors.CheckpointIOError{Op: "flush", Path: s.path, Err: err}
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, id := range s.pending {
		if _, err := stmt.Exec(id, now); err != nil {
			tx.Rollback()
			return &bferrors.CheckpointIOError{Op: "flush", Path: s.path, Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &bferrors.CheckpointIOError{Op: "flush", Path: s.path, Err: err}
	}

	s.pending = s.pending[:0]
	return nil
}

// Close implements Store. It flushes any pending state first.
func (s *SQLiteStore) Close() error {
	if err := s.Flush(); err != nil && err != ErrStoreClosed {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
