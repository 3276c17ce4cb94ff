package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bferrors "github.com/genomehubs/backfill/pkg/backfill/errors"
)

// FileStore persists the checkpoint as a single JSON file.
// Flush stages the file to a temp path and renames it into place, so a crash
// mid-write leaves the previous checkpoint intact. Deleting the file forces
// a full rerun.
type FileStore struct {
	path   string
	mu     sync.RWMutex
	done   map[string]struct{}
	dirty  bool
	closed bool
}

// NewFileStore opens (or initializes) a file-backed checkpoint store.
// A missing file yields an empty checkpoint; an unreadable one is a
// CheckpointIOError, since silently restarting from scratch would redo
// thousands of external calls.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{
		path: path,
		done: make(map[string]struct{}),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, &bferrors.CheckpointIOError{Op: "load", Path: path, Err: err}
	}

	cp, err := Unmarshal(data)
	if err != nil {
		return nil, &bferrors.CheckpointIOError{Op: "decode", Path: path, Err: err}
	}
	for _, id := range cp.ProcessedIDs {
		s.done[id] = struct{}{}
	}
	return s, nil
}

// MarkDone implements Store.
func (s *FileStore) MarkDone(rootID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if _, ok := s.done[rootID]; !ok {
		s.done[rootID] = struct{}{}
		s.dirty = true
	}
}

// Contains implements Store.
func (s *FileStore) Contains(rootID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.done[rootID]
	return ok
}

// Done implements Store.
func (s *FileStore) Done() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.done)
}

// Flush implements Store.
func (s *FileStore) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	if !s.dirty {
		return nil
	}

	cp := Checkpoint{
		Version:      Version,
		ProcessedIDs: make([]string, 0, len(s.done)),
		UpdatedAt:    time.Now().UTC(),
	}
	for id := range s.done {
		cp.ProcessedIDs = append(cp.ProcessedIDs, id)
	}

	data, err := cp.Marshal()
	if err != nil {
		return &bferrors.CheckpointIOError{Op: "encode", Path: s.path, Err: err}
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &bferrors.CheckpointIOError{Op: "flush", Path: s.path, Err: err}
	}

	tmp, err := os.CreateTemp(dir, ".checkpoint.tmp-")
	if err != nil {
		return &bferrors.CheckpointIOError{Op: "flush", Path: s.path, Err: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &bferrors.CheckpointIOError{Op: "flush", Path: s.path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &bferrors.CheckpointIOError{Op: "flush", Path: s.path, Err: err}
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return &bferrors.CheckpointIOError{Op: "flush", Path: s.path, Err: err}
	}

	s.dirty = false
	return nil
}

// Close implements Store. It flushes any pending state first.
func (s *FileStore) Close() error {
	if err := s.Flush(); err != nil && err != ErrStoreClosed {
		return fmt.Errorf("flush on close: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
