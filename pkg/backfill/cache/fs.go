package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// FSStore persists cache entries as one JSON file per key under a directory.
// Writes are staged to a temp file in the same directory and made visible by
// an atomic rename, so readers never observe a partially written entry.
type FSStore struct {
	dir    string
	mu     sync.RWMutex
	closed bool
	now    func() time.Time
}

// NewFSStore creates a file-backed cache store rooted at dir.
// The directory is created if it does not exist.
func NewFSStore(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	return &FSStore{dir: dir, now: time.Now}, nil
}

// Get implements Store. Expired entries are lazily purged.
func (s *FSStore) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, false
	}

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		// Corrupted entry: treat as a miss. It will be overwritten by the
		// next Put for this key.
		return nil, false
	}

	if entry.Expired(s.now()) {
		_ = os.Remove(s.path(key))
		return nil, false
	}

	return entry.Value, true
}

// Put implements Store.
func (s *FSStore) Put(key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	entry := Entry{
		Key:        key,
		Value:      value,
		StoredAt:   s.now().UTC(),
		TTLSeconds: int64(ttl / time.Second),
	}

	data, err := json.Marshal(&entry)
	if err != nil {
		return fmt.Errorf("encode cache entry %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+sanitize(key)+".tmp-")
	if err != nil {
		return fmt.Errorf("stage cache entry %s: %w", key, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write cache entry %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write cache entry %s: %w", key, err)
	}

	if err := os.Rename(tmpName, s.path(key)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("commit cache entry %s: %w", key, err)
	}
	return nil
}

// Close implements Store.
func (s *FSStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// SetClock overrides the time source. Useful for expiry testing.
func (s *FSStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *FSStore) path(key string) string {
	return filepath.Join(s.dir, sanitize(key)+".json")
}

// sanitize maps a key to a safe file name. Accessions are already safe; this
// guards against separators in unexpected keys.
func sanitize(key string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':':
			return '_'
		}
		return r
	}, key)
}
