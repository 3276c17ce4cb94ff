package cache

import (
	"sync"
	"time"
)

// MemoryStore is an in-memory cache store for testing.
// Data is lost when the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string]Entry
	closed bool
	now    func() time.Time
}

// NewMemoryStore creates a new in-memory cache store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]Entry),
		now:  time.Now,
	}
}

// Get implements Store.
func (m *MemoryStore) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, false
	}

	entry, ok := m.data[key]
	if !ok || entry.Expired(m.now()) {
		return nil, false
	}

	// Return a copy to prevent modification.
	value := make([]byte, len(entry.Value))
	copy(value, entry.Value)
	return value, true
}

// Put implements Store.
func (m *MemoryStore) Put(key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	stored := make([]byte, len(value))
	copy(stored, value)

	m.data[key] = Entry{
		Key:        key,
		Value:      stored,
		StoredAt:   m.now().UTC(),
		TTLSeconds: int64(ttl / time.Second),
	}
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.data = nil
	return nil
}

// Len returns the number of entries, including expired ones not yet purged.
// Useful for testing.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// SetClock overrides the time source. Useful for expiry testing.
func (m *MemoryStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}
