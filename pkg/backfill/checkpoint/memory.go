package checkpoint

import "sync"

// MemoryStore is an in-memory checkpoint store for testing.
// Data is lost when the process exits.
type MemoryStore struct {
	mu      sync.RWMutex
	done    map[string]struct{}
	flushes int
	closed  bool
}

// NewMemoryStore creates a new in-memory checkpoint store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		done: make(map[string]struct{}),
	}
}

// MarkDone implements Store.
func (m *MemoryStore) MarkDone(rootID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.done[rootID] = struct{}{}
}

// Contains implements Store.
func (m *MemoryStore) Contains(rootID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.done[rootID]
	return ok
}

// Done implements Store.
func (m *MemoryStore) Done() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.done)
}

// Flush implements Store.
func (m *MemoryStore) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}
	m.flushes++
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Flushes returns the number of Flush calls. Useful for testing batch
// checkpoint behavior.
func (m *MemoryStore) Flushes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.flushes
}
