// Package cache provides persistent key-value caching with per-entry expiry.
//
// The backfill engine keeps two independent stores: one for version discovery
// listings (short TTL, the upstream directory changes) and one for per-version
// metadata payloads (long TTL, superseded versions are immutable in practice).
// Either store can be deleted wholesale; that only affects runtime cost.
package cache

import (
	"encoding/json"
	"errors"
	"time"
)

// Store persists cache entries for one namespace.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the unexpired value for key. A miss is returned both when
	// the key is absent and when the stored entry has expired. Corrupted or
	// unreadable entries are misses, never errors.
	Get(key string) ([]byte, bool)

	// Put stores value under key with the given ttl, replacing any previous
	// entry. The write is atomic: a crash mid-write cannot corrupt a
	// previously valid entry.
	Put(key string, value []byte, ttl time.Duration) error

	// Close releases any resources.
	Close() error
}

// Entry is the persisted wrapper around a cached value.
type Entry struct {
	Key        string          `json:"key"`
	Value      json.RawMessage `json:"value"`
	StoredAt   time.Time       `json:"stored_at"`
	TTLSeconds int64           `json:"ttl_seconds"`
}

// Expired reports whether the entry's ttl has elapsed at the given time.
func (e *Entry) Expired(now time.Time) bool {
	return now.Sub(e.StoredAt) > time.Duration(e.TTLSeconds)*time.Second
}

// ErrStoreClosed indicates the store has been closed.
var ErrStoreClosed = errors.New("cache store closed")
