package checkpoint

import "errors"

// Store tracks which root accessions have been fully processed.
// Implementations must be safe for concurrent use.
//
// Stores hold the working set in memory; Flush persists it atomically.
// The on-disk state never represents a root as done unless every one of its
// discovered versions was fetched and emitted in some run.
type Store interface {
	// MarkDone records a root accession as fully processed in memory.
	// Durable only after the next Flush.
	MarkDone(rootID string)

	// Contains reports whether a root accession has been fully processed,
	// in this run or a prior one.
	Contains(rootID string) bool

	// Done returns the number of completed root accessions.
	Done() int

	// Flush persists the current in-memory state atomically.
	// Idempotent: flushing an unchanged state is a no-op at worst.
	Flush() error

	// Close flushes and releases any resources.
	Close() error
}

// ErrStoreClosed indicates the store has been closed.
var ErrStoreClosed = errors.New("checkpoint store closed")
