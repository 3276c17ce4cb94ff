package backfill

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// RowSink receives fully-assembled output rows. Append is called once per
// completed root accession with all of its rows, so a sink never observes a
// partial version history.
type RowSink interface {
	// Append writes a group of rows as a unit.
	Append(rows []Row) error

	// Close flushes and releases the sink.
	Close() error
}

// TSVSink appends rows to a tab-separated file with a fixed column order.
// The header is written once, when the file is created or empty. Each
// Append is a single write so a whole root's rows land together.
type TSVSink struct {
	mu      sync.Mutex
	f       *os.File
	headers []string
	closed  bool
}

// NewTSVSink opens (or creates) a TSV file for appending.
func NewTSVSink(path string, headers []string) (*TSVSink, error) {
	if len(headers) == 0 {
		return nil, fmt.Errorf("tsv sink needs at least one column")
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open output %s: %w", path, err)
	}

	s := &TSVSink{f: f, headers: headers}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat output %s: %w", path, err)
	}
	if info.Size() == 0 {
		if _, err := f.WriteString(strings.Join(headers, "\t") + "\n"); err != nil {
			f.Close()
			return nil, fmt.Errorf("write output header: %w", err)
		}
	}

	return s, nil
}

// Append implements RowSink.
func (s *TSVSink) Append(rows []Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("append to closed sink")
	}
	if len(rows) == 0 {
		return nil
	}

	var b strings.Builder
	for _, row := range rows {
		for i, col := range s.headers {
			if i > 0 {
				b.WriteByte('\t')
			}
			b.WriteString(cleanField(row[col]))
		}
		b.WriteByte('\n')
	}

	if _, err := s.f.WriteString(b.String()); err != nil {
		return fmt.Errorf("append output rows: %w", err)
	}
	return nil
}

// Close implements RowSink.
func (s *TSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.f.Close()
}

// cleanField strips characters that would break the tabular structure.
func cleanField(v string) string {
	if v == "" {
		return "None"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '\t', '\n', '\r':
			return ' '
		}
		return r
	}, v)
}
