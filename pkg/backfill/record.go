package backfill

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/genomehubs/backfill/pkg/backfill/ncbi"
)

// CandidateRecord is one current-version assembly from the input feed.
// Records with CurrentVersion > 1 are candidates for historical backfill.
type CandidateRecord struct {
	// Accession is the full current accession, e.g. GCA_000222935.2.
	Accession string

	// RootID is the unversioned base accession, stable across versions.
	RootID string

	// CurrentVersion is the version the feed designates as current.
	CurrentVersion int

	// TaxonID identifies the organism, passed through to output rows.
	TaxonID string

	// Raw is the unparsed input line, available to the record parser.
	Raw json.RawMessage
}

// NeedsBackfill reports whether the record has history to recover.
// Version 1 has no prior versions by definition.
func (c CandidateRecord) NeedsBackfill() bool {
	return c.CurrentVersion > 1
}

// reportLine is the subset of an assembly data report line this engine
// reads; everything else passes through untouched in Raw.
type reportLine struct {
	Accession string `json:"accession"`
	Organism  struct {
		TaxID json.Number `json:"taxId"`
	} `json:"organism"`
}

// maxLineBytes bounds a single feed line. Assembly reports run large but
// nowhere near this.
const maxLineBytes = 32 << 20

// ReadCandidates parses an assembly data report feed (one JSON document per
// line) into candidate records. Blank lines are skipped; a malformed line
// fails the read, since a partially-read feed would silently shrink the
// backfill universe.
func ReadCandidates(r io.Reader) ([]CandidateRecord, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	var candidates []CandidateRecord
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var report reportLine
		if err := json.Unmarshal(line, &report); err != nil {
			return nil, fmt.Errorf("input line %d: %w", lineNo, err)
		}
		if report.Accession == "" {
			return nil, fmt.Errorf("input line %d: missing accession", lineNo)
		}

		base, version, err := ncbi.ParseAccession(report.Accession)
		if err != nil {
			return nil, fmt.Errorf("input line %d: %w", lineNo, err)
		}

		raw := make([]byte, len(line))
		copy(raw, line)

		candidates = append(candidates, CandidateRecord{
			Accession:      report.Accession,
			RootID:         base,
			CurrentVersion: version,
			TaxonID:        report.Organism.TaxID.String(),
			Raw:            raw,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read input feed: %w", err)
	}

	return candidates, nil
}
