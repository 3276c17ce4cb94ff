package benchmarks

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/genomehubs/backfill/pkg/backfill/cache"
)

// reportPayload builds a payload of roughly real assembly-report size.
func reportPayload() []byte {
	report := map[string]any{
		"accession":        "GCA_000002035.3",
		"paired_accession": "GCF_000002035.5",
		"organism":         map[string]any{"tax_id": 7955, "organism_name": "Danio rerio"},
		"assembly_info": map[string]any{
			"assembly_name": "GRCz10",
			"release_date":  "2014-09-09",
			"submitter":     "Genome Reference Consortium",
		},
		"assembly_stats": map[string]any{
			"total_sequence_length": "1371719383",
			"contig_n50":            25106,
			"scaffold_n50":          1551602,
		},
	}
	data, _ := json.Marshal(report)
	return data
}

// BenchmarkMemoryStore_Put measures in-memory cache writes.
func BenchmarkMemoryStore_Put(b *testing.B) {
	store := cache.NewMemoryStore()
	defer store.Close()
	payload := reportPayload()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = store.Put(fmt.Sprintf("GCA_%09d.1", i%1000), payload, time.Hour)
	}
}

// BenchmarkMemoryStore_Get measures in-memory cache reads.
func BenchmarkMemoryStore_Get(b *testing.B) {
	store := cache.NewMemoryStore()
	defer store.Close()
	_ = store.Put("GCA_000002035.1", reportPayload(), time.Hour)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = store.Get("GCA_000002035.1")
	}
}

// BenchmarkFSStore_Put measures on-disk cache writes (temp file + rename).
func BenchmarkFSStore_Put(b *testing.B) {
	store, err := cache.NewFSStore(b.TempDir())
	if err != nil {
		b.Fatal(err)
	}
	defer store.Close()
	payload := reportPayload()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = store.Put(fmt.Sprintf("GCA_%09d.1", i%1000), payload, time.Hour)
	}
}

// BenchmarkFSStore_Get measures on-disk cache reads.
func BenchmarkFSStore_Get(b *testing.B) {
	store, err := cache.NewFSStore(b.TempDir())
	if err != nil {
		b.Fatal(err)
	}
	defer store.Close()
	_ = store.Put("GCA_000002035.1", reportPayload(), time.Hour)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = store.Get("GCA_000002035.1")
	}
}
