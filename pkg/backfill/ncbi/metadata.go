package ncbi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/genomehubs/backfill/pkg/backfill/cache"
	"github.com/genomehubs/backfill/pkg/backfill/observability"
)

// MetadataEntry is the fetched assembly report for one versioned accession.
// The payload shape matches what the record parser expects for
// current-version records.
type MetadataEntry struct {
	VersionID string          `json:"version_id"`
	Payload   json.RawMessage `json:"payload"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// MetadataClient fetches per-version assembly reports, reading through a
// persistent cache in front of the external metadata service.
type MetadataClient struct {
	getter  MetadataGetter
	store   cache.Store
	ttl     time.Duration
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
}

// NewMetadataClient creates a read-through metadata client. Cached payloads
// stay fresh for ttl.
func NewMetadataClient(getter MetadataGetter, store cache.Store, ttl time.Duration) *MetadataClient {
	return &MetadataClient{
		getter:  getter,
		store:   store,
		ttl:     ttl,
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
	}
}

// WithObservability attaches a logger, metrics recorder, and span manager.
// Any nil metrics/spans argument keeps the no-op implementation.
func (c *MetadataClient) WithObservability(logger *slog.Logger, metrics observability.MetricsRecorder, spans observability.SpanManager) *MetadataClient {
	c.logger = logger
	if metrics != nil {
		c.metrics = metrics
	}
	if spans != nil {
		c.spans = spans
	}
	return c
}

// Fetch returns the metadata entry for exactly one versioned accession.
// A NotFoundError is terminal for that version; other failures are
// retryable by the caller.
func (c *MetadataClient) Fetch(ctx context.Context, versionID string) (MetadataEntry, error) {
	done := observability.TimedOperation()

	if data, ok := c.store.Get(versionID); ok {
		var entry MetadataEntry
		if err := json.Unmarshal(data, &entry); err == nil && len(entry.Payload) > 0 {
			c.metrics.RecordFetch(ctx, true, time.Duration(done())*time.Millisecond, nil)
			return entry, nil
		}
	}

	ctx, span := c.spans.StartCallSpan(ctx, "fetch", versionID)
	payload, err := c.getter.GetMetadata(ctx, versionID)
	c.spans.EndSpanWithError(span, err)
	c.metrics.RecordFetch(ctx, false, time.Duration(done())*time.Millisecond, err)
	if err != nil {
		return MetadataEntry{}, err
	}

	entry := MetadataEntry{
		VersionID: versionID,
		Payload:   payload,
		FetchedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(&entry)
	if err != nil {
		return MetadataEntry{}, fmt.Errorf("encode metadata entry for %s: %w", versionID, err)
	}
	if err := c.store.Put(versionID, data, c.ttl); err != nil {
		return MetadataEntry{}, fmt.Errorf("cache metadata entry for %s: %w", versionID, err)
	}

	return entry, nil
}
