package ncbi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/genomehubs/backfill/pkg/backfill/cache"
	bferrors "github.com/genomehubs/backfill/pkg/backfill/errors"
	"github.com/genomehubs/backfill/pkg/backfill/observability"
)

// VersionSet is the complete ordered version history of one root accession,
// oldest first. The highest entry is normally the current version.
type VersionSet struct {
	RootID       string    `json:"root_id"`
	Versions     []string  `json:"versions"`
	DiscoveredAt time.Time `json:"discovered_at"`
}

// Current returns the highest discovered version number, or 0 for an empty
// set.
func (v VersionSet) Current() int {
	if len(v.Versions) == 0 {
		return 0
	}
	return VersionOf(v.Versions[len(v.Versions)-1])
}

// DiscoveryClient answers "which versions exist for this root accession",
// reading through a persistent cache in front of the external listing
// service.
type DiscoveryClient struct {
	lister  VersionLister
	store   cache.Store
	ttl     time.Duration
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
}

// NewDiscoveryClient creates a read-through discovery client. Cached
// listings stay fresh for ttl.
func NewDiscoveryClient(lister VersionLister, store cache.Store, ttl time.Duration) *DiscoveryClient {
	return &DiscoveryClient{
		lister:  lister,
		store:   store,
		ttl:     ttl,
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
	}
}

// WithObservability attaches a logger, metrics recorder, and span manager.
// Any nil metrics/spans argument keeps the no-op implementation.
func (c *DiscoveryClient) WithObservability(logger *slog.Logger, metrics observability.MetricsRecorder, spans observability.SpanManager) *DiscoveryClient {
	c.logger = logger
	if metrics != nil {
		c.metrics = metrics
	}
	if spans != nil {
		c.spans = spans
	}
	return c
}

// Discover returns the full version set for a root accession.
// currentVersion is the version the input feed believes is current; a
// listing whose highest version disagrees is logged as a warning, not an
// error, since the external source of truth may have advanced since the
// feed was generated.
func (c *DiscoveryClient) Discover(ctx context.Context, rootID string, currentVersion int) (VersionSet, error) {
	done := observability.TimedOperation()

	if data, ok := c.store.Get(rootID); ok {
		var set VersionSet
		if err := json.Unmarshal(data, &set); err == nil && len(set.Versions) > 0 {
			c.metrics.RecordDiscovery(ctx, true, time.Duration(done())*time.Millisecond, nil)
			c.validate(set, currentVersion)
			return set, nil
		}
		// Undecodable cached value: fall through to a fresh listing.
	}

	ctx, span := c.spans.StartCallSpan(ctx, "discover", rootID)
	versions, err := c.lister.ListVersions(ctx, rootID)
	if err == nil && len(versions) == 0 {
		err = &bferrors.DiscoveryError{RootID: rootID, Message: "empty version listing"}
	}
	c.spans.EndSpanWithError(span, err)
	c.metrics.RecordDiscovery(ctx, false, time.Duration(done())*time.Millisecond, err)
	if err != nil {
		return VersionSet{}, err
	}

	set := VersionSet{
		RootID:       rootID,
		Versions:     versions,
		DiscoveredAt: time.Now().UTC(),
	}
	c.validate(set, currentVersion)

	data, err := json.Marshal(&set)
	if err != nil {
		return VersionSet{}, fmt.Errorf("encode version set for %s: %w", rootID, err)
	}
	if err := c.store.Put(rootID, data, c.ttl); err != nil {
		// Surfaces an unwritable cache directory on the first root instead
		// of silently refetching everything on every rerun.
		return VersionSet{}, fmt.Errorf("cache version set for %s: %w", rootID, err)
	}

	return set, nil
}

func (c *DiscoveryClient) validate(set VersionSet, currentVersion int) {
	if currentVersion > 0 && set.Current() != currentVersion {
		observability.LogVersionMismatch(c.logger, set.RootID, currentVersion, set.Current())
	}
}
