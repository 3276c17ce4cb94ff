package backfill

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/genomehubs/backfill/pkg/backfill/checkpoint"
	bferrors "github.com/genomehubs/backfill/pkg/backfill/errors"
	"github.com/genomehubs/backfill/pkg/backfill/ncbi"
	"github.com/genomehubs/backfill/pkg/backfill/observability"
)

// OrchestratorConfig wires an Orchestrator's collaborators.
// Discovery, Metadata, Checkpoint, Parser, and Sink are required.
type OrchestratorConfig struct {
	Discovery  *ncbi.DiscoveryClient
	Metadata   *ncbi.MetadataClient
	Checkpoint checkpoint.Store
	Parser     RecordParser
	Sink       RowSink

	// Logger receives structured progress logs. Nil disables logging.
	Logger *slog.Logger

	// Metrics and Spans default to no-op implementations.
	Metrics observability.MetricsRecorder
	Spans   observability.SpanManager

	// Retry governs discovery and fetch attempts. Zero value means
	// DefaultRetry.
	Retry bferrors.RetryConfig

	// BatchSize is the number of roots processed between checkpoint
	// flushes. Defaults to 100.
	BatchSize int

	// FetchWorkers bounds concurrent version fetches within one root.
	// Defaults to 4.
	FetchWorkers int
}

// Orchestrator drives the backfill loop: filter candidates, discover
// version histories, fetch superseded versions, emit rows, and advance the
// checkpoint in batches.
//
// It is the only component that writes to the sink or mutates the
// checkpoint.
type Orchestrator struct {
	discovery    *ncbi.DiscoveryClient
	metadata     *ncbi.MetadataClient
	checkpoint   checkpoint.Store
	parser       RecordParser
	sink         RowSink
	logger       *slog.Logger
	metrics      observability.MetricsRecorder
	spans        observability.SpanManager
	retry        bferrors.RetryConfig
	batchSize    int
	fetchWorkers int
}

// NewOrchestrator validates the configuration and creates an Orchestrator.
func NewOrchestrator(cfg OrchestratorConfig) (*Orchestrator, error) {
	if cfg.Discovery == nil {
		return nil, fmt.Errorf("orchestrator: discovery client is required")
	}
	if cfg.Metadata == nil {
		return nil, fmt.Errorf("orchestrator: metadata client is required")
	}
	if cfg.Checkpoint == nil {
		return nil, fmt.Errorf("orchestrator: checkpoint store is required")
	}
	if cfg.Parser == nil {
		return nil, fmt.Errorf("orchestrator: record parser is required")
	}
	if cfg.Sink == nil {
		return nil, fmt.Errorf("orchestrator: row sink is required")
	}

	o := &Orchestrator{
		discovery:    cfg.Discovery,
		metadata:     cfg.Metadata,
		checkpoint:   cfg.Checkpoint,
		parser:       cfg.Parser,
		sink:         cfg.Sink,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
		spans:        cfg.Spans,
		retry:        cfg.Retry,
		batchSize:    cfg.BatchSize,
		fetchWorkers: cfg.FetchWorkers,
	}
	if o.metrics == nil {
		o.metrics = observability.NoopMetrics{}
	}
	if o.spans == nil {
		o.spans = observability.NoopSpanManager{}
	}
	if o.retry.MaxAttempts == 0 {
		o.retry = bferrors.DefaultRetry
	}
	if o.batchSize <= 0 {
		o.batchSize = 100
	}
	if o.fetchWorkers <= 0 {
		o.fetchWorkers = 4
	}
	return o, nil
}

// Summary reports what a run accomplished.
type Summary struct {
	RunID      string
	Candidates int

	// Skipped counts roots with no history or already checkpointed.
	Skipped int

	// Discovered counts roots whose version listing was obtained.
	Discovered int

	// Fetched counts version payloads obtained (cache hits included).
	Fetched int

	// NotFound counts versions the metadata service confirmed absent.
	NotFound int

	// Failed counts roots abandoned this run after exhausted retries.
	Failed int

	// Done counts roots newly marked complete this run.
	Done int

	// Emitted counts output rows appended.
	Emitted int

	Duration time.Duration
}

// Run processes the candidate records. It returns a partial summary along
// with the error when the run aborts (cancellation or a durable-state
// write failure); per-root failures never abort the run.
func (o *Orchestrator) Run(ctx context.Context, candidates []CandidateRecord) (Summary, error) {
	runID := uuid.NewString()
	start := time.Now()

	summary := Summary{RunID: runID, Candidates: len(candidates)}

	ctx, runSpan := o.spans.StartRunSpan(ctx, runID)
	defer func() { o.spans.EndSpanWithError(runSpan, nil) }()

	observability.LogRunStart(o.logger, runID, len(candidates))

	inBatch := 0
	for _, cand := range candidates {
		if ctx.Err() != nil {
			summary.Duration = time.Since(start)
			if err := o.checkpoint.Flush(); err != nil {
				return summary, err
			}
			return summary, ctx.Err()
		}

		logger := observability.EnrichLogger(o.logger, runID, cand.RootID)

		if !cand.NeedsBackfill() {
			summary.Skipped++
			o.metrics.RecordRootProcessed(ctx, "skipped")
			observability.LogRootSkipped(logger, cand.RootID, "no history")
			continue
		}
		if o.checkpoint.Contains(cand.RootID) {
			summary.Skipped++
			o.metrics.RecordRootProcessed(ctx, "skipped")
			observability.LogRootSkipped(logger, cand.RootID, "checkpointed")
			continue
		}

		err := o.processRoot(ctx, cand, logger, &summary)
		if err != nil {
			if ctx.Err() != nil {
				// Cancellation surfaced as a root failure: don't count it
				// against the root, just stop cleanly.
				summary.Duration = time.Since(start)
				if ferr := o.checkpoint.Flush(); ferr != nil {
					return summary, ferr
				}
				return summary, ctx.Err()
			}
			if isFatal(err) {
				summary.Duration = time.Since(start)
				return summary, err
			}
			summary.Failed++
			o.metrics.RecordRootProcessed(ctx, "failed")
			observability.LogRootFailed(logger, cand.RootID, err)
		}

		inBatch++
		if inBatch >= o.batchSize {
			inBatch = 0
			if err := o.flush(ctx, summary); err != nil {
				summary.Duration = time.Since(start)
				return summary, err
			}
		}
	}

	if err := o.flush(ctx, summary); err != nil {
		summary.Duration = time.Since(start)
		return summary, err
	}

	summary.Duration = time.Since(start)
	observability.LogRunComplete(o.logger, runID, float64(summary.Duration.Milliseconds()), summary.Emitted)
	return summary, nil
}

// fatalSinkError marks output-sink write failures, which abort the run the
// same way checkpoint failures do: both threaten the engine's durability
// contract.
type fatalSinkError struct{ err error }

func (e *fatalSinkError) Error() string { return "output sink: " + e.err.Error() }
func (e *fatalSinkError) Unwrap() error { return e.err }

// isFatal reports whether err aborts the whole run.
func isFatal(err error) bool {
	var sinkErr *fatalSinkError
	var ckptErr *bferrors.CheckpointIOError
	return errors.As(err, &sinkErr) || errors.As(err, &ckptErr)
}

// processRoot walks one root accession through discovery, per-version
// fetches, and atomic emission. Returning nil means the root was marked
// done (possibly with zero rows when upstream lists no historical
// versions).
func (o *Orchestrator) processRoot(ctx context.Context, cand CandidateRecord, logger *slog.Logger, summary *Summary) error {
	ctx, span := o.spans.StartRootSpan(ctx, cand.RootID)
	var rootErr error
	defer func() { o.spans.EndSpanWithError(span, rootErr) }()

	// DISCOVERING
	discovered := bferrors.WithRetryContext(ctx, o.retry, func(c context.Context) (ncbi.VersionSet, error) {
		return o.discovery.Discover(c, cand.RootID, cand.CurrentVersion)
	})
	if discovered.Err != nil {
		rootErr = discovered.Err
		return rootErr
	}
	summary.Discovered++

	// FETCHING(v): everything below the feed's current version. The
	// current version is already tracked by the primary pipeline.
	var historical []string
	for _, v := range discovered.Value.Versions {
		if ncbi.VersionOf(v) < cand.CurrentVersion {
			historical = append(historical, v)
		}
	}

	type fetchResult struct {
		entry    ncbi.MetadataEntry
		notFound bool
	}
	results := make([]fetchResult, len(historical))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.fetchWorkers)
	for i, versionID := range historical {
		i, versionID := i, versionID
		g.Go(func() error {
			fetched := bferrors.WithRetryContext(gctx, o.retry, func(c context.Context) (ncbi.MetadataEntry, error) {
				return o.metadata.Fetch(c, versionID)
			})
			if fetched.Err != nil {
				if bferrors.IsNotFound(fetched.Err) {
					results[i] = fetchResult{notFound: true}
					observability.LogVersionNotFound(logger, versionID)
					return nil
				}
				return fetched.Err
			}
			results[i] = fetchResult{entry: fetched.Value}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		// Exhausted retries on any version abandon the whole root: a
		// partial history must never be emitted.
		rootErr = err
		return rootErr
	}

	// EMITTED: parse and append the whole group at once.
	var rows []Row
	for _, res := range results {
		if res.notFound {
			summary.NotFound++
			continue
		}
		summary.Fetched++

		row, err := o.parser.ToRow(res.entry.Payload, VersionStatusSuperseded)
		if err != nil {
			rootErr = fmt.Errorf("parse %s: %w", res.entry.VersionID, err)
			return rootErr
		}
		rows = append(rows, row)
	}

	if err := o.sink.Append(rows); err != nil {
		rootErr = &fatalSinkError{err: err}
		return rootErr
	}

	// DONE
	o.checkpoint.MarkDone(cand.RootID)
	summary.Done++
	summary.Emitted += len(rows)
	o.metrics.RecordRootProcessed(ctx, "done")
	observability.LogRootDone(logger, cand.RootID, len(rows))
	return nil
}

// flush persists the checkpoint and logs run progress. Failures abort the
// run.
func (o *Orchestrator) flush(ctx context.Context, summary Summary) error {
	if err := o.checkpoint.Flush(); err != nil {
		return err
	}
	o.metrics.RecordCheckpointFlush(ctx, int64(o.checkpoint.Done()))
	processed := summary.Skipped + summary.Done + summary.Failed
	observability.LogCheckpointFlush(o.logger, processed, summary.Candidates)
	return nil
}
