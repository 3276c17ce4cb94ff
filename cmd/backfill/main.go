// Command backfill recovers superseded genome assembly versions.
//
// It reads an assembly data report feed (JSONL), discovers the version
// history of every accession whose current version is greater than one,
// fetches the superseded versions' reports, and appends them to a TSV
// tagged versionStatus=superseded. Runs are resumable: caches and a
// checkpoint make reruns cheap and idempotent.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/genomehubs/backfill/pkg/backfill"
	"github.com/genomehubs/backfill/pkg/backfill/cache"
	"github.com/genomehubs/backfill/pkg/backfill/checkpoint"
	"github.com/genomehubs/backfill/pkg/backfill/config"
	bferrors "github.com/genomehubs/backfill/pkg/backfill/errors"
	"github.com/genomehubs/backfill/pkg/backfill/ncbi"
	"github.com/genomehubs/backfill/pkg/backfill/observability"
)

// outputColumns is the fixed column order of the historical assemblies TSV.
var outputColumns = []string{
	"assemblyId",
	"genbankAccession",
	"refseqAccession",
	"assemblyName",
	"taxId",
	"organismName",
	"releaseDate",
	"submitter",
	"versionStatus",
}

func main() {
	var (
		configPath     = flag.String("config", "", "path to YAML config file")
		inputPath      = flag.String("input", "", "assembly data report JSONL feed (overrides config)")
		outputPath     = flag.String("output", "", "historical assemblies TSV (overrides config)")
		checkpointPath = flag.String("checkpoint", "", "checkpoint path, .db selects SQLite (overrides config)")
		verbose        = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := run(configPath, inputPath, outputPath, checkpointPath, logger); err != nil {
		logger.Error("backfill failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath, inputPath, outputPath, checkpointPath *string, logger *slog.Logger) error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *inputPath != "" {
		cfg.Input = *inputPath
	}
	if *outputPath != "" {
		cfg.Output = *outputPath
	}
	if *checkpointPath != "" {
		cfg.Checkpoint = *checkpointPath
	}
	if cfg.Input == "" {
		return fmt.Errorf("no input feed: set -input or the input config key")
	}
	if cfg.Output == "" {
		return fmt.Errorf("no output path: set -output or the output config key")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	feed, err := os.Open(cfg.Input)
	if err != nil {
		return fmt.Errorf("open input feed: %w", err)
	}
	candidates, err := backfill.ReadCandidates(feed)
	feed.Close()
	if err != nil {
		return err
	}

	discCache, err := cache.NewFSStore(filepath.Join(cfg.CacheDir, "discovery"))
	if err != nil {
		return err
	}
	defer discCache.Close()
	metaCache, err := cache.NewFSStore(filepath.Join(cfg.CacheDir, "metadata"))
	if err != nil {
		return err
	}
	defer metaCache.Close()

	ckpt, err := openCheckpoint(cfg.Checkpoint)
	if err != nil {
		return err
	}
	defer ckpt.Close()

	sink, err := backfill.NewTSVSink(cfg.Output, outputColumns)
	if err != nil {
		return err
	}
	defer sink.Close()

	// One limiter across both external services: the upstream rate budget
	// is shared.
	limiter := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)

	metrics := observability.NewMetricsRecorder()
	spans := observability.NewSpanManager()

	discovery := ncbi.NewDiscoveryClient(
		ncbi.NewHTTPDiscoveryService(cfg.DiscoveryBaseURL, nil, limiter),
		discCache,
		cfg.DiscoveryTTL.Std(),
	).WithObservability(logger, metrics, spans)

	metadata := ncbi.NewMetadataClient(
		ncbi.NewHTTPMetadataService(cfg.MetadataBaseURL, nil, limiter),
		metaCache,
		cfg.MetadataTTL.Std(),
	).WithObservability(logger, metrics, spans)

	retry := bferrors.DefaultRetry
	retry.MaxAttempts = cfg.MaxAttempts

	orch, err := backfill.NewOrchestrator(backfill.OrchestratorConfig{
		Discovery:    discovery,
		Metadata:     metadata,
		Checkpoint:   ckpt,
		Parser:       backfill.RecordParserFunc(reportToRow),
		Sink:         sink,
		Logger:       logger,
		Metrics:      metrics,
		Spans:        spans,
		Retry:        retry,
		BatchSize:    cfg.BatchSize,
		FetchWorkers: cfg.FetchWorkers,
	})
	if err != nil {
		return err
	}

	summary, runErr := orch.Run(ctx, candidates)
	logger.Info("run summary",
		"run_id", summary.RunID,
		"candidates", summary.Candidates,
		"skipped", summary.Skipped,
		"discovered", summary.Discovered,
		"fetched", summary.Fetched,
		"not_found", summary.NotFound,
		"failed", summary.Failed,
		"done", summary.Done,
		"emitted", summary.Emitted,
		"duration", summary.Duration.Round(time.Millisecond).String(),
	)
	return runErr
}

// openCheckpoint selects the store by extension: ".db" is SQLite, anything
// else the JSON file store.
func openCheckpoint(path string) (checkpoint.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create checkpoint directory: %w", err)
		}
	}
	if strings.HasSuffix(path, ".db") {
		return checkpoint.NewSQLiteStore(path)
	}
	return checkpoint.NewFileStore(path)
}

// assemblyReport is the subset of a dataset report this tool projects into
// output columns.
type assemblyReport struct {
	Accession       string `json:"accession"`
	PairedAccession string `json:"paired_accession"`
	Organism        struct {
		TaxID        json.Number `json:"tax_id"`
		OrganismName string      `json:"organism_name"`
	} `json:"organism"`
	AssemblyInfo struct {
		AssemblyName string `json:"assembly_name"`
		ReleaseDate  string `json:"release_date"`
		Submitter    string `json:"submitter"`
	} `json:"assembly_info"`
}

// reportToRow projects one fetched report payload into an output row.
func reportToRow(payload json.RawMessage, versionStatus string) (backfill.Row, error) {
	var report assemblyReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, fmt.Errorf("decode assembly report: %w", err)
	}
	if report.Accession == "" {
		return nil, fmt.Errorf("assembly report has no accession")
	}

	genbank, refseq := report.Accession, report.PairedAccession
	if strings.HasPrefix(report.Accession, "GCF_") {
		genbank, refseq = report.PairedAccession, report.Accession
	}

	return backfill.Row{
		"assemblyId":       ncbi.AssemblyID(genbank),
		"genbankAccession": genbank,
		"refseqAccession":  refseq,
		"assemblyName":     report.AssemblyInfo.AssemblyName,
		"taxId":            report.Organism.TaxID.String(),
		"organismName":     report.Organism.OrganismName,
		"releaseDate":      report.AssemblyInfo.ReleaseDate,
		"submitter":        report.AssemblyInfo.Submitter,
		"versionStatus":    versionStatus,
	}, nil
}
