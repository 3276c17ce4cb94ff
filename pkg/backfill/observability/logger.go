// Package observability provides structured logging, metrics, and tracing
// for the backfill engine.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"fmt"
	"log/slog"
	"time"
)

// EnrichLogger adds backfill context to a logger.
// Returns a new logger with run_id and root_id fields.
func EnrichLogger(logger *slog.Logger, runID, rootID string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("run_id", runID),
		slog.String("root_id", rootID),
	)
}

// LogRunStart logs the start of a backfill run.
func LogRunStart(logger *slog.Logger, runID string, candidates int) {
	if logger == nil {
		return
	}
	logger.Info("backfill run starting",
		slog.String("run_id", runID),
		slog.Int("candidates", candidates),
	)
}

// LogRunComplete logs backfill run completion with summary counts.
func LogRunComplete(logger *slog.Logger, runID string, durationMs float64, emittedRows int) {
	if logger == nil {
		return
	}
	logger.Info("backfill run completed",
		slog.String("run_id", runID),
		slog.Float64("duration_ms", durationMs),
		slog.Int("emitted_rows", emittedRows),
	)
}

// LogRootDone logs a root accession reaching the checkpoint.
func LogRootDone(logger *slog.Logger, rootID string, versions int) {
	if logger == nil {
		return
	}
	logger.Debug("root completed",
		slog.String("root_id", rootID),
		slog.Int("historical_versions", versions),
	)
}

// LogRootSkipped logs a root accession skipped before discovery.
func LogRootSkipped(logger *slog.Logger, rootID, reason string) {
	if logger == nil {
		return
	}
	logger.Debug("root skipped",
		slog.String("root_id", rootID),
		slog.String("reason", reason),
	)
}

// LogRootFailed logs a root accession abandoned after exhausted retries.
func LogRootFailed(logger *slog.Logger, rootID string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("root failed this run",
		slog.String("root_id", rootID),
		slog.String("error", err.Error()),
	)
}

// LogVersionMismatch logs a discovery listing that disagrees with the
// input feed's current version. Upstream may have advanced since the feed
// was generated, so this is a warning, not a failure.
func LogVersionMismatch(logger *slog.Logger, rootID string, expected, discovered int) {
	if logger == nil {
		return
	}
	logger.Warn("discovered versions disagree with input feed",
		slog.String("root_id", rootID),
		slog.Int("feed_current_version", expected),
		slog.Int("highest_discovered", discovered),
	)
}

// LogVersionNotFound logs a version the metadata service confirmed absent.
func LogVersionNotFound(logger *slog.Logger, versionID string) {
	if logger == nil {
		return
	}
	logger.Info("version not found upstream",
		slog.String("version_id", versionID),
	)
}

// LogCheckpointFlush logs a batch checkpoint flush with run progress.
func LogCheckpointFlush(logger *slog.Logger, processed, total int) {
	if logger == nil {
		return
	}
	pct := 0.0
	if total > 0 {
		pct = float64(processed) / float64(total) * 100
	}
	logger.Info("checkpoint flushed",
		slog.Int("processed", processed),
		slog.Int("total", total),
		slog.String("progress", fmt.Sprintf("%.1f%%", pct)),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
