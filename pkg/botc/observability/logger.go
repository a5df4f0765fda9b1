// Package observability provides production-grade observability for botc
// compilations: structured logging, metrics, and distributed tracing.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds compilation context to a logger.
// Returns a new logger with generation_id and phase fields.
//
// Example:
//
//	enriched := EnrichLogger(logger, "gen-123", "handlers")
//	enriched.Info("emitting") // includes generation_id, phase
func EnrichLogger(logger *slog.Logger, generationID, phase string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("generation_id", generationID),
		slog.String("phase", phase),
	)
}

// LogGenerateStart logs the start of a compilation.
func LogGenerateStart(logger *slog.Logger, generationID string, nodeCount int) {
	if logger == nil {
		return
	}
	logger.Info("generation starting",
		slog.String("generation_id", generationID),
		slog.Int("node_count", nodeCount),
	)
}

// LogGenerateComplete logs successful compilation completion.
func LogGenerateComplete(logger *slog.Logger, generationID string, durationMs float64, lines, handlers int) {
	if logger == nil {
		return
	}
	logger.Info("generation completed",
		slog.String("generation_id", generationID),
		slog.Float64("duration_ms", durationMs),
		slog.Int("lines", lines),
		slog.Int("handlers", handlers),
	)
}

// LogGenerateError logs compilation failure.
func LogGenerateError(logger *slog.Logger, generationID string, err error, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Error("generation failed",
		slog.String("generation_id", generationID),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogPhaseStart logs an emitter phase start.
func LogPhaseStart(logger *slog.Logger, phase string) {
	if logger == nil {
		return
	}
	logger.Debug("phase starting",
		slog.String("phase", phase),
	)
}

// LogPhaseComplete logs successful emitter phase completion.
func LogPhaseComplete(logger *slog.Logger, phase string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("phase completed",
		slog.String("phase", phase),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogWarning logs a node-scoped compilation warning.
func LogWarning(logger *slog.Logger, nodeID, message string) {
	if logger == nil {
		return
	}
	logger.Warn("generation warning",
		slog.String("node_id", nodeID),
		slog.String("message", message),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	durationMs := done()
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
