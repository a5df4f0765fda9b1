package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records compilation metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordGeneration records a whole compilation with its outcome and duration.
	RecordGeneration(ctx context.Context, success bool, duration time.Duration)

	// RecordPhase records one emitter phase with its duration and error status.
	RecordPhase(ctx context.Context, phase string, duration time.Duration, err error)

	// RecordArtifact records the size of an emitted artifact.
	RecordArtifact(ctx context.Context, lines, handlers int64)

	// RecordWarnings records the number of warnings a compilation produced.
	RecordWarnings(ctx context.Context, count int64)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	generations      metric.Int64Counter
	generationTime   metric.Float64Histogram
	phaseTime        metric.Float64Histogram
	phaseErrors      metric.Int64Counter
	artifactLines    metric.Int64Histogram
	artifactHandlers metric.Int64Histogram
	warningCount     metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("botc")

	generations, err := meter.Int64Counter("botc.generations",
		metric.WithDescription("Number of compilations"),
	)
	if err != nil {
		return nil, err
	}

	generationTime, err := meter.Float64Histogram("botc.generation.latency_ms",
		metric.WithDescription("Compilation latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	phaseTime, err := meter.Float64Histogram("botc.phase.latency_ms",
		metric.WithDescription("Emitter phase latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	phaseErrors, err := meter.Int64Counter("botc.phase.errors",
		metric.WithDescription("Number of emitter phase errors"),
	)
	if err != nil {
		return nil, err
	}

	artifactLines, err := meter.Int64Histogram("botc.artifact.lines",
		metric.WithDescription("Emitted artifact size in lines"),
	)
	if err != nil {
		return nil, err
	}

	artifactHandlers, err := meter.Int64Histogram("botc.artifact.handlers",
		metric.WithDescription("Number of handlers in the emitted artifact"),
	)
	if err != nil {
		return nil, err
	}

	warningCount, err := meter.Int64Counter("botc.generation.warnings",
		metric.WithDescription("Number of compilation warnings"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		generations:      generations,
		generationTime:   generationTime,
		phaseTime:        phaseTime,
		phaseErrors:      phaseErrors,
		artifactLines:    artifactLines,
		artifactHandlers: artifactHandlers,
		warningCount:     warningCount,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordGeneration records a compilation.
func (m *otelMetrics) RecordGeneration(ctx context.Context, success bool, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.Bool("success", success),
	}
	m.generations.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.generationTime.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordPhase records an emitter phase.
func (m *otelMetrics) RecordPhase(ctx context.Context, phase string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("phase", phase),
	}
	m.phaseTime.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	if err != nil {
		m.phaseErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordArtifact records artifact size metrics.
func (m *otelMetrics) RecordArtifact(ctx context.Context, lines, handlers int64) {
	m.artifactLines.Record(ctx, lines)
	m.artifactHandlers.Record(ctx, handlers)
}

// RecordWarnings records the warning count of a compilation.
func (m *otelMetrics) RecordWarnings(ctx context.Context, count int64) {
	if count > 0 {
		m.warningCount.Add(ctx, count)
	}
}
