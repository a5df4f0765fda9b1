package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// setupMetricsTest creates a test meter provider and returns a function to collect metrics.
func setupMetricsTest(t *testing.T) (*sdkmetric.ManualReader, func()) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	originalProvider := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)

	cleanup := func() {
		otel.SetMeterProvider(originalProvider)
		if err := provider.Shutdown(context.Background()); err != nil {
			t.Logf("Error shutting down meter provider: %v", err)
		}
	}

	return reader, cleanup
}

// collectMetrics collects all metrics from the reader.
func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) *metricdata.ResourceMetrics {
	var rm metricdata.ResourceMetrics
	err := reader.Collect(context.Background(), &rm)
	require.NoError(t, err)
	return &rm
}

// findMetric finds a metric by name in the collected data.
func findMetric(rm *metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestNewMetricsRecorder(t *testing.T) {
	_, cleanup := setupMetricsTest(t)
	defer cleanup()

	recorder := NewMetricsRecorder()
	require.NotNil(t, recorder)

	// Should not be a noop (since we set up a real provider)
	_, isNoop := recorder.(NoopMetrics)
	assert.False(t, isNoop, "Expected real metrics recorder, got noop")
}

func TestRecordGeneration(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)

	ctx := context.Background()

	t.Run("records successful generations", func(t *testing.T) {
		m.RecordGeneration(ctx, true, 500*time.Millisecond)

		rm := collectMetrics(t, reader)
		metric := findMetric(rm, "botc.generations")
		require.NotNil(t, metric)

		sum, ok := metric.Data.(metricdata.Sum[int64])
		require.True(t, ok, "Expected Sum type")
		require.NotEmpty(t, sum.DataPoints)

		found := false
		for _, dp := range sum.DataPoints {
			for _, attr := range dp.Attributes.ToSlice() {
				if attr.Key == "success" && attr.Value.AsBool() {
					found = true
					assert.GreaterOrEqual(t, dp.Value, int64(1))
				}
			}
		}
		assert.True(t, found, "Expected to find datapoint for success=true")
	})

	t.Run("records failed generations", func(t *testing.T) {
		m.RecordGeneration(ctx, false, 100*time.Millisecond)

		rm := collectMetrics(t, reader)
		metric := findMetric(rm, "botc.generations")
		require.NotNil(t, metric)
	})

	t.Run("records latency", func(t *testing.T) {
		m.RecordGeneration(ctx, true, 200*time.Millisecond)

		rm := collectMetrics(t, reader)
		metric := findMetric(rm, "botc.generation.latency_ms")
		require.NotNil(t, metric)

		hist, ok := metric.Data.(metricdata.Histogram[float64])
		require.True(t, ok, "Expected Histogram type")
		require.NotEmpty(t, hist.DataPoints)
	})
}

func TestRecordPhase(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)

	ctx := context.Background()

	t.Run("records phase latency", func(t *testing.T) {
		m.RecordPhase(ctx, "handlers", 50*time.Millisecond, nil)

		rm := collectMetrics(t, reader)
		metric := findMetric(rm, "botc.phase.latency_ms")
		require.NotNil(t, metric)

		hist, ok := metric.Data.(metricdata.Histogram[float64])
		require.True(t, ok, "Expected Histogram type")
		require.NotEmpty(t, hist.DataPoints)
	})

	t.Run("records errors when present", func(t *testing.T) {
		m.RecordPhase(ctx, "bootstrap", 10*time.Millisecond, errors.New("phase failed"))

		rm := collectMetrics(t, reader)
		metric := findMetric(rm, "botc.phase.errors")
		require.NotNil(t, metric)

		sum, ok := metric.Data.(metricdata.Sum[int64])
		require.True(t, ok, "Expected Sum type")
		require.NotEmpty(t, sum.DataPoints)

		found := false
		for _, dp := range sum.DataPoints {
			for _, attr := range dp.Attributes.ToSlice() {
				if attr.Key == "phase" && attr.Value.AsString() == "bootstrap" {
					found = true
					assert.GreaterOrEqual(t, dp.Value, int64(1))
				}
			}
		}
		assert.True(t, found, "Expected to find error datapoint for phase=bootstrap")
	})

	t.Run("does not record error when nil", func(t *testing.T) {
		m.RecordPhase(ctx, "success_only", 10*time.Millisecond, nil)

		rm := collectMetrics(t, reader)
		metric := findMetric(rm, "botc.phase.errors")
		if metric != nil {
			sum, ok := metric.Data.(metricdata.Sum[int64])
			if ok {
				for _, dp := range sum.DataPoints {
					for _, attr := range dp.Attributes.ToSlice() {
						if attr.Key == "phase" && attr.Value.AsString() == "success_only" {
							assert.Equal(t, int64(0), dp.Value, "Expected no errors for success_only phase")
						}
					}
				}
			}
		}
	})
}

func TestRecordArtifact(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)

	ctx := context.Background()

	m.RecordArtifact(ctx, 1200, 14)

	rm := collectMetrics(t, reader)

	lines := findMetric(rm, "botc.artifact.lines")
	require.NotNil(t, lines)
	hist, ok := lines.Data.(metricdata.Histogram[int64])
	require.True(t, ok, "Expected Histogram[int64] type")
	require.NotEmpty(t, hist.DataPoints)
	assert.Greater(t, hist.DataPoints[0].Count, uint64(0))

	handlers := findMetric(rm, "botc.artifact.handlers")
	require.NotNil(t, handlers)
}

func TestRecordWarnings(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)

	ctx := context.Background()

	t.Run("records positive counts", func(t *testing.T) {
		m.RecordWarnings(ctx, 3)

		rm := collectMetrics(t, reader)
		metric := findMetric(rm, "botc.generation.warnings")
		require.NotNil(t, metric)

		sum, ok := metric.Data.(metricdata.Sum[int64])
		require.True(t, ok)
		require.NotEmpty(t, sum.DataPoints)
		assert.GreaterOrEqual(t, sum.DataPoints[0].Value, int64(3))
	})

	t.Run("skips zero counts", func(t *testing.T) {
		before := collectMetrics(t, reader)
		beforeMetric := findMetric(before, "botc.generation.warnings")

		m.RecordWarnings(ctx, 0)

		after := collectMetrics(t, reader)
		afterMetric := findMetric(after, "botc.generation.warnings")
		if beforeMetric != nil && afterMetric != nil {
			beforeSum := beforeMetric.Data.(metricdata.Sum[int64])
			afterSum := afterMetric.Data.(metricdata.Sum[int64])
			assert.Equal(t, beforeSum.DataPoints[0].Value, afterSum.DataPoints[0].Value)
		}
	})
}

func TestOtelMetrics_AllMethods(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)
	require.NotNil(t, m)

	ctx := context.Background()

	m.RecordGeneration(ctx, true, 100*time.Millisecond)
	m.RecordGeneration(ctx, false, 50*time.Millisecond)
	m.RecordPhase(ctx, "handlers", 25*time.Millisecond, nil)
	m.RecordPhase(ctx, "mainloop", 10*time.Millisecond, errors.New("test"))
	m.RecordArtifact(ctx, 800, 9)
	m.RecordWarnings(ctx, 2)

	rm := collectMetrics(t, reader)

	assert.NotNil(t, findMetric(rm, "botc.generations"))
	assert.NotNil(t, findMetric(rm, "botc.generation.latency_ms"))
	assert.NotNil(t, findMetric(rm, "botc.phase.latency_ms"))
	assert.NotNil(t, findMetric(rm, "botc.phase.errors"))
	assert.NotNil(t, findMetric(rm, "botc.artifact.lines"))
	assert.NotNil(t, findMetric(rm, "botc.artifact.handlers"))
	assert.NotNil(t, findMetric(rm, "botc.generation.warnings"))
}

func TestNewOtelMetrics_Creation(t *testing.T) {
	_, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)
	require.NotNil(t, m)

	assert.NotNil(t, m.generations)
	assert.NotNil(t, m.generationTime)
	assert.NotNil(t, m.phaseTime)
	assert.NotNil(t, m.phaseErrors)
	assert.NotNil(t, m.artifactLines)
	assert.NotNil(t, m.artifactHandlers)
	assert.NotNil(t, m.warningCount)
}
