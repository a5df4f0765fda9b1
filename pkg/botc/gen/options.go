package gen

import (
	"log/slog"

	"github.com/botforge/botc/pkg/botc/observability"
)

// genConfig holds configuration for a Generate call.
type genConfig struct {
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
}

// defaultGenConfig returns the default generation configuration.
func defaultGenConfig() genConfig {
	return genConfig{
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
	}
}

// Option configures a Generate call.
type Option func(*genConfig)

// WithLogger attaches a structured logger to the compilation.
// Default: no logging.
//
// Example:
//
//	result := gen.Generate(ctx, params, gen.WithLogger(slog.Default()))
func WithLogger(logger *slog.Logger) Option {
	return func(c *genConfig) {
		c.logger = logger
	}
}

// WithMetrics attaches a metrics recorder to the compilation.
// Default: no-op recorder.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(c *genConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithSpanManager attaches a trace span manager to the compilation.
// Default: no-op span manager.
func WithSpanManager(s observability.SpanManager) Option {
	return func(c *genConfig) {
		if s != nil {
			c.spans = s
		}
	}
}
