package gen

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/botforge/botc/pkg/botc/observability"
)

// Meta describes a finished compilation.
type Meta struct {
	// GenerationID uniquely identifies this compilation run.
	GenerationID string
	// Nodes is the number of nodes in the compiled document.
	Nodes int
	// Lines is the size of the emitted artifact.
	Lines int
	// Handlers is the number of registered handlers in the artifact.
	Handlers int
	// Elapsed is the wall-clock compilation time.
	Elapsed time.Duration
}

// Result is the outcome of a compilation. Code holds the complete emitted
// program when OK is true and is empty otherwise: a failed compilation never
// hands back a truncated program.
type Result struct {
	Code     string
	Meta     Meta
	Warnings []Warning
	Errors   []error
	OK       bool
}

// phase is one step of the emission pipeline.
type phase struct {
	name string
	run  func(*Context, *writer) error
}

// pipeline is the fixed emission order. Registration order matters in the
// emitted program: the universal text handler must register after every
// command and synonym handler so those filters win.
var pipeline = []phase{
	{"bootstrap", emitBootstrap},
	{"utilities", emitUtilities},
	{"handlers", emitHandlers},
	{"statemachine", emitStateMachine},
	{"mainloop", emitMainLoop},
}

// Generate compiles the document described by params into a runnable bot
// program. It never panics: emitter panics are recovered and surfaced as
// UnknownError in the result. Given equal params, the emitted code is
// byte-identical across calls.
func Generate(ctx context.Context, params BuildParams, opts ...Option) Result {
	cfg := defaultGenConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	gctx := BuildContext(params)
	generationID := uuid.NewString()
	done := observability.TimedOperation()

	spanCtx, genSpan := cfg.spans.StartGenerationSpan(ctx, params.BotName, generationID)
	observability.LogGenerateStart(cfg.logger, generationID, len(gctx.Nodes()))

	w := &writer{}
	res := Result{OK: true}
	for _, ph := range pipeline {
		if err := runPhase(spanCtx, cfg, ph, gctx, w); err != nil {
			res.Errors = append(res.Errors, err)
			res.OK = false
			break
		}
	}

	elapsed := done()
	if res.OK {
		res.Code = w.String()
	}
	res.Warnings = w.warnings
	res.Meta = Meta{
		GenerationID: generationID,
		Nodes:        len(gctx.Nodes()),
		Lines:        w.Lines(),
		Handlers:     w.Handlers(),
		Elapsed:      time.Duration(elapsed) * time.Millisecond,
	}

	for _, warn := range res.Warnings {
		observability.LogWarning(cfg.logger, warn.NodeID, warn.Message)
	}
	cfg.metrics.RecordGeneration(ctx, res.OK, res.Meta.Elapsed)
	cfg.metrics.RecordArtifact(ctx, int64(res.Meta.Lines), int64(res.Meta.Handlers))
	cfg.metrics.RecordWarnings(ctx, int64(len(res.Warnings)))

	if res.OK {
		cfg.spans.EndSpanWithError(genSpan, nil)
		observability.LogGenerateComplete(cfg.logger, generationID, elapsed, res.Meta.Lines, res.Meta.Handlers)
	} else {
		cfg.spans.EndSpanWithError(genSpan, res.Errors[len(res.Errors)-1])
		observability.LogGenerateError(cfg.logger, generationID, res.Errors[len(res.Errors)-1], elapsed)
	}
	return res
}

// runPhase executes one pipeline phase with panic recovery, logging, span and
// metric bookkeeping.
func runPhase(ctx context.Context, cfg genConfig, ph phase, gctx *Context, w *writer) (err error) {
	done := observability.TimedOperation()
	_, span := cfg.spans.StartPhaseSpan(ctx, ph.name)
	observability.LogPhaseStart(cfg.logger, ph.name)

	defer func() {
		if r := recover(); r != nil {
			err = &UnknownError{Component: ph.name, Err: fmt.Errorf("panic: %v", r)}
		}
		elapsed := done()
		cfg.spans.EndSpanWithError(span, err)
		cfg.metrics.RecordPhase(ctx, ph.name, time.Duration(elapsed)*time.Millisecond, err)
		if err == nil {
			observability.LogPhaseComplete(cfg.logger, ph.name, elapsed)
		}
	}()

	return ph.run(gctx, w)
}
