package tracing

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"promptopt/internal/loop"
)

// Span and attribute names.
const (
	SpanRun = "promptopt.loop.run"

	AttrRunID       = "promptopt.run_id"
	AttrIteration   = "promptopt.iteration"
	AttrScore       = "promptopt.score"
	AttrRetryCount  = "promptopt.retry_count"
	AttrDecision    = "promptopt.decision"
	AttrTermination = "promptopt.termination"
	AttrFailures    = "promptopt.failures"
)

// SpanName returns the span name of a loop phase.
func SpanName(phase loop.Phase) string {
	return "promptopt.loop." + string(phase)
}

type phaseKey struct {
	runID     string
	phase     loop.Phase
	iteration int
}

// Observer opens a run span on the first phase and one child span per phase.
type Observer struct {
	ctx    context.Context
	tracer trace.Tracer

	mu     sync.Mutex
	runs   map[string]runSpan
	phases map[phaseKey]trace.Span
}

type runSpan struct {
	ctx  context.Context
	span trace.Span
}

// NewObserver parents run spans under ctx.
func NewObserver(ctx context.Context, provider *Provider) *Observer {
	return &Observer{
		ctx:    ctx,
		tracer: provider.Tracer(),
		runs:   map[string]runSpan{},
		phases: map[phaseKey]trace.Span{},
	}
}

func (o *Observer) OnPhaseStart(event loop.PhaseEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	run, ok := o.runs[event.RunID]
	if !ok {
		ctx, span := o.tracer.Start(o.ctx, SpanRun,
			trace.WithTimestamp(event.At),
			trace.WithAttributes(attribute.String(AttrRunID, event.RunID)),
		)
		run = runSpan{ctx: ctx, span: span}
		o.runs[event.RunID] = run
	}
	_, span := o.tracer.Start(run.ctx, SpanName(event.Phase),
		trace.WithTimestamp(event.At),
		trace.WithAttributes(
			attribute.String(AttrRunID, event.RunID),
			attribute.Int(AttrIteration, event.Iteration),
		),
	)
	o.phases[phaseKey{event.RunID, event.Phase, event.Iteration}] = span
}

func (o *Observer) OnPhaseEnd(event loop.PhaseEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	key := phaseKey{event.RunID, event.Phase, event.Iteration}
	span, ok := o.phases[key]
	if !ok {
		return
	}
	delete(o.phases, key)

	span.SetAttributes(
		attribute.Float64(AttrScore, event.State.Score),
		attribute.Int(AttrRetryCount, event.State.RetryCount),
	)
	if event.Report != nil {
		span.SetAttributes(attribute.Int(AttrFailures, len(event.Report.FailureReasons)))
	}
	if event.Decision != "" {
		span.SetAttributes(attribute.String(AttrDecision, string(event.Decision)))
	}
	if event.Err != nil {
		span.RecordError(event.Err)
		span.SetStatus(codes.Error, event.Err.Error())
	}
	span.End(trace.WithTimestamp(event.At))

	if event.Phase == loop.PhaseTerminated {
		if run, ok := o.runs[event.RunID]; ok {
			run.span.SetAttributes(
				attribute.String(AttrTermination, string(event.Termination)),
				attribute.Float64(AttrScore, event.State.Score),
			)
			run.span.End(trace.WithTimestamp(event.At))
			delete(o.runs, event.RunID)
		}
	}
}

// Finish ends the run span of a halted run. Terminated runs were already closed.
func (o *Observer) Finish(runID string, outcome loop.Outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	run, ok := o.runs[runID]
	if !ok {
		return
	}
	delete(o.runs, runID)
	if outcome.Error != "" {
		run.span.RecordError(fmt.Errorf("%s", outcome.Error))
		run.span.SetStatus(codes.Error, outcome.Error)
	}
	run.span.End()
}

var _ loop.PhaseObserver = (*Observer)(nil)
