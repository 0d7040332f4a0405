package history

import (
	"context"
	"errors"
	"sync"
	"time"

	"promptopt/internal/logging"
	"promptopt/internal/loop"
)

// Recorder is a loop.PhaseObserver that writes each transition to a Store.
// Observer callbacks cannot fail the loop, so write errors are logged and
// kept for Err.
type Recorder struct {
	ctx    context.Context
	store  *Store
	policy loop.Policy
	logger logging.Logger
	now    func() time.Time

	mu       sync.Mutex
	started  map[string]bool
	finished map[string]bool
	errs     []error
}

// NewRecorder binds a store to the context used for its writes.
func NewRecorder(ctx context.Context, store *Store, policy loop.Policy, logger logging.Logger) *Recorder {
	return &Recorder{
		ctx:      ctx,
		store:    store,
		policy:   policy,
		logger:   logging.OrNop(logger),
		now:      time.Now,
		started:  map[string]bool{},
		finished: map[string]bool{},
	}
}

func (r *Recorder) OnPhaseStart(event loop.PhaseEvent) {
	if event.Phase != loop.PhaseEvaluating {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started[event.RunID] {
		return
	}
	r.started[event.RunID] = true
	r.record("begin run", r.store.BeginRun(r.ctx, RunStart{
		RunID:         event.RunID,
		StartedAt:     r.at(event),
		InitialPrompt: event.State.Prompt,
		Threshold:     r.policy.Threshold,
		MaxRetries:    r.policy.MaxRetries,
	}))
}

func (r *Recorder) OnPhaseEnd(event loop.PhaseEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch event.Phase {
	case loop.PhaseEvaluating:
		if event.Err != nil || event.Report == nil {
			r.finish("record halt", RunFinish{
				RunID:       event.RunID,
				FinishedAt:  r.at(event),
				FinalScore:  event.State.Score,
				FinalPrompt: event.State.Prompt,
				Iterations:  event.Iteration - 1,
				Error:       errorText(event.Err),
			})
			return
		}
		report := *event.Report
		r.record("record iteration", r.store.RecordIteration(r.ctx, IterationRecord{
			RunID:      event.RunID,
			Number:     event.Iteration,
			Prompt:     event.State.Prompt,
			Score:      report.OverallScore,
			Valid:      report.Valid(),
			RetryCount: event.State.RetryCount,
			ItemErrors: report.ItemErrors,
			Questions:  len(report.Results),
			Elapsed:    event.Elapsed,
			RecordedAt: r.at(event),
			Failures:   report.FailureReasons,
			Report:     &report,
		}))
	case loop.PhaseDeciding:
		r.record("record decision", r.store.SetDecision(r.ctx, event.RunID, event.Iteration, string(event.Decision)))
	case loop.PhaseOptimizing:
		if event.Err == nil {
			return
		}
		r.finish("record halt", RunFinish{
			RunID:       event.RunID,
			FinishedAt:  r.at(event),
			FinalScore:  event.State.Score,
			FinalPrompt: event.State.Prompt,
			Iterations:  event.Iteration,
			Error:       errorText(event.Err),
		})
	case loop.PhaseTerminated:
		r.finish("finish run", RunFinish{
			RunID:       event.RunID,
			FinishedAt:  r.at(event),
			Termination: string(event.Termination),
			FinalScore:  event.State.Score,
			FinalPrompt: event.State.Prompt,
			Iterations:  event.Iteration,
		})
	}
}

// Finish closes a run that halted outside any phase, such as a failed
// artifact write. Runs already closed by a phase event are left alone.
func (r *Recorder) Finish(runID string, outcome loop.Outcome) {
	if outcome.Terminated() || outcome.Error == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished[runID] {
		return
	}
	r.finish("record halt", RunFinish{
		RunID:       runID,
		FinishedAt:  r.now(),
		FinalScore:  outcome.State.Score,
		FinalPrompt: outcome.State.Prompt,
		Iterations:  len(outcome.Iterations),
		Error:       outcome.Error,
	})
}

// finish closes a run once; callers hold mu.
func (r *Recorder) finish(op string, run RunFinish) {
	r.finished[run.RunID] = true
	r.record(op, r.store.FinishRun(r.ctx, run))
}

// Err joins every write failure seen so far.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return errors.Join(r.errs...)
}

func (r *Recorder) record(op string, err error) {
	if err == nil {
		return
	}
	r.logger.Warn("history write failed", "op", op, "error", err)
	r.errs = append(r.errs, err)
}

func (r *Recorder) at(event loop.PhaseEvent) time.Time {
	if event.At.IsZero() {
		return r.now()
	}
	return event.At
}

func errorText(err error) string {
	if err == nil {
		return "evaluation returned no report"
	}
	return err.Error()
}
