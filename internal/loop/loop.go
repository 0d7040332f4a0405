package loop

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"promptopt/internal/logging"
)

// Loop drives Evaluating -> Deciding -> {Optimizing -> Evaluating | Terminated}.
type Loop struct {
	evaluator Evaluator
	rewriter  Rewriter
	feedback  FeedbackFunc
	artifact  ArtifactWriter
	policy    Policy
	prompt    string
	runID     string
	observer  PhaseObserver
	logger    logging.Logger
	now       func() time.Time
}

// Option configures a Loop.
type Option func(*Loop)

// WithThreshold overrides the success threshold.
func WithThreshold(threshold float64) Option {
	return func(l *Loop) {
		l.policy.Threshold = threshold
	}
}

// WithMaxRetries overrides the retry budget.
func WithMaxRetries(maxRetries int) Option {
	return func(l *Loop) {
		if maxRetries >= 0 {
			l.policy.MaxRetries = maxRetries
		}
	}
}

// WithInitialPrompt sets the prompt of the first evaluation.
func WithInitialPrompt(prompt string) Option {
	return func(l *Loop) {
		l.prompt = prompt
	}
}

// WithFeedback replaces the default feedback formatter.
func WithFeedback(feedback FeedbackFunc) Option {
	return func(l *Loop) {
		if feedback != nil {
			l.feedback = feedback
		}
	}
}

// WithArtifactWriter replaces the default file artifact.
func WithArtifactWriter(artifact ArtifactWriter) Option {
	return func(l *Loop) {
		if artifact != nil {
			l.artifact = artifact
		}
	}
}

// WithObserver attaches a phase observer.
func WithObserver(observer PhaseObserver) Option {
	return func(l *Loop) {
		if observer != nil {
			l.observer = observer
		}
	}
}

// WithRunID tags phase events.
func WithRunID(runID string) Option {
	return func(l *Loop) {
		l.runID = runID
	}
}

func WithLogger(logger logging.Logger) Option {
	return func(l *Loop) {
		l.logger = logging.OrNop(logger)
	}
}

// New builds a Loop with the default policy, prompt and artifact path.
func New(evaluator Evaluator, rewriter Rewriter, opts ...Option) *Loop {
	l := &Loop{
		evaluator: evaluator,
		rewriter:  rewriter,
		feedback:  RawFeedback,
		artifact:  FileArtifact{Path: DefaultArtifactPath},
		policy:    DefaultPolicy(),
		prompt:    DefaultPrompt,
		observer:  nopObserver{},
		logger:    logging.Nop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Policy returns the effective termination constants.
func (l *Loop) Policy() Policy {
	return l.policy
}

// Run executes the loop to a terminal state. On a fatal error the returned
// Outcome carries the last state with an unchanged prompt and no termination.
func (l *Loop) Run(ctx context.Context) (Outcome, error) {
	if l.evaluator == nil || l.rewriter == nil {
		return Outcome{}, errors.New("loop requires an evaluator and a rewriter")
	}
	outcome := Outcome{State: State{Prompt: l.prompt}}
	for {
		iteration, err := l.evaluate(ctx, &outcome)
		if err != nil {
			return l.halt(outcome, err)
		}

		decision := l.decide(&outcome, iteration)
		switch decision {
		case DecisionSuccess:
			path, err := l.persist(outcome.State)
			if err != nil {
				return l.halt(outcome, err)
			}
			outcome.ArtifactPath = path
			return l.terminate(outcome, TerminationSuccess), nil
		case DecisionMaxRetries:
			return l.terminate(outcome, TerminationMaxRetries), nil
		}

		if err := l.optimize(ctx, &outcome, iteration); err != nil {
			return l.halt(outcome, err)
		}
	}
}

func (l *Loop) evaluate(ctx context.Context, outcome *Outcome) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	iteration := len(outcome.Iterations) + 1
	started := l.start(PhaseEvaluating, iteration, outcome.State)
	l.logger.Info("evaluating prompt", "iteration", iteration)

	report, err := l.evaluator.Evaluate(ctx, outcome.State.Prompt)
	if err != nil {
		err = fmt.Errorf("evaluate prompt: %w", err)
		l.end(PhaseEvent{Phase: PhaseEvaluating, Iteration: iteration, State: outcome.State, Err: err}, started)
		return iteration, err
	}
	feedback, err := l.feedback(ctx, report)
	if err != nil {
		err = fmt.Errorf("build feedback: %w", err)
		l.end(PhaseEvent{Phase: PhaseEvaluating, Iteration: iteration, State: outcome.State, Report: &report, Err: err}, started)
		return iteration, err
	}

	outcome.State.Score = report.OverallScore
	outcome.State.Valid = report.Valid()
	outcome.State.Feedback = feedback
	outcome.State.RetryCount++
	outcome.Iterations = append(outcome.Iterations, Iteration{
		Number:   iteration,
		Prompt:   outcome.State.Prompt,
		Score:    report.OverallScore,
		Valid:    outcome.State.Valid,
		Feedback: feedback,
		Report:   report,
	})
	l.logger.Info("prompt evaluated", "iteration", iteration, "score", report.OverallScore, "failures", len(report.FailureReasons))
	l.end(PhaseEvent{Phase: PhaseEvaluating, Iteration: iteration, State: outcome.State, Report: &report}, started)
	return iteration, nil
}

func (l *Loop) decide(outcome *Outcome, iteration int) Decision {
	started := l.start(PhaseDeciding, iteration, outcome.State)
	decision := Decide(outcome.State.Score, outcome.State.RetryCount, l.policy)
	outcome.Iterations[len(outcome.Iterations)-1].Decision = decision
	l.logger.Debug("decision", "iteration", iteration, "decision", string(decision), "retry_count", outcome.State.RetryCount)
	l.end(PhaseEvent{Phase: PhaseDeciding, Iteration: iteration, State: outcome.State, Decision: decision}, started)
	return decision
}

func (l *Loop) optimize(ctx context.Context, outcome *Outcome, iteration int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	started := l.start(PhaseOptimizing, iteration, outcome.State)
	l.logger.Info("optimizing prompt", "iteration", iteration)
	state := outcome.State
	rewritten, err := l.rewriter.Rewrite(ctx, state.Prompt, state.Feedback, state.Score)
	if err == nil && strings.TrimSpace(rewritten) == "" {
		err = errors.New("rewriter returned an empty prompt")
	}
	if err != nil {
		if ctx.Err() == nil {
			err = asRewriteUnavailable(err)
		}
		l.end(PhaseEvent{Phase: PhaseOptimizing, Iteration: iteration, State: outcome.State, Err: err}, started)
		return err
	}
	outcome.State.Prompt = rewritten
	l.end(PhaseEvent{Phase: PhaseOptimizing, Iteration: iteration, State: outcome.State}, started)
	return nil
}

func (l *Loop) persist(state State) (string, error) {
	path, err := l.artifact.WriteArtifact(state.Score, state.Prompt)
	if err != nil {
		return "", fmt.Errorf("persist prompt: %w", err)
	}
	return path, nil
}

func (l *Loop) terminate(outcome Outcome, termination Termination) Outcome {
	outcome.Termination = termination
	iteration := len(outcome.Iterations)
	started := l.start(PhaseTerminated, iteration, outcome.State)
	l.logger.Info("loop terminated", "termination", string(termination), "score", outcome.State.Score, "retry_count", outcome.State.RetryCount)
	l.end(PhaseEvent{Phase: PhaseTerminated, Iteration: iteration, State: outcome.State, Termination: termination}, started)
	return outcome
}

func (l *Loop) halt(outcome Outcome, err error) (Outcome, error) {
	outcome.Termination = TerminationNone
	outcome.Error = err.Error()
	l.logger.Error("loop halted", "error", err)
	return outcome, err
}

func (l *Loop) start(phase Phase, iteration int, state State) time.Time {
	now := l.now()
	l.observer.OnPhaseStart(PhaseEvent{RunID: l.runID, Phase: phase, Iteration: iteration, State: state, At: now})
	return now
}

func (l *Loop) end(event PhaseEvent, started time.Time) {
	now := l.now()
	event.RunID = l.runID
	event.At = now
	event.Elapsed = now.Sub(started)
	l.observer.OnPhaseEnd(event)
}

// Summary is a short human line for a finished outcome.
func Summary(outcome Outcome) string {
	switch outcome.Termination {
	case TerminationSuccess:
		return fmt.Sprintf("Final prompt (Score: %.2f)", outcome.State.Score)
	case TerminationMaxRetries:
		return "Max retry count exceeded"
	default:
		return "Loop halted"
	}
}
