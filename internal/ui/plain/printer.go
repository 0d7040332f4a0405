// Package plain prints loop and benchmark progress as plain lines.
package plain

import (
	"fmt"
	"io"
	"sync"

	"promptopt/internal/loop"
	"promptopt/internal/runner"
)

// Printer implements runner.Observer and loop.PhaseObserver.
type Printer struct {
	mu    sync.Mutex
	out   io.Writer
	items bool
}

// Option configures a Printer.
type Option func(*Printer)

// WithItemProgress toggles the per-item progress lines.
func WithItemProgress(enabled bool) Option {
	return func(p *Printer) {
		p.items = enabled
	}
}

// New returns a printer writing to out with item progress enabled.
func New(out io.Writer, opts ...Option) *Printer {
	p := &Printer{out: out, items: true}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Printer) OnBenchmarkStart(total int) {
	if !p.items {
		return
	}
	p.printf("Evaluating %d benchmark items\n", total)
}

func (p *Printer) OnItemEvent(event runner.ItemEvent) {
	if !p.items {
		return
	}
	switch event.Type {
	case runner.ItemGraded:
		p.printf("[%d/%d] %d/%d facts | Current Score: %.2f | %s\n",
			event.Completed, event.Total, event.Passed, event.Facts, event.PassRate, event.Question)
	case runner.ItemFailed:
		p.printf("[%d/%d] failed: %s | %s\n", event.Completed, event.Total, event.Error, event.Question)
	}
}

func (p *Printer) OnBenchmarkEnd(runner.EvaluationReport) {}

func (p *Printer) OnPhaseStart(event loop.PhaseEvent) {
	switch event.Phase {
	case loop.PhaseEvaluating:
		p.printf("Evaluating prompt\n")
	case loop.PhaseOptimizing:
		p.printf("Optimizing prompt\n")
	}
}

func (p *Printer) OnPhaseEnd(event loop.PhaseEvent) {
	if event.Err != nil {
		p.printf("Error: %v\n", event.Err)
		return
	}
	state := event.State
	switch event.Phase {
	case loop.PhaseEvaluating:
		p.printf("Evaluation results:\nScore: %.2f\n", state.Score)
		if event.Report != nil && !event.Report.Valid() {
			p.printf("\nFailure reasons:\n%s\n", state.Feedback)
		}
	case loop.PhaseOptimizing:
		p.printf("Optimized prompt: %s\n", state.Prompt)
	case loop.PhaseTerminated:
		p.mu.Lock()
		defer p.mu.Unlock()
		printTermination(p.out, event.Termination, state)
	}
}

// PrintOutcome writes the final lines of a terminated outcome. Halted outcomes print nothing.
func PrintOutcome(out io.Writer, outcome loop.Outcome) {
	printTermination(out, outcome.Termination, outcome.State)
}

func printTermination(out io.Writer, termination loop.Termination, state loop.State) {
	if out == nil {
		return
	}
	switch termination {
	case loop.TerminationSuccess:
		fmt.Fprintf(out, "Prompt is valid\nFinal prompt (Score: %.2f):\n%s\n", state.Score, state.Prompt)
	case loop.TerminationMaxRetries:
		fmt.Fprintf(out, "Max retry count exceeded\nFinal prompt (Score: %.2f):\n%s\n", state.Score, state.Prompt)
		if state.Feedback != "" {
			fmt.Fprintf(out, "\nRemaining failure reasons:\n%s\n", state.Feedback)
		}
	}
}

func (p *Printer) printf(format string, args ...any) {
	if p == nil || p.out == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, format, args...)
}

var (
	_ runner.Observer    = (*Printer)(nil)
	_ loop.PhaseObserver = (*Printer)(nil)
)
