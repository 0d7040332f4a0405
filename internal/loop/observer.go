package loop

import (
	"time"

	"promptopt/internal/runner"
)

// PhaseEvent describes entering or leaving a phase.
type PhaseEvent struct {
	RunID     string
	Phase     Phase
	Iteration int
	State     State
	// Decision is set when leaving PhaseDeciding.
	Decision Decision
	// Report is set when leaving PhaseEvaluating.
	Report *runner.EvaluationReport
	// Termination is set on PhaseTerminated.
	Termination Termination
	// Elapsed is set on phase end.
	Elapsed time.Duration
	Err     error
	At      time.Time
}

// PhaseObserver receives every state transition.
type PhaseObserver interface {
	OnPhaseStart(event PhaseEvent)
	OnPhaseEnd(event PhaseEvent)
}

// MultiPhaseObserver fans out to several observers; nil entries are skipped.
type MultiPhaseObserver []PhaseObserver

func (m MultiPhaseObserver) OnPhaseStart(event PhaseEvent) {
	for _, observer := range m {
		if observer != nil {
			observer.OnPhaseStart(event)
		}
	}
}

func (m MultiPhaseObserver) OnPhaseEnd(event PhaseEvent) {
	for _, observer := range m {
		if observer != nil {
			observer.OnPhaseEnd(event)
		}
	}
}

type nopObserver struct{}

func (nopObserver) OnPhaseStart(PhaseEvent) {}
func (nopObserver) OnPhaseEnd(PhaseEvent)   {}
