package live

import (
	"promptopt/internal/loop"
	"promptopt/internal/runner"
)

// EventKind identifies the type of live UI event.
type EventKind int

const (
	// EventBenchmarkStart signals a new benchmark pass.
	EventBenchmarkStart EventKind = iota
	// EventItem delivers a benchmark item status update.
	EventItem
	// EventBenchmarkEnd delivers the finished pass report.
	EventBenchmarkEnd
	// EventPhaseStart signals a loop phase was entered.
	EventPhaseStart
	// EventPhaseEnd signals a loop phase was left.
	EventPhaseEnd
)

// Event carries a UI update payload.
type Event struct {
	Kind   EventKind
	Total  int
	Item   runner.ItemEvent
	Report runner.EvaluationReport
	Phase  loop.PhaseEvent
}
