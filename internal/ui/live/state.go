package live

import (
	"time"

	"promptopt/internal/loop"
	"promptopt/internal/runner"
)

// ItemRow holds UI state for a single benchmark item.
type ItemRow struct {
	Index      int
	Question   string
	Status     runner.ItemEventType
	Score      float64
	Passed     int
	Facts      int
	StartedAt  time.Time
	FinishedAt time.Time
	Error      string
}

// StatusCounts aggregates counts by status bucket.
type StatusCounts struct {
	Queued    int
	Answering int
	Grading   int
	Graded    int
	Failed    int
	Done      int
}

// State captures the live UI state for a loop run or a single pass.
type State struct {
	RunID       string
	StartedAt   time.Time
	Phase       loop.Phase
	Iteration   int
	RetryCount  int
	Score       float64
	Scored      bool
	Decision    loop.Decision
	Termination loop.Termination
	PassRate    float64
	Total       int
	LastEvent   string
	Rows        []ItemRow
	Counts      StatusCounts
}
