package live

import (
	"fmt"

	"promptopt/internal/loop"
	"promptopt/internal/runner"
)

// StartBenchmark resets the item rows for a new pass of total items.
func StartBenchmark(state State, total int) State {
	state.Total = total
	state.Rows = make([]ItemRow, 0, total)
	state.Counts = StatusCounts{}
	state.PassRate = 0
	return state
}

// Reduce applies an item event to the UI state.
func Reduce(state State, event runner.ItemEvent) State {
	state = ensureRow(state, event)
	state = applyItemEvent(state, event)
	state.Counts = recount(state.Rows)
	if event.Type == runner.ItemGraded || event.Type == runner.ItemFailed {
		state.PassRate = event.PassRate
	}
	if message := formatLastEvent(event); message != "" {
		state.LastEvent = message
	}
	return state
}

// ReducePhase applies a loop transition to the UI state.
func ReducePhase(state State, event loop.PhaseEvent, ended bool) State {
	if state.RunID == "" {
		state.RunID = event.RunID
	}
	if state.StartedAt.IsZero() {
		state.StartedAt = event.At
	}
	state.Phase = event.Phase
	state.Iteration = event.Iteration
	state.RetryCount = event.State.RetryCount
	if !ended {
		return state
	}
	switch event.Phase {
	case loop.PhaseEvaluating:
		if event.Report != nil && event.Err == nil {
			state.Score = event.Report.OverallScore
			state.Scored = true
		}
	case loop.PhaseDeciding:
		state.Decision = event.Decision
	case loop.PhaseTerminated:
		state.Termination = event.Termination
	}
	if message := formatPhaseEnd(event); message != "" {
		state.LastEvent = message
	}
	return state
}

// ensureRow grows the state rows to include the target index.
func ensureRow(state State, event runner.ItemEvent) State {
	if event.Index < 0 {
		return state
	}
	if event.Index < len(state.Rows) {
		return state
	}
	rows := make([]ItemRow, event.Index+1)
	copy(rows, state.Rows)
	for i := len(state.Rows); i < len(rows); i++ {
		rows[i] = ItemRow{Index: i, Status: runner.ItemQueued}
	}
	state.Rows = rows
	return state
}

// applyItemEvent updates a row with the given event.
func applyItemEvent(state State, event runner.ItemEvent) State {
	if event.Index < 0 || event.Index >= len(state.Rows) {
		return state
	}
	row := state.Rows[event.Index]
	if row.Question == "" {
		row.Question = event.Question
	}
	row.Status = event.Type
	switch event.Type {
	case runner.ItemAnswering:
		if row.StartedAt.IsZero() {
			row.StartedAt = event.EmittedAt
		}
	case runner.ItemGraded, runner.ItemFailed:
		row.FinishedAt = event.EmittedAt
		row.Score = event.Score
		row.Passed = event.Passed
		row.Facts = event.Facts
		row.Error = event.Error
	}
	state.Rows[event.Index] = row
	return state
}

// recount recomputes status counts for the current rows.
func recount(rows []ItemRow) StatusCounts {
	var counts StatusCounts
	for _, row := range rows {
		switch row.Status {
		case runner.ItemQueued:
			counts.Queued++
		case runner.ItemAnswering:
			counts.Answering++
		case runner.ItemGrading:
			counts.Grading++
		case runner.ItemGraded:
			counts.Done++
			counts.Graded++
		case runner.ItemFailed:
			counts.Done++
			counts.Failed++
		}
	}
	return counts
}

// formatLastEvent creates a short footer message for the event.
func formatLastEvent(event runner.ItemEvent) string {
	switch event.Type {
	case runner.ItemGraded:
		return fmt.Sprintf("Q%d graded %d/%d", event.Index+1, event.Passed, event.Facts)
	case runner.ItemFailed:
		return fmt.Sprintf("Q%d failed: %s", event.Index+1, event.Error)
	}
	return ""
}

// formatPhaseEnd summarizes a finished loop phase.
func formatPhaseEnd(event loop.PhaseEvent) string {
	if event.Err != nil {
		return fmt.Sprintf("%s failed: %v", event.Phase, event.Err)
	}
	switch event.Phase {
	case loop.PhaseEvaluating:
		if event.Report != nil {
			return fmt.Sprintf("Iteration %d scored %s", event.Iteration, formatScore(event.Report.OverallScore))
		}
	case loop.PhaseDeciding:
		return fmt.Sprintf("Iteration %d decision: %s", event.Iteration, event.Decision)
	case loop.PhaseOptimizing:
		return fmt.Sprintf("Iteration %d prompt rewritten", event.Iteration)
	case loop.PhaseTerminated:
		return "Terminated: " + string(event.Termination)
	}
	return ""
}
