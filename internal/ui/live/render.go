package live

import (
	"time"

	"github.com/charmbracelet/lipgloss"
)

// renderHeader renders the run header line.
func renderHeader(state State, now time.Time, noColor bool) string {
	line := "Run " + state.RunID
	if state.RunID == "" {
		line = "Evaluation"
	}
	if !state.StartedAt.IsZero() {
		line += " | Elapsed: " + now.Sub(state.StartedAt).Round(100*time.Millisecond).String()
	}
	return stylize(line, noColor, lipgloss.Color("33"))
}

// renderLoopLine renders the loop phase, retry count and last score.
func renderLoopLine(state State, noColor bool) string {
	if state.Phase == "" {
		return ""
	}
	line := "Iteration " + fmtInt(state.Iteration) +
		" | Phase: " + string(state.Phase) +
		" | Retries: " + fmtInt(state.RetryCount)
	if state.Scored {
		line += " | Score: " + formatScore(state.Score)
	}
	if state.Decision != "" {
		line += " | Decision: " + string(state.Decision)
	}
	if state.Termination != "" {
		line += " | " + string(state.Termination)
	}
	return stylize(line, noColor, lipgloss.Color("240"))
}

// renderSummary renders the status counts line.
func renderSummary(state State, noColor bool) string {
	counts := state.Counts
	line := "Items: " + fmtInt(state.Total) +
		" Queued: " + fmtInt(counts.Queued) +
		" Answering: " + fmtInt(counts.Answering) +
		" Grading: " + fmtInt(counts.Grading) +
		" Graded: " + fmtInt(counts.Graded) +
		" Failed: " + fmtInt(counts.Failed) +
		" Pass rate: " + formatScore(state.PassRate)
	return stylize(line, noColor, lipgloss.Color("242"))
}

// renderFooter renders the last event line.
func renderFooter(state State, noColor bool) string {
	if state.LastEvent == "" {
		return ""
	}
	return stylize("Last event: "+state.LastEvent, noColor, lipgloss.Color("244"))
}

// stylize applies optional color styling.
func stylize(text string, noColor bool, color lipgloss.Color) string {
	if noColor {
		return text
	}
	return lipgloss.NewStyle().Foreground(color).Render(text)
}
