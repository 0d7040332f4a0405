package live

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"promptopt/internal/runner"
)

// formatIndex formats an item index.
func formatIndex(index int) string {
	return "Q" + pad2(index+1)
}

// pad2 left-pads a number to two digits when needed.
func pad2(value int) string {
	if value >= 10 {
		return fmtInt(value)
	}
	return "0" + fmtInt(value)
}

func fmtInt(value int) string {
	return strconv.Itoa(value)
}

func formatScore(score float64) string {
	return fmt.Sprintf("%.2f", score)
}

// formatQuestionText truncates question text for display.
func formatQuestionText(text string, limit int) string {
	normalized := strings.Join(strings.Fields(text), " ")
	if limit < 4 || len(normalized) <= limit {
		return normalized
	}
	return normalized[:limit-3] + "..."
}

// formatStatus renders a status string for a row.
func formatStatus(row ItemRow, noColor bool) string {
	label := string(row.Status)
	if row.Status == runner.ItemFailed && row.Error != "" {
		label = "failed: " + formatQuestionText(row.Error, 40)
	}
	if noColor {
		return label
	}
	return statusStyle(row.Status).Render(label)
}

// formatRowScore shows the score once an item finished.
func formatRowScore(row ItemRow) string {
	switch row.Status {
	case runner.ItemGraded, runner.ItemFailed:
		return formatScore(row.Score)
	}
	return ""
}

// formatFacts shows passed over total facts.
func formatFacts(row ItemRow) string {
	if row.Facts == 0 {
		return ""
	}
	return fmtInt(row.Passed) + "/" + fmtInt(row.Facts)
}

// formatRowDuration returns elapsed or total time for a row.
func formatRowDuration(row ItemRow, now time.Time) string {
	if row.StartedAt.IsZero() {
		return ""
	}
	if !row.FinishedAt.IsZero() {
		return formatDuration(row.FinishedAt.Sub(row.StartedAt))
	}
	return formatDuration(now.Sub(row.StartedAt))
}

// formatDuration renders a rounded duration for display.
func formatDuration(duration time.Duration) string {
	if duration <= 0 {
		return "0s"
	}
	return duration.Round(100 * time.Millisecond).String()
}

// statusStyle selects a style for a given status.
func statusStyle(status runner.ItemEventType) lipgloss.Style {
	color := lipgloss.Color("244")
	switch status {
	case runner.ItemGraded:
		color = lipgloss.Color("42")
	case runner.ItemFailed:
		color = lipgloss.Color("196")
	case runner.ItemAnswering:
		color = lipgloss.Color("33")
	case runner.ItemGrading:
		color = lipgloss.Color("201")
	case runner.ItemQueued:
		color = lipgloss.Color("246")
	}
	return lipgloss.NewStyle().Foreground(color)
}
