package report

import (
	"fmt"
	"time"
)

// formatScore renders a score with the two decimals used by every message.
func formatScore(score float64) string {
	return fmt.Sprintf("%.2f", score)
}

// formatPassRate returns a percentage string for report output.
func formatPassRate(rate float64) string {
	return fmt.Sprintf("%.2f", rate*100)
}

func formatDuration(started, finished time.Time) string {
	if started.IsZero() || finished.IsZero() {
		return "-"
	}
	return finished.Sub(started).Round(time.Millisecond).String()
}
