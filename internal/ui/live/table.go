package live

import (
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

const (
	narrowWidth      = 80
	minQuestionWidth = 20
)

// defaultColumns returns the column layout before the terminal size is known.
func defaultColumns() []table.Column {
	return columnsForWidth(120)
}

// columnsForWidth gives the question column whatever the fixed columns leave.
func columnsForWidth(width int) []table.Column {
	fixed := []table.Column{
		{Title: "#", Width: 4},
		{Title: "Status", Width: 24},
		{Title: "Score", Width: 6},
		{Title: "Facts", Width: 6},
		{Title: "Elapsed", Width: 8},
	}
	used := 0
	for _, column := range fixed {
		used += column.Width + 2
	}
	questionWidth := width - used - 2
	if questionWidth < minQuestionWidth {
		questionWidth = minQuestionWidth
	}
	if width > 0 && width < narrowWidth {
		fixed[1].Width = 12
	}
	return []table.Column{
		fixed[0],
		{Title: "Question", Width: questionWidth},
		fixed[1],
		fixed[2],
		fixed[3],
		fixed[4],
	}
}

// tableStyles returns table styles for the UI.
func tableStyles(noColor bool) table.Styles {
	if noColor {
		return table.DefaultStyles()
	}
	styles := table.DefaultStyles()
	styles.Header = styles.Header.Foreground(lipgloss.Color("252"))
	return styles
}

// rowsForState converts UI state into table rows.
func rowsForState(state State, now time.Time, questionWidth int, noColor bool) []table.Row {
	rows := make([]table.Row, 0, len(state.Rows))
	for _, row := range state.Rows {
		rows = append(rows, table.Row{
			formatIndex(row.Index),
			formatQuestionText(row.Question, questionWidth),
			formatStatus(row, noColor),
			formatRowScore(row),
			formatFacts(row),
			formatRowDuration(row, now),
		})
	}
	return rows
}
