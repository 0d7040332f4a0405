package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"promptopt/internal/history"
)

// runHistory builds the handler for the history command.
func runHistory(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}
		flags := newFlagSet(cmd, stderr)
		specPath := flags.String("spec", "", "Path to config file (default: search for .promptopt/config.yml)")
		runID := flags.String("run", "", "Show the iterations of one run")
		limit := flags.Int("limit", history.DefaultListLimit, "Maximum runs to list")
		if code, ok := parseFlags(cmd, flags, args, stdout, stderr); !ok {
			return code
		}

		cfg, ok := loadConfig(*specPath, stderr)
		if !ok {
			return ExitError
		}
		if cfg.History.Path == "" {
			fmt.Fprintln(stderr, "History failed: history.path is not set")
			return ExitError
		}

		ctx := context.Background()
		store, err := history.Open(ctx, cfg.History.Path)
		if err != nil {
			fmt.Fprintf(stderr, "History failed: %v\n", err)
			return ExitError
		}
		defer store.Close()

		if *runID != "" {
			err = printRunHistory(ctx, store, *runID, stdout)
		} else {
			err = printRunList(ctx, store, *limit, stdout)
		}
		if errors.Is(err, history.ErrRunNotFound) {
			fmt.Fprintf(stderr, "History failed: run %s not found\n", *runID)
			return ExitError
		}
		if err != nil {
			fmt.Fprintf(stderr, "History failed: %v\n", err)
			return ExitError
		}
		return ExitOK
	}
}

func printRunList(ctx context.Context, store *history.Store, limit int, out io.Writer) error {
	runs, err := store.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			run.RunID,
			run.StartedAt.Local().Format(time.DateTime),
			runStatus(run),
			strconv.Itoa(run.Iterations),
			optionalScore(run.FinalScore),
		})
	}
	fmt.Fprintln(out, renderTable([]string{"RUN", "STARTED", "STATUS", "ITERATIONS", "SCORE"}, rows))
	return nil
}

func printRunHistory(ctx context.Context, store *history.Store, runID string, out io.Writer) error {
	run, err := store.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	iterations, err := store.ListIterations(ctx, runID)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Run %s\n", run.RunID)
	fmt.Fprintf(out, "Status: %s\n", runStatus(run))
	if run.Error != "" {
		fmt.Fprintf(out, "Error: %s\n", run.Error)
	}
	if run.FinalScore != nil {
		fmt.Fprintf(out, "Final prompt (Score: %.2f):\n%s\n", *run.FinalScore, run.FinalPrompt)
	}
	if len(iterations) == 0 {
		fmt.Fprintln(out, "No iterations recorded.")
		return nil
	}

	rows := make([][]string, 0, len(iterations))
	for _, iteration := range iterations {
		rows = append(rows, []string{
			strconv.Itoa(iteration.Number),
			fmt.Sprintf("%.2f", iteration.Score),
			strconv.FormatBool(iteration.Valid),
			strconv.Itoa(iteration.RetryCount),
			iteration.Decision,
			iteration.PromptHash,
			iteration.Elapsed.Round(time.Millisecond).String(),
		})
	}
	fmt.Fprintln(out, renderTable([]string{"#", "SCORE", "VALID", "RETRIES", "DECISION", "PROMPT", "ELAPSED"}, rows))

	last := iterations[len(iterations)-1]
	failures, err := store.ListFailures(ctx, runID, last.Number)
	if err != nil {
		return err
	}
	if len(failures) > 0 {
		fmt.Fprintf(out, "\nFailure reasons (iteration %d):\n", last.Number)
		for _, failure := range failures {
			fmt.Fprintf(out, "- %s | %s: %s\n", failure.Question, failure.Fact, failure.Reason)
		}
	}
	return nil
}

func renderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		String()
}

func runStatus(run history.RunRecord) string {
	switch {
	case run.Termination != "":
		return run.Termination
	case run.Error != "":
		return "halted"
	case run.FinishedAt == nil:
		return "running"
	default:
		return "halted"
	}
}

func optionalScore(score *float64) string {
	if score == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *score)
}
