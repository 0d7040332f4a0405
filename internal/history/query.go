package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"promptopt/internal/runner"
)

// ErrRunNotFound is returned when a run id has no stored row.
var ErrRunNotFound = errors.New("history: run not found")

// DefaultListLimit bounds ListRuns when no limit is given.
const DefaultListLimit = 20

// ListRuns returns the most recent runs first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT run_id, started_at, finished_at, initial_prompt, threshold, max_retries,
		        termination, final_score, final_prompt, iterations, error
		 FROM runs
		 ORDER BY started_at DESC, run_id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		record, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return out, nil
}

// GetRun returns one run or ErrRunNotFound.
func (s *Store) GetRun(ctx context.Context, runID string) (RunRecord, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT run_id, started_at, finished_at, initial_prompt, threshold, max_retries,
		        termination, final_score, final_prompt, iterations, error
		 FROM runs WHERE run_id = ?`,
		runID,
	)
	record, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, ErrRunNotFound
	}
	return record, err
}

// ListIterations returns a run's evaluations in order.
func (s *Store) ListIterations(ctx context.Context, runID string) ([]IterationRecord, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT run_id, number, prompt, prompt_hash, score, valid, retry_count,
		        item_errors, questions, decision, elapsed_ms, recorded_at
		 FROM iterations
		 WHERE run_id = ?
		 ORDER BY number`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list iterations: %w", err)
	}
	defer rows.Close()

	var out []IterationRecord
	for rows.Next() {
		var (
			record    IterationRecord
			decision  sql.NullString
			elapsedMS int64
		)
		if err := rows.Scan(
			&record.RunID,
			&record.Number,
			&record.Prompt,
			&record.PromptHash,
			&record.Score,
			&record.Valid,
			&record.RetryCount,
			&record.ItemErrors,
			&record.Questions,
			&decision,
			&elapsedMS,
			&record.RecordedAt,
		); err != nil {
			return nil, fmt.Errorf("scan iteration: %w", err)
		}
		record.Decision = decision.String
		record.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list iterations: %w", err)
	}
	return out, nil
}

// ListFailures returns the failed facts of one evaluation in report order.
func (s *Store) ListFailures(ctx context.Context, runID string, iteration int) ([]runner.FailureReason, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT question, fact, reason FROM failures
		 WHERE run_id = ? AND iteration = ?
		 ORDER BY ordinal`,
		runID,
		iteration,
	)
	if err != nil {
		return nil, fmt.Errorf("list failures: %w", err)
	}
	defer rows.Close()

	out := []runner.FailureReason{}
	for rows.Next() {
		var failure runner.FailureReason
		if err := rows.Scan(&failure.Question, &failure.Fact, &failure.Reason); err != nil {
			return nil, fmt.Errorf("scan failure: %w", err)
		}
		out = append(out, failure)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list failures: %w", err)
	}
	return out, nil
}

// LoadReport decodes the stored evaluation report of one iteration.
func (s *Store) LoadReport(ctx context.Context, runID string, iteration int) (runner.EvaluationReport, error) {
	var raw sql.NullString
	err := s.db.QueryRowContext(
		ctx,
		`SELECT CAST(report AS VARCHAR) FROM iterations WHERE run_id = ? AND number = ?`,
		runID,
		iteration,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return runner.EvaluationReport{}, ErrRunNotFound
	}
	if err != nil {
		return runner.EvaluationReport{}, fmt.Errorf("load report: %w", err)
	}
	if !raw.Valid {
		return runner.EvaluationReport{}, fmt.Errorf("load report: iteration %d has no report", iteration)
	}
	var report runner.EvaluationReport
	if err := json.Unmarshal([]byte(raw.String), &report); err != nil {
		return runner.EvaluationReport{}, fmt.Errorf("decode report: %w", err)
	}
	return report, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (RunRecord, error) {
	var (
		record      RunRecord
		finishedAt  sql.NullTime
		threshold   sql.NullFloat64
		maxRetries  sql.NullInt64
		termination sql.NullString
		finalScore  sql.NullFloat64
		finalPrompt sql.NullString
		runErr      sql.NullString
	)
	if err := row.Scan(
		&record.RunID,
		&record.StartedAt,
		&finishedAt,
		&record.InitialPrompt,
		&threshold,
		&maxRetries,
		&termination,
		&finalScore,
		&finalPrompt,
		&record.Iterations,
		&runErr,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RunRecord{}, err
		}
		return RunRecord{}, fmt.Errorf("scan run: %w", err)
	}
	if finishedAt.Valid {
		at := finishedAt.Time
		record.FinishedAt = &at
	}
	if threshold.Valid {
		value := threshold.Float64
		record.Threshold = &value
	}
	if maxRetries.Valid {
		value := int(maxRetries.Int64)
		record.MaxRetries = &value
	}
	if finalScore.Valid {
		value := finalScore.Float64
		record.FinalScore = &value
	}
	record.Termination = termination.String
	record.FinalPrompt = finalPrompt.String
	record.Error = runErr.String
	return record, nil
}
