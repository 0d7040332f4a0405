package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"promptopt/internal/runner"
)

// MemoryPath opens a throwaway in-process database.
const MemoryPath = ":memory:"

// Store persists loop runs, their evaluations, and failed facts in DuckDB.
type Store struct {
	db *sql.DB
}

// RunStart describes a run as the loop begins its first evaluation.
type RunStart struct {
	RunID         string
	StartedAt     time.Time
	InitialPrompt string
	Threshold     float64
	MaxRetries    int
}

// RunFinish describes how a run ended. An empty Termination with a non-empty
// Error marks a halted run.
type RunFinish struct {
	RunID       string
	FinishedAt  time.Time
	Termination string
	FinalScore  float64
	FinalPrompt string
	Iterations  int
	Error       string
}

// IterationRecord is one evaluated prompt.
type IterationRecord struct {
	RunID      string
	Number     int
	Prompt     string
	PromptHash string
	Score      float64
	Valid      bool
	RetryCount int
	ItemErrors int
	Questions  int
	Decision   string
	Elapsed    time.Duration
	RecordedAt time.Time
	// Failures and Report are written but not populated by ListIterations.
	Failures []runner.FailureReason
	Report   *runner.EvaluationReport
}

// RunRecord is a stored run row.
type RunRecord struct {
	RunID         string
	StartedAt     time.Time
	FinishedAt    *time.Time
	InitialPrompt string
	Threshold     *float64
	MaxRetries    *int
	Termination   string
	FinalScore    *float64
	FinalPrompt   string
	Iterations    int
	Error         string
}

// Open opens (creating if needed) the history database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("history: path is empty")
	}
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}
	dsn := path
	if dsn == MemoryPath {
		dsn = ""
	}
	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping history: %w", err)
	}
	if err := EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// NewStore wraps an already opened connection. The schema must be applied.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying connection for ad-hoc queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// BeginRun inserts the run row. Starting the same run twice is a no-op.
func (s *Store) BeginRun(ctx context.Context, run RunStart) error {
	if run.RunID == "" {
		return errors.New("history: run id is required")
	}
	if _, err := s.db.ExecContext(
		ctx,
		`INSERT INTO runs (run_id, started_at, initial_prompt, threshold, max_retries)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (run_id) DO NOTHING`,
		run.RunID,
		run.StartedAt.UTC(),
		run.InitialPrompt,
		run.Threshold,
		run.MaxRetries,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// RecordIteration stores an evaluation and its failed facts in one transaction.
func (s *Store) RecordIteration(ctx context.Context, record IterationRecord) error {
	if record.RunID == "" || record.Number < 1 {
		return errors.New("history: run id and iteration number are required")
	}
	hash := record.PromptHash
	if hash == "" {
		hash = PromptFingerprint(record.Prompt)
	}
	var report any
	if record.Report != nil {
		data, err := json.Marshal(record.Report)
		if err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
		report = string(data)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin iteration: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO iterations (
		  run_id, number, prompt, prompt_hash, score, valid, retry_count,
		  item_errors, questions, decision, elapsed_ms, report, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.RunID,
		record.Number,
		record.Prompt,
		hash,
		record.Score,
		record.Valid,
		record.RetryCount,
		record.ItemErrors,
		record.Questions,
		nullable(record.Decision),
		record.Elapsed.Milliseconds(),
		report,
		record.RecordedAt.UTC(),
	); err != nil {
		return fmt.Errorf("insert iteration: %w", err)
	}
	for i, failure := range record.Failures {
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO failures (run_id, iteration, ordinal, question, fact, reason)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			record.RunID,
			record.Number,
			i,
			failure.Question,
			failure.Fact,
			failure.Reason,
		); err != nil {
			return fmt.Errorf("insert failure: %w", err)
		}
	}
	if _, err := tx.ExecContext(
		ctx,
		`UPDATE runs SET iterations = (SELECT COUNT(*) FROM iterations WHERE run_id = ?) WHERE run_id = ?`,
		record.RunID,
		record.RunID,
	); err != nil {
		return fmt.Errorf("update run iterations: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit iteration: %w", err)
	}
	return nil
}

// SetDecision records the decision taken after an evaluation.
func (s *Store) SetDecision(ctx context.Context, runID string, number int, decision string) error {
	if _, err := s.db.ExecContext(
		ctx,
		`UPDATE iterations SET decision = ? WHERE run_id = ? AND number = ?`,
		decision,
		runID,
		number,
	); err != nil {
		return fmt.Errorf("update decision: %w", err)
	}
	return nil
}

// FinishRun closes the run row.
func (s *Store) FinishRun(ctx context.Context, run RunFinish) error {
	if _, err := s.db.ExecContext(
		ctx,
		`UPDATE runs
		 SET finished_at = ?, termination = ?, final_score = ?, final_prompt = ?, iterations = ?, error = ?
		 WHERE run_id = ?`,
		run.FinishedAt.UTC(),
		nullable(run.Termination),
		run.FinalScore,
		run.FinalPrompt,
		run.Iterations,
		nullable(run.Error),
		run.RunID,
	); err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

func nullable(value string) any {
	if value == "" {
		return nil
	}
	return value
}
