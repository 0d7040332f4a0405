package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"promptopt/internal/history"
	"promptopt/internal/loop"
	"promptopt/internal/runner"
)

// fixtureConfig defines the JSON config for generating a history fixture.
type fixtureConfig struct {
	Name       string `json:"name"`
	Runs       int    `json:"runs"`
	Iterations int    `json:"iterations"`
	Failures   int    `json:"failures"`
}

func main() {
	configPath := flag.String("config", "", "path to fixture config JSON")
	outPath := flag.String("out", "", "output duckdb file path")
	flag.Parse()
	if *configPath == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: generate_fixture --config <path> --out <duckdb file>")
		os.Exit(2)
	}
	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := removeIfExists(*outPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	if err := generateFixture(ctx, *outPath, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "generate fixture: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (fixtureConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return fixtureConfig{}, err
	}
	var cfg fixtureConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return fixtureConfig{}, err
	}
	if cfg.Iterations < 1 {
		cfg.Iterations = 1
	}
	return cfg, nil
}

// generateFixture writes cfg.Runs synthetic runs whose scores climb by iteration.
// Decisions follow the default loop policy, so late runs end in success.
func generateFixture(ctx context.Context, path string, cfg fixtureConfig) error {
	store, err := history.Open(ctx, path)
	if err != nil {
		return err
	}
	defer store.Close()

	policy := loop.DefaultPolicy()
	startTime := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < cfg.Runs; i++ {
		started := startTime.Add(time.Duration(i) * time.Hour)
		runID := runner.NewRunIDAt(started, deterministicID("run", i))
		prompt := fmt.Sprintf("%s prompt %d: {context} {question}", cfg.Name, i)
		if err := store.BeginRun(ctx, history.RunStart{
			RunID:         runID,
			StartedAt:     started,
			InitialPrompt: prompt,
			Threshold:     policy.Threshold,
			MaxRetries:    policy.MaxRetries,
		}); err != nil {
			return err
		}

		var (
			score       float64
			termination loop.Termination
			number      int
		)
		for number = 1; number <= cfg.Iterations; number++ {
			score = float64(i+number) / float64(cfg.Runs+cfg.Iterations)
			decision := loop.Decide(score, number, policy)
			failures := make([]runner.FailureReason, 0, cfg.Failures)
			if decision != loop.DecisionSuccess {
				for f := 0; f < cfg.Failures; f++ {
					failures = append(failures, runner.FailureReason{
						Question: fmt.Sprintf("question %d", f),
						Fact:     fmt.Sprintf("fact %d", f),
						Reason:   "not mentioned",
					})
				}
			}
			if err := store.RecordIteration(ctx, history.IterationRecord{
				RunID:      runID,
				Number:     number,
				Prompt:     fmt.Sprintf("%s (rev %d)", prompt, number),
				Score:      score,
				Valid:      len(failures) == 0,
				RetryCount: number,
				Questions:  cfg.Failures,
				Decision:   string(decision),
				Elapsed:    time.Duration(number) * time.Second,
				RecordedAt: started.Add(time.Duration(number) * time.Minute),
				Failures:   failures,
			}); err != nil {
				return err
			}
			if decision == loop.DecisionSuccess {
				termination = loop.TerminationSuccess
				break
			}
			if decision == loop.DecisionMaxRetries {
				termination = loop.TerminationMaxRetries
				break
			}
		}
		if number > cfg.Iterations {
			number = cfg.Iterations
		}
		if err := store.FinishRun(ctx, history.RunFinish{
			RunID:       runID,
			FinishedAt:  started.Add(time.Duration(number+1) * time.Minute),
			Termination: string(termination),
			FinalScore:  score,
			FinalPrompt: fmt.Sprintf("%s (rev %d)", prompt, number),
			Iterations:  number,
		}); err != nil {
			return err
		}
	}
	return nil
}

// removeIfExists deletes an existing fixture file so we always start fresh.
func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing fixture: %w", err)
	}
	return nil
}

// deterministicID generates a repeatable UUID for fixture rows.
func deterministicID(prefix string, index int) uuid.UUID {
	return uuid.NewSHA1(fixtureNamespace, []byte(fmt.Sprintf("%s-%d", prefix, index)))
}

// fixtureNamespace ensures stable UUIDs across fixture runs.
var fixtureNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
