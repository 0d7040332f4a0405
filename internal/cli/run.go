package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"promptopt/internal/loop"
	"promptopt/internal/report"
	"promptopt/internal/summarize"
	"promptopt/internal/ui/plain"
)

// runRun builds the handler for the run command.
func runRun(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}
		flags := newFlagSet(cmd, stderr)
		specPath := flags.String("spec", "", "Path to config file (default: search for .promptopt/config.yml)")
		maxItems := flags.String("max-items", "", "Benchmark items per pass: N or all (default from config)")
		uiFlag := flags.String("ui", "auto", "Progress UI: auto|live|plain")
		noColor := flags.Bool("no-color", false, "Disable ANSI colors in the live UI")
		verbose := flags.Bool("verbose", false, "Debug logging; disables the live UI")
		logPath := flags.String("log", "", "Write logs to a file")
		outputDir := flags.String("output-dir", "", "Override output directory")
		artifact := flags.String("artifact", "", "Override the optimized prompt path")
		if code, ok := parseFlags(cmd, flags, args, stdout, stderr); !ok {
			return code
		}

		cfg, ok := loadConfig(*specPath, stderr)
		if !ok {
			return ExitError
		}
		capped, err := parseMaxItems(*maxItems, cfg.Benchmark.MaxItems)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return ExitUsage
		}
		cfg.Benchmark.MaxItems = capped
		if *outputDir != "" {
			cfg.OutputDir = *outputDir
		}
		if *artifact != "" {
			cfg.Loop.ArtifactPath = *artifact
		}

		decision, err := resolveUIMode(*uiFlag, *verbose, stdout)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return ExitUsage
		}
		if decision.warning != "" {
			fmt.Fprintln(stderr, decision.warning)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		sess, err := openSession(ctx, cfg, sessionOptions{
			Stdout:    stdout,
			Stderr:    stderr,
			UI:        decision,
			NoColor:   *noColor,
			Verbose:   *verbose,
			LogPath:   *logPath,
			History:   true,
			Interrupt: cancel,
		})
		if err != nil {
			fmt.Fprintf(stderr, "Run failed: %v\n", err)
			return ExitError
		}
		code := executeRun(ctx, sess, stdout, stderr)
		if err := sess.close(ctx); err != nil {
			fmt.Fprintf(stderr, "Warning: %v\n", err)
		}
		return code
	}
}

func executeRun(ctx context.Context, sess *session, stdout, stderr io.Writer) int {
	p, err := buildPipeline(ctx, sess.cfg, pipelineDeps{Logger: sess.logger, Usage: sess.metrics})
	if err != nil {
		sess.stopUI()
		fmt.Fprintf(stderr, "Run failed: %v\n", err)
		return ExitError
	}
	benchRunner, err := newRunner(sess.cfg, p.Judge, sess.runnerObserver(), sess.logger)
	if err != nil {
		sess.stopUI()
		fmt.Fprintf(stderr, "Run failed: %v\n", err)
		return ExitError
	}

	evaluator := loop.BenchmarkEvaluator{Runner: benchRunner, Items: p.Items, Answerer: p.Answerer}
	l := loop.New(evaluator, p.Rewriter, loopOptions(sess, p)...)
	outcome, runErr := l.Run(ctx)
	finished := time.Now()

	historyErr := sess.finishRun(outcome)
	liveUI := sess.live != nil
	sess.stopUI()
	if liveUI {
		plain.PrintOutcome(stdout, outcome)
	}
	if historyErr != nil {
		fmt.Fprintf(stderr, "Warning: history: %v\n", historyErr)
	}

	results := report.FromOutcome(sess.runID, sess.started, finished, l.Policy(), outcome)
	results.Docs = docsSnapshot(ctx, sess.cfg, sess.logger)
	paths, err := writeResults(ctx, sess.cfg.OutputDir, results)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to write results: %v\n", err)
		return ExitError
	}
	fmt.Fprintf(stdout, "Run %s finished: %s\n", sess.runID, results.Status())
	if outcome.ArtifactPath != "" {
		fmt.Fprintf(stdout, "Artifact: %s\n", outcome.ArtifactPath)
	}
	printPaths(stdout, paths)

	if runErr != nil {
		fmt.Fprintf(stderr, "Run failed: %v\n", runErr)
		return ExitError
	}
	return ExitOK
}

func loopOptions(sess *session, p *pipeline) []loop.Option {
	cfg := sess.cfg
	policy := loopPolicy(cfg)
	opts := []loop.Option{
		loop.WithThreshold(policy.Threshold),
		loop.WithMaxRetries(policy.MaxRetries),
		loop.WithArtifactWriter(loop.FileArtifact{Path: cfg.Loop.ArtifactPath}),
		loop.WithObserver(sess.phaseObserver()),
		loop.WithRunID(sess.runID),
		loop.WithLogger(sess.logger),
	}
	if cfg.Loop.InitialPrompt != "" {
		opts = append(opts, loop.WithInitialPrompt(cfg.Loop.InitialPrompt))
	}
	if cfg.Loop.SummarizeFeedback && p.Summarizer != nil {
		opts = append(opts, loop.WithFeedback(loop.SummarizedFeedback(summarize.New(p.Summarizer), sess.logger)))
	}
	return opts
}
