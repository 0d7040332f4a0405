package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"promptopt/internal/loop"
	"promptopt/internal/report"
	"promptopt/internal/spec"
	"promptopt/internal/summarize"
)

// runEval builds the handler for the eval command.
func runEval(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}
		flags := newFlagSet(cmd, stderr)
		specPath := flags.String("spec", "", "Path to config file (default: search for .promptopt/config.yml)")
		promptFile := flags.String("prompt-file", "", "Prompt template to score (default: loop.initial_prompt)")
		maxItems := flags.String("max-items", "", "Benchmark items: N or all (default from config)")
		summarizeFlag := flags.Bool("summarize", false, "Summarize failure patterns with the summarizer agent")
		uiFlag := flags.String("ui", "auto", "Progress UI: auto|live|plain")
		noColor := flags.Bool("no-color", false, "Disable ANSI colors in the live UI")
		verbose := flags.Bool("verbose", false, "Debug logging; disables the live UI")
		logPath := flags.String("log", "", "Write logs to a file")
		outputDir := flags.String("output-dir", "", "Override output directory")
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
		prompt, err := evalPrompt(cfg, *promptFile)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to read prompt: %v\n", err)
			return ExitError
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
			Interrupt: cancel,
		})
		if err != nil {
			fmt.Fprintf(stderr, "Eval failed: %v\n", err)
			return ExitError
		}
		code := executeEval(ctx, sess, prompt, *summarizeFlag, stdout, stderr)
		if err := sess.close(ctx); err != nil {
			fmt.Fprintf(stderr, "Warning: %v\n", err)
		}
		return code
	}
}

func executeEval(ctx context.Context, sess *session, prompt string, summarizeFailures bool, stdout, stderr io.Writer) int {
	p, err := buildPipeline(ctx, sess.cfg, pipelineDeps{Logger: sess.logger, Usage: sess.metrics})
	if err != nil {
		sess.stopUI()
		fmt.Fprintf(stderr, "Eval failed: %v\n", err)
		return ExitError
	}
	if summarizeFailures && p.Summarizer == nil {
		sess.stopUI()
		fmt.Fprintln(stderr, "Eval failed: --summarize requires a summarizer agent")
		return ExitError
	}
	benchRunner, err := newRunner(sess.cfg, p.Judge, sess.runnerObserver(), sess.logger)
	if err != nil {
		sess.stopUI()
		fmt.Fprintf(stderr, "Eval failed: %v\n", err)
		return ExitError
	}

	evaluation, err := benchRunner.Run(ctx, p.Answerer(prompt), p.Items)
	sess.stopUI()
	if err != nil {
		fmt.Fprintf(stderr, "Eval failed: %v\n", err)
		return ExitError
	}
	fmt.Fprintf(stdout, "Overall Score: %.2f\n", evaluation.OverallScore)

	var summary string
	if summarizeFailures {
		if len(evaluation.FailureReasons) == 0 {
			fmt.Fprintln(stdout, "\nNo failure reasons to analyze.")
		} else {
			fmt.Fprintln(stdout, "\nAnalyzing failure patterns...")
			summary, err = summarize.New(p.Summarizer).Summarize(ctx, evaluation.FailureReasons)
			if err != nil {
				fmt.Fprintf(stderr, "Eval failed: %v\n", err)
				return ExitError
			}
			fmt.Fprintf(stdout, "\nFailure Analysis:\n%s\n", summary)
		}
	}

	results := report.FromEvaluation(sess.runID, sess.started, time.Now(), evaluation, summary)
	results.Docs = docsSnapshot(ctx, sess.cfg, sess.logger)
	paths, err := writeResults(ctx, sess.cfg.OutputDir, results)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to write results: %v\n", err)
		return ExitError
	}
	printPaths(stdout, paths)
	return ExitOK
}

// evalPrompt reads --prompt-file, falling back to the configured initial prompt.
func evalPrompt(cfg spec.Config, promptFile string) (string, error) {
	if strings.TrimSpace(promptFile) != "" {
		data, err := os.ReadFile(promptFile)
		if err != nil {
			return "", err
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	}
	if cfg.Loop.InitialPrompt != "" {
		return cfg.Loop.InitialPrompt, nil
	}
	return loop.DefaultPrompt, nil
}
