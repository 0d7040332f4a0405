package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"promptopt/internal/history"
	"promptopt/internal/logging"
	"promptopt/internal/loop"
	"promptopt/internal/metrics"
	"promptopt/internal/runner"
	"promptopt/internal/spec"
	"promptopt/internal/tracing"
	"promptopt/internal/ui/live"
	"promptopt/internal/ui/plain"
)

// sessionOptions selects output and logging for one command invocation.
type sessionOptions struct {
	Stdout  io.Writer
	Stderr  io.Writer
	UI      uiModeDecision
	NoColor bool
	Verbose bool
	LogPath string
	// History opens the DuckDB store when history.path is configured.
	History bool
	// Interrupt cancels the command from the live UI.
	Interrupt func()
}

// session owns the logger and observers shared by eval and run.
type session struct {
	cfg     spec.Config
	runID   string
	started time.Time
	logger  logging.Logger

	printer  *plain.Printer
	live     *live.Controller
	metrics  *metrics.Observer
	tracing  *tracing.Provider
	spans    *tracing.Observer
	history  *history.Store
	recorder *history.Recorder

	logFile *os.File
}

func openSession(ctx context.Context, cfg spec.Config, opts sessionOptions) (*session, error) {
	s := &session{cfg: cfg, runID: runner.NewRunID(), started: time.Now()}

	logger, err := s.openLogger(opts)
	if err != nil {
		return nil, err
	}
	s.logger = logger

	if opts.UI.useLive {
		s.live = live.Start(opts.Stdout, live.Options{NoColor: opts.NoColor, OnInterrupt: opts.Interrupt})
	} else {
		s.printer = plain.New(opts.Stdout)
	}

	s.metrics, err = metrics.New()
	if err != nil {
		_ = s.close(ctx)
		return nil, err
	}

	s.tracing, err = tracing.NewProvider(ctx, cfg.Tracing)
	if err != nil {
		_ = s.close(ctx)
		return nil, err
	}
	s.spans = tracing.NewObserver(ctx, s.tracing)

	if opts.History && cfg.History.Path != "" {
		s.history, err = history.Open(ctx, cfg.History.Path)
		if err != nil {
			_ = s.close(ctx)
			return nil, err
		}
		// Interrupted runs are still finished in the store.
		s.recorder = history.NewRecorder(context.WithoutCancel(ctx), s.history, loopPolicy(cfg), logger)
	}
	return s, nil
}

func (s *session) openLogger(opts sessionOptions) (logging.Logger, error) {
	level, err := logging.ParseLevel(s.cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if opts.Verbose {
		level = logging.LevelDebug
	}
	var out io.Writer = opts.Stderr
	if strings.TrimSpace(opts.LogPath) != "" {
		if dir := filepath.Dir(opts.LogPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create log directory: %w", err)
			}
		}
		file, err := os.OpenFile(opts.LogPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		s.logFile = file
		out = file
	} else if opts.UI.useLive {
		// The live UI owns the terminal.
		out = io.Discard
	}
	return logging.NewWithWriter(out, level), nil
}

// runnerObserver fans benchmark progress out to the UI and metrics.
func (s *session) runnerObserver() runner.Observer {
	observers := runner.MultiObserver{s.metrics}
	if s.live != nil {
		observers = append(observers, s.live)
	}
	if s.printer != nil {
		observers = append(observers, s.printer)
	}
	return observers
}

// phaseObserver fans loop phases out to the UI, history, metrics and tracing.
func (s *session) phaseObserver() loop.PhaseObserver {
	observers := loop.MultiPhaseObserver{s.metrics, s.spans}
	if s.recorder != nil {
		observers = append(observers, s.recorder)
	}
	if s.live != nil {
		observers = append(observers, s.live)
	}
	if s.printer != nil {
		observers = append(observers, s.printer)
	}
	return observers
}

// finishRun closes the run in history and tracing. Halted runs emit no
// terminated phase, so this is the only place they are closed.
func (s *session) finishRun(outcome loop.Outcome) error {
	s.spans.Finish(s.runID, outcome)
	if s.recorder == nil {
		return nil
	}
	s.recorder.Finish(s.runID, outcome)
	return s.recorder.Err()
}

// stopUI waits for the live UI to exit so later output lands on the normal screen.
func (s *session) stopUI() {
	if s.live == nil {
		return
	}
	s.live.Close()
	s.live.Wait()
}

// close flushes observers and writes the metrics textfile when configured.
func (s *session) close(ctx context.Context) error {
	s.stopUI()
	var errs []error
	if s.metrics != nil && s.cfg.Metrics.Textfile != "" {
		if err := s.metrics.WriteTextfile(s.cfg.Metrics.Textfile); err != nil {
			errs = append(errs, err)
		}
	}
	if s.tracing != nil {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		if err := s.tracing.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracing: %w", err))
		}
		cancel()
	}
	if s.history != nil {
		if err := s.history.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close history: %w", err))
		}
	}
	if s.logFile != nil {
		if err := s.logFile.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close log file: %w", err))
		}
	}
	return errors.Join(errs...)
}
