package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"promptopt/internal/logging"
	"promptopt/internal/reportserver"
)

// serveReports is a test seam for the blocking server loop.
var serveReports = reportserver.Serve

// runServe builds the handler for the serve command.
func runServe(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}
		flags := newFlagSet(cmd, stderr)
		specPath := flags.String("spec", "", "Path to config file (default: search for .promptopt/config.yml)")
		addr := flags.String("addr", "127.0.0.1:8080", "Listen address")
		outputDir := flags.String("output-dir", "", "Override output directory")
		if code, ok := parseFlags(cmd, flags, args, stdout, stderr); !ok {
			return code
		}

		cfg, ok := loadConfig(*specPath, stderr)
		if !ok {
			return ExitError
		}
		if *outputDir != "" {
			cfg.OutputDir = *outputDir
		}
		level, err := logging.ParseLevel(cfg.LogLevel)
		if err != nil {
			fmt.Fprintf(stderr, "Serve failed: %v\n", err)
			return ExitError
		}
		logger := logging.NewWithWriter(stderr, level)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Fprintf(stdout, "Serving reports from %s on http://%s\n", cfg.OutputDir, *addr)
		err = serveReports(ctx, reportserver.Config{
			Addr:        *addr,
			OutputDir:   cfg.OutputDir,
			HistoryPath: cfg.History.Path,
		}, logger)
		if err != nil {
			fmt.Fprintf(stderr, "Serve failed: %v\n", err)
			return ExitError
		}
		return ExitOK
	}
}
