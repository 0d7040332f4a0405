package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"promptopt/internal/report"
)

// runReport builds the handler for the report command.
func runReport(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}
		flags := newFlagSet(cmd, stderr)
		specPath := flags.String("spec", "", "Path to config file (default: search for .promptopt/config.yml)")
		runRef := flags.String("run", report.LatestRef, "Run id or latest")
		outputPath := flags.String("output", "", "Write the report here instead of the run directory")
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

		results, paths, err := report.ResolveRun(cfg.OutputDir, *runRef)
		if err != nil {
			fmt.Fprintf(stderr, "Report failed: %v\n", err)
			return ExitError
		}
		target := paths.ReportPath()
		if strings.TrimSpace(*outputPath) != "" {
			target = *outputPath
		}
		if err := report.WriteReport(context.Background(), target, results); err != nil {
			fmt.Fprintf(stderr, "Report failed: %v\n", err)
			return ExitError
		}
		fmt.Fprintf(stdout, "Report: %s\n", target)
		return ExitOK
	}
}
