package cli

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// parseFlags parses args and reports the exit code when the command should stop.
func parseFlags(cmd *Command, flags *flag.FlagSet, args []string, stdout, stderr io.Writer) (int, bool) {
	if err := flags.Parse(args); err != nil {
		if err == flag.ErrHelp {
			printCommandUsage(cmd, stdout)
			return ExitOK, false
		}
		fmt.Fprintf(stderr, "invalid arguments: %v\n", err)
		printCommandUsage(cmd, stderr)
		return ExitUsage, false
	}
	if flags.NArg() > 0 {
		fmt.Fprintf(stderr, "unexpected arguments: %s\n", strings.Join(flags.Args(), " "))
		printCommandUsage(cmd, stderr)
		return ExitUsage, false
	}
	return ExitOK, true
}

// newFlagSet returns a flag set that reports errors to stderr.
func newFlagSet(cmd *Command, stderr io.Writer) *flag.FlagSet {
	flags := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
	flags.SetOutput(stderr)
	return flags
}

// parseMaxItems interprets --max-items. Empty keeps the config value, "all"
// lifts the cap, and a non-negative integer sets it.
func parseMaxItems(value string, current *int) (*int, error) {
	value = strings.TrimSpace(value)
	switch strings.ToLower(value) {
	case "":
		return current, nil
	case "all":
		return nil, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("invalid --max-items %q (expected a non-negative integer or all)", value)
	}
	return &n, nil
}
