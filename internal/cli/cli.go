package cli

import (
	"fmt"
	"io"
)

const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

type Command struct {
	Name    string
	Summary string
	Usage   []string
	Run     func(args []string, stdout, stderr io.Writer) int
}

func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stdout)
		return ExitUsage
	}
	if isHelpArg(args[0]) {
		printUsage(stdout)
		return ExitOK
	}

	cmd := findCommand(args[0])
	if cmd == nil {
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", args[0])
		printUsage(stderr)
		return ExitUsage
	}

	return cmd.Run(args[1:], stdout, stderr)
}

func findCommand(name string) *Command {
	for _, cmd := range commands {
		if cmd.Name == name {
			return cmd
		}
	}
	return nil
}

func isHelpArg(arg string) bool {
	switch arg {
	case "-h", "--help", "help":
		return true
	default:
		return false
	}
}

func wantsHelp(args []string) bool {
	for _, arg := range args {
		switch arg {
		case "-h", "--help":
			return true
		}
	}
	return false
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  promptopt <command> [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, cmd := range commands {
		fmt.Fprintf(w, "  %-9s %s\n", cmd.Name, cmd.Summary)
	}
	fmt.Fprintln(w, "\nUse \"promptopt <command> --help\" for more information.")
}

func printCommandUsage(cmd *Command, w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	for _, line := range cmd.Usage {
		fmt.Fprintf(w, "  %s\n", line)
	}
	if cmd.Summary != "" {
		fmt.Fprintf(w, "\n%s\n", cmd.Summary)
	}
}

func command(name, summary string, usage []string, runner func(cmd *Command) func(args []string, stdout, stderr io.Writer) int) *Command {
	cmd := &Command{
		Name:    name,
		Summary: summary,
		Usage:   usage,
	}
	cmd.Run = runner(cmd)
	return cmd
}

var commands = []*Command{
	command("init", "Scaffold .promptopt/config.yml", []string{
		"promptopt init [--spec <path>] [--output-dir <dir>] [--yes]",
	}, runInit),
	command("validate", "Validate .promptopt/config.yml", []string{
		"promptopt validate [--spec <path>]",
	}, runValidate),
	command("index", "Ingest documentation into the vector store", []string{
		"promptopt index [--spec <path>] [--docs <dir>]",
	}, runIndex),
	command("eval", "Score one prompt with a single benchmark pass", []string{
		"promptopt eval [--prompt-file <path>] [--max-items N|all] [--summarize]",
	}, runEval),
	command("run", "Optimize the prompt until it passes or retries run out", []string{
		"promptopt run [--max-items N|all] [--ui auto|live|plain] [--no-color] [--output-dir <dir>] [--artifact <path>]",
	}, runRun),
	command("history", "List recorded runs and iterations", []string{
		"promptopt history [--run <run-id>] [--limit N]",
	}, runHistory),
	command("report", "Render the HTML report of a stored run", []string{
		"promptopt report [--run <run-id>|latest] [--output <path>]",
	}, runReport),
	command("serve", "Serve run reports over HTTP", []string{
		"promptopt serve [--addr <host:port>] [--output-dir <dir>]",
	}, runServe),
}
