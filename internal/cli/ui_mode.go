package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// uiMode is the --ui flag value for eval and run.
type uiMode string

const (
	uiAuto  uiMode = "auto"
	uiLive  uiMode = "live"
	uiPlain uiMode = "plain"
)

// uiModeDecision says whether progress goes to the bubbletea table or the
// plain printer, plus a warning to show when a request was downgraded.
type uiModeDecision struct {
	useLive bool
	warning string
}

// isTerminal reports whether a writer is a TTY.
var isTerminal = defaultIsTerminal

// resolveUIMode picks the progress UI. Debug logging writes to stderr line by
// line, so it always selects the plain printer.
func resolveUIMode(mode string, debugLogging bool, stdout io.Writer) (uiModeDecision, error) {
	requested := uiMode(strings.ToLower(strings.TrimSpace(mode)))
	if requested == "" {
		requested = uiAuto
	}
	switch requested {
	case uiAuto, uiLive, uiPlain:
	default:
		return uiModeDecision{}, fmt.Errorf("invalid ui mode %q (expected auto|live|plain)", mode)
	}

	if debugLogging {
		if requested == uiLive {
			return uiModeDecision{warning: "Live UI disabled by --verbose; using plain output."}, nil
		}
		return uiModeDecision{}, nil
	}
	switch requested {
	case uiAuto:
		return uiModeDecision{useLive: isTerminal(stdout)}, nil
	case uiLive:
		if isTerminal(stdout) {
			return uiModeDecision{useLive: true}, nil
		}
		return uiModeDecision{warning: "Live UI requested but stdout is not a TTY; falling back to plain output."}, nil
	default:
		return uiModeDecision{}, nil
	}
}

// defaultIsTerminal inspects stdout for TTY support.
func defaultIsTerminal(stdout io.Writer) bool {
	if stdout == nil {
		return false
	}
	if file, ok := stdout.(*os.File); ok {
		return term.IsTerminal(int(file.Fd()))
	}
	if fder, ok := stdout.(interface{ Fd() uintptr }); ok {
		return term.IsTerminal(int(fder.Fd()))
	}
	return false
}
