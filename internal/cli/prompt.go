package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// prompter asks the init questions. With assumeYes every question takes its
// default and nothing is read or printed.
type prompter struct {
	reader    *bufio.Reader
	out       io.Writer
	assumeYes bool
}

func newPrompter(in io.Reader, out io.Writer, assumeYes bool) *prompter {
	return &prompter{reader: bufio.NewReader(in), out: out, assumeYes: assumeYes}
}

// line reads one answer without its line ending. io.EOF is returned alongside
// a final unterminated answer.
func (p *prompter) line() (string, error) {
	line, err := p.reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), err
}

// text asks for a value; an empty answer keeps defaultValue.
func (p *prompter) text(label, defaultValue string) (string, error) {
	if p.assumeYes && defaultValue != "" {
		return defaultValue, nil
	}
	for {
		if defaultValue != "" {
			fmt.Fprintf(p.out, "%s [%s]: ", label, defaultValue)
		} else {
			fmt.Fprintf(p.out, "%s: ", label)
		}
		answer, err := p.line()
		switch {
		case answer != "":
			return answer, nil
		case defaultValue != "":
			return defaultValue, nil
		case err != nil:
			return "", fmt.Errorf("missing input for %s", label)
		}
	}
}

// confirm asks a yes/no question; an empty answer or end of input keeps defaultYes.
func (p *prompter) confirm(label string, defaultYes bool) (bool, error) {
	if p.assumeYes {
		return defaultYes, nil
	}
	suffix := "y/N"
	if defaultYes {
		suffix = "Y/n"
	}
	for {
		fmt.Fprintf(p.out, "%s [%s]: ", label, suffix)
		answer, err := p.line()
		switch strings.ToLower(answer) {
		case "":
			return defaultYes, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("invalid response %q", answer)
		}
		fmt.Fprintln(p.out, "Please answer yes or no.")
	}
}
