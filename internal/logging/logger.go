package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Level controls which messages a Logger emits.
type Level int

const (
	LevelOff Level = iota
	LevelError
	LevelWarn
	LevelInfo
	LevelDebug
)

// Logger is the leveled, key-value logger used across packages.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
	SetLevel(level Level)
}

// SlogLogger writes through a log/slog text handler.
type SlogLogger struct {
	logger *slog.Logger
	level  Level
}

// New builds a logger writing to stderr.
func New(level Level) *SlogLogger {
	return NewWithWriter(os.Stderr, level)
}

// NewWithWriter builds a logger writing to w.
func NewWithWriter(w io.Writer, level Level) *SlogLogger {
	if w == nil {
		w = io.Discard
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	return &SlogLogger{logger: slog.New(handler), level: level}
}

func (l *SlogLogger) SetLevel(level Level) {
	l.level = level
}

func (l *SlogLogger) Debug(msg string, keysAndValues ...any) {
	if l.level >= LevelDebug {
		l.logger.Debug(msg, keysAndValues...)
	}
}

func (l *SlogLogger) Info(msg string, keysAndValues ...any) {
	if l.level >= LevelInfo {
		l.logger.Info(msg, keysAndValues...)
	}
}

func (l *SlogLogger) Warn(msg string, keysAndValues ...any) {
	if l.level >= LevelWarn {
		l.logger.Warn(msg, keysAndValues...)
	}
}

func (l *SlogLogger) Error(msg string, keysAndValues ...any) {
	if l.level >= LevelError {
		l.logger.Error(msg, keysAndValues...)
	}
}

// Nop returns a logger that drops everything.
func Nop() Logger {
	return nopLogger{}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
func (nopLogger) SetLevel(Level)       {}

// OrNop returns logger, or a no-op logger when it is nil.
func OrNop(logger Logger) Logger {
	if logger == nil {
		return nopLogger{}
	}
	return logger
}

func (l Level) String() string {
	switch l {
	case LevelOff:
		return "OFF"
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// UnmarshalText parses OFF, ERROR, WARN, INFO or DEBUG (case-insensitive).
func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseLevel converts a level name into a Level.
func ParseLevel(value string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "OFF":
		return LevelOff, nil
	case "ERROR":
		return LevelError, nil
	case "WARN", "WARNING":
		return LevelWarn, nil
	case "INFO", "":
		return LevelInfo, nil
	case "DEBUG":
		return LevelDebug, nil
	default:
		return LevelOff, fmt.Errorf("invalid log level: %s", value)
	}
}
