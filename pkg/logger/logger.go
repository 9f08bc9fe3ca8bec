// Package logger builds the slog loggers used across engram. Terminals get
// charmbracelet/log output, log files get JSON and everything else gets
// slog's text handler.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	charmlog "github.com/charmbracelet/log"
	"golang.org/x/term"
)

// ComponentKey is the attribute naming the subsystem that emitted a record.
const ComponentKey = "component"

type config struct {
	level  slog.Level
	pretty bool
	json   bool
	source bool
	w      io.Writer
}

// New builds a *slog.Logger. Defaults to a text handler at Info level on
// stderr, so command output on stdout stays machine readable.
func New(opts ...Option) *slog.Logger {
	c := &config{
		level: slog.LevelInfo,
		w:     os.Stderr,
	}
	for _, opt := range opts {
		opt(c)
	}

	return slog.New(c.handler())
}

func (c *config) handler() slog.Handler {
	switch {
	case c.json:
		return slog.NewJSONHandler(c.w, &slog.HandlerOptions{
			Level:     c.level,
			AddSource: c.source,
		})

	case c.pretty:
		return charmlog.NewWithOptions(c.w, charmlog.Options{
			Level:           charmlog.Level(c.level),
			ReportTimestamp: true,
			TimeFormat:      time.Kitchen,
			ReportCaller:    c.source,
		})

	default:
		return slog.NewTextHandler(c.w, &slog.HandlerOptions{
			Level:     c.level,
			AddSource: c.source,
		})
	}
}

// NewCLI returns the logger engram commands use: pretty output when w is a
// terminal, plain text otherwise.
func NewCLI(w io.Writer, debug bool) *slog.Logger {
	return New(
		WithWriter(w),
		WithDebug(debug),
		WithPretty(IsTerminal(w)),
	)
}

// NewFile opens path for appending and returns a JSON logger writing to it.
// The caller closes the returned file.
func NewFile(path string, debug bool) (*slog.Logger, io.Closer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	return New(WithWriter(f), WithDebug(debug), WithJSON(true)), f, nil
}

// IsTerminal reports whether w is backed by a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd()))
}

// Nop returns a logger that discards everything.
func Nop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// OrNop returns l, or a Nop logger when l is nil.
func OrNop(l *slog.Logger) *slog.Logger {
	if l == nil {
		return Nop()
	}
	return l
}
