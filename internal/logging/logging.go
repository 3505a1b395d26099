// Package logging builds the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// ParseLevel maps a textual level to a zerolog level. Unknown values fall back
// to info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "verbose":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error", "err":
		return zerolog.ErrorLevel
	case "off", "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// VerboseFromEnv reports whether VERBOSE=1 (or the legacy DEV=1) is set.
func VerboseFromEnv() bool {
	return os.Getenv("VERBOSE") == "1" || os.Getenv("DEV") == "1"
}

// Options controls New.
type Options struct {
	Level   string
	Verbose bool
	// JSON forces JSON output even on a terminal.
	JSON bool
}

// New returns a logger writing to w. Terminals get the console writer.
func New(w io.Writer, opts Options) zerolog.Logger {
	lvl := ParseLevel(opts.Level)
	if opts.Verbose && lvl > zerolog.DebugLevel {
		lvl = zerolog.DebugLevel
	}
	out := w
	if f, ok := w.(*os.File); ok && !opts.JSON && isatty.IsTerminal(f.Fd()) {
		out = zerolog.ConsoleWriter{Out: f, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Str("app", "pink-transcriber").Logger()
}

// Nop returns a disabled logger, handy for tests.
func Nop() zerolog.Logger { return zerolog.Nop() }
