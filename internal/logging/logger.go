// Package logging configures the global zerolog logger and emits the
// run-start summary event.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// EnvLogLevel selects the log level: debug, info, warn, error (default: info).
const EnvLogLevel = "GEMINI_LOG_LEVEL"

// Init initializes the global logger with configuration from environment variables.
// GEMINI_LOG_LEVEL controls the log level: debug, info, warn, error (default: info)
func Init() {
	zerolog.SetGlobalLevel(ParseLevel(os.Getenv(EnvLogLevel)))
	SetOutput(os.Stderr)
}

// SetOutput routes the console-formatted log stream to w, e.g. a progress-bar
// writer during a run. nil means os.Stderr.
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: w, NoColor: !isColorTerminal(w)})
}

// ParseLevel maps a GEMINI_LOG_LEVEL value to a zerolog level.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// colorWriter is implemented by writers that know whether they end in a terminal.
type colorWriter interface {
	Enabled() bool
}

func isColorTerminal(w io.Writer) bool {
	if cw, ok := w.(colorWriter); ok {
		return cw.Enabled()
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}
