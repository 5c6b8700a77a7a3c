// Package logger provides the structured logger every core subsystem logs
// through — hook and signal-receiver failures, retries, revocation skips,
// and dropped unknown-task messages all go through here rather than the
// standard library's log package.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Log is the global logger instance.
var Log zerolog.Logger

func init() {
	// Default to JSON output for production.
	Log = zerolog.New(os.Stdout).
		With().
		Timestamp().
		Logger()

	// Pretty print for development if requested.
	if os.Getenv("APP_ENV") != "production" {
		Log = Log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

// GetLogger returns the global logger instance.
func GetLogger() zerolog.Logger {
	return Log
}

// New builds a standalone logger writing to w, independent of the Log
// global — used where a caller (a specific *hive.Hive, a test) needs its
// own sink instead of sharing the process-wide one.
func New(w io.Writer, production bool) zerolog.Logger {
	l := zerolog.New(w).With().Timestamp().Logger()
	if !production {
		l = l.Output(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339})
	}
	return l
}

// Silent returns a logger that discards everything, for tests that don't
// want core subsystems writing to stdout/stderr.
func Silent() zerolog.Logger {
	return zerolog.New(io.Discard)
}
