// Package logging wires structured side-channel logging for fatal-startup
// errors and silent-drop diagnostics.
package logging

import (
	"os"

	"github.com/charmbracelet/log"
)

// Logger is the session-wide structured logger. Fatal-startup errors log
// at Error level (and the caller exits nonzero); silent drops on the
// real-time path log at Debug level so they're invisible unless verbose
// logging is requested.
type Logger struct {
	*log.Logger
}

// New creates a Logger writing to stderr. verbose enables Debug-level
// output (the MIDI loop's unrecognized status bytes and channel-9 events).
// The allocator's silent drops (duplicate NoteOn, out-of-drives,
// unknown-voice NoteOff) are not logged.
func New(verbose bool) *Logger {
	l := log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          "fddc",
		ReportTimestamp: true,
	})
	if verbose {
		l.SetLevel(log.DebugLevel)
	} else {
		l.SetLevel(log.InfoLevel)
	}
	return &Logger{Logger: l}
}

// Debugf satisfies internal/midiloop's Logger interface.
func (l *Logger) Debugf(format string, args ...any) {
	l.Logger.Debugf(format, args...)
}

// Fatal logs msg at Error level with the given key/value pairs and exits
// the process with a nonzero status, matching the fatal-startup error
// policy: user-facing errors are reported only at startup.
func (l *Logger) Fatal(msg string, keyvals ...any) {
	l.Logger.Error(msg, keyvals...)
	os.Exit(1)
}
