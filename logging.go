package dispatchloop

import (
	"github.com/joeycumines/logiface"
)

// Logger is the structured logging interface consumed by Loop for
// conditions that have no synchronous caller to report to: poll
// failures and wake channel I/O failures. (A wake channel that fails
// to initialize is not logged; New returns it as a
// WakeChannelInitError.) Instances are expected to be safe for
// concurrent use, since wake I/O errors may be logged from the same
// goroutine that calls Loop.Wakeup.
type Logger interface {
	// Warnf logs a recoverable condition, e.g. a single poll() call
	// that returned an error and was treated as "nothing ready".
	Warnf(format string, args ...any)
	// Errorf logs a condition that is not expected to recur under
	// normal operation, e.g. a wake channel write/read failure.
	Errorf(format string, args ...any)
}

// nopLogger discards everything. It is the default used when no
// WithLogger option is supplied.
type nopLogger struct{}

// NewNopLogger returns a Logger that discards all messages.
func NewNopLogger() Logger { return nopLogger{} }

func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}

// logifaceLogger adapts a generic-erased *logiface.Logger[logiface.Event]
// to the Logger interface, following the same erasure pattern used
// elsewhere in this codebase's lineage: build a concrete typed logger
// (e.g. backed by zerolog via izerolog), call its Logger() method to
// erase the event type, and pass the result here.
type logifaceLogger struct {
	l *logiface.Logger[logiface.Event]
}

// NewLogifaceLogger adapts l (typically obtained by calling Logger() on
// a concretely-typed *logiface.Logger[E]) to the Logger interface used
// by WithLogger.
func NewLogifaceLogger(l *logiface.Logger[logiface.Event]) Logger {
	return &logifaceLogger{l: l}
}

func (a *logifaceLogger) Warnf(format string, args ...any) {
	a.l.Warning().Logf(format, args...)
}

func (a *logifaceLogger) Errorf(format string, args ...any) {
	a.l.Err().Logf(format, args...)
}
