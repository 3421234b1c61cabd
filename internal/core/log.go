package core

import (
	"log/slog"
	"sync/atomic"
)

// logger is the package-level logger, stored as an atomic pointer so tests
// may swap it while nodes are running. A nil value means no custom logger has
// been set.
var logger atomic.Pointer[slog.Logger]

// defaultLogger caches slog.Default() with the smoketest component attribute
// so it is not re-created on every Logger() call. SetLogger(nil) clears the
// cache, letting the next Logger() call pick up a new slog.Default().
var defaultLogger atomic.Pointer[slog.Logger]

// Logger returns the current package-level logger. It is safe to call from
// multiple goroutines.
func Logger() *slog.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	if l := defaultLogger.Load(); l != nil {
		return l
	}
	l := newDefaultLogger()
	if defaultLogger.CompareAndSwap(nil, l) {
		return l
	}
	// A concurrent SetLogger may have cleared the winner's value; never
	// return nil.
	if l2 := defaultLogger.Load(); l2 != nil {
		return l2
	}
	return l
}

func newDefaultLogger() *slog.Logger {
	return slog.Default().With("component", "smoketest")
}

// SetLogger replaces the package-level logger. If l is nil, the logger
// resets to slog.Default() with the component attribute.
func SetLogger(l *slog.Logger) {
	logger.Store(l)
	defaultLogger.Store(nil)
}
