// Package loggery is a small scoped logging library with a live view
// of recent history. Records go to the console and into a bounded
// in-memory ring; the viewer subpackage serves that ring over HTTP and
// WebSocket so a browser or terminal client can tail a running process
// without touching its stdout.
//
// The zero-setup path is the package-level API, which logs through a
// process-wide default logger:
//
//	loggery.Info("listening on :7717")
//	db := loggery.Scope("db")
//	db.Warnf("slow query: %s", q)
//
// Applications that want their own configuration build a Logger with
// New and hand its Publisher to viewer.New.
package loggery

import "sync/atomic"

var std atomic.Pointer[Logger]

// Default returns the process-wide logger, creating it with the
// default configuration on first use.
func Default() *Logger {
	if l := std.Load(); l != nil {
		return l
	}
	l, err := New(DefaultConfig())
	if err != nil {
		panic(err)
	}
	if std.CompareAndSwap(nil, l) {
		return l
	}
	return std.Load()
}

// SetDefault replaces the process-wide logger. Passing nil is a no-op.
func SetDefault(l *Logger) {
	if l != nil {
		std.Store(l)
	}
}

// Scope returns a child of the default logger. See Logger.Scope.
func Scope(name string) *Logger {
	return Default().Scope(name)
}

// Clear drops the default logger's retained records.
func Clear() {
	Default().Clear()
}

// Trace logs to the default logger at Trace level.
func Trace(args ...any) { Default().print(LevelTrace, args...) }

// Debug logs to the default logger at Debug level.
func Debug(args ...any) { Default().print(LevelDebug, args...) }

// Info logs to the default logger at Info level.
func Info(args ...any) { Default().print(LevelInfo, args...) }

// Warn logs to the default logger at Warn level.
func Warn(args ...any) { Default().print(LevelWarn, args...) }

// Error logs to the default logger at Error level.
func Error(args ...any) { Default().print(LevelError, args...) }

// Tracef logs a formatted message to the default logger at Trace level.
func Tracef(format string, args ...any) {
	Default().printf(LevelTrace, format, args...)
}

// Debugf logs a formatted message to the default logger at Debug level.
func Debugf(format string, args ...any) {
	Default().printf(LevelDebug, format, args...)
}

// Infof logs a formatted message to the default logger at Info level.
func Infof(format string, args ...any) {
	Default().printf(LevelInfo, format, args...)
}

// Warnf logs a formatted message to the default logger at Warn level.
func Warnf(format string, args ...any) {
	Default().printf(LevelWarn, format, args...)
}

// Errorf logs a formatted message to the default logger at Error level.
func Errorf(format string, args ...any) {
	Default().printf(LevelError, format, args...)
}
