package loggery

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"
	"sync/atomic"
)

// Logger is the front end applications log through. Loggers sharing a
// publisher share one ring and one sequence counter; Scope derives
// cheap child loggers that tag records with a dotted path.
type Logger struct {
	pub     *Publisher
	console *Console
	scope   string
	min     atomic.Int32
	caller  bool
}

// New builds a logger, its ring, its publisher, and its console sink
// from cfg.
func New(cfg Config) (*Logger, error) {
	cfg.normalize()
	fmtr, err := CompilePattern(cfg.Pattern, cfg.TimeLayout, cfg.UTC)
	if err != nil {
		return nil, fmt.Errorf("compile pattern: %w", err)
	}
	l := &Logger{
		pub:     NewPublisher(NewRing(cfg.Capacity)),
		console: NewConsole(fmtr, cfg.Color, cfg.Format == "json"),
		caller:  cfg.Caller,
	}
	l.min.Store(int32(cfg.MinLevel()))
	return l, nil
}

// Publisher returns the publisher behind this logger, for wiring a
// viewer to it.
func (l *Logger) Publisher() *Publisher {
	return l.pub
}

// Console returns the console sink, mainly so tests can redirect it.
func (l *Logger) Console() *Console {
	return l.console
}

// Scope returns a child logger whose records carry the parent's path
// extended by name. The child starts at the parent's current level and
// adjusts independently afterwards.
func (l *Logger) Scope(name string) *Logger {
	child := &Logger{
		pub:     l.pub,
		console: l.console,
		scope:   joinScope(l.scope, name),
		caller:  l.caller,
	}
	child.min.Store(l.min.Load())
	return child
}

func joinScope(parent, name string) string {
	if name == "" {
		return parent
	}
	if parent == "" {
		return name
	}
	return parent + "." + name
}

// SetLevel changes the minimum level this logger emits at.
func (l *Logger) SetLevel(min Level) {
	l.min.Store(int32(min))
}

// Enabled reports whether a record at lvl would be emitted.
func (l *Logger) Enabled(lvl Level) bool {
	return int32(lvl) >= l.min.Load()
}

// Clear drops every record retained in the ring. Sequence numbers keep
// increasing, so viewer cursors survive a clear.
func (l *Logger) Clear() {
	l.pub.Ring().Clear()
}

// log publishes and renders one record. calldepth is runtime.Caller
// arithmetic in the stdlib log.Output style: 2 means the frame that
// called the exported method.
func (l *Logger) log(calldepth int, lvl Level, msg string) {
	if !l.Enabled(lvl) {
		return
	}

	published := msg
	if l.scope != "" {
		published = l.scope + ": " + msg
	}
	rec := l.pub.Publish(lvl, published)

	var caller string
	if l.caller {
		if _, file, line, ok := runtime.Caller(calldepth); ok {
			caller = filepath.Base(file) + ":" + strconv.Itoa(line)
		}
	}
	rec.Message = msg
	l.console.Write(rec, l.scope, caller)
}

// print gates on the level, then joins args in the manner of
// fmt.Sprint. The gate runs before any formatting work.
func (l *Logger) print(lvl Level, args ...any) {
	if !l.Enabled(lvl) {
		return
	}
	l.log(3, lvl, fmt.Sprint(args...))
}

// printf gates on the level, then formats in the manner of fmt.Sprintf.
func (l *Logger) printf(lvl Level, format string, args ...any) {
	if !l.Enabled(lvl) {
		return
	}
	l.log(3, lvl, fmt.Sprintf(format, args...))
}

// Trace logs at Trace level.
func (l *Logger) Trace(args ...any) { l.print(LevelTrace, args...) }

// Debug logs at Debug level.
func (l *Logger) Debug(args ...any) { l.print(LevelDebug, args...) }

// Info logs at Info level.
func (l *Logger) Info(args ...any) { l.print(LevelInfo, args...) }

// Warn logs at Warn level.
func (l *Logger) Warn(args ...any) { l.print(LevelWarn, args...) }

// Error logs at Error level.
func (l *Logger) Error(args ...any) { l.print(LevelError, args...) }

// Tracef logs a formatted message at Trace level.
func (l *Logger) Tracef(format string, args ...any) {
	l.printf(LevelTrace, format, args...)
}

// Debugf logs a formatted message at Debug level.
func (l *Logger) Debugf(format string, args ...any) {
	l.printf(LevelDebug, format, args...)
}

// Infof logs a formatted message at Info level.
func (l *Logger) Infof(format string, args ...any) {
	l.printf(LevelInfo, format, args...)
}

// Warnf logs a formatted message at Warn level.
func (l *Logger) Warnf(format string, args ...any) {
	l.printf(LevelWarn, format, args...)
}

// Errorf logs a formatted message at Error level.
func (l *Logger) Errorf(format string, args ...any) {
	l.printf(LevelError, format, args...)
}

// Log emits msg at an arbitrary level, for callers that carry the
// level as data.
func (l *Logger) Log(lvl Level, msg string) { l.log(2, lvl, msg) }

// Logf is Log with formatting.
func (l *Logger) Logf(lvl Level, format string, args ...any) {
	l.log(2, lvl, fmt.Sprintf(format, args...))
}
