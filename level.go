package loggery

import (
	"fmt"
	"strings"
)

// Level is the severity of a record. Levels are totally ordered:
// Trace < Debug < Info < Warn < Error.
type Level uint8

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{
	LevelTrace: "TRACE",
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
}

// String returns the canonical upper-case name of the level.
func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return fmt.Sprintf("LEVEL(%d)", uint8(l))
}

// ParseLevel converts a level name to a Level. Matching is
// case-insensitive and accepts "warning" as an alias for Warn.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return LevelTrace, nil
	case "DEBUG":
		return LevelDebug, nil
	case "INFO":
		return LevelInfo, nil
	case "WARN", "WARNING":
		return LevelWarn, nil
	case "ERROR":
		return LevelError, nil
	}
	return LevelTrace, fmt.Errorf("unknown level %q", s)
}

// ParseLevelDefault is ParseLevel with a fallback instead of an error,
// for config surfaces where a bad value should not abort startup.
func ParseLevelDefault(s string, def Level) Level {
	if lvl, err := ParseLevel(s); err == nil {
		return lvl
	}
	return def
}
