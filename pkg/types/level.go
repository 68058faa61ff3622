package types

import (
	"fmt"
	"strings"
)

// Level is the severity of a log message, ordinal 0-4.
type Level int

const (
	LevelDebug Level = 0
	LevelInfo  Level = 1
	LevelWarn  Level = 2
	LevelError Level = 3
	LevelFatal Level = 4
)

// Syslog-style aliases accepted by ParseLevel and usable anywhere a
// Level is expected. They map onto the five wire values above.
const (
	LevelNotice    = LevelInfo
	LevelWarning   = LevelWarn
	LevelCritical  = LevelError
	LevelAlert     = LevelFatal
	LevelEmergency = LevelFatal
)

// String returns the canonical upper-case name of the level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Valid reports whether l is one of the five wire values.
func (l Level) Valid() bool {
	return l >= LevelDebug && l <= LevelFatal
}

// LevelFromValue converts a wire ordinal to a Level.
func LevelFromValue(v int) (Level, error) {
	l := Level(v)
	if !l.Valid() {
		return 0, fmt.Errorf("types: invalid log level value %d (valid values are 0-4)", v)
	}
	return l, nil
}

// ParseLevel converts a level name to a Level. Matching is
// case-insensitive and accepts the syslog aliases (NOTICE, WARNING,
// CRITICAL, ALERT, EMERGENCY).
func ParseLevel(name string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return LevelDebug, nil
	case "INFO", "NOTICE":
		return LevelInfo, nil
	case "WARN", "WARNING":
		return LevelWarn, nil
	case "ERROR", "CRITICAL":
		return LevelError, nil
	case "FATAL", "ALERT", "EMERGENCY":
		return LevelFatal, nil
	default:
		return 0, fmt.Errorf("types: invalid log level name %q", name)
	}
}
