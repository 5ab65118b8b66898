package logtree

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Level is the severity of a record or the threshold of a logger or handler.
// Larger values are more severe.
type Level int32

// Log level constants
const (
	LevelFinest  Level = 300
	LevelFiner   Level = 400
	LevelFine    Level = 500
	LevelConfig  Level = 700
	LevelInfo    Level = 800
	LevelWarning Level = 900
	LevelSevere  Level = 1000
	// LevelOff as a threshold suppresses everything
	LevelOff Level = math.MaxInt32
)

// Levels lists all levels from OFF down to FINEST
var Levels = []Level{LevelOff, LevelSevere, LevelWarning, LevelInfo, LevelConfig, LevelFine, LevelFiner, LevelFinest}

// String returns the upper-case name of the level
func (l Level) String() string {
	switch l {
	case LevelOff:
		return "OFF"
	case LevelSevere:
		return "SEVERE"
	case LevelWarning:
		return "WARNING"
	case LevelInfo:
		return "INFO"
	case LevelConfig:
		return "CONFIG"
	case LevelFine:
		return "FINE"
	case LevelFiner:
		return "FINER"
	case LevelFinest:
		return "FINEST"
	default:
		return fmt.Sprintf("LEVEL(%d)", int32(l))
	}
}

// IsAtLeast reports whether level is at least as severe as minimum.
func IsAtLeast(level, minimum Level) bool {
	return level >= minimum
}

// IsAtMost reports whether level is at most as severe as maximum.
func IsAtMost(level, maximum Level) bool {
	return level <= maximum
}

// passes reports whether a record at level clears threshold.
// An OFF threshold and an OFF record never pass.
func passes(level, threshold Level) bool {
	if threshold == LevelOff || level == LevelOff {
		return false
	}
	return IsAtLeast(level, threshold)
}

// ParseLevel accepts a level name (case-insensitive) or its numeric value
func ParseLevel(s string) (Level, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for _, l := range Levels {
		if l.String() == name {
			return l, nil
		}
	}
	switch name {
	case "ALL":
		return LevelFinest, nil
	case "WARN":
		return LevelWarning, nil
	case "ERROR":
		return LevelSevere, nil
	}
	n, err := strconv.ParseInt(name, 10, 32)
	if err != nil {
		return 0, fmtErrorf("invalid level %q", s)
	}
	return Level(n), nil
}
