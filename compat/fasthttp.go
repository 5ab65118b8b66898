package compat

import (
	"fmt"
	"slices"
	"strings"

	"github.com/valyala/fasthttp"

	"github.com/lixenwraith/logtree"
)

var _ fasthttp.Logger = (*FastHTTPAdapter)(nil)

// FastHTTPAdapter routes fasthttp server messages into a logtree.Logger
type FastHTTPAdapter struct {
	logger        *logtree.Logger
	defaultLevel  logtree.Level
	levelDetector func(string) logtree.Level
}

// NewFastHTTPAdapter creates a new fasthttp-compatible logger adapter
func NewFastHTTPAdapter(logger *logtree.Logger, opts ...FastHTTPOption) *FastHTTPAdapter {
	adapter := &FastHTTPAdapter{
		logger:        logger,
		defaultLevel:  logtree.LevelInfo,
		levelDetector: DetectLogLevel,
	}

	for _, opt := range opts {
		opt(adapter)
	}

	return adapter
}

// FastHTTPOption allows customizing adapter behavior
type FastHTTPOption func(*FastHTTPAdapter)

// WithDefaultLevel sets the level used when detection finds nothing
func WithDefaultLevel(level logtree.Level) FastHTTPOption {
	return func(a *FastHTTPAdapter) {
		a.defaultLevel = level
	}
}

// WithLevelDetector sets a custom function to detect log level from message content;
// a zero result falls back to the default level
func WithLevelDetector(detector func(string) logtree.Level) FastHTTPOption {
	return func(a *FastHTTPAdapter) {
		a.levelDetector = detector
	}
}

// Printf implements fasthttp.Logger. The level is chosen from the rendered message.
func (a *FastHTTPAdapter) Printf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	a.logger.LogAt(a.levelOf(msg), msg)
}

func (a *FastHTTPAdapter) levelOf(msg string) logtree.Level {
	if a.levelDetector != nil {
		if lvl := a.levelDetector(msg); lvl != 0 {
			return lvl
		}
	}
	return a.defaultLevel
}

// levelKeywords is scanned in order; the first rule with a keyword found in
// the lowercased message decides the level
var levelKeywords = []struct {
	level    logtree.Level
	keywords []string
}{
	{logtree.LevelSevere, []string{"error", "failed", "fatal", "panic"}},
	{logtree.LevelWarning, []string{"warn", "deprecated", "timeout"}},
	{logtree.LevelFine, []string{"debug", "trace"}},
}

// DetectLogLevel guesses a level from keywords in msg, defaulting to INFO
func DetectLogLevel(msg string) logtree.Level {
	lower := strings.ToLower(msg)
	for _, rule := range levelKeywords {
		if slices.ContainsFunc(rule.keywords, func(k string) bool { return strings.Contains(lower, k) }) {
			return rule.level
		}
	}
	return logtree.LevelInfo
}
