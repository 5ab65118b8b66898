package compat

import (
	"fmt"
	"os"

	"github.com/panjf2000/gnet/v2/pkg/logging"

	"github.com/lixenwraith/logtree"
)

var _ logging.Logger = (*GnetAdapter)(nil)

// FromGnetLevel maps a gnet logging level onto the logtree scale.
// Panic and fatal collapse into SEVERE; anything below debug is FINEST.
func FromGnetLevel(l logging.Level) logtree.Level {
	switch {
	case l < logging.DebugLevel:
		return logtree.LevelFinest
	case l == logging.DebugLevel:
		return logtree.LevelFine
	case l == logging.InfoLevel:
		return logtree.LevelInfo
	case l == logging.WarnLevel:
		return logtree.LevelWarning
	default:
		return logtree.LevelSevere
	}
}

// GnetAdapter lets gnet's engine log through a logtree.Logger
type GnetAdapter struct {
	logger  *logtree.Logger
	onFatal func(msg string)
}

// GnetOption customizes a GnetAdapter
type GnetOption func(*GnetAdapter)

// WithFatalHandler replaces the default os.Exit(1) run after Fatalf
func WithFatalHandler(handler func(string)) GnetOption {
	return func(a *GnetAdapter) {
		a.onFatal = handler
	}
}

// NewGnetAdapter creates a gnet logger backed by logger
func NewGnetAdapter(logger *logtree.Logger, opts ...GnetOption) *GnetAdapter {
	a := &GnetAdapter{
		logger:  logger,
		onFatal: func(string) { os.Exit(1) },
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// logf renders the message only when the logger would publish it
func (a *GnetAdapter) logf(level logging.Level, format string, args []any) {
	lvl := FromGnetLevel(level)
	if !a.logger.IsLoggable(lvl) {
		return
	}
	a.logger.LogAt(lvl, fmt.Sprintf(format, args...))
}

func (a *GnetAdapter) Debugf(format string, args ...any) { a.logf(logging.DebugLevel, format, args) }
func (a *GnetAdapter) Infof(format string, args ...any) { a.logf(logging.InfoLevel, format, args) }
func (a *GnetAdapter) Warnf(format string, args ...any) { a.logf(logging.WarnLevel, format, args) }
func (a *GnetAdapter) Errorf(format string, args ...any) { a.logf(logging.ErrorLevel, format, args) }

// Fatalf logs at SEVERE, flushes the logger's handlers and then runs the
// fatal handler, which by default exits the process.
func (a *GnetAdapter) Fatalf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	a.logger.Severe(msg)
	flushLogger(a.logger)
	if a.onFatal != nil {
		a.onFatal(msg)
	}
}

// flushLogger flushes every handler attached to l
func flushLogger(l *logtree.Logger) {
	for _, h := range l.Handlers() {
		_ = h.Flush()
	}
}
