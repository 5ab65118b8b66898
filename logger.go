package logtree

import (
	"sync"
	"sync/atomic"
)

// Logger is a named entry point into a handler tree. It filters records by
// its own level and publishes the rest to each attached handler in order.
type Logger struct {
	name  string
	level atomic.Int32

	mu       sync.RWMutex
	handlers []Handler
}

// NewLogger creates a detached logger with the given level and no handlers
func NewLogger(name string, level Level) *Logger {
	l := &Logger{name: name}
	l.level.Store(int32(level))
	return l
}

// Name returns the logger name stamped onto every record
func (l *Logger) Name() string {
	return l.name
}

// Level returns the logger threshold
func (l *Logger) Level() Level {
	return Level(l.level.Load())
}

// SetLevel changes the logger threshold
func (l *Logger) SetLevel(level Level) {
	l.level.Store(int32(level))
}

// IsLoggable reports whether a record at level would be published
func (l *Logger) IsLoggable(level Level) bool {
	return passes(level, l.Level())
}

// Log publishes r to every attached handler that accepts it
func (l *Logger) Log(r *Record) {
	if r == nil || !l.IsLoggable(r.Level) {
		return
	}
	r.LoggerName = l.name
	for _, h := range l.Handlers() {
		if !h.IsLoggable(r) {
			continue
		}
		safeCall("publish to "+h.Kind(), func() { h.Publish(r) })
	}
}

// Handlers returns a snapshot of the attached handlers
func (l *Logger) Handlers() []Handler {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Handler, len(l.handlers))
	copy(out, l.handlers)
	return out
}

// AddHandler attaches h unless an equal handler is already attached
func (l *Logger) AddHandler(h Handler) bool {
	if h == nil {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, existing := range l.handlers {
		if Equal(existing, h) {
			return false
		}
	}
	l.handlers = append(l.handlers, h)
	return true
}

// RemoveHandler detaches the handler equal to h
func (l *Logger) RemoveHandler(h Handler) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, existing := range l.handlers {
		if Equal(existing, h) {
			l.handlers = append(l.handlers[:i:i], l.handlers[i+1:]...)
			return true
		}
	}
	return false
}

// replaceHandler swaps old for repl where old is attached by identity
func (l *Logger) replaceHandler(old, repl Handler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, existing := range l.handlers {
		if existing == old {
			l.handlers[i] = repl
		}
	}
}
