package logtree

import (
	"strings"
	"sync"
	"sync/atomic"
)

// Handler receives records from loggers or from a parent handler.
//
// Equality between handlers is by value: two handlers are equal when Compare
// returns 0, which requires the same Kind and the same configuration. This is
// what lets loggers de-duplicate handler sets and lets the registry remove a
// handler from the root by value.
type Handler interface {
	// Publish runs the handler on a record. It never panics or blocks on
	// failure beyond the handler's own I/O timeout.
	Publish(r *Record)
	// IsLoggable is the handler's own accept predicate
	IsLoggable(r *Record) bool
	Flush() error
	Close() error
	// Kind names the concrete variant and is the primary ordering key
	Kind() string
	// Compare orders handlers by kind, then by variant-specific configuration
	Compare(other Handler) int
}

// Listener is notified after a handler has published a record.
// Implementations must be comparable (pointer receivers) for removal to work.
type Listener interface {
	LogEvent(r *Record)
}

// listenerSupporter is implemented by every handler embedding Base
type listenerSupporter interface {
	AddListener(l Listener)
	RemoveListener(l Listener)
	RemoveAllListeners()
	Listeners() []Listener
}

// Equal reports whether two handlers have the same kind and configuration
func Equal(a, b Handler) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Compare(b) == 0
}

// compareKind is the base ordering shared by all variants
func compareKind(a, b Handler) int {
	return strings.Compare(a.Kind(), b.Kind())
}

// Base carries the state shared by all handler variants: the handler's own
// level, the one-time set-up flag and the listener list. The zero value
// accepts every record.
type Base struct {
	level   atomic.Int32
	ready   atomic.Bool
	setUpMu sync.Mutex

	lmu       sync.RWMutex
	listeners []Listener
}

// Level returns the handler's own threshold
func (b *Base) Level() Level {
	if v := b.level.Load(); v != 0 {
		return Level(v)
	}
	return LevelFinest
}

// SetLevel sets the handler's own threshold
func (b *Base) SetLevel(level Level) {
	b.level.Store(int32(level))
}

// IsLoggable checks the record against the handler's own threshold
func (b *Base) IsLoggable(r *Record) bool {
	return r != nil && passes(r.Level, b.Level())
}

// Dispatch is the publish template shared by all variants. Records below the
// handler's own level are ignored. On the first call since construction or
// since the last reset it runs setUp, then doPublish, then notifies listeners.
func (b *Base) Dispatch(r *Record, setUp func(), doPublish func(*Record)) {
	if !b.IsLoggable(r) {
		return
	}
	if !b.ready.Load() {
		b.setUpMu.Lock()
		if !b.ready.Load() {
			if setUp != nil {
				safeCall("handler set-up", setUp)
			}
			b.ready.Store(true)
		}
		b.setUpMu.Unlock()
	}
	doPublish(r)
	b.notify(r)
}

// invalidate forces set-up to run again on the next publish
func (b *Base) invalidate() {
	b.ready.Store(false)
}

// AddListener registers l; adding the same listener twice is a no-op
func (b *Base) AddListener(l Listener) {
	if l == nil {
		return
	}
	b.lmu.Lock()
	defer b.lmu.Unlock()
	for _, existing := range b.listeners {
		if existing == l {
			return
		}
	}
	b.listeners = append(b.listeners, l)
}

// RemoveListener unregisters l
func (b *Base) RemoveListener(l Listener) {
	b.lmu.Lock()
	defer b.lmu.Unlock()
	for i, existing := range b.listeners {
		if existing == l {
			b.listeners = append(b.listeners[:i:i], b.listeners[i+1:]...)
			return
		}
	}
}

// RemoveAllListeners drops every listener
func (b *Base) RemoveAllListeners() {
	b.lmu.Lock()
	b.listeners = nil
	b.lmu.Unlock()
}

// Listeners returns a snapshot of the registered listeners
func (b *Base) Listeners() []Listener {
	b.lmu.RLock()
	defer b.lmu.RUnlock()
	out := make([]Listener, len(b.listeners))
	copy(out, b.listeners)
	return out
}

// notify broadcasts to listeners; a panicking listener does not stop the rest
func (b *Base) notify(r *Record) {
	b.lmu.RLock()
	if len(b.listeners) == 0 {
		b.lmu.RUnlock()
		return
	}
	ls := make([]Listener, len(b.listeners))
	copy(ls, b.listeners)
	b.lmu.RUnlock()

	for _, l := range ls {
		safeCall("logging listener", func() { l.LogEvent(r) })
	}
}

// resetHandler flushes and closes h and forces its set-up to run again.
// Setters changing handler configuration call it.
func resetHandler(h Handler, b *Base) {
	if err := h.Flush(); err != nil {
		internalLog("flush during reset of %s failed: %v", h.Kind(), err)
	}
	if err := h.Close(); err != nil {
		internalLog("close during reset of %s failed: %v", h.Kind(), err)
	}
	if inv, ok := h.(interface{ invalidate() }); ok {
		inv.invalidate()
		return
	}
	b.invalidate()
}
