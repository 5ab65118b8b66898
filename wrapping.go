package logtree

import (
	"strings"
	"sync"

	"github.com/lixenwraith/logtree/sanitizer"
)

// Wrapper is a handler owning exactly one inner handler. Wrappers can be
// spliced in front of the registry root with Registry.Wrap. Comparison of
// wrappers ignores the inner handler.
type Wrapper interface {
	Handler
	Inner() Handler
	SetInner(h Handler)
}

// Wrapping is embedded by wrapper variants. It stores the inner handler and
// cascades Flush and Close to it.
type Wrapping struct {
	Base
	imu   sync.RWMutex
	inner Handler
}

// Inner returns the wrapped handler
func (w *Wrapping) Inner() Handler {
	w.imu.RLock()
	defer w.imu.RUnlock()
	return w.inner
}

// SetInner replaces the wrapped handler; nil is ignored so there is always exactly one
func (w *Wrapping) SetInner(h Handler) {
	if h == nil {
		return
	}
	w.imu.Lock()
	w.inner = h
	w.imu.Unlock()
}

// forward publishes r to the inner handler
func (w *Wrapping) forward(r *Record) {
	if inner := w.Inner(); inner != nil && inner.IsLoggable(r) {
		inner.Publish(r)
	}
}

// Flush flushes the inner handler
func (w *Wrapping) Flush() error {
	if inner := w.Inner(); inner != nil {
		return inner.Flush()
	}
	return nil
}

// Close closes the inner handler
func (w *Wrapping) Close() error {
	if inner := w.Inner(); inner != nil {
		return inner.Close()
	}
	return nil
}

// SanitizingHandler rewrites message text and string parameters through a
// sanitizer policy before forwarding a copy of the record to its inner handler.
type SanitizingHandler struct {
	Wrapping
	policy sanitizer.PolicyPreset
	san    *sanitizer.Sanitizer
	smu    sync.Mutex // sanitizer reuses its buffer
}

// NewSanitizingHandler wraps a console handler with the txt policy
func NewSanitizingHandler() *SanitizingHandler {
	h := &SanitizingHandler{}
	h.SetInner(NewConsoleHandler())
	h.setPolicy(sanitizer.PolicyTxt)
	return h
}

// Kind implements Handler
func (h *SanitizingHandler) Kind() string { return "sanitizing" }

// Policy returns the sanitizer policy in use
func (h *SanitizingHandler) Policy() sanitizer.PolicyPreset {
	h.smu.Lock()
	defer h.smu.Unlock()
	return h.policy
}

// SetPolicy changes the sanitizer policy
func (h *SanitizingHandler) SetPolicy(p sanitizer.PolicyPreset) {
	h.setPolicy(p)
	resetHandler(h, &h.Base)
}

func (h *SanitizingHandler) setPolicy(p sanitizer.PolicyPreset) {
	h.smu.Lock()
	h.policy = p
	h.san = sanitizer.New().Policy(p)
	h.smu.Unlock()
}

// Publish implements Handler
func (h *SanitizingHandler) Publish(r *Record) {
	h.Dispatch(r, nil, h.doPublish)
}

func (h *SanitizingHandler) doPublish(r *Record) {
	c := r.Clone()
	h.smu.Lock()
	c.Message = h.san.Sanitize(c.Message)
	for i, p := range c.Params {
		if s, ok := p.(string); ok {
			c.Params[i] = h.san.Sanitize(s)
		}
	}
	h.smu.Unlock()
	h.forward(c)
}

// Compare orders by policy. The inner handler is not part of the identity
// of a wrapper, so wrapping twice with equal wrappers is detected.
func (h *SanitizingHandler) Compare(other Handler) int {
	if other == Handler(h) {
		return 0
	}
	if k := compareKind(h, other); k != 0 {
		return k
	}
	o, ok := other.(*SanitizingHandler)
	if !ok {
		return 1
	}
	return strings.Compare(string(h.Policy()), string(o.Policy()))
}
