package logtree

import (
	"cmp"
	"slices"
)

// RootHandler publishes to whatever handler is the root of its registry at
// the time of the call, so it keeps following SetDefaultHandler and
// ApplyConfig. It never closes the root; the registry owns it.
type RootHandler struct {
	Base
	reg *Registry
}

// RootHandler returns a handler forwarding to the current root of r
func (r *Registry) RootHandler() *RootHandler {
	return &RootHandler{reg: r}
}

// Kind implements Handler
func (h *RootHandler) Kind() string { return "registry-root" }

// Publish implements Handler
func (h *RootHandler) Publish(r *Record) {
	h.Dispatch(r, nil, h.doPublish)
}

func (h *RootHandler) doPublish(r *Record) {
	if root := h.reg.Root(); root.IsLoggable(r) {
		root.Publish(r)
	}
}

// Flush flushes the current root
func (h *RootHandler) Flush() error {
	return h.reg.Root().Flush()
}

// Close is a no-op
func (h *RootHandler) Close() error { return nil }

// Compare orders root handlers by registry
func (h *RootHandler) Compare(other Handler) int {
	if other == Handler(h) {
		return 0
	}
	if k := compareKind(h, other); k != 0 {
		return k
	}
	o, ok := other.(*RootHandler)
	if !ok {
		return 1
	}
	return cmp.Compare(h.reg.id, o.reg.id)
}

// refersTo reports whether h, or anything below it, forwards to reg's root.
// Such a handler must never sit inside reg's own tree.
func refersTo(h Handler, reg *Registry) bool {
	switch v := h.(type) {
	case *RootHandler:
		return v.reg == reg
	case *CompositeHandler:
		return slices.ContainsFunc(v.Handlers(), func(c Handler) bool { return refersTo(c, reg) })
	case Wrapper:
		return refersTo(v.Inner(), reg)
	}
	return false
}
