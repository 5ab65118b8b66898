package logtree

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// CompositeHandler sends records to an ordered list of child handlers.
// Children are published to sequentially in list order. The list is
// copy-on-write: structural changes apply to subsequent publishes.
type CompositeHandler struct {
	Base
	mu       sync.Mutex // serializes writers
	children atomic.Pointer[[]Handler]
}

// NewCompositeHandler creates a composite with the given children
func NewCompositeHandler(children ...Handler) *CompositeHandler {
	c := &CompositeHandler{}
	c.store(children)
	return c
}

func (c *CompositeHandler) store(children []Handler) {
	list := make([]Handler, 0, len(children))
	for _, h := range children {
		if h != nil {
			list = append(list, h)
		}
	}
	c.children.Store(&list)
}

func (c *CompositeHandler) load() []Handler {
	if p := c.children.Load(); p != nil {
		return *p
	}
	return nil
}

// Kind implements Handler
func (c *CompositeHandler) Kind() string { return "composite" }

// Publish sends r to every child in order
func (c *CompositeHandler) Publish(r *Record) {
	c.Dispatch(r, nil, c.doPublish)
}

func (c *CompositeHandler) doPublish(r *Record) {
	for _, h := range c.load() {
		safeCall(fmt.Sprintf("publish to %s", h.Kind()), func() { h.Publish(r) })
	}
}

// Handlers returns a snapshot of the children
func (c *CompositeHandler) Handlers() []Handler {
	list := c.load()
	out := make([]Handler, len(list))
	copy(out, list)
	return out
}

// Len returns the number of children
func (c *CompositeHandler) Len() int {
	return len(c.load())
}

// SetHandlers replaces the children
func (c *CompositeHandler) SetHandlers(children []Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store(children)
}

// AddHandler appends h
func (c *CompositeHandler) AddHandler(h Handler) {
	if h == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	old := c.load()
	list := make([]Handler, len(old), len(old)+1)
	copy(list, old)
	c.store(append(list, h))
}

// RemoveHandler removes the child at index, keeping the order of the rest.
// It returns the removed handler, or nil if index is out of range.
func (c *CompositeHandler) RemoveHandler(index int) Handler {
	c.mu.Lock()
	defer c.mu.Unlock()
	old := c.load()
	if index < 0 || index >= len(old) {
		return nil
	}
	removed := old[index]
	list := make([]Handler, 0, len(old)-1)
	list = append(list, old[:index]...)
	list = append(list, old[index+1:]...)
	c.store(list)
	return removed
}

// IndexOf returns the index of the first child equal to h, or -1
func (c *CompositeHandler) IndexOf(h Handler) int {
	for i, child := range c.load() {
		if Equal(child, h) {
			return i
		}
	}
	return -1
}

// RemoveEqual removes exactly the first child equal to h
func (c *CompositeHandler) RemoveEqual(h Handler) Handler {
	c.mu.Lock()
	defer c.mu.Unlock()
	old := c.load()
	for i, child := range old {
		if Equal(child, h) {
			list := make([]Handler, 0, len(old)-1)
			list = append(list, old[:i]...)
			list = append(list, old[i+1:]...)
			c.store(list)
			return child
		}
	}
	return nil
}

// Flush flushes every child
func (c *CompositeHandler) Flush() error {
	var err error
	for _, h := range c.load() {
		err = combineErrors(err, h.Flush())
	}
	return err
}

// Close closes every child
func (c *CompositeHandler) Close() error {
	var err error
	for _, h := range c.load() {
		err = combineErrors(err, h.Close())
	}
	return err
}

// Compare orders by kind, child count, then children pairwise
func (c *CompositeHandler) Compare(other Handler) int {
	if other == Handler(c) {
		return 0
	}
	if k := compareKind(c, other); k != 0 {
		return k
	}
	o, ok := other.(*CompositeHandler)
	if !ok {
		return 1
	}
	mine, theirs := c.load(), o.load()
	if len(mine) != len(theirs) {
		if len(mine) < len(theirs) {
			return -1
		}
		return 1
	}
	for i := range mine {
		if cmp := mine[i].Compare(theirs[i]); cmp != 0 {
			return cmp
		}
	}
	return 0
}
