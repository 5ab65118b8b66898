package logtree

import (
	"sync/atomic"
)

// defaultRegistry backs the package-level functions
var defaultRegistry atomic.Pointer[Registry]

func init() {
	defaultRegistry.Store(NewRegistry())
}

// Default returns the process-wide registry
func Default() *Registry {
	return defaultRegistry.Load()
}

// SetDefault replaces the process-wide registry; nil is ignored
func SetDefault(reg *Registry) {
	if reg != nil {
		defaultRegistry.Store(reg)
	}
}

// GetLogger returns a logger of the default registry
func GetLogger(name string) *Logger {
	return Default().GetLogger(name)
}

// DefaultHandler returns the root of the default registry
func DefaultHandler() Handler {
	return Default().Root()
}

// SetDefaultHandler installs the root of the default registry
func SetDefaultHandler(h Handler) {
	Default().SetDefaultHandler(h)
}

// IndexOfDefaultHandler finds h among the children of the default root
func IndexOfDefaultHandler(h Handler) int {
	return Default().IndexOfRoot(h)
}

// AddToDefaultHandler adds h to the default root
func AddToDefaultHandler(h Handler) error {
	return Default().AddToRoot(h)
}

// RemoveFromDefaultHandler removes h from the default root
func RemoveFromDefaultHandler(h Handler) error {
	return Default().RemoveFromRoot(h)
}

// WrapDefaultHandler wraps the children of the default root in w
func WrapDefaultHandler(w Wrapper) error {
	return Default().Wrap(w)
}

// UnwrapDefaultHandler removes the layer added by WrapDefaultHandler
func UnwrapDefaultHandler(w Wrapper) error {
	return Default().Unwrap(w)
}

// UseHandlerFromArgs applies -logging-handler to the default registry
func UseHandlerFromArgs(args []string) ([]string, bool, error) {
	return Default().UseHandlerFromArgs(args)
}

// ApplyConfigString applies overrides to the default registry
func ApplyConfigString(overrides ...string) error {
	return Default().ApplyConfigString(overrides...)
}
