package logtree

import (
	"fmt"
	"io"
	"slices"
	"sync"
)

// Factory builds a handler for a registry
type Factory func(reg *Registry) (Handler, error)

var (
	factoryMu sync.RWMutex
	factories = map[string]Factory{
		"console": func(*Registry) (Handler, error) {
			return NewConsoleHandler(), nil
		},
		"file": func(*Registry) (Handler, error) {
			return NewFileHandler(defaultFileName), nil
		},
		"rotating-file": func(*Registry) (Handler, error) {
			return NewRotatingFileHandler(defaultFileName), nil
		},
		"remote-send": func(reg *Registry) (Handler, error) {
			h := NewRemoteSendHandler()
			h.SetRegistry(reg)
			return h, nil
		},
		"remote-receive": func(*Registry) (Handler, error) {
			h := NewRemoteReceiveHandler()
			if err := h.StartListening(); err != nil {
				return nil, err
			}
			return h, nil
		},
		"sanitizing": func(*Registry) (Handler, error) {
			return NewSanitizingHandler(), nil
		},
		"zap": func(*Registry) (Handler, error) {
			return NewZapHandler(nil)
		},
	}
)

// RegisterHandlerFactory makes a handler available by name, replacing any previous factory
func RegisterHandlerFactory(name string, f Factory) {
	if name == "" || f == nil {
		return
	}
	factoryMu.Lock()
	factories[name] = f
	factoryMu.Unlock()
}

// HandlerNames lists the registered names, sorted
func HandlerNames() []string {
	factoryMu.RLock()
	defer factoryMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// NewHandler builds the handler registered under name
func (r *Registry) NewHandler(name string) (Handler, error) {
	factoryMu.RLock()
	f, ok := factories[name]
	factoryMu.RUnlock()
	if !ok {
		return nil, fmtErrorf("%q: %w", name, ErrUnknownHandler)
	}
	h, err := f(r)
	if err != nil {
		return nil, fmtErrorf("failed to instantiate logging handler %q: %w", name, err)
	}
	if h == nil {
		return nil, fmtErrorf("factory for %q returned no handler", name)
	}
	return h, nil
}

// UseHandlerFromArgs looks for "-logging-handler <name>" in args. When found,
// both tokens are removed and a composite holding the named handler becomes
// the root. The remaining args are returned either way.
func (r *Registry) UseHandlerFromArgs(args []string) ([]string, bool, error) {
	idx := slices.Index(args, HandlerOption)
	if idx < 0 {
		return args, false, nil
	}
	rest := slices.Clone(args)
	if idx == len(args)-1 {
		rest = slices.Delete(rest, idx, idx+1)
		err := fmtErrorf("missing handler name after %s", HandlerOption)
		internalLog("%v", err)
		return rest, false, err
	}
	name := args[idx+1]
	rest = slices.Delete(rest, idx, idx+2)

	h, err := r.NewHandler(name)
	if err != nil {
		internalLog("%v", err)
		return rest, false, err
	}
	r.SetDefaultHandler(NewCompositeHandler(h))
	return rest, true, nil
}

// PrintHandlerOption writes the usage line of the handler option
func PrintHandlerOption(w io.Writer) {
	fmt.Fprintf(w, "%s <name>\n\tthe logging handler to use, one of %v\n", HandlerOption, HandlerNames())
}
