package logtree

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"weak"
)

// Registry owns the root handler shared by its loggers and the structural
// operations on it. Loggers are held weakly so unused ones can be collected.
type Registry struct {
	id           uint64
	mu           sync.Mutex
	root         Handler
	defaultLevel Level
	loggers      map[string]weak.Pointer[Logger]
	cfg          atomic.Pointer[Config]
}

var registrySeq atomic.Uint64

// NewRegistry creates a registry whose root is a composite holding one console handler
func NewRegistry() *Registry {
	return &Registry{
		id:           registrySeq.Add(1),
		root:         NewCompositeHandler(NewConsoleHandler()),
		defaultLevel: LevelWarning,
		loggers:      make(map[string]weak.Pointer[Logger]),
	}
}

// Root returns the current root handler
func (r *Registry) Root() Handler {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.root
}

// DefaultLevel is the level of newly created loggers without an environment override
func (r *Registry) DefaultLevel() Level {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.defaultLevel
}

// SetDefaultLevel changes the level of loggers created from now on
func (r *Registry) SetDefaultLevel(level Level) {
	r.mu.Lock()
	r.defaultLevel = level
	r.mu.Unlock()
}

// SetDefaultHandler installs h as root. Listeners of the old root carry over
// and every live logger attached to the old root is switched to h.
func (r *Registry) SetDefaultHandler(h Handler) {
	if h == nil {
		return
	}
	if refersTo(h, r) {
		internalLog("ignoring root handler that forwards to its own registry")
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	old := r.root
	if old == h {
		return
	}
	if from, ok := old.(listenerSupporter); ok {
		if to, ok := h.(listenerSupporter); ok {
			for _, l := range from.Listeners() {
				to.AddListener(l)
			}
		}
	}
	r.root = h
	for _, l := range r.liveLoggers() {
		l.replaceHandler(old, h)
	}
}

// GetLogger returns the logger for name, creating it with the root attached.
// The level of a new logger comes from NAME_LOGLEVEL style environment
// variables when set, else from the registry default.
func (r *Registry) GetLogger(name string) *Logger {
	r.mu.Lock()
	defer r.mu.Unlock()

	if wp, ok := r.loggers[name]; ok {
		if l := wp.Value(); l != nil {
			return l
		}
	}
	level, ok := levelFromEnv(name)
	if !ok {
		level = r.defaultLevel
	}
	l := NewLogger(name, level)
	l.AddHandler(r.root)
	r.loggers[name] = weak.Make(l)
	runtime.AddCleanup(l, r.dropLogger, name)
	return l
}

func (r *Registry) dropLogger(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if wp, ok := r.loggers[name]; ok && wp.Value() == nil {
		delete(r.loggers, name)
	}
}

// liveLoggers must be called with r.mu held
func (r *Registry) liveLoggers() []*Logger {
	out := make([]*Logger, 0, len(r.loggers))
	for _, wp := range r.loggers {
		if l := wp.Value(); l != nil {
			out = append(out, l)
		}
	}
	return out
}

// rootComposite returns the root as a composite or a descriptive error
func (r *Registry) rootComposite(op string, h Handler) (*CompositeHandler, error) {
	c, ok := r.root.(*CompositeHandler)
	if !ok {
		what := "<nil>"
		if h != nil {
			what = h.Kind()
		}
		return nil, fmtErrorf("failed to %s %s, root is %s: %w", op, what, r.root.Kind(), ErrRootNotComposite)
	}
	return c, nil
}

// IndexOfRoot returns the position of the first root child equal to h, or -1.
// A non-composite root yields -1.
func (r *Registry) IndexOfRoot(h Handler) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.root.(*CompositeHandler)
	if !ok {
		return -1
	}
	return c.IndexOf(h)
}

// AddToRoot appends h to the root unless an equal handler is present
func (r *Registry) AddToRoot(h Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, err := r.rootComposite("install", h)
	if err != nil {
		return err
	}
	if refersTo(h, r) {
		return fmtErrorf("cannot install a handler forwarding to this registry's own root")
	}
	if c.IndexOf(h) == -1 {
		c.AddHandler(h)
	}
	return nil
}

// RemoveFromRoot removes and closes the first root child equal to h
func (r *Registry) RemoveFromRoot(h Handler) error {
	r.mu.Lock()
	c, err := r.rootComposite("remove", h)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	removed := c.RemoveEqual(h)
	r.mu.Unlock()

	if removed != nil {
		if err := removed.Close(); err != nil {
			return fmtErrorf("failed to close removed %s: %w", removed.Kind(), err)
		}
	}
	return nil
}

// Wrap moves the root's children into a new composite inside w and makes w
// the root's only child. A root already holding just a handler equal to w is
// left alone; w is never moved into its own inner composite.
func (r *Registry) Wrap(w Wrapper) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, err := r.rootComposite("wrap with", w)
	if err != nil {
		return err
	}
	children := c.Handlers()
	if len(children) == 1 && Equal(children[0], w) {
		return nil
	}
	// w itself must not end up inside its own inner handler
	inner := make([]Handler, 0, len(children))
	for _, child := range children {
		if child != Handler(w) {
			inner = append(inner, child)
		}
	}
	w.SetInner(NewCompositeHandler(inner...))
	c.SetHandlers([]Handler{w})
	return nil
}

// Unwrap reverses Wrap when the root's only child equals w
func (r *Registry) Unwrap(w Wrapper) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, err := r.rootComposite("unwrap from", w)
	if err != nil {
		return err
	}
	children := c.Handlers()
	if len(children) != 1 || !Equal(children[0], w) {
		return nil
	}
	installed, ok := children[0].(Wrapper)
	if !ok {
		return nil
	}
	switch inner := installed.Inner().(type) {
	case *CompositeHandler:
		c.SetHandlers(inner.Handlers())
	case nil:
		c.SetHandlers(nil)
	default:
		c.SetHandlers([]Handler{inner})
	}
	return nil
}

// Flush flushes the root handler
func (r *Registry) Flush() error {
	return r.Root().Flush()
}

// Close flushes and closes the root handler
func (r *Registry) Close() error {
	root := r.Root()
	return combineErrors(root.Flush(), root.Close())
}

// Describe renders the root tree, one handler per line, children indented
func (r *Registry) Describe() string {
	var sb strings.Builder
	describeHandler(&sb, r.Root(), 0)
	return sb.String()
}

func describeHandler(sb *strings.Builder, h Handler, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))
	if h == nil {
		sb.WriteString("<nil>\n")
		return
	}
	sb.WriteString(h.Kind())
	if lv, ok := h.(interface{ Level() Level }); ok && lv.Level() != LevelFinest {
		fmt.Fprintf(sb, " level=%s", lv.Level())
	}
	switch v := h.(type) {
	case *ConsoleHandler:
		fmt.Fprintf(sb, " target=%s", v.Target())
	case *FileHandler:
		fmt.Fprintf(sb, " path=%s format=%s", v.Path(), v.Format())
	case *RotatingFileHandler:
		rc := v.Rotation()
		fmt.Fprintf(sb, " path=%s max_size_mb=%d max_backups=%d", v.Path(), rc.MaxSizeMB, rc.MaxBackups)
	case *RemoteSendHandler:
		st := v.State()
		fmt.Fprintf(sb, " addr=%s:%d failures=%d disabled=%t", v.Host(), v.Port(), st.ConsecutiveFailures, st.Disabled)
	case *RemoteReceiveHandler:
		fmt.Fprintf(sb, " port=%d listening=%t", v.Port(), v.Listening())
	case *SanitizingHandler:
		fmt.Fprintf(sb, " policy=%s", v.Policy())
	}
	sb.WriteByte('\n')

	switch v := h.(type) {
	case *CompositeHandler:
		for _, child := range v.Handlers() {
			describeHandler(sb, child, depth+1)
		}
	case Wrapper:
		describeHandler(sb, v.Inner(), depth+1)
	}
}

// levelFromEnv looks up <name>.LOGLEVEL, then the same for the last
// dot-separated segment of name; each with dots as underscores and upper-cased
func levelFromEnv(name string) (Level, bool) {
	if name == "" {
		return 0, false
	}
	candidates := []string{name}
	if i := strings.LastIndex(name, "."); i >= 0 && i < len(name)-1 {
		candidates = append(candidates, name[i+1:])
	}
	for _, c := range candidates {
		base := c + ".LOGLEVEL"
		under := strings.ReplaceAll(base, ".", "_")
		for _, key := range []string{base, under, strings.ToUpper(base), strings.ToUpper(under)} {
			if v, ok := os.LookupEnv(key); ok {
				if l, err := ParseLevel(v); err == nil {
					return l, true
				}
			}
		}
	}
	return 0, false
}
