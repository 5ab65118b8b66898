package logtree

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/logrusorgru/aurora"

	"github.com/lixenwraith/logtree/formatter"
)

// Console targets
const (
	TargetStderr = "stderr"
	TargetStdout = "stdout"
)

// ConsoleHandler writes formatted records to stderr or stdout, optionally
// coloured by level.
type ConsoleHandler struct {
	Base
	mu         sync.Mutex
	target     string
	out        io.Writer
	au         aurora.Aurora
	color      bool
	dateFormat string
	f          *formatter.Formatter
}

// NewConsoleHandler writes to stderr without colour
func NewConsoleHandler() *ConsoleHandler {
	h := &ConsoleHandler{
		target:     TargetStderr,
		out:        os.Stderr,
		au:         aurora.NewAurora(false),
		dateFormat: DefaultDateFormat,
	}
	h.f = formatter.New().TimestampFormat(h.dateFormat)
	return h
}

// Kind implements Handler
func (h *ConsoleHandler) Kind() string { return "console" }

// Target returns the target name
func (h *ConsoleHandler) Target() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.target
}

// SetTarget selects stdout or stderr
func (h *ConsoleHandler) SetTarget(target string) error {
	switch strings.ToLower(target) {
	case TargetStdout:
		h.SetOutput(TargetStdout, os.Stdout)
	case TargetStderr, "":
		h.SetOutput(TargetStderr, os.Stderr)
	default:
		return fmtErrorf("invalid console target %q", target)
	}
	return nil
}

// SetOutput directs output to w, identified by name for comparison
func (h *ConsoleHandler) SetOutput(name string, w io.Writer) {
	h.mu.Lock()
	h.target = name
	h.out = w
	h.mu.Unlock()
}

// SetColor toggles ANSI level colouring
func (h *ConsoleHandler) SetColor(enabled bool) {
	h.mu.Lock()
	h.color = enabled
	h.au = aurora.NewAurora(enabled)
	h.mu.Unlock()
}

// SetDateFormat changes the timestamp layout of the line prefix
func (h *ConsoleHandler) SetDateFormat(layout string) {
	h.mu.Lock()
	if layout != "" {
		h.dateFormat = layout
		h.f.TimestampFormat(layout)
	}
	h.mu.Unlock()
}

// Publish implements Handler
func (h *ConsoleHandler) Publish(r *Record) {
	h.Dispatch(r, nil, h.doPublish)
}

func (h *ConsoleHandler) doPublish(r *Record) {
	h.mu.Lock()
	defer h.mu.Unlock()
	line := h.f.Format(r.entry())
	if h.color {
		line = []byte(h.colorize(r.Level, string(line)).String())
	}
	if _, err := h.out.Write(line); err != nil {
		internalLog("console write failed: %v", err)
	}
}

func (h *ConsoleHandler) colorize(l Level, s string) aurora.Value {
	switch {
	case l >= LevelSevere:
		return h.au.Red(s)
	case l >= LevelWarning:
		return h.au.Yellow(s)
	case l >= LevelInfo:
		return h.au.Reset(s)
	case l >= LevelConfig:
		return h.au.Cyan(s)
	default:
		return h.au.BrightBlack(s)
	}
}

// Flush syncs the underlying file when it supports it
func (h *ConsoleHandler) Flush() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.out.(interface{ Sync() error }); ok && h.out != os.Stdout && h.out != os.Stderr {
		return s.Sync()
	}
	return nil
}

// Close is a no-op; the standard streams stay open
func (h *ConsoleHandler) Close() error { return nil }

// Compare orders console handlers by target
func (h *ConsoleHandler) Compare(other Handler) int {
	if other == Handler(h) {
		return 0
	}
	if k := compareKind(h, other); k != 0 {
		return k
	}
	o, ok := other.(*ConsoleHandler)
	if !ok {
		return 1
	}
	return strings.Compare(h.Target(), o.Target())
}
