package logtree

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/lixenwraith/logtree/formatter"
)

// Record is a single log event. It is created once per log call and passed
// by pointer through the handler tree. Handlers treat it as read-only; the
// dispatching Logger is the only writer and only sets LoggerName.
type Record struct {
	Level      Level
	Message    string
	Params     []any
	LoggerName string
	Thrown     error
	Time       time.Time
}

// NewRecord creates a record stamped with the current time
func NewRecord(level Level, msg string, params ...any) *Record {
	return &Record{
		Level:   level,
		Message: msg,
		Params:  params,
		Time:    time.Now(),
	}
}

// Clone returns a shallow copy with its own parameter slice
func (r *Record) Clone() *Record {
	c := *r
	if r.Params != nil {
		c.Params = make([]any, len(r.Params))
		copy(c.Params, r.Params)
	}
	return &c
}

// entry converts the record for the formatter
func (r *Record) entry() formatter.Entry {
	return formatter.Entry{
		Logger:  r.LoggerName,
		Level:   r.Level.String(),
		Time:    r.Time,
		Message: r.Message,
		Params:  r.Params,
		Thrown:  r.Thrown,
	}
}

// RemoteError carries an error received over the wire. The original error
// type is not reconstructed, only its message and rendered stack.
type RemoteError struct {
	Msg   string
	Stack string
}

func (e *RemoteError) Error() string {
	return e.Msg
}

// Format prints the stack for %+v
func (e *RemoteError) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') && e.Stack != "" {
			io.WriteString(s, e.Stack)
			return
		}
		io.WriteString(s, e.Msg)
	case 's':
		io.WriteString(s, e.Msg)
	case 'q':
		fmt.Fprintf(s, "%q", e.Msg)
	}
}

// errorOutput is the process-level error channel
var errorOutput atomic.Value // stores *sink

// internalEnabled gates the error channel, see Config.InternalErrorsToStderr
var internalEnabled atomic.Bool

// sink is a wrapper around an io.Writer, atomic value type change workaround
type sink struct {
	w io.Writer
}

func init() {
	errorOutput.Store(&sink{w: os.Stderr})
	internalEnabled.Store(true)
}

// SetErrorOutput redirects internal diagnostics; nil restores stderr.
func SetErrorOutput(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	errorOutput.Store(&sink{w: w})
}

// internalLog writes a diagnostic to the error channel. It never fails the caller.
func internalLog(format string, args ...any) {
	if !internalEnabled.Load() {
		return
	}

	// Ensure consistent "logtree: " prefix
	if !strings.HasPrefix(format, "logtree: ") {
		format = "logtree: " + format
	}
	if !strings.HasSuffix(format, "\n") {
		format += "\n"
	}

	s := errorOutput.Load().(*sink)
	fmt.Fprintf(s.w, format, args...)
}
