package logtree

import (
	"errors"
	"fmt"
	"runtime"
	"slices"
	"strings"
)

// Sentinel errors
var (
	ErrRootNotComposite   = errors.New("root handler is not a composite")
	ErrUnknownHandler     = errors.New("unknown handler")
	ErrAlreadyListening   = errors.New("already listening")
	ErrUnsupportedVersion = errors.New("unsupported wire version")
)

// maxTraceDepth bounds the caller chain attached by callerTrace
const maxTraceDepth = 10

// callerTrace names up to depth functions above its caller, skipping skip
// more frames, outermost first and joined by " -> ".
func callerTrace(skip, depth int) string {
	if depth <= 0 || depth > maxTraceDepth {
		return ""
	}
	pcs := make([]uintptr, depth)
	n := runtime.Callers(skip+2, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	names := make([]string, 0, depth)
	for len(names) < depth {
		f, more := frames.Next()
		if f.Function != "" {
			names = append(names, frameName(f.Function))
		}
		if !more {
			break
		}
	}
	if len(names) == 0 {
		return "(unknown)"
	}
	slices.Reverse(names)
	return strings.Join(names, " -> ")
}

// frameName drops the import path and package from a runtime function name:
// "github.com/x/pkg.(*T).m.func1" becomes "(*T).m.func1".
func frameName(fn string) string {
	fn = fn[strings.LastIndexByte(fn, '/')+1:]
	if i := strings.IndexByte(fn, '.'); i >= 0 {
		return fn[i+1:]
	}
	return fn
}

// ErrorString renders err with its stack (%+v), limited to maxLines when maxLines > 0
func ErrorString(err error, maxLines int) string {
	if err == nil {
		return ""
	}
	s := fmt.Sprintf("%+v", err)
	if maxLines <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	return strings.Join(lines, "\n")
}

// fmtErrorf wrapper
func fmtErrorf(format string, args ...any) error {
	if !strings.HasPrefix(format, "logtree: ") {
		format = "logtree: " + format
	}
	return fmt.Errorf(format, args...)
}

// combineErrors helper
func combineErrors(err1, err2 error) error {
	if err1 == nil {
		return err2
	}
	if err2 == nil {
		return err1
	}
	return errors.Join(err1, err2)
}

// safeCall runs fn and reports a panic on the error channel instead of propagating it
func safeCall(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			internalLog("%s panicked: %v", what, r)
		}
	}()
	fn()
}
