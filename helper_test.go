package logtree

import (
	"bytes"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// recordingHandler keeps every record it publishes
type recordingHandler struct {
	Base
	name string

	mu      sync.Mutex
	records []*Record
	setUps  int
	closes  int
	panics  bool
	journal *journal
}

func newRecorder(name string) *recordingHandler {
	return &recordingHandler{name: name}
}

func (h *recordingHandler) Kind() string { return "recording" }

func (h *recordingHandler) Publish(r *Record) {
	h.Dispatch(r, h.setUp, h.doPublish)
}

func (h *recordingHandler) setUp() {
	h.mu.Lock()
	h.setUps++
	h.mu.Unlock()
}

func (h *recordingHandler) doPublish(r *Record) {
	if h.journal != nil {
		h.journal.add(h.name)
	}
	if h.panics {
		panic("recording handler " + h.name)
	}
	h.mu.Lock()
	h.records = append(h.records, r)
	h.mu.Unlock()
}

func (h *recordingHandler) Flush() error { return nil }

func (h *recordingHandler) Close() error {
	h.mu.Lock()
	h.closes++
	h.mu.Unlock()
	return nil
}

func (h *recordingHandler) Compare(other Handler) int {
	if other == Handler(h) {
		return 0
	}
	if k := compareKind(h, other); k != 0 {
		return k
	}
	o, ok := other.(*recordingHandler)
	if !ok {
		return 1
	}
	return strings.Compare(h.name, o.name)
}

func (h *recordingHandler) Records() []*Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*Record(nil), h.records...)
}

func (h *recordingHandler) SetUps() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.setUps
}

func (h *recordingHandler) Closes() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closes
}

// journal records the order in which handlers ran
type journal struct {
	mu    sync.Mutex
	names []string
}

func (j *journal) add(name string) {
	j.mu.Lock()
	j.names = append(j.names, name)
	j.mu.Unlock()
}

func (j *journal) Names() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.names...)
}

// countingListener counts notifications and optionally panics
type countingListener struct {
	n      atomic.Int32
	panics bool
}

func (l *countingListener) LogEvent(*Record) {
	l.n.Add(1)
	if l.panics {
		panic("listener")
	}
}

// syncBuffer is a bytes.Buffer safe for concurrent writers
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// captureErrors redirects the error channel for the duration of the test
func captureErrors(t *testing.T) *syncBuffer {
	t.Helper()
	buf := &syncBuffer{}
	SetErrorOutput(buf)
	t.Cleanup(func() { SetErrorOutput(nil) })
	return buf
}

// freePort returns a TCP port that was free a moment ago
func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

// quietRegistry has an empty composite root
func quietRegistry() *Registry {
	reg := NewRegistry()
	reg.SetDefaultHandler(NewCompositeHandler())
	return reg
}
