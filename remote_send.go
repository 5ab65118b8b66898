package logtree

import (
	"cmp"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// SendState is the backoff state of a RemoteSendHandler
type SendState struct {
	ConsecutiveFailures int
	LastFailure         time.Time
	NextAttempt         time.Time
	Disabled            bool
}

// dialFunc matches net.DialTimeout
type dialFunc func(network, address string, timeout time.Duration) (net.Conn, error)

// RemoteSendHandler ships each record over its own TCP connection. After a
// failure, records are dropped until the backoff delay has passed. With a
// positive failure limit the handler removes itself from the registry root
// once the limit is reached.
type RemoteSendHandler struct {
	Base
	mu          sync.Mutex
	host        string
	port        int
	maxFailures int
	timeout     time.Duration
	failures    int
	lastFailure time.Time
	nextAttempt time.Time
	disabled    atomic.Bool
	registry    *Registry
	stats       Stats

	now  func() time.Time
	dial dialFunc
}

// NewRemoteSendHandler targets 127.0.0.1:12345 with no failure limit
func NewRemoteSendHandler() *RemoteSendHandler {
	return &RemoteSendHandler{
		host:        DefaultRemoteHost,
		port:        DefaultRemotePort,
		maxFailures: UnlimitedFailures,
		timeout:     DefaultRemoteTimeout,
		now:         time.Now,
		dial:        net.DialTimeout,
	}
}

// Kind implements Handler
func (h *RemoteSendHandler) Kind() string { return "remote-send" }

// Host returns the target host
func (h *RemoteSendHandler) Host() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.host
}

// SetHost changes the target host
func (h *RemoteSendHandler) SetHost(host string) {
	h.mu.Lock()
	h.host = host
	h.mu.Unlock()
	resetHandler(h, &h.Base)
}

// Port returns the target port
func (h *RemoteSendHandler) Port() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.port
}

// SetPort changes the target port
func (h *RemoteSendHandler) SetPort(port int) {
	h.mu.Lock()
	h.port = port
	h.mu.Unlock()
	resetHandler(h, &h.Base)
}

// MaxFailures returns the self-disable threshold; values < 1 mean unlimited
func (h *RemoteSendHandler) MaxFailures() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.maxFailures
}

// SetMaxFailures changes the self-disable threshold
func (h *RemoteSendHandler) SetMaxFailures(n int) {
	h.mu.Lock()
	h.maxFailures = n
	h.mu.Unlock()
	resetHandler(h, &h.Base)
}

// Timeout returns the dial and write timeout
func (h *RemoteSendHandler) Timeout() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.timeout
}

// SetTimeout changes the dial and write timeout
func (h *RemoteSendHandler) SetTimeout(d time.Duration) {
	h.mu.Lock()
	h.timeout = d
	h.mu.Unlock()
	resetHandler(h, &h.Base)
}

// SetRegistry sets the registry the handler removes itself from;
// nil means the package default registry
func (h *RemoteSendHandler) SetRegistry(reg *Registry) {
	h.mu.Lock()
	h.registry = reg
	h.mu.Unlock()
}

// State returns a copy of the backoff state
func (h *RemoteSendHandler) State() SendState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return SendState{
		ConsecutiveFailures: h.failures,
		LastFailure:         h.lastFailure,
		NextAttempt:         h.nextAttempt,
		Disabled:            h.disabled.Load(),
	}
}

// Stats returns the transport counters
func (h *RemoteSendHandler) Stats() StatsSnapshot {
	return h.stats.Snapshot()
}

// Publish implements Handler
func (h *RemoteSendHandler) Publish(r *Record) {
	h.Dispatch(r, nil, h.doPublish)
}

func (h *RemoteSendHandler) doPublish(r *Record) {
	if h.disabled.Load() {
		h.stats.Dropped.Add(1)
		return
	}

	h.mu.Lock()
	now := h.now()
	if h.failures > 0 && now.Before(h.nextAttempt) {
		h.mu.Unlock()
		h.stats.Dropped.Add(1)
		return
	}
	addr := net.JoinHostPort(h.host, strconv.Itoa(h.port))
	timeout := h.timeout
	h.mu.Unlock()

	conn, err := h.dial("tcp", addr, timeout)
	if err != nil {
		h.fail(now, fmtErrorf("failed to connect to %s: %w", addr, err))
		return
	}

	h.mu.Lock()
	h.failures = 0
	h.lastFailure = time.Time{}
	h.nextAttempt = time.Time{}
	h.mu.Unlock()

	if err := h.write(conn, r, timeout); err != nil {
		h.fail(now, fmtErrorf("failed to send record to %s: %w", addr, err))
		return
	}
	h.stats.Sent.Add(1)
}

// write encodes r onto conn and closes it, the close delimiting the record
func (h *RemoteSendHandler) write(conn net.Conn, r *Record, timeout time.Duration) error {
	data, err := EncodeRecord(r)
	if err != nil {
		conn.Close()
		return err
	}
	if timeout > 0 {
		if err := conn.SetWriteDeadline(h.now().Add(timeout)); err != nil {
			conn.Close()
			return err
		}
	}
	_, err = conn.Write(data)
	return combineErrors(err, conn.Close())
}

// fail records a failure and either schedules the next attempt or disables the handler
func (h *RemoteSendHandler) fail(now time.Time, cause error) {
	h.stats.Failed.Add(1)

	h.mu.Lock()
	h.failures++
	failures := h.failures
	if h.maxFailures > 0 && failures >= h.maxFailures {
		reg := h.registry
		h.mu.Unlock()
		internalLog("%v; disabling remote handler after %d consecutive failures", cause, failures)
		h.selfDisable(reg)
		return
	}
	delay := baseBackoff << min(maxBackoffExpStep, failures-1)
	h.lastFailure = now
	h.nextAttempt = now.Add(delay)
	h.mu.Unlock()

	internalLog("%v; next attempt in %s", cause, delay)
}

func (h *RemoteSendHandler) selfDisable(reg *Registry) {
	h.disabled.Store(true)
	if reg == nil {
		reg = Default()
	}
	if err := reg.RemoveFromRoot(h); err != nil {
		internalLog("failed to remove disabled remote handler from root: %v", err)
	}
}

// Flush is a no-op; each record is written on its own connection
func (h *RemoteSendHandler) Flush() error { return nil }

// Close is a no-op; no connection outlives a publish
func (h *RemoteSendHandler) Close() error { return nil }

// invalidate also clears the backoff state and re-enables the handler
func (h *RemoteSendHandler) invalidate() {
	h.mu.Lock()
	h.failures = 0
	h.lastFailure = time.Time{}
	h.nextAttempt = time.Time{}
	h.mu.Unlock()
	h.disabled.Store(false)
	h.Base.invalidate()
}

// Compare orders by host, then port
func (h *RemoteSendHandler) Compare(other Handler) int {
	if other == Handler(h) {
		return 0
	}
	if k := compareKind(h, other); k != 0 {
		return k
	}
	o, ok := other.(*RemoteSendHandler)
	if !ok {
		return 1
	}
	if c := strings.Compare(h.Host(), o.Host()); c != 0 {
		return c
	}
	return cmp.Compare(h.Port(), o.Port())
}
