package logtree

import (
	"bytes"
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/gnet/v2"
	"github.com/panjf2000/gnet/v2/pkg/logging"
)

// RemoteReceiveHandler accepts records sent by RemoteSendHandlers and
// republishes them to its inner handler. Each connection carries exactly one
// encoded record, delimited by the peer closing the connection.
type RemoteReceiveHandler struct {
	Wrapping
	runMu   sync.Mutex // serialises StartListening and Close
	running *receiveServer

	cfgMu         sync.Mutex
	port          int
	acceptTimeout time.Duration
	engineLogger  logging.Logger

	stats Stats
}

// NewRemoteReceiveHandler listens on port 12345 and republishes to the console
func NewRemoteReceiveHandler() *RemoteReceiveHandler {
	h := &RemoteReceiveHandler{
		port:          DefaultRemotePort,
		acceptTimeout: DefaultAcceptTimeout,
		engineLogger:  errorChannelLogger{},
	}
	h.SetInner(NewConsoleHandler())
	return h
}

// Kind implements Handler
func (h *RemoteReceiveHandler) Kind() string { return "remote-receive" }

// Port returns the listening port
func (h *RemoteReceiveHandler) Port() int {
	h.cfgMu.Lock()
	defer h.cfgMu.Unlock()
	return h.port
}

// SetPort changes the port; a running listener is stopped and the inner handler stays open
func (h *RemoteReceiveHandler) SetPort(port int) {
	h.cfgMu.Lock()
	h.port = port
	h.cfgMu.Unlock()
	h.reset()
}

// AcceptTimeout returns the interval of the stop check
func (h *RemoteReceiveHandler) AcceptTimeout() time.Duration {
	h.cfgMu.Lock()
	defer h.cfgMu.Unlock()
	return h.acceptTimeout
}

// SetAcceptTimeout changes the interval of the stop check
func (h *RemoteReceiveHandler) SetAcceptTimeout(d time.Duration) {
	if d < minWaitTime {
		d = minWaitTime
	}
	h.cfgMu.Lock()
	h.acceptTimeout = d
	h.cfgMu.Unlock()
	h.reset()
}

// SetEngineLogger routes the network engine's own logs; nil restores the error channel
func (h *RemoteReceiveHandler) SetEngineLogger(l logging.Logger) {
	if l == nil {
		l = errorChannelLogger{}
	}
	h.cfgMu.Lock()
	h.engineLogger = l
	h.cfgMu.Unlock()
}

// Stats returns the receive counters
func (h *RemoteReceiveHandler) Stats() StatsSnapshot {
	return h.stats.Snapshot()
}

// Listening reports whether the engine is running
func (h *RemoteReceiveHandler) Listening() bool {
	h.runMu.Lock()
	defer h.runMu.Unlock()
	return h.running != nil
}

// StartListening binds the port and serves in the background. Bind errors
// are returned; calling it while listening fails with ErrAlreadyListening.
func (h *RemoteReceiveHandler) StartListening() error {
	h.runMu.Lock()
	defer h.runMu.Unlock()
	if h.running != nil {
		return fmtErrorf("port %d: %w", h.Port(), ErrAlreadyListening)
	}

	h.cfgMu.Lock()
	port, tick, logger := h.port, h.acceptTimeout, h.engineLogger
	h.cfgMu.Unlock()

	srv := &receiveServer{
		h:      h,
		tick:   tick,
		booted: make(chan struct{}),
		done:   make(chan struct{}),
	}
	errCh := make(chan error, 1)
	go func() {
		defer close(srv.done)
		err := gnet.Run(srv, fmt.Sprintf("tcp://:%d", port),
			gnet.WithMulticore(false),
			gnet.WithTicker(true),
			gnet.WithReuseAddr(true),
			gnet.WithLogger(logger),
		)
		if err != nil && !srv.stop.Load() {
			internalLog("receive engine on port %d exited: %v", port, err)
		}
		errCh <- err
	}()

	select {
	case <-srv.booted:
		h.running = srv
		return nil
	case err := <-errCh:
		if err == nil {
			err = errors.New("engine exited before boot")
		}
		return fmtErrorf("failed to listen on port %d: %w", port, err)
	}
}

// Publish forwards a received record to the inner handler
func (h *RemoteReceiveHandler) Publish(r *Record) {
	h.Dispatch(r, nil, h.forward)
}

// Close stops the engine, waits for it to exit and closes the inner handler
func (h *RemoteReceiveHandler) Close() error {
	h.runMu.Lock()
	defer h.runMu.Unlock()

	var err error
	if srv := h.running; srv != nil {
		h.running = nil
		err = srv.shutdown()
	}
	return combineErrors(err, h.Wrapping.Close())
}

// reset stops a running engine and clears the set-up flag. Unlike other
// handlers the inner handler is not closed; it may be shared, such as a registry root.
func (h *RemoteReceiveHandler) reset() {
	h.runMu.Lock()
	srv := h.running
	h.running = nil
	h.runMu.Unlock()

	if srv != nil {
		if err := srv.shutdown(); err != nil {
			internalLog("stopping receive engine during reset: %v", err)
		}
	}
	h.Base.invalidate()
}

// Compare orders receive handlers by port
func (h *RemoteReceiveHandler) Compare(other Handler) int {
	if other == Handler(h) {
		return 0
	}
	if k := compareKind(h, other); k != 0 {
		return k
	}
	o, ok := other.(*RemoteReceiveHandler)
	if !ok {
		return 1
	}
	return cmp.Compare(h.Port(), o.Port())
}

// receiveServer is the engine callback set of one listening session
type receiveServer struct {
	gnet.BuiltinEventEngine
	h      *RemoteReceiveHandler
	tick   time.Duration
	eng    gnet.Engine
	stop   atomic.Bool
	booted chan struct{}
	done   chan struct{}
}

func (s *receiveServer) OnBoot(eng gnet.Engine) gnet.Action {
	s.eng = eng
	close(s.booted)
	return gnet.None
}

func (s *receiveServer) OnOpen(c gnet.Conn) ([]byte, gnet.Action) {
	s.h.stats.Connections.Add(1)
	c.SetContext(new(bytes.Buffer))
	return nil, gnet.None
}

func (s *receiveServer) OnTraffic(c gnet.Conn) gnet.Action {
	buf, ok := c.Context().(*bytes.Buffer)
	data, err := c.Next(-1)
	if err != nil || !ok {
		return gnet.Close
	}
	if buf.Len()+len(data) > maxPayloadSize {
		internalLog("dropping connection from %s: payload exceeds %d bytes", c.RemoteAddr(), maxPayloadSize)
		c.SetContext(nil)
		return gnet.Close
	}
	buf.Write(data)
	return gnet.None
}

func (s *receiveServer) OnClose(c gnet.Conn, err error) gnet.Action {
	if err != nil && !errors.Is(err, io.EOF) {
		s.h.stats.ConnErrors.Add(1)
		internalLog("connection from %s failed: %v", c.RemoteAddr(), err)
		return gnet.None
	}
	buf, ok := c.Context().(*bytes.Buffer)
	if !ok || buf.Len() == 0 {
		return gnet.None
	}
	r, derr := DecodeRecord(buf.Bytes())
	if derr != nil {
		s.h.stats.DecodeFailures.Add(1)
		internalLog("discarding record from %s: %v", c.RemoteAddr(), derr)
		return gnet.None
	}
	s.h.stats.Received.Add(1)
	s.h.Publish(r)
	return gnet.None
}

// OnTick is the cooperative stop check
func (s *receiveServer) OnTick() (time.Duration, gnet.Action) {
	if s.stop.Load() {
		return s.tick, gnet.Shutdown
	}
	return s.tick, gnet.None
}

func (s *receiveServer) shutdown() error {
	s.stop.Store(true)
	ctx, cancel := context.WithTimeout(context.Background(), engineStopTimeout)
	defer cancel()
	stopErr := s.eng.Stop(ctx)

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return fmtErrorf("receive engine did not stop within %s: %w", engineStopTimeout, combineErrors(stopErr, ctx.Err()))
	}
}

// errorChannelLogger sends warnings and errors of the engine to the error channel
type errorChannelLogger struct{}

func (errorChannelLogger) Debugf(string, ...any) {}
func (errorChannelLogger) Infof(string, ...any)  {}
func (errorChannelLogger) Warnf(format string, args ...any) {
	internalLog("engine: "+format, args...)
}
func (errorChannelLogger) Errorf(format string, args ...any) {
	internalLog("engine: "+format, args...)
}
func (errorChannelLogger) Fatalf(format string, args ...any) {
	internalLog("engine: fatal: "+format, args...)
}
