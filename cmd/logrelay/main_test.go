package main

import (
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/lixenwraith/logtree"
)

func TestSplitHandlerOption(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantName string
		wantRest []string
	}{
		{"absent", []string{"serve", "--port", "1"}, "", []string{"serve", "--port", "1"}},
		{"leading", []string{"-logging-handler", "file", "serve"}, "file", []string{"serve"}},
		{"trailing", []string{"serve", "-logging-handler", "zap"}, "zap", []string{"serve"}},
		{"missing value", []string{"serve", "-logging-handler"}, "", []string{"serve", "-logging-handler"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, rest := splitHandlerOption(tt.args)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantRest, rest)
		})
	}
}

func TestSendToRelay(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	recv := logtree.NewRemoteReceiveHandler()
	recv.SetPort(port)
	recv.SetAcceptTimeout(50 * time.Millisecond)
	collected := make(chan *logtree.Record, 1)
	recv.SetInner(collector(collected))
	require.NoError(t, recv.StartListening())
	defer recv.Close()

	opts := &sendOptions{host: "127.0.0.1", port: port, level: "warn", name: "cli", timeout: time.Second}
	require.NoError(t, send(opts, "disk full"))

	select {
	case r := <-collected:
		assert.Equal(t, logtree.LevelWarning, r.Level)
		assert.Equal(t, "disk full", r.Message)
		assert.Equal(t, "cli", r.LoggerName)
	case <-time.After(5 * time.Second):
		t.Fatal("record not received")
	}

	assert.Error(t, send(&sendOptions{host: "127.0.0.1", port: port, level: "LOUD"}, "x"))
}

func TestStatusHandler(t *testing.T) {
	reg := logtree.NewRegistry()
	reg.SetDefaultHandler(logtree.NewCompositeHandler())
	recv := logtree.NewRemoteReceiveHandler()

	ln := fasthttputil.NewInmemoryListener()
	defer ln.Close()
	srv := &fasthttp.Server{Handler: statusHandler(reg, recv)}
	go srv.Serve(ln)
	defer srv.Shutdown()

	client := &fasthttp.HostClient{
		Addr: "status",
		Dial: func(string) (net.Conn, error) { return ln.Dial() },
	}
	get := func(path string) (int, []byte) {
		req := fasthttp.AcquireRequest()
		resp := fasthttp.AcquireResponse()
		defer fasthttp.ReleaseRequest(req)
		defer fasthttp.ReleaseResponse(resp)
		req.SetRequestURI("http://status" + path)
		require.NoError(t, client.Do(req, resp))
		return resp.StatusCode(), append([]byte(nil), resp.Body()...)
	}

	code, body := get("/tree")
	assert.Equal(t, fasthttp.StatusOK, code)
	assert.Equal(t, "composite\n", string(body))

	code, body = get("/stats")
	assert.Equal(t, fasthttp.StatusOK, code)
	var view statusView
	require.NoError(t, json.Unmarshal(body, &view))
	assert.Equal(t, logtree.DefaultRemotePort, view.Port)
	assert.False(t, view.Listening)
	assert.Equal(t, uint64(0), view.Receiver.Received)

	code, _ = get("/nope")
	assert.Equal(t, fasthttp.StatusNotFound, code)
}

// collectingHandler hands every record to a channel
type collectingHandler struct {
	logtree.Base
	out chan<- *logtree.Record
}

func collector(out chan<- *logtree.Record) *collectingHandler {
	return &collectingHandler{out: out}
}

func (h *collectingHandler) Kind() string { return "collecting" }

func (h *collectingHandler) Publish(r *logtree.Record) {
	h.Dispatch(r, nil, func(r *logtree.Record) { h.out <- r })
}

func (h *collectingHandler) Flush() error { return nil }
func (h *collectingHandler) Close() error { return nil }

func (h *collectingHandler) Compare(other logtree.Handler) int {
	if other == logtree.Handler(h) {
		return 0
	}
	return 1
}
