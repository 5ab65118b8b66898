package main

import (
	"encoding/json"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/lixenwraith/logtree"
)

// statusView is the /stats document
type statusView struct {
	Port      int                   `json:"port"`
	Listening bool                  `json:"listening"`
	Receiver  logtree.StatsSnapshot `json:"receiver"`
}

func newStatusServer(reg *logtree.Registry, recv *logtree.RemoteReceiveHandler, logger fasthttp.Logger) *fasthttp.Server {
	return &fasthttp.Server{
		Handler:      statusHandler(reg, recv),
		Logger:       logger,
		Name:         "logrelay",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
}

// statusHandler serves /tree with the handler tree and /stats with the receive counters
func statusHandler(reg *logtree.Registry, recv *logtree.RemoteReceiveHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if !ctx.IsGet() {
			ctx.Error("method not allowed", fasthttp.StatusMethodNotAllowed)
			return
		}
		switch string(ctx.Path()) {
		case "/tree":
			ctx.SetContentType("text/plain; charset=utf-8")
			ctx.WriteString(reg.Describe())
		case "/stats":
			body, err := json.Marshal(statusView{
				Port:      recv.Port(),
				Listening: recv.Listening(),
				Receiver:  recv.Stats(),
			})
			if err != nil {
				ctx.Error(err.Error(), fasthttp.StatusInternalServerError)
				return
			}
			ctx.SetContentType("application/json")
			ctx.Write(body)
		default:
			ctx.Error("not found", fasthttp.StatusNotFound)
		}
	}
}
