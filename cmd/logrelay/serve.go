package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/valyala/fasthttp"

	"github.com/lixenwraith/logtree"
	"github.com/lixenwraith/logtree/compat"
)

type serveOptions struct {
	configPath    string
	port          int
	acceptTimeout time.Duration
	statusAddr    string
}

func (o *serveOptions) registerFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.configPath, "config", "", "TOML file with a [logtree] section")
	fs.IntVar(&o.port, "port", logtree.DefaultRemotePort, "port to receive records on, overrides receive_port")
	fs.DurationVar(&o.acceptTimeout, "accept-timeout", logtree.DefaultAcceptTimeout, "interval of the stop check, overrides accept_timeout_ms")
	fs.StringVar(&o.statusAddr, "status", "", "address of the HTTP status endpoint, empty to disable")
}

func newServeCmd(handlerName string) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Receive records and republish them to the local handler tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd, opts, handlerName)
		},
	}
	opts.registerFlags(cmd.Flags())
	return cmd
}

func serve(cmd *cobra.Command, opts *serveOptions, handlerName string) error {
	cfg := logtree.DefaultConfig()
	if opts.configPath != "" {
		var err error
		if cfg, err = logtree.NewConfigFromFile(opts.configPath); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("port") {
		cfg.ReceivePort = int64(opts.port)
	}
	if cmd.Flags().Changed("accept-timeout") {
		cfg.AcceptTimeoutMs = opts.acceptTimeout.Milliseconds()
	}

	reg := logtree.NewRegistry()
	if err := reg.ApplyConfig(cfg); err != nil {
		return err
	}
	logtree.SetDefault(reg)
	defer reg.Close()

	if handlerName != "" {
		if _, _, err := reg.UseHandlerFromArgs([]string{logtree.HandlerOption, handlerName}); err != nil {
			return err
		}
	}

	log := reg.GetLogger("logrelay")
	adapters := compat.NewBuilder().WithRegistry(reg)
	engineLog, err := adapters.BuildStructuredGnet(compat.WithFatalHandler(func(msg string) {
		log.Severe("receive engine failed: {}", msg)
	}))
	if err != nil {
		return err
	}

	recv := cfg.NewReceiveHandler()
	recv.SetEngineLogger(engineLog)
	recv.SetInner(reg.RootHandler())
	if err := recv.StartListening(); err != nil {
		return err
	}
	log.Info("receiving on port {}", recv.Port())

	var status *fasthttp.Server
	if opts.statusAddr != "" {
		httpLog, err := adapters.BuildFastHTTP()
		if err != nil {
			recv.Close()
			return err
		}
		status = newStatusServer(reg, recv, httpLog)
		go func() {
			if err := status.ListenAndServe(opts.statusAddr); err != nil {
				log.LogError(logtree.LevelSevere, "status endpoint stopped", err)
			}
		}()
		log.Info("status endpoint on {}", opts.statusAddr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	log.Info("shutting down")

	if status != nil {
		if err := status.Shutdown(); err != nil {
			log.LogError(logtree.LevelWarning, "status endpoint shutdown", err)
		}
	}
	return recv.Close()
}
