package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/lixenwraith/logtree"
)

type sendOptions struct {
	host    string
	port    int
	level   string
	name    string
	timeout time.Duration
}

func (o *sendOptions) registerFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.host, "host", logtree.DefaultRemoteHost, "relay host")
	fs.IntVar(&o.port, "port", logtree.DefaultRemotePort, "relay port")
	fs.StringVar(&o.level, "level", "INFO", "record level, name or number")
	fs.StringVar(&o.name, "name", "logrelay", "logger name stamped on the record")
	fs.DurationVar(&o.timeout, "timeout", logtree.DefaultRemoteTimeout, "dial and write timeout")
}

func newSendCmd() *cobra.Command {
	opts := &sendOptions{}
	cmd := &cobra.Command{
		Use:   "send [flags] <message> [words...]",
		Short: "Send one record to a relay",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return send(opts, strings.Join(args, " "))
		},
	}
	opts.registerFlags(cmd.Flags())
	return cmd
}

func send(opts *sendOptions, msg string) error {
	level, err := logtree.ParseLevel(opts.level)
	if err != nil {
		return err
	}

	h := logtree.NewRemoteSendHandler()
	h.SetHost(opts.host)
	h.SetPort(opts.port)
	h.SetTimeout(opts.timeout)

	r := logtree.NewRecord(level, msg)
	r.LoggerName = opts.name
	h.Publish(r)

	if h.Stats().Sent != 1 {
		return fmt.Errorf("failed to send record to %s:%d", opts.host, opts.port)
	}
	return nil
}
