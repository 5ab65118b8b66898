// Package main provides logrelay, a TCP relay for logtree records. It
// receives records sent by remote-send handlers and republishes them into a
// local handler tree, and can send single records for testing.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lixenwraith/logtree"
)

func main() {
	// -logging-handler is consumed before cobra sees the arguments
	handlerName, args := splitHandlerOption(os.Args[1:])

	rootCmd := &cobra.Command{
		Use:           "logrelay",
		Short:         "Relay logtree records over TCP",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	rootCmd.AddCommand(newServeCmd(handlerName), newSendCmd())
	rootCmd.SetArgs(args)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		logtree.PrintHandlerOption(os.Stderr)
		os.Exit(1)
	}
}

// splitHandlerOption removes the handler option and its value from args.
// A trailing option without a value is kept for the registry to reject.
func splitHandlerOption(args []string) (string, []string) {
	for i, a := range args {
		if a == logtree.HandlerOption && i+1 < len(args) {
			rest := append(append([]string(nil), args[:i]...), args[i+2:]...)
			return args[i+1], rest
		}
	}
	return "", args
}
