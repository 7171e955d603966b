// File: cmd/udpecho/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// udpecho runs a datagram echo server or client on top of transport/udp.

package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	if err := newApp().Execute(); err != nil {
		logrus.Fatal(err)
	}
}

func newApp() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "udpecho",
		Short: "Datagram echo server and client",
		Example: `  Serve on a port range:
  $ udpecho serve --port-range 9000:9010

  Send three datagrams:
  $ udpecho send --count 3 127.0.0.1:9000 hello`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("log-level", "", "Set the logging level [trace, debug, info, warn, error]")
	rootCmd.PersistentFlags().String("log-format", "text", "Set the logging format [text, json]")
	rootCmd.PersistentFlags().Bool("debug", false, "Debug mode")
	rootCmd.PersistentFlags().Int("runners", 0, "Number of selector runners (0 = one per CPU)")
	rootCmd.PersistentPreRunE = func(*cobra.Command, []string) error {
		return processGlobalFlags(rootCmd)
	}
	rootCmd.AddCommand(
		newServeCommand(),
		newSendCommand(),
	)
	return rootCmd
}

func processGlobalFlags(rootCmd *cobra.Command) error {
	// --log-level overrides --debug
	if debug, _ := rootCmd.PersistentFlags().GetBool("debug"); debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	if l, _ := rootCmd.PersistentFlags().GetString("log-level"); l != "" {
		lvl, err := logrus.ParseLevel(l)
		if err != nil {
			return err
		}
		logrus.SetLevel(lvl)
	}
	logFormat, _ := rootCmd.PersistentFlags().GetString("log-format")
	switch logFormat {
	case "json":
		logrus.StandardLogger().SetFormatter(new(logrus.JSONFormatter))
	case "text":
	default:
		return fmt.Errorf("unsupported log-format: %q", logFormat)
	}
	logrus.SetOutput(os.Stderr)
	return nil
}
