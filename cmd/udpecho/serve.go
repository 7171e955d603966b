// File: cmd/udpecho/serve.go
// Author: momentics <momentics@gmail.com>

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/momentics/hioload-udp/api"
	"github.com/momentics/hioload-udp/transport/udp"
)

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Echo every datagram back to its sender",
		Args:  cobra.NoArgs,
		RunE:  serveAction,
	}
	flags := cmd.Flags()
	flags.String("host", "", "Address to bind (empty = wildcard)")
	flags.String("port-range", "9000", `Port or "lower:upper" range to bind`)
	flags.Bool("random-start", false, "Start the port range scan at a random port")
	flags.Bool("inherited", false, "Use the socket passed by the service manager (LISTEN_FDS)")
	flags.Bool("reuse-port", false, "Set SO_REUSEPORT on bound sockets")
	flags.Duration("unbind-timeout", udp.DefaultUnbindTimeout, "How long shutdown waits for each endpoint")
	flags.Duration("stats-interval", 0, "Log transport probes at this interval (0 = never)")
	flags.IntSlice("cpus", nil, "Pin selector runners to these CPUs")
	return cmd
}

func serveAction(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	host, _ := flags.GetString("host")
	portRange, _ := flags.GetString("port-range")
	randomStart, _ := flags.GetBool("random-start")
	inherited, _ := flags.GetBool("inherited")
	reusePort, _ := flags.GetBool("reuse-port")
	unbindTimeout, _ := flags.GetDuration("unbind-timeout")
	statsInterval, _ := flags.GetDuration("stats-interval")
	cpus, _ := flags.GetIntSlice("cpus")
	runners, _ := cmd.Root().PersistentFlags().GetInt("runners")

	tr, err := udp.New(
		udp.WithName("udpecho"),
		udp.WithSelectorRunners(runners),
		udp.WithReusePort(reusePort),
		udp.WithUnbindTimeout(unbindTimeout),
		udp.WithRunnerAffinity(cpus...),
		udp.WithProcessor(udp.ProcessorFunc(echo)),
		udp.WithLogger(logrus.WithField("component", "udpecho")),
	)
	if err != nil {
		return err
	}

	var c *udp.Connection
	if inherited {
		c, err = tr.BindToInherited()
	} else {
		r, perr := udp.ParsePortRange(portRange)
		if perr != nil {
			return perr
		}
		c, err = tr.BindRange(host, r, randomStart, udp.DefaultBacklog)
	}
	if err != nil {
		return err
	}
	if err := tr.Start(); err != nil {
		return err
	}
	logrus.Infof("echoing on %v", c.LocalAddr())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if statsInterval > 0 {
		go logStats(ctx, tr, statsInterval)
	}
	<-ctx.Done()
	return shutdown(tr)
}

func logStats(ctx context.Context, tr *udp.Transport, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			logrus.WithFields(logrus.Fields(tr.Snapshot())).Info("transport stats")
		}
	}
}

// echo drains the connection and writes each datagram back to its source.
func echo(c *udp.Connection) {
	for {
		var res api.ReadResult
		n := c.Read(nil, &res)
		if n <= 0 {
			return
		}
		buf := res.Message
		buf.Flip()
		logrus.Debugf("echo %d bytes to %v", n, res.SrcAddress)
		c.Write(res.SrcAddress, api.BufferMessage(buf), func(_ api.WriteResult, err error) {
			if err != nil {
				logrus.WithError(err).Debug("echo write failed")
			}
			buf.Dispose()
		})
	}
}

func shutdown(tr *udp.Transport) error {
	done := make(chan error, 1)
	go func() { done <- tr.Shutdown() }()
	select {
	case err := <-done:
		return err
	case <-time.After(10 * time.Second):
		return errors.New("shutdown timed out")
	}
}
