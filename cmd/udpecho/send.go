// File: cmd/udpecho/send.go
// Author: momentics <momentics@gmail.com>

package main

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/momentics/hioload-udp/api"
	"github.com/momentics/hioload-udp/pool"
	"github.com/momentics/hioload-udp/transport/udp"
)

func newSendCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send HOST:PORT MESSAGE...",
		Short: "Send datagrams and print the echoed replies",
		Args:  cobra.MinimumNArgs(2),
		RunE:  sendAction,
	}
	cmd.Flags().Int("count", 1, "Number of times to send the message")
	cmd.Flags().Duration("timeout", 2*time.Second, "How long to wait for each reply")
	return cmd
}

func sendAction(cmd *cobra.Command, args []string) error {
	count, _ := cmd.Flags().GetInt("count")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	runners, _ := cmd.Root().PersistentFlags().GetInt("runners")

	host, portStr, err := net.SplitHostPort(args[0])
	if err != nil {
		return err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid port %q: %w", portStr, err)
	}
	message := strings.Join(args[1:], " ")

	replies := make(chan string, count)
	tr, err := udp.New(
		udp.WithName("udpecho-client"),
		udp.WithSelectorRunners(runners),
		udp.WithProcessor(udp.ProcessorFunc(func(c *udp.Connection) {
			buf := pool.Allocate(c.ReadBufferSize())
			for c.Read(buf, nil) > 0 {
				buf.Flip()
				select {
				case replies <- string(buf.Bytes()):
				default:
				}
				buf.Clear()
			}
		})),
		udp.WithLogger(logrus.WithField("component", "udpecho")),
	)
	if err != nil {
		return err
	}
	if err := tr.Start(); err != nil {
		return err
	}
	defer tr.Shutdown()

	c, err := tr.ConnectHost(host, port).GetTimeout(timeout)
	if err != nil {
		return err
	}
	defer c.Close()

	out := cmd.OutOrStdout()
	for i := 0; i < count; i++ {
		start := time.Now()
		c.Write(nil, api.BufferMessage(pool.WrapString(message)), func(_ api.WriteResult, err error) {
			if err != nil {
				logrus.WithError(err).Warn("send failed")
			}
		})
		select {
		case reply := <-replies:
			fmt.Fprintf(out, "%d bytes from %v: %q time=%v\n", len(reply), c.PeerAddr(), reply, time.Since(start))
		case <-time.After(timeout):
			return fmt.Errorf("no reply from %v within %v", c.PeerAddr(), timeout)
		}
	}
	return nil
}
