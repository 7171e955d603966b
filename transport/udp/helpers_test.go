//go:build linux

package udp

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

var loopback = net.IPv4(127, 0, 0, 1)

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func newTestTransport(t *testing.T, opts ...Option) *Transport {
	t.Helper()
	base := []Option{WithLogger(quietLogger()), WithSelectorRunners(1)}
	tr, err := New(append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Shutdown() })
	return tr
}

// openPeer builds a configured peer connection without registering it,
// so tests drive the data path directly.
func openPeer(t *testing.T, tr *Transport, remote *net.UDPAddr) *Connection {
	t.Helper()
	ch, err := openChannel(familyFor(remote))
	require.NoError(t, err)
	c := tr.newConnection(ch, KindPeer)
	t.Cleanup(func() { _ = c.close() })

	require.NoError(t, tr.preConfigure(c))
	require.NoError(t, ch.bind(&net.UDPAddr{IP: loopback}))
	if remote != nil {
		require.NoError(t, ch.connect(remote))
		c.peer = ch.RemoteAddr()
	}
	c.local = ch.LocalAddr()
	require.NoError(t, tr.postConfigure(c))
	return c
}

func listenUDP(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: loopback})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func udpAddr(c *net.UDPConn) *net.UDPAddr { return c.LocalAddr().(*net.UDPAddr) }

// readEventually polls a non-blocking read until it returns bytes.
func readEventually(t *testing.T, read func() int) int {
	t.Helper()
	var n int
	require.Eventually(t, func() bool {
		n = read()
		return n != 0
	}, 2*time.Second, time.Millisecond)
	return n
}

// recv reads one datagram from a std socket with a deadline.
func recv(t *testing.T, conn *net.UDPConn) (string, *net.UDPAddr) {
	t.Helper()
	buf := make([]byte, 2048)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, from, err := conn.ReadFromUDP(buf)
	require.NoError(t, err)
	return string(buf[:n]), from
}

// expectSilence asserts that nothing arrives on conn for a short while.
func expectSilence(t *testing.T, conn *net.UDPConn) {
	t.Helper()
	buf := make([]byte, 2048)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	n, _, err := conn.ReadFromUDP(buf)
	require.Error(t, err, "unexpected datagram %q", buf[:n])
}
