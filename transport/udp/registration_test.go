//go:build linux

package udp

import (
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-udp/api"
	"github.com/momentics/hioload-udp/internal/asyncqueue"
	"github.com/momentics/hioload-udp/pool"
	"github.com/momentics/hioload-udp/reactor"
)

// registerRaw registers fd with the running selector, bypassing the
// transport's own completion handler.
func registerRaw(t *testing.T, tr *Transport, fd int, handle uint64) reactor.RegistrationResult {
	t.Helper()
	sel := tr.selector.Load()
	require.NotNil(t, sel)
	res, err := sel.RegisterForRead(fd, handle).GetTimeout(2 * time.Second)
	require.NoError(t, err)
	require.NotNil(t, res.Key)
	return res
}

func spareSocket(t *testing.T) int {
	t.Helper()
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = unix.Close(fd) })
	return fd
}

func TestOnRegistered_AttachesLiveConnection(t *testing.T) {
	tr := newTestTransport(t)
	require.NoError(t, tr.Start())
	c := openPeer(t, tr, nil)
	require.True(t, c.moveTo(ConnRegistering))

	res := registerRaw(t, tr, c.Channel().Fd(), c.Handle())
	tr.onRegistered(res, nil)

	assert.Equal(t, ConnReady, c.State())
	key, runner := c.Registration()
	assert.Same(t, res.Key, key)
	assert.Same(t, res.Runner, runner)
	assert.True(t, key.IsValid())
}

func TestOnRegistered_ClosedConnectionUntouched(t *testing.T) {
	tr := newTestTransport(t)
	require.NoError(t, tr.Start())
	c := openPeer(t, tr, nil)
	require.NoError(t, c.close())

	res := registerRaw(t, tr, spareSocket(t), c.Handle())
	assert.NotPanics(t, func() { tr.onRegistered(res, nil) })

	assert.Equal(t, ConnClosed, c.State())
	key, _ := c.Registration()
	assert.Nil(t, key)
	assert.False(t, res.Key.IsValid(), "orphaned key is cancelled")
}

func TestOnRegistered_ClosingConnectionUntouched(t *testing.T) {
	tr := newTestTransport(t)
	require.NoError(t, tr.Start())
	c := openPeer(t, tr, nil)
	c.beginClose()

	res := registerRaw(t, tr, c.Channel().Fd(), c.Handle())
	tr.onRegistered(res, nil)

	assert.Equal(t, ConnClosing, c.State())
	key, _ := c.Registration()
	assert.Nil(t, key)
	assert.False(t, res.Key.IsValid())
}

func TestOnRegistered_FailureIsIgnored(t *testing.T) {
	tr := newTestTransport(t)
	assert.NotPanics(t, func() {
		tr.onRegistered(reactor.RegistrationResult{}, errors.New("selector closed"))
		tr.onRegistered(reactor.RegistrationResult{}, nil)
	})
}

func TestOnRegistered_QueuedWriteGetsWriteInterest(t *testing.T) {
	tr := newTestTransport(t)
	var blocked atomic.Bool
	tr.writer = asyncqueue.NewWriter[*Connection](
		func(c *Connection, dst *net.UDPAddr, msg api.Message, res *api.WriteResult) (int64, error) {
			if blocked.CompareAndSwap(false, true) {
				return 0, nil
			}
			return tr.Write(c, dst, msg, res)
		})
	require.NoError(t, tr.Start())

	peer := listenUDP(t)
	c := openPeer(t, tr, udpAddr(peer))
	require.True(t, c.moveTo(ConnRegistering))

	sent := make(chan error, 1)
	c.Write(nil, api.BufferMessage(pool.WrapString("early")), func(_ api.WriteResult, err error) {
		sent <- err
	})
	require.Equal(t, 1, tr.writer.Pending(c))

	res := registerRaw(t, tr, c.Channel().Fd(), c.Handle())
	tr.onRegistered(res, nil)

	select {
	case err := <-sent:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("queued write never flushed after registration")
	}
	got, _ := recv(t, peer)
	assert.Equal(t, "early", got)
	assert.Eventually(t, func() bool {
		return res.Key.Interest() == reactor.EventRead
	}, time.Second, time.Millisecond, "write interest dropped once drained")
}
