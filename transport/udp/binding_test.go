//go:build linux

package udp

import (
	"errors"
	"net"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-udp/api"
	"github.com/momentics/hioload-udp/future"
)

func bindLoopback(t *testing.T, tr *Transport) *Connection {
	t.Helper()
	c, err := tr.Bind(&net.UDPAddr{IP: loopback}, DefaultBacklog)
	require.NoError(t, err)
	return c
}

func freePort(t *testing.T) int {
	t.Helper()
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: loopback})
	require.NoError(t, err)
	port := udpAddr(conn).Port
	require.NoError(t, conn.Close())
	return port
}

func TestBind_UnbindBeforeStart(t *testing.T) {
	tr := newTestTransport(t)
	c := bindLoopback(t, tr)

	assert.Equal(t, KindListening, c.Kind())
	assert.NotZero(t, c.LocalAddr().Port)
	assert.False(t, c.IsConnected())
	assert.Len(t, tr.ListeningConnections(), 1)

	tr.Unbind(c)
	assert.Empty(t, tr.ListeningConnections())
	assert.Equal(t, ConnClosed, c.State())
	assert.True(t, c.Channel().IsClosed())
	select {
	case <-c.Done():
	default:
		t.Fatal("connection not closed")
	}
}

func TestUnbind_IgnoresNilAndUnknown(t *testing.T) {
	tr := newTestTransport(t)
	bound := bindLoopback(t, tr)
	stranger := openPeer(t, tr, nil)

	tr.Unbind(nil)
	tr.Unbind(stranger)

	assert.True(t, stranger.IsOpen())
	assert.Len(t, tr.ListeningConnections(), 1)
	assert.True(t, bound.IsOpen())
}

func TestConnectionClose_UnbindsListening(t *testing.T) {
	tr := newTestTransport(t)
	c := bindLoopback(t, tr)

	require.NoError(t, c.Close())
	assert.Empty(t, tr.ListeningConnections())
	assert.Equal(t, ConnClosed, c.State())
	require.NoError(t, c.Close())
}

func TestUnbindAll_Empty(t *testing.T) {
	tr := newTestTransport(t)
	assert.NotPanics(t, tr.UnbindAll)
	assert.Empty(t, tr.ListeningConnections())
}

func TestUnbindAll_IsolatesFailures(t *testing.T) {
	tr := newTestTransport(t)
	panicking := bindLoopback(t, tr)
	failing := bindLoopback(t, tr)
	good := bindLoopback(t, tr)

	tr.unbinder = func(c *Connection) *future.Future[*Connection] {
		switch c {
		case panicking:
			panic("unbind exploded")
		case failing:
			return future.Failed[*Connection](errors.New("unbind failed"))
		default:
			return c.unbind()
		}
	}

	assert.NotPanics(t, tr.UnbindAll)
	assert.Empty(t, tr.ListeningConnections())
	assert.Equal(t, ConnClosed, good.State())
	assert.True(t, panicking.IsOpen())
	assert.True(t, failing.IsOpen())
}

func TestUnbind_BoundedWait(t *testing.T) {
	tr := newTestTransport(t, WithUnbindTimeout(50*time.Millisecond))
	c := bindLoopback(t, tr)
	tr.unbinder = func(*Connection) *future.Future[*Connection] {
		return future.New[*Connection]()
	}

	start := time.Now()
	tr.Unbind(c)
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	assert.Less(t, elapsed, time.Second)
	assert.Empty(t, tr.ListeningConnections(), "treated as unbound after the timeout")
}

func TestBind_AfterStartRegisters(t *testing.T) {
	tr := newTestTransport(t)
	require.NoError(t, tr.Start())
	c := bindLoopback(t, tr)

	require.Eventually(t, func() bool { return c.State() == ConnReady }, 2*time.Second, time.Millisecond)
	key, runner := c.Registration()
	require.NotNil(t, key)
	assert.NotNil(t, runner)
	assert.Equal(t, c.Handle(), key.Handle())
}

func TestStart_RegistersEarlierBindings(t *testing.T) {
	tr := newTestTransport(t)
	a := bindLoopback(t, tr)
	b := bindLoopback(t, tr)
	assert.Equal(t, ConnConfiguring, a.State())

	require.NoError(t, tr.Start())
	for _, c := range []*Connection{a, b} {
		c := c
		require.Eventually(t, func() bool { return c.State() == ConnReady }, 2*time.Second, time.Millisecond)
	}
}

func TestStart_SkipsFailingEndpoint(t *testing.T) {
	tr := newTestTransport(t)
	broken := bindLoopback(t, tr)
	healthy := bindLoopback(t, tr)
	require.NoError(t, broken.Channel().Close())

	require.NoError(t, tr.Start())
	assert.Equal(t, StateStarted, tr.State())
	require.Eventually(t, func() bool { return healthy.State() == ConnReady }, 2*time.Second, time.Millisecond)
	assert.NotEqual(t, ConnReady, broken.State())
}

func TestBindRange_Exhausted(t *testing.T) {
	tr := newTestTransport(t)
	busy := listenUDP(t)
	port := udpAddr(busy).Port

	_, err := tr.BindRange("127.0.0.1", PortRange{Lower: port, Upper: port}, true, DefaultBacklog)
	require.Error(t, err)
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, api.ErrCodeBind, apiErr.Code)
	assert.Empty(t, tr.ListeningConnections())
}

func TestBindRange_FindsFreePort(t *testing.T) {
	tr := newTestTransport(t)
	port := freePort(t)

	c, err := tr.BindRange("127.0.0.1", PortRange{Lower: port, Upper: port}, false, DefaultBacklog)
	require.NoError(t, err)
	assert.Equal(t, port, c.LocalAddr().Port)
	assert.Len(t, tr.ListeningConnections(), 1)
}

func TestBindRange_InvalidRange(t *testing.T) {
	tr := newTestTransport(t)
	_, err := tr.BindRange("", PortRange{Lower: 10, Upper: 9}, false, DefaultBacklog)
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
}

func TestBindHost(t *testing.T) {
	tr := newTestTransport(t)
	c, err := tr.BindHost("127.0.0.1", 0, DefaultBacklog)
	require.NoError(t, err)
	assert.True(t, c.LocalAddr().IP.Equal(loopback))
}

func setInherited(t *testing.T, fd int) {
	t.Helper()
	prev := listenFdsStart
	listenFdsStart = fd
	t.Cleanup(func() { listenFdsStart = prev })
	t.Setenv("LISTEN_PID", strconv.Itoa(os.Getpid()))
	t.Setenv("LISTEN_FDS", "1")
}

func inheritedSocket(t *testing.T, typ int) (int, int) {
	t.Helper()
	fd, err := unix.Socket(unix.AF_INET, typ|unix.SOCK_CLOEXEC, 0)
	require.NoError(t, err)
	require.NoError(t, unix.Bind(fd, &unix.SockaddrInet4{Addr: [4]byte{127, 0, 0, 1}}))
	sa, err := unix.Getsockname(fd)
	require.NoError(t, err)
	return fd, sa.(*unix.SockaddrInet4).Port
}

func TestBindToInherited(t *testing.T) {
	fd, port := inheritedSocket(t, unix.SOCK_DGRAM)
	setInherited(t, fd)
	tr := newTestTransport(t)

	c, err := tr.BindToInherited()
	require.NoError(t, err)
	assert.Equal(t, port, c.LocalAddr().Port)
	assert.Equal(t, KindListening, c.Kind())
	nb, err := c.Channel().IsNonblocking()
	require.NoError(t, err)
	assert.True(t, nb)

	_, err = tr.BindToInherited()
	assert.ErrorIs(t, err, api.ErrInvalidArgument, "inherited socket is adopted once")
}

func TestBindToInherited_RejectsStreamSocket(t *testing.T) {
	fd, _ := inheritedSocket(t, unix.SOCK_STREAM)
	defer unix.Close(fd)
	setInherited(t, fd)
	tr := newTestTransport(t)

	_, err := tr.BindToInherited()
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
	assert.Empty(t, tr.ListeningConnections())
	assert.False(t, tr.inheritedTaken.Load())
}

func TestBindToInherited_NotActivated(t *testing.T) {
	t.Setenv("LISTEN_PID", "")
	t.Setenv("LISTEN_FDS", "")
	tr := newTestTransport(t)

	_, err := tr.BindToInherited()
	assert.ErrorIs(t, err, api.ErrNotFound)
}

type failingConfigurator struct {
	DefaultConfigurator
	err error
}

func (f failingConfigurator) PostConfigure(*Config, *Channel) ([]error, error) {
	return nil, f.err
}

func TestBindToInherited_SetupFailureIsSticky(t *testing.T) {
	fd, _ := inheritedSocket(t, unix.SOCK_DGRAM)
	setInherited(t, fd)
	boom := errors.New("post configure failed")
	tr := newTestTransport(t, WithChannelConfigurator(failingConfigurator{err: boom}))

	_, err := tr.BindToInherited()
	require.ErrorIs(t, err, boom)
	assert.Empty(t, tr.ListeningConnections())

	_, err = tr.BindToInherited()
	assert.ErrorIs(t, err, boom, "retry reports the original cause")
	assert.NotErrorIs(t, err, api.ErrInvalidArgument)
}
