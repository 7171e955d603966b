//go:build linux
// +build linux

// File: transport/udp/channel_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Raw datagram channel over a socket descriptor.

package udp

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-udp/api"
)

// Channel owns one datagram socket descriptor. I/O calls hold a read lock
// so Close cannot release the descriptor under an in-flight syscall.
type Channel struct {
	mu        sync.RWMutex
	fd        int
	family    int
	connected atomic.Bool
	closed    atomic.Bool
	closeErr  error
}

func openChannel(family int) (*Channel, error) {
	fd, err := unix.Socket(family, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, unix.IPPROTO_UDP)
	if err != nil {
		return nil, fmt.Errorf("socket: %w", err)
	}
	return &Channel{fd: fd, family: family}, nil
}

// channelFromFd adopts an existing datagram descriptor.
func channelFromFd(fd int) (*Channel, error) {
	typ, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_TYPE)
	if err != nil {
		return nil, fmt.Errorf("getsockopt SO_TYPE: %w", err)
	}
	if typ != unix.SOCK_DGRAM {
		return nil, fmt.Errorf("fd %d is not a datagram socket: %w", fd, api.ErrInvalidArgument)
	}
	family, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_DOMAIN)
	if err != nil {
		return nil, fmt.Errorf("getsockopt SO_DOMAIN: %w", err)
	}
	ch := &Channel{fd: fd, family: family}
	if sa, err := unix.Getpeername(fd); err == nil && sa != nil {
		ch.connected.Store(true)
	}
	return ch, nil
}

// Fd returns the descriptor, or -1 once closed.
func (ch *Channel) Fd() int {
	if ch.closed.Load() {
		return -1
	}
	return ch.fd
}

// Family returns AF_INET or AF_INET6.
func (ch *Channel) Family() int { return ch.family }

// IsConnected reports whether the socket is restricted to one peer.
func (ch *Channel) IsConnected() bool { return ch.connected.Load() }

// IsClosed reports whether Close has run.
func (ch *Channel) IsClosed() bool { return ch.closed.Load() }

// use runs fn with the descriptor while holding the read lock.
func (ch *Channel) use(fn func(fd int) error) error {
	ch.mu.RLock()
	defer ch.mu.RUnlock()
	if ch.closed.Load() {
		return api.ErrConnectionClosed
	}
	return fn(ch.fd)
}

func (ch *Channel) bind(addr *net.UDPAddr) error {
	sa, err := toSockaddr(addr, ch.family)
	if err != nil {
		return err
	}
	return ch.use(func(fd int) error {
		if err := unix.Bind(fd, sa); err != nil {
			return fmt.Errorf("bind %v: %w", addr, err)
		}
		return nil
	})
}

func (ch *Channel) connect(addr *net.UDPAddr) error {
	sa, err := toSockaddr(addr, ch.family)
	if err != nil {
		return err
	}
	return ch.use(func(fd int) error {
		if err := unix.Connect(fd, sa); err != nil {
			return fmt.Errorf("connect %v: %w", addr, err)
		}
		ch.connected.Store(true)
		return nil
	})
}

// LocalAddr returns the bound address, or nil when unknown.
func (ch *Channel) LocalAddr() *net.UDPAddr {
	var addr *net.UDPAddr
	_ = ch.use(func(fd int) error {
		sa, err := unix.Getsockname(fd)
		if err == nil {
			addr = fromSockaddr(sa)
		}
		return err
	})
	return addr
}

// RemoteAddr returns the fixed peer, or nil for unconnected sockets.
func (ch *Channel) RemoteAddr() *net.UDPAddr {
	if !ch.IsConnected() {
		return nil
	}
	var addr *net.UDPAddr
	_ = ch.use(func(fd int) error {
		sa, err := unix.Getpeername(fd)
		if err == nil {
			addr = fromSockaddr(sa)
		}
		return err
	})
	return addr
}

// wouldBlock maps "try again later" errnos to a zero-byte outcome.
func wouldBlock(err error) bool {
	return err == unix.EAGAIN || err == unix.EWOULDBLOCK || err == unix.EINTR || err == unix.ENOBUFS
}

func (ch *Channel) read(p []byte) (n int, err error) {
	err = ch.use(func(fd int) error {
		var e error
		n, e = unix.Read(fd, p)
		return e
	})
	if wouldBlock(err) {
		return 0, nil
	}
	return max(n, 0), err
}

func (ch *Channel) readv(iovs [][]byte) (n int, err error) {
	err = ch.use(func(fd int) error {
		var e error
		n, e = unix.Readv(fd, iovs)
		return e
	})
	if wouldBlock(err) {
		return 0, nil
	}
	return max(n, 0), err
}

func (ch *Channel) recvfrom(p []byte) (n int, from *net.UDPAddr, err error) {
	var sa unix.Sockaddr
	err = ch.use(func(fd int) error {
		var e error
		n, sa, e = unix.Recvfrom(fd, p, 0)
		return e
	})
	if wouldBlock(err) {
		return 0, nil, nil
	}
	if err != nil {
		return 0, nil, err
	}
	return n, fromSockaddr(sa), nil
}

func (ch *Channel) write(p []byte) (n int, err error) {
	err = ch.use(func(fd int) error {
		var e error
		n, e = unix.Write(fd, p)
		return e
	})
	if wouldBlock(err) {
		return 0, nil
	}
	return max(n, 0), err
}

func (ch *Channel) writev(iovs [][]byte) (n int, err error) {
	err = ch.use(func(fd int) error {
		var e error
		n, e = unix.Writev(fd, iovs)
		return e
	})
	if wouldBlock(err) {
		return 0, nil
	}
	return max(n, 0), err
}

func (ch *Channel) sendto(p []byte, to *net.UDPAddr) (int, error) {
	sa, err := toSockaddr(to, ch.family)
	if err != nil {
		return 0, err
	}
	err = ch.use(func(fd int) error {
		return unix.Sendto(fd, p, 0, sa)
	})
	if wouldBlock(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return len(p), nil
}

func (ch *Channel) transferFile(fc *api.FileChunk) (n int64, err error) {
	err = ch.use(func(fd int) error {
		var e error
		n, e = fc.TransferTo(fd)
		return e
	})
	return n, err
}

func (ch *Channel) setNonblock(on bool) error {
	return ch.use(func(fd int) error { return unix.SetNonblock(fd, on) })
}

// IsNonblocking reads O_NONBLOCK back from the descriptor flags.
func (ch *Channel) IsNonblocking() (bool, error) {
	var on bool
	err := ch.use(func(fd int) error {
		flags, e := unix.FcntlInt(uintptr(fd), unix.F_GETFL, 0)
		on = flags&unix.O_NONBLOCK != 0
		return e
	})
	return on, err
}

func (ch *Channel) setBoolOpt(opt int, on bool) error {
	v := 0
	if on {
		v = 1
	}
	return ch.use(func(fd int) error { return unix.SetsockoptInt(fd, unix.SOL_SOCKET, opt, v) })
}

func (ch *Channel) boolOpt(opt int) (bool, error) {
	var v int
	err := ch.use(func(fd int) error {
		var e error
		v, e = unix.GetsockoptInt(fd, unix.SOL_SOCKET, opt)
		return e
	})
	return v != 0, err
}

// SetReuseAddress sets SO_REUSEADDR.
func (ch *Channel) SetReuseAddress(on bool) error { return ch.setBoolOpt(unix.SO_REUSEADDR, on) }

// ReuseAddress reads SO_REUSEADDR.
func (ch *Channel) ReuseAddress() (bool, error) { return ch.boolOpt(unix.SO_REUSEADDR) }

// SetReusePort sets SO_REUSEPORT.
func (ch *Channel) SetReusePort(on bool) error { return ch.setBoolOpt(unix.SO_REUSEPORT, on) }

// ReusePort reads SO_REUSEPORT.
func (ch *Channel) ReusePort() (bool, error) { return ch.boolOpt(unix.SO_REUSEPORT) }

// SetReadTimeout sets SO_RCVTIMEO; zero disables the timeout.
func (ch *Channel) SetReadTimeout(d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("read timeout %v: %w", d, api.ErrInvalidArgument)
	}
	tv := unix.NsecToTimeval(d.Nanoseconds())
	return ch.use(func(fd int) error {
		return unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv)
	})
}

// ReadTimeout reads SO_RCVTIMEO back.
func (ch *Channel) ReadTimeout() (time.Duration, error) {
	var d time.Duration
	err := ch.use(func(fd int) error {
		tv, e := unix.GetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO)
		if e == nil {
			d = time.Duration(tv.Nano())
		}
		return e
	})
	return d, err
}

// Close releases the descriptor. Only the first call closes; later calls
// return the first result.
func (ch *Channel) Close() error {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.closed.Swap(true) {
		return ch.closeErr
	}
	ch.closeErr = unix.Close(ch.fd)
	return ch.closeErr
}

var (
	reusePortOnce  sync.Once
	reusePortAvail bool
)

// ReusePortAvailable probes once whether the kernel accepts SO_REUSEPORT
// on datagram sockets.
func ReusePortAvailable() bool {
	reusePortOnce.Do(func() {
		fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, unix.IPPROTO_UDP)
		if err != nil {
			return
		}
		defer unix.Close(fd)
		reusePortAvail = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1) == nil
	})
	return reusePortAvail
}
