// File: transport/udp/connector.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Outbound datagram sockets.

package udp

import (
	"fmt"
	"net"

	"github.com/momentics/hioload-udp/api"
	"github.com/momentics/hioload-udp/future"
	"github.com/momentics/hioload-udp/reactor"
)

// Connector creates peer connections. None of its methods block: the
// returned future completes once the connection is registered with the
// selector.
type Connector struct {
	t        *Transport
	resolver *resolver
}

// Connect opens an unconnected socket bound to an ephemeral port, usable
// for send-to and receive-from any peer.
func (cn *Connector) Connect() *future.Future[*Connection] {
	return cn.ConnectLocal(nil, nil)
}

// ConnectHost resolves host and connects to host:port.
func (cn *Connector) ConnectHost(host string, port int) *future.Future[*Connection] {
	remote, err := cn.resolver.resolve(host, port)
	if err != nil {
		return future.Failed[*Connection](err)
	}
	return cn.ConnectLocal(remote, nil)
}

// ConnectAddr connects to remote.
func (cn *Connector) ConnectAddr(remote *net.UDPAddr) *future.Future[*Connection] {
	return cn.ConnectLocal(remote, nil)
}

// ConnectLocal binds local (ephemeral when nil) and connects to remote
// (unconnected when nil).
func (cn *Connector) ConnectLocal(remote, local *net.UDPAddr) *future.Future[*Connection] {
	fut := future.New[*Connection]()
	cn.connect(remote, local, fut)
	return fut
}

// ConnectWithHandler is the callback form of ConnectLocal.
func (cn *Connector) ConnectWithHandler(remote, local *net.UDPAddr, h future.CompletionHandler[*Connection]) {
	fut := future.New[*Connection]()
	if h != nil {
		fut.OnComplete(h)
	}
	cn.connect(remote, local, fut)
}

func (cn *Connector) connect(remote, local *net.UDPAddr, fut *future.Future[*Connection]) {
	t := cn.t
	if !t.IsStarted() {
		fut.Fail(fmt.Errorf("connect %v: %w", remote, api.ErrTransportNotStarted))
		return
	}
	ch, err := openChannel(familyFor(remote, local))
	if err != nil {
		fut.Fail(fmt.Errorf("connect %v: %w", remote, err))
		return
	}
	c := t.newConnection(ch, KindPeer)
	fail := func(err error) {
		_ = c.close()
		fut.Fail(fmt.Errorf("connect %v: %w", remote, err))
	}

	if err := t.preConfigure(c); err != nil {
		fail(err)
		return
	}
	if local == nil {
		local = &net.UDPAddr{}
	}
	if err := ch.bind(local); err != nil {
		fail(err)
		return
	}
	if remote != nil {
		if err := ch.connect(remote); err != nil {
			fail(err)
			return
		}
		c.peer = ch.RemoteAddr()
		if c.peer == nil {
			c.peer = cloneAddr(remote)
		}
	}
	c.local = ch.LocalAddr()
	if err := t.postConfigure(c); err != nil {
		fail(err)
		return
	}

	reg, err := t.register(c)
	if err != nil {
		fail(err)
		return
	}
	reg.OnComplete(func(_ reactor.RegistrationResult, err error) {
		if err != nil {
			fail(err)
			return
		}
		if c.State() != ConnReady {
			fut.Fail(fmt.Errorf("connect %v: %w", remote, api.ErrConnectionClosed))
			return
		}
		fut.Complete(c)
	})
}

// Connect is shorthand for t.Connector().Connect().
func (t *Transport) Connect() *future.Future[*Connection] {
	return t.connector.Connect()
}

// ConnectHost is shorthand for t.Connector().ConnectHost(host, port).
func (t *Transport) ConnectHost(host string, port int) *future.Future[*Connection] {
	return t.connector.ConnectHost(host, port)
}

// ConnectAddr is shorthand for t.Connector().ConnectAddr(remote).
func (t *Transport) ConnectAddr(remote *net.UDPAddr) *future.Future[*Connection] {
	return t.connector.ConnectAddr(remote)
}

// ConnectLocal is shorthand for t.Connector().ConnectLocal(remote, local).
func (t *Transport) ConnectLocal(remote, local *net.UDPAddr) *future.Future[*Connection] {
	return t.connector.ConnectLocal(remote, local)
}
