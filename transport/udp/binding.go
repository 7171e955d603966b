// File: transport/udp/binding.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Listening endpoint lifecycle: bind, unbind, unbind-all.

package udp

import (
	"fmt"
	"math/rand"
	"net"

	"github.com/momentics/hioload-udp/api"
)

// BindPort binds the wildcard address on port.
func (t *Transport) BindPort(port int) (*Connection, error) {
	return t.Bind(&net.UDPAddr{Port: port}, DefaultBacklog)
}

// BindHost resolves host and binds it on port.
func (t *Transport) BindHost(host string, port, backlog int) (*Connection, error) {
	addr, err := t.connector.resolver.resolve(host, port)
	if err != nil {
		return nil, err
	}
	return t.Bind(addr, backlog)
}

// Bind opens a datagram socket on addr and adds it to the listening set.
// If the transport is started the connection is registered for reads
// right away, otherwise Start registers it. backlog is ignored by UDP.
func (t *Transport) Bind(addr *net.UDPAddr, backlog int) (*Connection, error) {
	if addr == nil {
		addr = &net.UDPAddr{}
	}
	t.stateLock.Lock()
	defer t.stateLock.Unlock()

	ch, err := openChannel(familyFor(addr))
	if err != nil {
		return nil, bindError(addr, err)
	}
	c := t.newConnection(ch, KindListening)
	if err := t.setupListening(c, func() error { return ch.bind(addr) }); err != nil {
		_ = c.close()
		return nil, bindError(addr, err)
	}
	t.addListening(c)
	return c, nil
}

// BindRange binds the first free port of r on host, starting at a random
// offset when randomStart is set.
func (t *Transport) BindRange(host string, r PortRange, randomStart bool, backlog int) (*Connection, error) {
	if r.Size() <= 0 {
		return nil, fmt.Errorf("bind range %v: %w", r, api.ErrInvalidArgument)
	}
	ip, err := t.connector.resolver.resolveIP(host)
	if err != nil {
		return nil, err
	}
	span := r.Size()
	offset := 0
	if randomStart {
		offset = rand.Intn(span)
	}
	var lastErr error
	for i := 0; i < span; i++ {
		port := r.Lower + (offset+i)%span
		c, err := t.Bind(&net.UDPAddr{IP: ip, Port: port}, backlog)
		if err == nil {
			return c, nil
		}
		lastErr = err
	}
	return nil, api.NewError(api.ErrCodeBind, "no free port in range").
		WithContext("host", host).
		WithContext("range", r.String()).
		Wrap(lastErr)
}

// BindToInherited adopts the datagram socket handed over by the service
// manager (LISTEN_FDS/LISTEN_PID) as a listening connection.
func (t *Transport) BindToInherited() (*Connection, error) {
	fd, err := inheritedFd()
	if err != nil {
		return nil, err
	}
	if !t.inheritedTaken.CompareAndSwap(false, true) {
		t.stateLock.RLock()
		cause := t.inheritedErr
		t.stateLock.RUnlock()
		if cause != nil {
			return nil, fmt.Errorf("inherited fd %d closed after failed setup: %w", fd, cause)
		}
		return nil, fmt.Errorf("inherited fd %d already bound: %w", fd, api.ErrInvalidArgument)
	}
	ch, err := channelFromFd(fd)
	if err != nil {
		t.inheritedTaken.Store(false)
		return nil, err
	}

	t.stateLock.Lock()
	defer t.stateLock.Unlock()
	c := t.newConnection(ch, KindListening)
	if err := t.setupListening(c, nil); err != nil {
		_ = c.close()
		t.inheritedErr = err
		return nil, err
	}
	t.addListening(c)
	return c, nil
}

// setupListening configures c around the bind step.
func (t *Transport) setupListening(c *Connection, bind func() error) error {
	if err := t.preConfigure(c); err != nil {
		return err
	}
	if bind != nil {
		if err := bind(); err != nil {
			return err
		}
	}
	c.local = c.ch.LocalAddr()
	c.peer = c.ch.RemoteAddr()
	return t.postConfigure(c)
}

// addListening adds c to the set and registers it when started.
// Caller holds the state write lock.
func (t *Transport) addListening(c *Connection) {
	t.listening[c.handle] = c
	if t.state != StateStarted {
		return
	}
	if _, err := t.register(c); err != nil {
		t.log.WithError(err).WithField("conn", c).Warn("listening connection registration failed")
	}
}

func bindError(addr *net.UDPAddr, err error) error {
	return api.NewError(api.ErrCodeBind, "bind failed").
		WithContext("address", addr.String()).
		Wrap(err)
}

// Unbind removes c from the listening set and closes it, waiting at most
// Config.UnbindTimeout. A timeout or failure is logged; c is treated as
// unbound either way. nil and unknown connections are ignored.
func (t *Transport) Unbind(c *Connection) {
	_, _ = t.unbind(c)
}

func (t *Transport) unbind(c *Connection) (bool, error) {
	if c == nil {
		return false, nil
	}
	t.stateLock.Lock()
	defer t.stateLock.Unlock()
	return t.unbindLocked(c)
}

// unbindLocked reports whether c was in the set. Caller holds the write lock.
func (t *Transport) unbindLocked(c *Connection) (bool, error) {
	if _, ok := t.listening[c.handle]; !ok {
		return false, nil
	}
	delete(t.listening, c.handle)
	if _, err := t.unbinder(c).GetTimeout(t.cfg.UnbindTimeout); err != nil {
		t.log.WithError(err).WithField("conn", c).Warn("exception unbinding connection")
		return true, err
	}
	return true, nil
}

// UnbindAll unbinds every listening connection and clears the set. One
// failing connection does not stop the others.
func (t *Transport) UnbindAll() {
	t.stateLock.Lock()
	defer t.stateLock.Unlock()
	t.unbindAllLocked()
}

func (t *Transport) unbindAllLocked() {
	for _, c := range t.listeningSnapshot() {
		func() {
			defer func() {
				if p := recover(); p != nil {
					t.log.WithField("conn", c).Debugf("panic closing listening connection: %v", p)
				}
			}()
			if _, err := t.unbindLocked(c); err != nil {
				t.log.WithError(err).WithField("conn", c).Debug("exception closing listening connection")
			}
		}()
	}
	clear(t.listening)
}
