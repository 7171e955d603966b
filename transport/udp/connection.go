// File: transport/udp/connection.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Connection wraps one datagram channel registered with the transport.

package udp

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-udp/api"
	"github.com/momentics/hioload-udp/future"
	"github.com/momentics/hioload-udp/reactor"
)

// Kind distinguishes bound endpoints from client sockets.
type Kind uint8

const (
	// KindPeer is a socket created by the connector.
	KindPeer Kind = iota
	// KindListening is a bound endpoint owned by the transport's listening set.
	KindListening
)

func (k Kind) String() string {
	if k == KindListening {
		return "listening"
	}
	return "peer"
}

// ConnStats counts datagram traffic on a connection.
type ConnStats struct {
	BytesRead        int64
	DatagramsRead    int64
	BytesWritten     int64
	DatagramsWritten int64
}

// Connection is a datagram socket plus its registration with the selector.
// Reads and writes are driven by the transport; the connection only tracks
// addressing, state and counters.
type Connection struct {
	t      *Transport
	handle uint64
	kind   Kind
	ch     *Channel

	// peer is the fixed destination of a connected socket; addressing only.
	peer  *net.UDPAddr
	local *net.UDPAddr

	readBufferSize  int
	writeBufferSize int

	mu     sync.Mutex
	state  ConnState
	key    *reactor.Key
	runner *reactor.Runner

	closeOnce sync.Once
	closeErr  error
	closed    chan struct{}

	bytesRead        atomic.Int64
	datagramsRead    atomic.Int64
	bytesWritten     atomic.Int64
	datagramsWritten atomic.Int64
}

// Handle returns the connection's stable registry handle.
func (c *Connection) Handle() uint64 { return c.handle }

// Kind reports whether this is a listening or peer connection.
func (c *Connection) Kind() Kind { return c.kind }

// Transport returns the owning transport.
func (c *Connection) Transport() *Transport { return c.t }

// Channel returns the raw channel.
func (c *Connection) Channel() *Channel { return c.ch }

// IsConnected reports fixed-peer mode.
func (c *Connection) IsConnected() bool { return c.ch.IsConnected() }

// LocalAddr returns the bound local address.
func (c *Connection) LocalAddr() *net.UDPAddr { return c.local }

// PeerAddr returns the fixed peer, or nil for unconnected sockets.
func (c *Connection) PeerAddr() *net.UDPAddr { return c.peer }

// ReadBufferSize is the size the transport allocates for reads.
func (c *Connection) ReadBufferSize() int { return c.readBufferSize }

// SetReadBufferSize overrides the transport default for this connection.
func (c *Connection) SetReadBufferSize(n int) {
	if n > 0 {
		c.readBufferSize = n
	}
}

// WriteBufferSize is the write size hint.
func (c *Connection) WriteBufferSize() int { return c.writeBufferSize }

// State returns the lifecycle state.
func (c *Connection) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsOpen reports whether the connection is not closing or closed.
func (c *Connection) IsOpen() bool { return c.State() < ConnClosing }

// Registration returns the selector key and its runner, nil before the
// registration completes.
func (c *Connection) Registration() (*reactor.Key, *reactor.Runner) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.key, c.runner
}

// Stats returns a snapshot of the traffic counters.
func (c *Connection) Stats() ConnStats {
	return ConnStats{
		BytesRead:        c.bytesRead.Load(),
		DatagramsRead:    c.datagramsRead.Load(),
		BytesWritten:     c.bytesWritten.Load(),
		DatagramsWritten: c.datagramsWritten.Load(),
	}
}

// Done is closed once the connection reaches ConnClosed.
func (c *Connection) Done() <-chan struct{} { return c.closed }

func (c *Connection) String() string {
	return fmt.Sprintf("UDPConnection[%s handle=%d local=%v peer=%v state=%s]",
		c.kind, c.handle, c.local, c.peer, c.State())
}

// moveTo performs a state transition allowed by ConnState.canMove.
func (c *Connection) moveTo(to ConnState) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.canMove(to) {
		return false
	}
	c.state = to
	return true
}

// attach stores the registration unless the connection started closing.
func (c *Connection) attach(key *reactor.Key, runner *reactor.Runner) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state >= ConnClosing {
		return false
	}
	c.key = key
	c.runner = runner
	if c.state.canMove(ConnReady) {
		c.state = ConnReady
	}
	return true
}

// beginClose moves to ConnClosing and detaches the registration.
func (c *Connection) beginClose() *reactor.Key {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.canMove(ConnClosing) {
		c.state = ConnClosing
	}
	key := c.key
	c.key, c.runner = nil, nil
	return key
}

func (c *Connection) onRead(_ api.Buffer, n int) {
	if n > 0 {
		c.bytesRead.Add(int64(n))
		c.datagramsRead.Add(1)
	}
}

func (c *Connection) onWrite(_ api.Buffer, n int) {
	if n > 0 {
		c.bytesWritten.Add(int64(n))
		c.datagramsWritten.Add(1)
	}
}

// Read performs one non-blocking receive into buf; see Transport.Read.
func (c *Connection) Read(buf api.Buffer, res *api.ReadResult) int {
	return c.t.Read(c, buf, res)
}

// Write queues msg for dst (nil for the fixed peer) and calls h once it
// is sent or fails.
func (c *Connection) Write(dst *net.UDPAddr, msg api.Message, h future.CompletionHandler[api.WriteResult]) {
	if !c.IsOpen() {
		if h != nil {
			h(api.WriteResult{Message: msg}, fmt.Errorf("write: %w", api.ErrConnectionClosed))
		}
		return
	}
	c.t.writer.Write(c, dst, msg, h)
	c.t.syncWriteInterest(c)
}

// Close releases the connection. Listening connections are unbound from
// the transport first, waiting at most Config.UnbindTimeout.
func (c *Connection) Close() error {
	if c.kind == KindListening {
		if found, err := c.t.unbind(c); found {
			return err
		}
	}
	return c.close()
}

// close runs the transport close path once.
func (c *Connection) close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.t.closeConnection(c)
		c.moveTo(ConnClosed)
		close(c.closed)
	})
	return c.closeErr
}

// unbind closes the connection asynchronously.
func (c *Connection) unbind() *future.Future[*Connection] {
	fut := future.New[*Connection]()
	go func() {
		if err := c.close(); err != nil {
			fut.Fail(err)
			return
		}
		fut.Complete(c)
	}()
	return fut
}
