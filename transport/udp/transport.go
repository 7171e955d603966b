// File: transport/udp/transport.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Transport lifecycle, connection construction and event dispatch.

package udp

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-udp/api"
	"github.com/momentics/hioload-udp/control"
	"github.com/momentics/hioload-udp/future"
	"github.com/momentics/hioload-udp/internal/asyncqueue"
	"github.com/momentics/hioload-udp/pool"
	"github.com/momentics/hioload-udp/reactor"
)

// Processor handles connections that became readable. It runs on the
// selector runner owning the connection and must not block.
type Processor interface {
	OnReadable(c *Connection)
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(c *Connection)

// OnReadable implements Processor.
func (f ProcessorFunc) OnReadable(c *Connection) { f(c) }

// Transport is a non-blocking datagram transport.
type Transport struct {
	cfg Config
	log *logrus.Entry

	memory       api.MemoryManager
	staging      *pool.StagingPool
	configurator ChannelConfigurator
	processor    Processor

	// stateLock guards state and listening. Every mutation of listening
	// happens under the write lock.
	stateLock sync.RWMutex
	state     State
	listening map[uint64]*Connection

	registry *registry
	selector atomic.Pointer[reactor.Selector]

	writer    *asyncqueue.Writer[*Connection]
	reader    *asyncqueue.Reader[*Connection]
	connector *Connector

	// inheritedTaken is set once the activation fd is consumed. A setup
	// failure closes the fd for good; inheritedErr keeps its cause.
	inheritedTaken atomic.Bool
	inheritedErr   error
	probes         *control.Probes

	// unbinder closes a listening connection asynchronously.
	unbinder func(c *Connection) *future.Future[*Connection]
}

// New creates a stopped transport.
func New(opts ...Option) (*Transport, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.applyDefaults()

	t := &Transport{
		cfg:          cfg,
		log:          cfg.Logger.WithField("transport", cfg.Name),
		memory:       cfg.MemoryManager,
		staging:      cfg.StagingPool,
		configurator: cfg.Configurator,
		listening:    make(map[uint64]*Connection),
		registry:     newRegistry(),
		reader:       asyncqueue.NewReader[*Connection](),
		probes:       control.NewProbes(),
		unbinder:     (*Connection).unbind,
	}
	t.processor = cfg.Processor
	if t.processor == nil {
		t.processor = ProcessorFunc(t.discard)
	}
	t.writer = asyncqueue.NewWriter[*Connection](t.Write)
	resolver, err := newResolver(cfg.ResolverCacheSize)
	if err != nil {
		return nil, fmt.Errorf("udp transport: %w", err)
	}
	t.connector = &Connector{t: t, resolver: resolver}
	t.registerProbes()
	return t, nil
}

// Name returns the configured transport name.
func (t *Transport) Name() string { return t.cfg.Name }

// Config returns a copy of the effective configuration.
func (t *Transport) Config() Config { return t.cfg }

// State returns the lifecycle state.
func (t *Transport) State() State {
	t.stateLock.RLock()
	defer t.stateLock.RUnlock()
	return t.state
}

// IsStarted reports whether the transport is accepting registrations.
func (t *Transport) IsStarted() bool { return t.State() == StateStarted }

// Connector returns the outbound connection factory.
func (t *Transport) Connector() *Connector { return t.connector }

// Reader returns the async read notifier so callers can observe closes.
func (t *Transport) Reader() *asyncqueue.Reader[*Connection] { return t.reader }

// ListeningConnections returns a snapshot of the listening set.
func (t *Transport) ListeningConnections() []*Connection {
	t.stateLock.RLock()
	defer t.stateLock.RUnlock()
	return t.listeningSnapshot()
}

func (t *Transport) listeningSnapshot() []*Connection {
	out := make([]*Connection, 0, len(t.listening))
	for _, c := range t.listening {
		out = append(out, c)
	}
	return out
}

// Start launches the selector and registers every listening connection
// bound while stopped. A failing endpoint is logged and skipped.
func (t *Transport) Start() error {
	t.stateLock.Lock()
	defer t.stateLock.Unlock()
	switch t.state {
	case StateStarted:
		return nil
	case StateStopped:
	default:
		return fmt.Errorf("udp transport: start in state %s: %w", t.state, api.ErrInvalidArgument)
	}
	t.state = StateStarting

	sel, err := reactor.NewSelector(t.cfg.SelectorRunners, t.handleEvent, t.log)
	if err != nil {
		t.state = StateStopped
		return fmt.Errorf("udp transport: %w", err)
	}
	if len(t.cfg.RunnerCPUs) > 0 {
		if err := sel.SetAffinity(t.cfg.RunnerCPUs); err != nil {
			sel.Stop()
			t.state = StateStopped
			return fmt.Errorf("udp transport: %w", err)
		}
	}
	if err := sel.Start(); err != nil {
		sel.Stop()
		t.state = StateStopped
		return fmt.Errorf("udp transport: %w", err)
	}
	t.selector.Store(sel)
	t.listen()
	t.state = StateStarted
	t.log.WithField("listening", len(t.listening)).Info("transport started")
	return nil
}

// listen registers every listening connection. Caller holds stateLock.
func (t *Transport) listen() {
	for _, c := range t.listeningSnapshot() {
		func() {
			defer func() {
				if p := recover(); p != nil {
					t.log.WithField("conn", c).Warnf("listening connection registration panic: %v", p)
				}
			}()
			if _, err := t.register(c); err != nil {
				t.log.WithError(err).WithField("conn", c).Warn("exception starting listening connection")
			}
		}()
	}
}

// Shutdown unbinds every listening connection, closes all other
// connections and stops the selector. It is idempotent.
func (t *Transport) Shutdown() error {
	t.stateLock.Lock()
	if t.state == StateStopped || t.state == StateStopping {
		t.stateLock.Unlock()
		return nil
	}
	t.state = StateStopping
	t.unbindAllLocked()
	t.stateLock.Unlock()

	for _, c := range t.registry.snapshot() {
		if err := c.close(); err != nil {
			t.log.WithError(err).WithField("conn", c).Debug("close on shutdown")
		}
	}
	if sel := t.selector.Swap(nil); sel != nil {
		sel.Stop()
	}

	t.stateLock.Lock()
	t.state = StateStopped
	t.stateLock.Unlock()
	t.log.Info("transport stopped")
	return nil
}

// newConnection wraps ch and records it in the registry.
func (t *Transport) newConnection(ch *Channel, kind Kind) *Connection {
	c := &Connection{
		t:               t,
		handle:          t.registry.nextHandle(),
		kind:            kind,
		ch:              ch,
		readBufferSize:  t.cfg.ReadBufferSize,
		writeBufferSize: t.cfg.WriteBufferSize,
		closed:          make(chan struct{}),
	}
	t.registry.add(c)
	return c
}

// preConfigure and postConfigure log configurator warnings and return
// only fatal errors.
func (t *Transport) preConfigure(c *Connection) error {
	c.moveTo(ConnConfiguring)
	warnings, err := t.configurator.PreConfigure(&t.cfg, c.ch)
	t.logWarnings(c, warnings)
	return err
}

func (t *Transport) postConfigure(c *Connection) error {
	warnings, err := t.configurator.PostConfigure(&t.cfg, c.ch)
	t.logWarnings(c, warnings)
	return err
}

func (t *Transport) logWarnings(c *Connection, warnings []error) {
	for _, w := range warnings {
		t.log.WithError(w).WithField("handle", c.handle).Warn("socket option not applied")
	}
}

// register submits c for read readiness. The Registration Bridge is the
// first completion handler on the returned future.
func (t *Transport) register(c *Connection) (*future.Future[reactor.RegistrationResult], error) {
	sel := t.selector.Load()
	if sel == nil {
		return nil, api.ErrTransportNotStarted
	}
	if !c.moveTo(ConnRegistering) {
		return nil, fmt.Errorf("register %v: %w", c, api.ErrConnectionClosed)
	}
	fd := c.ch.Fd()
	if fd < 0 {
		return nil, fmt.Errorf("register %v: %w", c, api.ErrConnectionClosed)
	}
	fut := sel.RegisterForRead(fd, c.handle)
	fut.OnComplete(t.onRegistered)
	return fut, nil
}

// closeConnection releases the channel, deregisters it and notifies the
// async reader and writer. Called once per connection.
func (t *Transport) closeConnection(c *Connection) error {
	key := c.beginClose()
	if key != nil {
		if sel := t.selector.Load(); sel != nil {
			if err := sel.Deregister(key); err != nil {
				t.log.WithError(err).WithField("handle", c.handle).Debug("deregister failed")
			}
		}
	}
	err := c.ch.Close()
	if err != nil {
		t.log.WithError(err).WithField("handle", c.handle).Debug("channel close failed")
	}
	t.registry.remove(c.handle)
	t.reader.OnClose(c)
	t.writer.OnClose(c)
	return err
}

// Close releases a connection; see Connection.Close.
func (t *Transport) Close(c *Connection) error {
	if c == nil {
		return nil
	}
	return c.Close()
}

// handleEvent dispatches selector readiness to the writer and processor.
func (t *Transport) handleEvent(key *reactor.Key, ev reactor.Events) {
	c, ok := t.registry.get(key.Handle())
	if !ok || !c.IsOpen() {
		return
	}
	if ev&reactor.EventWrite != 0 {
		t.writer.Flush(c)
		t.syncWriteInterest(c)
	}
	if ev&(reactor.EventRead|reactor.EventError) != 0 {
		t.processor.OnReadable(c)
	}
}

// syncWriteInterest adds write readiness while writes are queued for c
// and drops it once the queue drains.
func (t *Transport) syncWriteInterest(c *Connection) {
	key, _ := c.Registration()
	sel := t.selector.Load()
	if key == nil || sel == nil {
		return
	}
	want := reactor.EventRead
	if t.writer.Pending(c) > 0 {
		want |= reactor.EventWrite
	}
	if err := sel.SetInterest(key, want); err != nil {
		t.log.WithError(err).WithField("handle", c.handle).Debug("interest update failed")
	}
}

// discardBudget bounds how many datagrams one readiness event drains.
const discardBudget = 64

// discard drops readable datagrams when no Processor is configured.
func (t *Transport) discard(c *Connection) {
	buf := t.memory.AllocateAtLeast(c.ReadBufferSize())
	defer buf.Dispose()
	for i := 0; i < discardBudget; i++ {
		buf.Clear()
		if t.Read(c, buf, nil) <= 0 {
			return
		}
	}
}
