// File: transport/udp/registry.go
// Author: momentics <momentics@gmail.com>
//
// Handle-keyed arena of live connections. Selector keys carry the handle,
// so a registration completing after close resolves to nothing.

package udp

import (
	"sync"
	"sync/atomic"
)

type registry struct {
	next  atomic.Uint64
	mu    sync.RWMutex
	conns map[uint64]*Connection
}

func newRegistry() *registry {
	return &registry{conns: make(map[uint64]*Connection)}
}

func (r *registry) nextHandle() uint64 { return r.next.Add(1) }

func (r *registry) add(c *Connection) {
	r.mu.Lock()
	r.conns[c.handle] = c
	r.mu.Unlock()
}

func (r *registry) get(h uint64) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[h]
	return c, ok
}

func (r *registry) remove(h uint64) {
	r.mu.Lock()
	delete(r.conns, h)
	r.mu.Unlock()
}

func (r *registry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// snapshot returns the live connections at this instant.
func (r *registry) snapshot() []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Connection, 0, len(r.conns))
	for _, c := range r.conns {
		out = append(out, c)
	}
	return out
}
