// control/probes.go
// Author: momentics <momentics@gmail.com>
//
// Probe registry for runtime counters and state export.

package control

import (
	"sort"
	"sync"
	"time"
)

// Probes holds named sampling functions.
type Probes struct {
	mu      sync.RWMutex
	probes  map[string]func() any
	sampled time.Time
}

// NewProbes creates an empty registry.
func NewProbes() *Probes {
	return &Probes{probes: make(map[string]func() any)}
}

// Register inserts or replaces a named probe.
func (p *Probes) Register(name string, fn func() any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.probes[name] = fn
}

// Unregister removes a probe.
func (p *Probes) Unregister(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.probes, name)
}

// Names returns the registered probe names, sorted.
func (p *Probes) Names() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	names := make([]string, 0, len(p.probes))
	for k := range p.probes {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Snapshot samples every probe. Probes run outside the registry lock so
// they may take their own locks.
func (p *Probes) Snapshot() map[string]any {
	p.mu.RLock()
	fns := make(map[string]func() any, len(p.probes))
	for k, fn := range p.probes {
		fns[k] = fn
	}
	p.mu.RUnlock()

	out := make(map[string]any, len(fns))
	for k, fn := range fns {
		out[k] = fn()
	}
	p.mu.Lock()
	p.sampled = time.Now()
	p.mu.Unlock()
	return out
}

// LastSampled returns when Snapshot last ran.
func (p *Probes) LastSampled() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sampled
}
