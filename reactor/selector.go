// File: reactor/selector.go
// Author: momentics <momentics@gmail.com>
//
// Selector distributes channels over a fixed pool of runners.

package reactor

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-udp/affinity"
	"github.com/momentics/hioload-udp/api"
	"github.com/momentics/hioload-udp/future"
)

// Selector owns a pool of runners and assigns registrations round-robin.
type Selector struct {
	runners []*Runner
	next    atomic.Uint32
	log     *logrus.Entry

	mu      sync.Mutex
	started bool
	closed  bool
}

// NewSelector creates n runners (n <= 0 selects runtime.NumCPU, capped at 4)
// that dispatch readiness events to h. Runners do not poll until Start.
func NewSelector(n int, h Handler, log *logrus.Entry) (*Selector, error) {
	if h == nil {
		return nil, fmt.Errorf("selector: nil handler: %w", api.ErrInvalidArgument)
	}
	if n <= 0 {
		n = min(runtime.NumCPU(), 4)
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	s := &Selector{log: log.WithField("component", "selector")}
	for i := 0; i < n; i++ {
		r, err := newRunner(i, h, s.log)
		if err != nil {
			for _, prev := range s.runners {
				prev.stop()
			}
			return nil, fmt.Errorf("selector: runner %d: %w", i, err)
		}
		s.runners = append(s.runners, r)
	}
	return s, nil
}

// Start launches every runner goroutine. It is a no-op once started.
func (s *Selector) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return api.ErrSelectorClosed
	}
	if s.started {
		return nil
	}
	for _, r := range s.runners {
		r.start()
	}
	s.started = true
	return nil
}

// Stop halts all runners, fails pending registrations and releases the
// pollers. It is idempotent.
func (s *Selector) Stop() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	for _, r := range s.runners {
		r.stop()
	}
}

// SetAffinity pins runner i to cpus[i%len(cpus)] when it starts. It must
// be called before Start; an empty list leaves runners unpinned.
func (s *Selector) SetAffinity(cpus []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.closed {
		return fmt.Errorf("selector: affinity after start: %w", api.ErrInvalidArgument)
	}
	for i, r := range s.runners {
		r.cpu = affinity.CPUFor(cpus, i)
	}
	return nil
}

// Runners returns the number of runners.
func (s *Selector) Runners() int { return len(s.runners) }

// RegisterForRead submits fd for read-readiness notification. The returned
// future completes on the owning runner once the fd is in its interest set.
// Registrations submitted before Start complete after Start.
func (s *Selector) RegisterForRead(fd int, handle uint64) *future.Future[RegistrationResult] {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return future.Failed[RegistrationResult](api.ErrSelectorClosed)
	}
	idx := s.next.Add(1) % uint32(len(s.runners))
	return s.runners[idx].submit(fd, handle, EventRead)
}

// Deregister removes the key from its runner's interest set. Deregistering
// an already cancelled key is a no-op.
func (s *Selector) Deregister(k *Key) error {
	if k == nil {
		return nil
	}
	if !k.cancelled.CompareAndSwap(false, true) {
		return nil
	}
	err := k.runner.remove(k)
	if errors.Is(err, errRunnerClosed) {
		return nil
	}
	return err
}

// SetInterest replaces the interest set of a valid key, e.g. to add write
// readiness while writes are queued.
func (s *Selector) SetInterest(k *Key, interest Events) error {
	if k == nil || !k.IsValid() {
		return nil
	}
	if k.Interest() == interest {
		return nil
	}
	err := k.runner.modify(k, interest)
	if errors.Is(err, errRunnerClosed) {
		return nil
	}
	return err
}
