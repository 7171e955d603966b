// File: reactor/key.go
// Author: momentics <momentics@gmail.com>
//
// Registration keys and readiness event types.

package reactor

import (
	"fmt"
	"sync/atomic"
)

// Events is a bit set of readiness conditions.
type Events uint32

const (
	EventRead Events = 1 << iota
	EventWrite
	EventError
)

func (e Events) String() string {
	s := ""
	if e&EventRead != 0 {
		s += "r"
	}
	if e&EventWrite != 0 {
		s += "w"
	}
	if e&EventError != 0 {
		s += "e"
	}
	if s == "" {
		return "-"
	}
	return s
}

// Key is the selector's token for one registered channel. Handle is the
// opaque value supplied at registration; the selector never interprets it.
type Key struct {
	fd        int
	handle    uint64
	interest  atomic.Uint32
	runner    *Runner
	cancelled atomic.Bool
}

// Fd returns the registered descriptor.
func (k *Key) Fd() int { return k.fd }

// Handle returns the caller-supplied handle.
func (k *Key) Handle() uint64 { return k.handle }

// Interest returns the registered interest set.
func (k *Key) Interest() Events { return Events(k.interest.Load()) }

// Runner returns the runner owning the key.
func (k *Key) Runner() *Runner { return k.runner }

// IsValid reports whether the key has not been cancelled.
func (k *Key) IsValid() bool { return !k.cancelled.Load() }

func (k *Key) String() string {
	return fmt.Sprintf("Key[fd=%d handle=%d interest=%s valid=%t]", k.fd, k.handle, k.Interest(), k.IsValid())
}

// RegistrationResult pairs a completed key with the runner that owns it.
type RegistrationResult struct {
	Key    *Key
	Runner *Runner
}

// Handler is invoked on the runner goroutine for every ready key.
type Handler func(key *Key, events Events)
