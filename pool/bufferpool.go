// File: pool/bufferpool.go
// Author: momentics <momentics@gmail.com>
//
// Size-class heap MemoryManager. Buffers are recycled through one sync.Pool
// per power-of-two class; requests above the largest class are allocated
// directly and left to the GC.

package pool

import (
	"math/bits"
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-udp/api"
)

const (
	minClassShift = 9  // 512 B
	maxClassShift = 16 // 64 KiB, the largest UDP payload
	numClasses    = maxClassShift - minClassShift + 1
)

// MemoryManager implements api.MemoryManager over per-class pools.
type MemoryManager struct {
	classes [numClasses]sync.Pool

	totalAlloc atomic.Int64
	totalFree  atomic.Int64
}

// NewMemoryManager creates a manager with empty pools.
func NewMemoryManager() *MemoryManager {
	m := &MemoryManager{}
	for i := range m.classes {
		size := 1 << (minClassShift + i)
		m.classes[i].New = func() any {
			return &HeapBuffer{data: make([]byte, size)}
		}
	}
	return m
}

// classFor returns the pool index for size, or -1 when it is oversized.
func classFor(size int) int {
	if size <= 1<<minClassShift {
		return 0
	}
	shift := bits.Len(uint(size - 1))
	if shift > maxClassShift {
		return -1
	}
	return shift - minClassShift
}

// AllocateAtLeast returns a buffer with capacity >= size. The limit is
// set to the class capacity so callers can read up to a full class.
func (m *MemoryManager) AllocateAtLeast(size int) api.Buffer {
	if size < 0 {
		size = 0
	}
	m.totalAlloc.Add(1)
	idx := classFor(size)
	if idx < 0 {
		b := Allocate(size)
		b.owner = m
		return b
	}
	b := m.classes[idx].Get().(*HeapBuffer)
	b.owner = m
	b.pos = 0
	b.lim = len(b.data)
	b.allow = false
	b.disposed.Store(false)
	return b
}

func (m *MemoryManager) release(b *HeapBuffer) {
	m.totalFree.Add(1)
	idx := classFor(len(b.data))
	if idx < 0 || len(b.data) != 1<<(minClassShift+idx) {
		return
	}
	m.classes[idx].Put(b)
}

// Stats implements api.MemoryManager.
func (m *MemoryManager) Stats() api.MemoryStats {
	alloc := m.totalAlloc.Load()
	free := m.totalFree.Load()
	return api.MemoryStats{TotalAlloc: alloc, TotalFree: free, InUse: alloc - free}
}

var (
	defaultOnce sync.Once
	defaultMgr  *MemoryManager
)

// DefaultManager returns the process-wide MemoryManager so all transports
// reuse the same pools instead of fragmenting allocations.
func DefaultManager() *MemoryManager {
	defaultOnce.Do(func() {
		defaultMgr = NewMemoryManager()
	})
	return defaultMgr
}

var _ api.MemoryManager = (*MemoryManager)(nil)
