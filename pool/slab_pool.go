// File: pool/slab_pool.go
// Package pool implements bounded staging slabs with size class support.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

import (
	"math/bits"
	"sync"
	"sync/atomic"
)

const (
	stagingMinShift = 11 // 2 KiB
	stagingMaxShift = 16 // 64 KiB
	stagingClasses  = stagingMaxShift - stagingMinShift + 1

	defaultSlabCapacity = 64
)

// StagingPool hands out transient byte slabs used to satisfy receive
// primitives that need their own addressable memory. Each class keeps a
// bounded free list; when it is full the slab is dropped for the GC.
type StagingPool struct {
	free [stagingClasses]chan []byte

	acquired atomic.Int64
	released atomic.Int64
	allocs   atomic.Int64
}

// NewStagingPool creates a pool holding at most perClass idle slabs per
// size class. perClass <= 0 selects the default.
func NewStagingPool(perClass int) *StagingPool {
	if perClass <= 0 {
		perClass = defaultSlabCapacity
	}
	p := &StagingPool{}
	for i := range p.free {
		p.free[i] = make(chan []byte, perClass)
	}
	return p
}

func stagingClass(size int) int {
	if size <= 1<<stagingMinShift {
		return 0
	}
	shift := bits.Len(uint(size - 1))
	if shift > stagingMaxShift {
		return -1
	}
	return shift - stagingMinShift
}

// Acquire returns a record whose Bytes() has length size.
// The record must be released exactly once.
func (p *StagingPool) Acquire(size int) *StagingRecord {
	if size < 0 {
		size = 0
	}
	p.acquired.Add(1)
	r := &StagingRecord{pool: p, class: stagingClass(size)}

	var slab []byte
	if r.class >= 0 {
		select {
		case slab = <-p.free[r.class]:
		default:
			p.allocs.Add(1)
			slab = make([]byte, 1<<(stagingMinShift+r.class))
		}
	} else {
		p.allocs.Add(1)
		slab = make([]byte, size)
	}
	r.slab = slab
	r.buf = slab[:size]
	return r
}

func (p *StagingPool) put(class int, slab []byte) {
	p.released.Add(1)
	if class < 0 {
		return
	}
	select {
	case p.free[class] <- slab:
	default:
	}
}

// StagingStats reports acquire/release accounting.
type StagingStats struct {
	Acquired int64
	Released int64
	// Allocated counts slabs created because a free list was empty.
	Allocated int64
}

// Outstanding is the number of records acquired but not yet released.
func (s StagingStats) Outstanding() int64 { return s.Acquired - s.Released }

// Stats returns a snapshot of the counters.
func (p *StagingPool) Stats() StagingStats {
	return StagingStats{
		Acquired:  p.acquired.Load(),
		Released:  p.released.Load(),
		Allocated: p.allocs.Load(),
	}
}

// StagingRecord is one acquired slab.
type StagingRecord struct {
	pool     *StagingPool
	class    int
	slab     []byte
	buf      []byte
	released atomic.Bool
}

// Bytes returns the slab trimmed to the requested size.
func (r *StagingRecord) Bytes() []byte { return r.buf }

// Release returns the slab to its pool. Calls after the first are no-ops.
func (r *StagingRecord) Release() {
	if !r.released.CompareAndSwap(false, true) {
		return
	}
	p, class, slab := r.pool, r.class, r.slab
	r.pool, r.slab, r.buf = nil, nil, nil
	p.put(class, slab)
}

var (
	stagingOnce sync.Once
	stagingPool *StagingPool
)

// DefaultStagingPool returns the process-wide staging pool.
func DefaultStagingPool() *StagingPool {
	stagingOnce.Do(func() {
		stagingPool = NewStagingPool(0)
	})
	return stagingPool
}
