// File: pool/heap_buffer.go
// Author: momentics <momentics@gmail.com>
//
// Single-segment heap buffer with position/limit cursors.

package pool

import (
	"fmt"
	"sync/atomic"

	"github.com/momentics/hioload-udp/api"
)

// HeapBuffer is a contiguous api.Buffer backed by one byte slice.
type HeapBuffer struct {
	data     []byte
	pos      int
	lim      int
	owner    *MemoryManager
	allow    bool
	disposed atomic.Bool
}

// Wrap returns a buffer over data with the limit at len(data).
// Wrapped buffers have no owner; Dispose only marks them unusable.
func Wrap(data []byte) *HeapBuffer {
	return &HeapBuffer{data: data, lim: len(data)}
}

// WrapString copies s into a new buffer.
func WrapString(s string) *HeapBuffer {
	return Wrap([]byte(s))
}

// Allocate returns an unpooled buffer of exactly size bytes.
func Allocate(size int) *HeapBuffer {
	return Wrap(make([]byte, size))
}

func (b *HeapBuffer) Position() int { return b.pos }

func (b *HeapBuffer) SetPosition(pos int) {
	if pos < 0 || pos > b.lim {
		panic(fmt.Sprintf("pool: position %d out of range [0,%d]", pos, b.lim))
	}
	b.pos = pos
}

func (b *HeapBuffer) Limit() int { return b.lim }

func (b *HeapBuffer) SetLimit(lim int) {
	if lim < 0 || lim > len(b.data) {
		panic(fmt.Sprintf("pool: limit %d out of range [0,%d]", lim, len(b.data)))
	}
	b.lim = lim
	if b.pos > lim {
		b.pos = lim
	}
}

func (b *HeapBuffer) Capacity() int      { return len(b.data) }
func (b *HeapBuffer) Remaining() int     { return b.lim - b.pos }
func (b *HeapBuffer) HasRemaining() bool { return b.pos < b.lim }
func (b *HeapBuffer) IsComposite() bool  { return false }

func (b *HeapBuffer) Flip() {
	b.lim = b.pos
	b.pos = 0
}

func (b *HeapBuffer) Clear() {
	b.pos = 0
	b.lim = len(b.data)
}

// Bytes returns the live subslice [pos, lim).
func (b *HeapBuffer) Bytes() []byte { return b.data[b.pos:b.lim] }

func (b *HeapBuffer) ScatterView() *api.ScatterView {
	v := api.AcquireScatterView()
	v.Append(b.data[b.pos:b.lim])
	return v
}

func (b *HeapBuffer) Put(src []byte) int {
	n := copy(b.data[b.pos:b.lim], src)
	b.pos += n
	return n
}

func (b *HeapBuffer) AllowDispose(allow bool) { b.allow = allow }
func (b *HeapBuffer) IsDisposable() bool      { return b.allow }

func (b *HeapBuffer) TryDispose() bool {
	if !b.allow {
		return false
	}
	b.Dispose()
	return true
}

func (b *HeapBuffer) Dispose() {
	if !b.disposed.CompareAndSwap(false, true) {
		return
	}
	if b.owner != nil {
		b.owner.release(b)
	}
}

// String renders the cursor state for logs.
func (b *HeapBuffer) String() string {
	return fmt.Sprintf("HeapBuffer[pos=%d lim=%d cap=%d]", b.pos, b.lim, len(b.data))
}

var _ api.Buffer = (*HeapBuffer)(nil)
