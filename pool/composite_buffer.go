// File: pool/composite_buffer.go
// Author: momentics <momentics@gmail.com>
//
// Multi-segment buffer read and written with readv/writev.

package pool

import (
	"fmt"
	"sync/atomic"

	"github.com/momentics/hioload-udp/api"
)

// CompositeBuffer presents several discontiguous segments as one logical
// buffer. Positions are logical offsets across the concatenated segments.
type CompositeBuffer struct {
	segments  [][]byte
	capacity  int
	pos       int
	lim       int
	allow     bool
	onDispose func()
	disposed  atomic.Bool
}

// NewComposite builds a composite over the given segments, in order.
// Empty segments are skipped.
func NewComposite(segments ...[]byte) *CompositeBuffer {
	c := &CompositeBuffer{segments: make([][]byte, 0, len(segments))}
	for _, s := range segments {
		if len(s) == 0 {
			continue
		}
		c.segments = append(c.segments, s)
		c.capacity += len(s)
	}
	c.lim = c.capacity
	return c
}

// Append adds a segment at the end and extends the limit when it was at
// the previous capacity.
func (c *CompositeBuffer) Append(seg []byte) {
	if len(seg) == 0 {
		return
	}
	atEnd := c.lim == c.capacity
	c.segments = append(c.segments, seg)
	c.capacity += len(seg)
	if atEnd {
		c.lim = c.capacity
	}
}

// OnDispose registers a hook run once by Dispose.
func (c *CompositeBuffer) OnDispose(fn func()) { c.onDispose = fn }

// Segments returns the number of backing segments.
func (c *CompositeBuffer) Segments() int { return len(c.segments) }

func (c *CompositeBuffer) Position() int { return c.pos }

func (c *CompositeBuffer) SetPosition(pos int) {
	if pos < 0 || pos > c.lim {
		panic(fmt.Sprintf("pool: position %d out of range [0,%d]", pos, c.lim))
	}
	c.pos = pos
}

func (c *CompositeBuffer) Limit() int { return c.lim }

func (c *CompositeBuffer) SetLimit(lim int) {
	if lim < 0 || lim > c.capacity {
		panic(fmt.Sprintf("pool: limit %d out of range [0,%d]", lim, c.capacity))
	}
	c.lim = lim
	if c.pos > lim {
		c.pos = lim
	}
}

func (c *CompositeBuffer) Capacity() int      { return c.capacity }
func (c *CompositeBuffer) Remaining() int     { return c.lim - c.pos }
func (c *CompositeBuffer) HasRemaining() bool { return c.pos < c.lim }
func (c *CompositeBuffer) IsComposite() bool  { return len(c.segments) > 1 }

func (c *CompositeBuffer) Flip() {
	c.lim = c.pos
	c.pos = 0
}

func (c *CompositeBuffer) Clear() {
	c.pos = 0
	c.lim = c.capacity
}

// window calls fn with each segment's part of [from, to).
func (c *CompositeBuffer) window(from, to int, fn func(part []byte)) {
	off := 0
	for _, seg := range c.segments {
		end := off + len(seg)
		if end > from && off < to {
			lo := max(from-off, 0)
			hi := min(to-off, len(seg))
			fn(seg[lo:hi])
		}
		if end >= to {
			return
		}
		off = end
	}
}

// Bytes copies [pos, lim) into one contiguous slice.
func (c *CompositeBuffer) Bytes() []byte {
	out := make([]byte, 0, c.Remaining())
	c.window(c.pos, c.lim, func(part []byte) {
		out = append(out, part...)
	})
	return out
}

func (c *CompositeBuffer) ScatterView() *api.ScatterView {
	v := api.AcquireScatterView()
	c.window(c.pos, c.lim, v.Append)
	return v
}

func (c *CompositeBuffer) Put(src []byte) int {
	n := 0
	c.window(c.pos, c.lim, func(part []byte) {
		n += copy(part, src[n:])
	})
	c.pos += n
	return n
}

func (c *CompositeBuffer) AllowDispose(allow bool) { c.allow = allow }
func (c *CompositeBuffer) IsDisposable() bool      { return c.allow }

func (c *CompositeBuffer) TryDispose() bool {
	if !c.allow {
		return false
	}
	c.Dispose()
	return true
}

// Dispose drops the segment references and runs the dispose hook, if any.
func (c *CompositeBuffer) Dispose() {
	if !c.disposed.CompareAndSwap(false, true) {
		return
	}
	if c.onDispose != nil {
		c.onDispose()
	}
	c.segments = nil
	c.capacity, c.pos, c.lim = 0, 0, 0
}

var _ api.Buffer = (*CompositeBuffer)(nil)
