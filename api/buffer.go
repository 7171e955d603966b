// Package api
// Author: momentics <momentics@gmail.com>
//
// Cursor-based memory buffers and the allocator contract used by the datagram
// data path. Buffers may be a single contiguous region or a composite of
// several discontiguous segments read and written with vectorized I/O.

package api

// Buffer is a position/limit cursor over one or more memory segments.
// Reads and writes consume the region [Position, Limit).
type Buffer interface {
	// Position returns the current read/write cursor.
	Position() int

	// SetPosition moves the cursor; it panics when pos is outside [0, Limit].
	SetPosition(pos int)

	// Limit returns the first index that must not be read or written.
	Limit() int

	// SetLimit moves the limit; the position is clamped to it.
	SetLimit(lim int)

	// Capacity returns the total number of bytes across all segments.
	Capacity() int

	// Remaining returns Limit - Position.
	Remaining() int

	// HasRemaining reports whether Remaining() > 0.
	HasRemaining() bool

	// Flip sets the limit to the position and the position to zero.
	Flip()

	// Clear resets the position to zero and the limit to the capacity.
	Clear()

	// IsComposite reports whether the buffer spans more than one segment.
	IsComposite() bool

	// Bytes returns the contiguous view of [Position, Limit).
	// Composite buffers return a copy; single buffers return a subslice.
	Bytes() []byte

	// ScatterView returns the [Position, Limit) region as per-segment slices
	// suitable for readv/writev. The caller must Release the view.
	ScatterView() *ScatterView

	// Put copies src at the position and advances it by the number of bytes
	// copied, which is min(len(src), Remaining()).
	Put(src []byte) int

	// AllowDispose marks whether a downstream consumer may dispose the buffer.
	AllowDispose(allow bool)

	// IsDisposable reports the AllowDispose flag.
	IsDisposable() bool

	// TryDispose disposes the buffer only when AllowDispose(true) was set.
	TryDispose() bool

	// Dispose returns the buffer to its allocator. The buffer must not be
	// used afterwards. Dispose is idempotent.
	Dispose()
}

// MemoryManager hands out buffers for the data path.
type MemoryManager interface {
	// AllocateAtLeast returns a buffer whose capacity is at least size bytes,
	// with the limit set to the capacity.
	AllocateAtLeast(size int) Buffer

	// Stats exposes allocation counters.
	Stats() MemoryStats
}

// MemoryStats aggregates allocator accounting.
type MemoryStats struct {
	TotalAlloc int64
	TotalFree  int64
	InUse      int64
}
