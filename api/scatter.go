// File: api/scatter.go
// Author: momentics <momentics@gmail.com>
//
// Pooled scatter/gather views handed to vectorized syscalls.

package api

import "sync"

const defaultScatterSegments = 8

var scatterViews = sync.Pool{
	New: func() any {
		return &ScatterView{slices: make([][]byte, 0, defaultScatterSegments)}
	},
}

// ScatterView is a transient list of segment slices for readv/writev.
// It references buffer memory directly and must not outlive the syscall.
type ScatterView struct {
	slices [][]byte
}

// AcquireScatterView returns an empty view from the shared pool.
func AcquireScatterView() *ScatterView {
	return scatterViews.Get().(*ScatterView)
}

// Append adds a non-empty segment slice to the view.
func (v *ScatterView) Append(b []byte) {
	if len(b) == 0 {
		return
	}
	v.slices = append(v.slices, b)
}

// Slices returns the segment slices in order.
func (v *ScatterView) Slices() [][]byte { return v.slices }

// Len returns the total number of bytes addressed by the view.
func (v *ScatterView) Len() int {
	n := 0
	for _, s := range v.slices {
		n += len(s)
	}
	return n
}

// Release drops segment references and returns the view to the pool.
func (v *ScatterView) Release() {
	for i := range v.slices {
		v.slices[i] = nil
	}
	v.slices = v.slices[:0]
	scatterViews.Put(v)
}
