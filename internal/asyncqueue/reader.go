// File: internal/asyncqueue/reader.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package asyncqueue

import (
	"slices"
	"sync"
)

// Reader tracks close notifications for connections with pending reads.
type Reader[C Target] struct {
	mu       sync.Mutex
	listener []func(C)
}

// NewReader returns an empty reader.
func NewReader[C Target]() *Reader[C] { return &Reader[C]{} }

// AddCloseListener registers fn to run on every OnClose.
func (r *Reader[C]) AddCloseListener(fn func(C)) {
	r.mu.Lock()
	r.listener = append(r.listener, fn)
	r.mu.Unlock()
}

// OnClose notifies listeners that conn released its channel.
func (r *Reader[C]) OnClose(conn C) {
	r.mu.Lock()
	ls := slices.Clone(r.listener)
	r.mu.Unlock()
	for _, fn := range ls {
		fn(conn)
	}
}
