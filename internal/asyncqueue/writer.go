// File: internal/asyncqueue/writer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package asyncqueue

import (
	"fmt"
	"net"
	"sync"

	"github.com/eapache/queue"

	"github.com/momentics/hioload-udp/api"
	"github.com/momentics/hioload-udp/future"
)

// Target identifies a connection by a stable handle.
type Target interface {
	Handle() uint64
}

// WriteFunc performs one non-blocking send. Zero bytes with a nil error
// means the channel would block.
type WriteFunc[C Target] func(conn C, dst *net.UDPAddr, msg api.Message, res *api.WriteResult) (int64, error)

type record struct {
	dst     *net.UDPAddr
	msg     api.Message
	result  api.WriteResult
	handler future.CompletionHandler[api.WriteResult]
}

func (r *record) complete(err error) {
	if r.handler != nil {
		r.handler(r.result, err)
	}
}

type connQueue struct {
	head *record      // retried first
	q    *queue.Queue // of *record
	busy bool
}

func (cq *connQueue) empty() bool { return cq.head == nil && cq.q.Length() == 0 }

func (cq *connQueue) pop() *record {
	if cq.head != nil {
		r := cq.head
		cq.head = nil
		return r
	}
	if cq.q.Length() == 0 {
		return nil
	}
	return cq.q.Remove().(*record)
}

// Writer queues datagram writes per connection.
type Writer[C Target] struct {
	write WriteFunc[C]

	mu     sync.Mutex
	queues map[uint64]*connQueue
}

// NewWriter returns a writer that sends through write.
func NewWriter[C Target](write WriteFunc[C]) *Writer[C] {
	return &Writer[C]{write: write, queues: make(map[uint64]*connQueue)}
}

func (w *Writer[C]) queueFor(h uint64) *connQueue {
	cq, ok := w.queues[h]
	if !ok {
		cq = &connQueue{q: queue.New()}
		w.queues[h] = cq
	}
	return cq
}

// Write sends msg now when nothing is queued for conn, otherwise appends it.
// handler, if non-nil, runs once the datagram is sent or has failed.
func (w *Writer[C]) Write(conn C, dst *net.UDPAddr, msg api.Message, handler future.CompletionHandler[api.WriteResult]) {
	r := &record{dst: dst, msg: msg, handler: handler}
	w.mu.Lock()
	cq := w.queueFor(conn.Handle())
	if cq.busy || !cq.empty() {
		cq.q.Add(r)
		w.mu.Unlock()
		return
	}
	cq.head = r
	w.mu.Unlock()
	w.Flush(conn)
}

// Flush drains conn's queue until it is empty or the channel would block.
func (w *Writer[C]) Flush(conn C) {
	h := conn.Handle()
	for {
		w.mu.Lock()
		cq, ok := w.queues[h]
		if !ok || cq.busy {
			w.mu.Unlock()
			return
		}
		r := cq.pop()
		if r == nil {
			delete(w.queues, h)
			w.mu.Unlock()
			return
		}
		cq.busy = true
		w.mu.Unlock()

		n, err := w.write(conn, r.dst, r.msg, &r.result)

		w.mu.Lock()
		cq.busy = false
		if err == nil && n == 0 && r.msg.Remaining() > 0 {
			if cur, alive := w.queues[h]; alive && cur == cq {
				cq.head = r
				w.mu.Unlock()
				return
			}
			w.mu.Unlock()
			r.complete(fmt.Errorf("write: %w", api.ErrConnectionClosed))
			return
		}
		w.mu.Unlock()
		r.complete(err)
	}
}

// Pending returns the number of queued writes for conn.
func (w *Writer[C]) Pending(conn C) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	cq, ok := w.queues[conn.Handle()]
	if !ok {
		return 0
	}
	n := cq.q.Length()
	if cq.head != nil {
		n++
	}
	return n
}

// OnClose fails every queued write for conn with api.ErrConnectionClosed.
func (w *Writer[C]) OnClose(conn C) {
	w.mu.Lock()
	cq, ok := w.queues[conn.Handle()]
	delete(w.queues, conn.Handle())
	var failed []*record
	if ok {
		for r := cq.pop(); r != nil; r = cq.pop() {
			failed = append(failed, r)
		}
	}
	w.mu.Unlock()
	for _, r := range failed {
		r.complete(fmt.Errorf("write: %w", api.ErrConnectionClosed))
	}
}
