// File: future/future.go
// Author: momentics <momentics@gmail.com>
//
// One-shot completion future with blocking and callback consumption.

package future

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/momentics/hioload-udp/api"
)

// CompletionHandler receives the outcome of a Future exactly once.
type CompletionHandler[T any] func(value T, err error)

// Future is completed once by Complete or Fail; later calls are ignored.
type Future[T any] struct {
	mu       sync.Mutex
	done     chan struct{}
	value    T
	err      error
	handlers []CompletionHandler[T]
}

// New returns a pending future.
func New[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Completed returns a future already completed with v.
func Completed[T any](v T) *Future[T] {
	f := New[T]()
	f.Complete(v)
	return f
}

// Failed returns a future already failed with err.
func Failed[T any](err error) *Future[T] {
	f := New[T]()
	f.Fail(err)
	return f
}

// Complete resolves the future with v. It reports whether this call won.
func (f *Future[T]) Complete(v T) bool {
	return f.resolve(v, nil)
}

// Fail resolves the future with err. It reports whether this call won.
func (f *Future[T]) Fail(err error) bool {
	var zero T
	if err == nil {
		err = fmt.Errorf("future failed without cause")
	}
	return f.resolve(zero, err)
}

func (f *Future[T]) resolve(v T, err error) bool {
	f.mu.Lock()
	select {
	case <-f.done:
		f.mu.Unlock()
		return false
	default:
	}
	f.value, f.err = v, err
	handlers := f.handlers
	f.handlers = nil
	close(f.done)
	f.mu.Unlock()

	for _, h := range handlers {
		h(v, err)
	}
	return true
}

// OnComplete registers h. If the future is already resolved, h runs
// immediately on the calling goroutine.
func (f *Future[T]) OnComplete(h CompletionHandler[T]) {
	f.mu.Lock()
	select {
	case <-f.done:
		v, err := f.value, f.err
		f.mu.Unlock()
		h(v, err)
		return
	default:
	}
	f.handlers = append(f.handlers, h)
	f.mu.Unlock()
}

// Done is closed once the future resolves.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// IsDone reports whether the future has resolved.
func (f *Future[T]) IsDone() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Get blocks until the future resolves or ctx ends.
func (f *Future[T]) Get(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// GetTimeout blocks for at most d. A timeout returns api.ErrOperationTimeout.
func (f *Future[T]) GetTimeout(d time.Duration) (T, error) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-f.done:
		return f.value, f.err
	case <-timer.C:
		var zero T
		return zero, fmt.Errorf("future: wait %v: %w", d, api.ErrOperationTimeout)
	}
}

// Handler adapts the future into a CompletionHandler that resolves it.
func (f *Future[T]) Handler() CompletionHandler[T] {
	return func(v T, err error) {
		if err != nil {
			f.Fail(err)
			return
		}
		f.Complete(v)
	}
}
