//go:build linux
// +build linux

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor - Linux epoll runner.

package reactor

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-udp/affinity"
	"github.com/momentics/hioload-udp/api"
	"github.com/momentics/hioload-udp/future"
)

const maxEvents = 128

var errRunnerClosed = errors.New("runner closed")

// epollWait is swapped in tests to simulate a broken poller.
var epollWait = unix.EpollWait

// registerOp is a pending interest-set addition.
type registerOp struct {
	key *Key
	fut *future.Future[RegistrationResult]
}

// Runner is one epoll instance and the goroutine that polls it.
type Runner struct {
	id      int
	cpu     int
	epfd    int
	wakefd  int
	handler Handler
	log     *logrus.Entry

	keys sync.Map // fd -> *Key

	mu      sync.Mutex
	pending *queue.Queue // of *registerOp

	started  atomic.Bool
	stopping atomic.Bool
	stopOnce sync.Once
	exited   chan struct{}
}

func newRunner(id int, h Handler, log *logrus.Entry) (*Runner, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}
	wakefd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		_ = unix.Close(epfd)
		return nil, fmt.Errorf("eventfd: %w", err)
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wakefd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakefd, &ev); err != nil {
		_ = unix.Close(wakefd)
		_ = unix.Close(epfd)
		return nil, fmt.Errorf("epoll ctl add wakeup: %w", err)
	}
	return &Runner{
		id:      id,
		cpu:     -1,
		epfd:    epfd,
		wakefd:  wakefd,
		handler: h,
		log:     log.WithField("runner", id),
		pending: queue.New(),
		exited:  make(chan struct{}),
	}, nil
}

// ID returns the runner index within its selector.
func (r *Runner) ID() int { return r.id }

func (r *Runner) String() string { return fmt.Sprintf("Runner[%d]", r.id) }

func (r *Runner) start() {
	if r.started.CompareAndSwap(false, true) {
		go r.run()
	}
}

func (r *Runner) submit(fd int, handle uint64, interest Events) *future.Future[RegistrationResult] {
	fut := future.New[RegistrationResult]()
	key := &Key{fd: fd, handle: handle, runner: r}
	key.interest.Store(uint32(interest))
	op := &registerOp{key: key, fut: fut}
	r.mu.Lock()
	if r.stopping.Load() {
		r.mu.Unlock()
		fut.Fail(api.ErrSelectorClosed)
		return fut
	}
	r.pending.Add(op)
	r.mu.Unlock()
	r.wakeup()
	return fut
}

func (r *Runner) wakeup() {
	var one [8]byte
	binary.LittleEndian.PutUint64(one[:], 1)
	if _, err := unix.Write(r.wakefd, one[:]); err != nil && err != unix.EAGAIN {
		r.log.WithError(err).Debug("wakeup write failed")
	}
}

func (r *Runner) drainWakeup() {
	var buf [8]byte
	for {
		if _, err := unix.Read(r.wakefd, buf[:]); err != nil {
			return
		}
	}
}

// runPending applies queued registrations on the runner goroutine.
func (r *Runner) runPending() {
	for {
		r.mu.Lock()
		if r.pending.Length() == 0 {
			r.mu.Unlock()
			return
		}
		op := r.pending.Remove().(*registerOp)
		r.mu.Unlock()

		ev := epollEvent(op.key.fd, op.key.Interest())
		if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, op.key.fd, &ev); err != nil {
			op.fut.Fail(fmt.Errorf("epoll ctl add fd %d: %w", op.key.fd, err))
			continue
		}
		r.keys.Store(op.key.fd, op.key)
		op.fut.Complete(RegistrationResult{Key: op.key, Runner: r})
	}
}

func epollEvent(fd int, interest Events) unix.EpollEvent {
	ev := unix.EpollEvent{Fd: int32(fd)}
	if interest&EventRead != 0 {
		ev.Events |= unix.EPOLLIN
	}
	if interest&EventWrite != 0 {
		ev.Events |= unix.EPOLLOUT
	}
	return ev
}

// modify replaces the interest set of a registered key.
func (r *Runner) modify(k *Key, interest Events) error {
	if r.stopping.Load() {
		return errRunnerClosed
	}
	ev := epollEvent(k.fd, interest)
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_MOD, k.fd, &ev); err != nil {
		return fmt.Errorf("epoll ctl mod fd %d: %w", k.fd, err)
	}
	k.interest.Store(uint32(interest))
	return nil
}

func (r *Runner) remove(k *Key) error {
	if cur, ok := r.keys.Load(k.fd); !ok || cur.(*Key) != k {
		return nil
	}
	r.keys.Delete(k.fd)
	if r.stopping.Load() {
		return errRunnerClosed
	}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, k.fd, nil); err != nil {
		if err == unix.ENOENT || err == unix.EBADF {
			return nil
		}
		return fmt.Errorf("epoll ctl del fd %d: %w", k.fd, err)
	}
	return nil
}

func (r *Runner) run() {
	defer close(r.exited)
	if r.cpu >= 0 {
		if err := affinity.PinCurrentThread(r.cpu); err != nil {
			r.log.WithError(err).Warn("runner not pinned")
		}
	}
	events := make([]unix.EpollEvent, maxEvents)
	r.runPending()
	for !r.stopping.Load() {
		n, err := epollWait(r.epfd, events, -1)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			r.log.WithError(err).Error("epoll wait failed, runner exiting")
			r.mu.Lock()
			r.stopping.Store(true)
			r.failPendingLocked(fmt.Errorf("%w: epoll wait: %v", api.ErrSelectorClosed, err))
			r.mu.Unlock()
			return
		}
		for i := 0; i < n; i++ {
			fd := int(events[i].Fd)
			if fd == r.wakefd {
				r.drainWakeup()
				continue
			}
			v, ok := r.keys.Load(fd)
			if !ok {
				continue
			}
			key := v.(*Key)
			if !key.IsValid() {
				continue
			}
			r.dispatch(key, translate(events[i].Events))
		}
		r.runPending()
	}
}

// dispatch recovers handler panics so one connection cannot stop the runner.
func (r *Runner) dispatch(key *Key, ev Events) {
	defer func() {
		if p := recover(); p != nil {
			r.log.WithField("key", key).Errorf("handler panic: %v", p)
		}
	}()
	r.handler(key, ev)
}

func translate(raw uint32) Events {
	var ev Events
	if raw&unix.EPOLLIN != 0 {
		ev |= EventRead
	}
	if raw&unix.EPOLLOUT != 0 {
		ev |= EventWrite
	}
	if raw&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
		ev |= EventError
	}
	return ev
}

func (r *Runner) stop() {
	r.stopOnce.Do(func() {
		r.mu.Lock()
		r.stopping.Store(true)
		r.mu.Unlock()
		if r.started.Load() {
			r.wakeup()
			<-r.exited
		}
		r.mu.Lock()
		r.failPendingLocked(api.ErrSelectorClosed)
		r.mu.Unlock()
		r.keys.Range(func(k, v any) bool {
			v.(*Key).cancelled.Store(true)
			r.keys.Delete(k)
			return true
		})
		_ = unix.Close(r.wakefd)
		_ = unix.Close(r.epfd)
	})
}

// failPendingLocked fails every queued registration. Caller holds r.mu.
func (r *Runner) failPendingLocked(err error) {
	for r.pending.Length() > 0 {
		op := r.pending.Remove().(*registerOp)
		op.fut.Fail(err)
	}
}
