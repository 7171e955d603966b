//go:build !linux
// +build !linux

// File: reactor/runner_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub runner for unsupported platforms.

package reactor

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-udp/api"
	"github.com/momentics/hioload-udp/future"
)

var errRunnerClosed = errors.New("runner closed")

// Runner is unavailable on this platform.
type Runner struct {
	id  int
	cpu int
}

func newRunner(int, Handler, *logrus.Entry) (*Runner, error) {
	return nil, fmt.Errorf("reactor: %w on this platform", api.ErrNotSupported)
}

func (r *Runner) ID() int { return r.id }
func (r *Runner) start()  {}
func (r *Runner) stop()   {}

func (r *Runner) submit(int, uint64, Events) *future.Future[RegistrationResult] {
	return future.Failed[RegistrationResult](api.ErrNotSupported)
}

func (r *Runner) remove(*Key) error { return nil }

func (r *Runner) modify(*Key, Events) error { return api.ErrNotSupported }
