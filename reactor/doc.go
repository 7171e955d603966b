// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the selector that owns the read-interest set of
// datagram channels: a pool of runners, each an epoll instance driven by one
// goroutine. Registration is asynchronous and reported through a future so
// callers never block on the runner.
package reactor
