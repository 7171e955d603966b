//go:build linux
// +build linux

// File: transport/udp/inherited_linux.go
// Author: momentics <momentics@gmail.com>

package udp

import (
	"fmt"
	"os"
	"strconv"

	"github.com/momentics/hioload-udp/api"
)

// listenFdsStart is the first descriptor passed by socket activation.
var listenFdsStart = 3

// inheritedFd returns the first activation descriptor addressed to this
// process.
func inheritedFd() (int, error) {
	pid, err := strconv.Atoi(os.Getenv("LISTEN_PID"))
	if err != nil || pid != os.Getpid() {
		return -1, fmt.Errorf("no inherited socket for pid %d: %w", os.Getpid(), api.ErrNotFound)
	}
	n, err := strconv.Atoi(os.Getenv("LISTEN_FDS"))
	if err != nil || n < 1 {
		return -1, fmt.Errorf("no inherited socket (LISTEN_FDS=%q): %w", os.Getenv("LISTEN_FDS"), api.ErrNotFound)
	}
	return listenFdsStart, nil
}
