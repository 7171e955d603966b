// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral API for CPU affinity. Platform-specific implementations are located
// in separate files guarded by build tags.

package affinity

import "runtime"

// PinCurrentThread locks the calling goroutine to its OS thread and pins
// that thread to the given logical CPU. The goroutine stays locked even if
// pinning fails; it is meant for long-lived loops such as reactor runners.
func PinCurrentThread(cpuID int) error {
	runtime.LockOSThread()
	return setAffinityPlatform(cpuID)
}

// CPUFor picks the CPU for worker i from cpus, wrapping around. It returns
// -1 when cpus is empty.
func CPUFor(cpus []int, i int) int {
	if len(cpus) == 0 {
		return -1
	}
	return cpus[i%len(cpus)]
}
