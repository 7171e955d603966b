// Package pool
// Author: momentics <momentics@gmail.com>
//
// Memory layer for hioload-udp: cursor buffers (single and composite),
// a size-class MemoryManager, and the bounded staging pool used by
// unconnected receives. All primitives are safe for concurrent acquire and
// release; individual buffers are owned by one goroutine at a time.
package pool
