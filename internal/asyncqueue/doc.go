// File: internal/asyncqueue/doc.go
// Package asyncqueue
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Per-connection asynchronous write queue and close notification for the
// datagram transport. A connection has at most one write in flight; later
// writes queue behind it in FIFO order and are drained when the channel
// becomes writable again. Closing a connection fails everything queued.
package asyncqueue
