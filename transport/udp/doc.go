// File: transport/udp/doc.go
// Package udp
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Non-blocking datagram transport. A Transport binds listening endpoints
// and creates outbound sockets, registers them with the reactor selector
// and moves datagrams between sockets and cursor buffers.
//
// Connected (fixed-peer) sockets read straight into the caller's buffer,
// using readv for composite buffers. Unconnected sockets receive into a
// pooled staging slab with recvfrom so the sender address is known, then
// copy into the caller's buffer. Transfer failures on the read path are
// reported as -1 and never escalated; a failed opportunistic read is the
// same as "no data yet" for a poller.
package udp
