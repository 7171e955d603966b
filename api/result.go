// Package api
// Author: momentics@gmail.com
//
// Per-call transfer results produced by the datagram data path.

package api

import "net"

// ReadResult records the outcome of one or more receive calls.
type ReadResult struct {
	// Message is the buffer the bytes landed in.
	Message Buffer
	// ReadSize accumulates bytes received across calls.
	ReadSize int
	// SrcAddress is the sender: the fixed peer for connected sockets.
	SrcAddress *net.UDPAddr
}

// WriteResult records the outcome of one or more send calls.
type WriteResult struct {
	Message     Message
	WrittenSize int64
	// DstAddress is the explicit destination or the fixed peer.
	DstAddress *net.UDPAddr
}

// Reset clears the result for reuse.
func (r *ReadResult) Reset() { *r = ReadResult{} }

// Reset clears the result for reuse.
func (r *WriteResult) Reset() { *r = WriteResult{} }
