// File: transport/udp/datapath.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Non-blocking datagram receive and send.

package udp

import (
	"fmt"
	"net"

	"github.com/momentics/hioload-udp/api"
)

// Read performs one non-blocking receive on c into buf and returns the
// number of bytes read, 0 when nothing was pending, or -1 on failure.
// Failures are logged at debug level and never returned.
//
// When buf is nil and res is not, a buffer of c.ReadBufferSize() is
// allocated. It is handed to the caller through res.Message only when
// bytes were read; otherwise it is disposed here.
func (t *Transport) Read(c *Connection, buf api.Buffer, res *api.ReadResult) (n int) {
	allocated := buf == nil && res != nil
	if allocated {
		buf = t.memory.AllocateAtLeast(c.ReadBufferSize())
	}
	if buf == nil {
		t.log.WithField("handle", c.handle).Debug("read without buffer or result")
		return -1
	}
	defer func() {
		if !allocated {
			return
		}
		if n <= 0 {
			buf.Dispose()
		} else {
			buf.AllowDispose(true)
		}
	}()

	var err error
	if c.IsConnected() {
		n, err = t.readConnected(c, buf, res)
	} else {
		n, err = t.readUnconnected(c, buf, res)
	}
	if err != nil {
		t.log.WithError(err).WithField("handle", c.handle).Debug("read failed")
		return -1
	}
	c.onRead(buf, n)
	return n
}

// readConnected reads straight into the live memory of buf. A window that
// lies in one segment uses read; a window spanning segments uses readv.
// Bytes() is not used here since composite buffers return a copy.
func (t *Transport) readConnected(c *Connection, buf api.Buffer, res *api.ReadResult) (int, error) {
	oldPos := buf.Position()
	view := buf.ScatterView()
	n, err := readView(c.ch, view.Slices())
	view.Release()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		buf.SetPosition(oldPos + n)
		if res != nil {
			res.Message = buf
			res.ReadSize += n
			res.SrcAddress = c.peer
		}
	}
	return n, nil
}

func readView(ch *Channel, parts [][]byte) (int, error) {
	switch len(parts) {
	case 0:
		return ch.read(nil)
	case 1:
		return ch.read(parts[0])
	default:
		return ch.readv(parts)
	}
}

// readUnconnected receives into a staging slab so the sender address is
// captured, then copies into buf. The slab is released on every path and
// buf is untouched when nothing arrived.
func (t *Transport) readUnconnected(c *Connection, buf api.Buffer, res *api.ReadResult) (int, error) {
	rec := t.staging.Acquire(buf.Remaining())
	defer rec.Release()

	n, from, err := c.ch.recvfrom(rec.Bytes())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		buf.Put(rec.Bytes()[:n])
		if res != nil {
			res.Message = buf
			res.ReadSize += n
			res.SrcAddress = from
		}
	}
	return n, nil
}

// Write sends msg on c. A non-nil dst is always a send-to, whatever the
// connection mode; otherwise the datagram goes to the fixed peer with
// write/writev. Zero bytes with a nil error means the socket would block.
// File chunks go to the fixed peer only, so dst is ignored for them and an
// unconnected c is rejected. A zero Message returns api.ErrUnhandledMessage
// without touching the socket. res, when given, is populated even for zero-byte writes.
func (t *Transport) Write(c *Connection, dst *net.UDPAddr, msg api.Message, res *api.WriteResult) (int64, error) {
	var written int64
	switch msg.Kind() {
	case api.MessageBuffer:
		n, err := t.writeBuffer(c, dst, msg.Buffer())
		if err != nil {
			return 0, err
		}
		written = int64(n)
	case api.MessageFile:
		if !c.IsConnected() {
			return 0, fmt.Errorf("write file chunk without fixed peer: %w", api.ErrInvalidArgument)
		}
		// sendfile always targets the fixed peer.
		dst = nil
		n, err := c.ch.transferFile(msg.File())
		if err != nil {
			return 0, fmt.Errorf("write file chunk: %w", err)
		}
		written = n
		if n > 0 {
			c.bytesWritten.Add(n)
			c.datagramsWritten.Add(1)
		}
	default:
		return 0, fmt.Errorf("write %s message: %w", msg.Kind(), api.ErrUnhandledMessage)
	}

	if res != nil {
		res.Message = msg
		res.WrittenSize += written
		if dst != nil {
			res.DstAddress = dst
		} else {
			res.DstAddress = c.peer
		}
	}
	return written, nil
}

func (t *Transport) writeBuffer(c *Connection, dst *net.UDPAddr, buf api.Buffer) (int, error) {
	oldPos := buf.Position()
	var (
		n   int
		err error
	)
	switch {
	case dst != nil:
		n, err = c.ch.sendto(buf.Bytes(), dst)
	case buf.IsComposite():
		view := buf.ScatterView()
		n, err = c.ch.writev(view.Slices())
		view.Release()
	default:
		n, err = c.ch.write(buf.Bytes())
	}
	if err != nil {
		return 0, fmt.Errorf("write to %v: %w", dstOrPeer(c, dst), err)
	}
	if n > 0 {
		buf.SetPosition(oldPos + n)
	}
	c.onWrite(buf, n)
	return n, nil
}

func dstOrPeer(c *Connection, dst *net.UDPAddr) *net.UDPAddr {
	if dst != nil {
		return dst
	}
	return c.peer
}
