//go:build linux

// File: api/filechunk_linux.go
// Author: momentics <momentics@gmail.com>

package api

import "golang.org/x/sys/unix"

// TransferTo sends the remaining region to the connected socket fd with
// sendfile(2), advancing Offset and shrinking Length by the bytes sent.
func (f *FileChunk) TransferTo(fd int) (int64, error) {
	if f.Length == 0 {
		return 0, nil
	}
	off := f.Offset
	n, err := unix.Sendfile(fd, int(f.File.Fd()), &off, int(f.Length))
	if n > 0 {
		f.Offset += int64(n)
		f.Length -= int64(n)
	}
	if err != nil {
		if err == unix.EAGAIN || err == unix.EINTR {
			return int64(max(n, 0)), nil
		}
		return int64(max(n, 0)), err
	}
	return int64(n), nil
}
