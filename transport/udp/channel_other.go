//go:build !linux
// +build !linux

// File: transport/udp/channel_other.go
// Author: momentics <momentics@gmail.com>
//
// Stub channel for unsupported platforms.

package udp

import (
	"fmt"
	"net"
	"time"

	"github.com/momentics/hioload-udp/api"
)

var errPlatform = fmt.Errorf("udp channel: %w on this platform", api.ErrNotSupported)

// Channel is unavailable on this platform.
type Channel struct{}

func openChannel(int) (*Channel, error) { return nil, errPlatform }
func channelFromFd(int) (*Channel, error) { return nil, errPlatform }
func inheritedFd() (int, error) { return -1, errPlatform }
func familyFor(...*net.UDPAddr) int { return 0 }

func (ch *Channel) Fd() int { return -1 }
func (ch *Channel) Family() int { return 0 }
func (ch *Channel) IsConnected() bool { return false }
func (ch *Channel) IsClosed() bool { return true }
func (ch *Channel) LocalAddr() *net.UDPAddr { return nil }
func (ch *Channel) RemoteAddr() *net.UDPAddr { return nil }
func (ch *Channel) Close() error { return nil }
func (ch *Channel) bind(*net.UDPAddr) error { return errPlatform }
func (ch *Channel) connect(*net.UDPAddr) error { return errPlatform }
func (ch *Channel) setNonblock(bool) error { return errPlatform }

func (ch *Channel) read([]byte) (int, error) { return 0, errPlatform }
func (ch *Channel) readv([][]byte) (int, error) { return 0, errPlatform }
func (ch *Channel) write([]byte) (int, error) { return 0, errPlatform }
func (ch *Channel) writev([][]byte) (int, error) { return 0, errPlatform }
func (ch *Channel) recvfrom([]byte) (int, *net.UDPAddr, error) {
	return 0, nil, errPlatform
}
func (ch *Channel) sendto([]byte, *net.UDPAddr) (int, error) { return 0, errPlatform }
func (ch *Channel) transferFile(*api.FileChunk) (int64, error) { return 0, errPlatform }

func (ch *Channel) SetReuseAddress(bool) error { return errPlatform }
func (ch *Channel) ReuseAddress() (bool, error) { return false, errPlatform }
func (ch *Channel) SetReusePort(bool) error { return errPlatform }
func (ch *Channel) ReusePort() (bool, error) { return false, errPlatform }
func (ch *Channel) SetReadTimeout(time.Duration) error { return errPlatform }
func (ch *Channel) ReadTimeout() (time.Duration, error) { return 0, errPlatform }
func (ch *Channel) IsNonblocking() (bool, error) { return false, errPlatform }

// ReusePortAvailable reports false on unsupported platforms.
func ReusePortAvailable() bool { return false }
