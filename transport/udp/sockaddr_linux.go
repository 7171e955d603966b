//go:build linux
// +build linux

// File: transport/udp/sockaddr_linux.go
// Author: momentics <momentics@gmail.com>

package udp

import (
	"fmt"
	"net"
	"net/netip"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-udp/api"
)

// familyFor picks AF_INET6 when any non-nil address needs IPv6,
// AF_INET otherwise.
func familyFor(addrs ...*net.UDPAddr) int {
	for _, a := range addrs {
		if a != nil && len(a.IP) > 0 && a.IP.To4() == nil {
			return unix.AF_INET6
		}
	}
	return unix.AF_INET
}

func toSockaddr(a *net.UDPAddr, family int) (unix.Sockaddr, error) {
	if a == nil {
		return nil, fmt.Errorf("nil address: %w", api.ErrInvalidArgument)
	}
	if a.Port < 0 || a.Port > 0xffff {
		return nil, fmt.Errorf("port %d: %w", a.Port, api.ErrInvalidArgument)
	}
	switch family {
	case unix.AF_INET:
		sa := &unix.SockaddrInet4{Port: a.Port}
		if len(a.IP) > 0 {
			ip4 := a.IP.To4()
			if ip4 == nil {
				return nil, fmt.Errorf("address %v is not IPv4: %w", a, api.ErrInvalidArgument)
			}
			copy(sa.Addr[:], ip4)
		}
		return sa, nil
	case unix.AF_INET6:
		sa := &unix.SockaddrInet6{Port: a.Port}
		if len(a.IP) > 0 {
			copy(sa.Addr[:], a.IP.To16())
		}
		if a.Zone != "" {
			if ifi, err := net.InterfaceByName(a.Zone); err == nil {
				sa.ZoneId = uint32(ifi.Index)
			}
		}
		return sa, nil
	default:
		return nil, fmt.Errorf("address family %d: %w", family, api.ErrNotSupported)
	}
}

// fromSockaddr converts a kernel address; v4-mapped IPv6 addresses are
// reported as IPv4.
func fromSockaddr(sa unix.Sockaddr) *net.UDPAddr {
	switch sa := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.UDPAddr{IP: net.IP(append([]byte(nil), sa.Addr[:]...)), Port: sa.Port}
	case *unix.SockaddrInet6:
		ap := netip.AddrPortFrom(netip.AddrFrom16(sa.Addr).Unmap(), uint16(sa.Port))
		addr := net.UDPAddrFromAddrPort(ap)
		if sa.ZoneId != 0 {
			if ifi, err := net.InterfaceByIndex(int(sa.ZoneId)); err == nil {
				addr.Zone = ifi.Name
			}
		}
		return addr
	default:
		return nil
	}
}
