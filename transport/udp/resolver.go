// File: transport/udp/resolver.go
// Author: momentics <momentics@gmail.com>
//
// Host lookup with a bounded LRU of resolved addresses.

package udp

import (
	"fmt"
	"net"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"
)

type resolver struct {
	cache  *lru.Cache[string, *net.UDPAddr]
	lookup func(network, address string) (*net.UDPAddr, error)
}

func newResolver(size int) (*resolver, error) {
	cache, err := lru.New[string, *net.UDPAddr](size)
	if err != nil {
		return nil, fmt.Errorf("resolver cache: %w", err)
	}
	return &resolver{cache: cache, lookup: net.ResolveUDPAddr}, nil
}

// resolve returns a private copy of the address for host:port. Only
// successful lookups are cached.
func (r *resolver) resolve(host string, port int) (*net.UDPAddr, error) {
	key := net.JoinHostPort(host, strconv.Itoa(port))
	if addr, ok := r.cache.Get(key); ok {
		return cloneAddr(addr), nil
	}
	addr, err := r.lookup("udp", key)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", key, err)
	}
	r.cache.Add(key, cloneAddr(addr))
	return addr, nil
}

// resolveIP resolves host alone; an empty host is the wildcard address.
func (r *resolver) resolveIP(host string) (net.IP, error) {
	if host == "" {
		return nil, nil
	}
	addr, err := r.resolve(host, 0)
	if err != nil {
		return nil, err
	}
	return addr.IP, nil
}

func cloneAddr(a *net.UDPAddr) *net.UDPAddr {
	if a == nil {
		return nil
	}
	return &net.UDPAddr{IP: append(net.IP(nil), a.IP...), Port: a.Port, Zone: a.Zone}
}
