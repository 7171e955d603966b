// File: transport/udp/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Transport configuration and functional options.

package udp

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-udp/api"
	"github.com/momentics/hioload-udp/pool"
)

const (
	// DefaultTransportName names transports created without WithName.
	DefaultTransportName = "UDPTransport"

	// DefaultReadBufferSize fits the largest UDP payload.
	DefaultReadBufferSize = 64 * 1024

	// DefaultUnbindTimeout bounds the wait for a listening connection to close.
	DefaultUnbindTimeout = time.Second

	// DefaultBacklog is accepted for API parity; datagram sockets have no backlog.
	DefaultBacklog = 4096

	defaultResolverCacheSize = 128
)

// Config holds transport-wide settings. Zero values are replaced by
// defaults in New.
type Config struct {
	Name string

	// ReadBufferSize sizes buffers the transport allocates for reads.
	ReadBufferSize int
	// WriteBufferSize is a hint exposed on each connection.
	WriteBufferSize int

	ReuseAddress bool
	ReusePort    bool

	// ClientSocketTimeout is applied as SO_RCVTIMEO to connected sockets,
	// ServerSocketTimeout to unconnected ones. Zero disables the timeout.
	ClientSocketTimeout time.Duration
	ServerSocketTimeout time.Duration

	// UnbindTimeout bounds Unbind's wait for the connection to close.
	UnbindTimeout time.Duration

	// SelectorRunners is the number of reactor runners; <= 0 picks a default.
	SelectorRunners int
	// RunnerCPUs pins runner i to RunnerCPUs[i%len]; empty leaves them unpinned.
	RunnerCPUs []int

	// ResolverCacheSize bounds the host lookup cache used by the connector.
	ResolverCacheSize int

	Processor     Processor
	MemoryManager api.MemoryManager
	StagingPool   *pool.StagingPool
	Configurator  ChannelConfigurator
	Logger        *logrus.Entry
}

// DefaultConfig returns the settings New starts from.
func DefaultConfig() Config {
	return Config{
		Name:              DefaultTransportName,
		ReadBufferSize:    DefaultReadBufferSize,
		WriteBufferSize:   DefaultReadBufferSize,
		ReuseAddress:      true,
		UnbindTimeout:     DefaultUnbindTimeout,
		ResolverCacheSize: defaultResolverCacheSize,
	}
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.Name == "" {
		c.Name = d.Name
	}
	if c.ReadBufferSize <= 0 {
		c.ReadBufferSize = d.ReadBufferSize
	}
	if c.WriteBufferSize <= 0 {
		c.WriteBufferSize = d.WriteBufferSize
	}
	if c.UnbindTimeout <= 0 {
		c.UnbindTimeout = d.UnbindTimeout
	}
	if c.ResolverCacheSize <= 0 {
		c.ResolverCacheSize = d.ResolverCacheSize
	}
	if c.MemoryManager == nil {
		c.MemoryManager = pool.DefaultManager()
	}
	if c.StagingPool == nil {
		c.StagingPool = pool.DefaultStagingPool()
	}
	if c.Configurator == nil {
		c.Configurator = DefaultConfigurator{}
	}
	if c.Logger == nil {
		c.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
}

// Option customizes transport construction.
type Option func(*Config)

// WithConfig replaces the whole configuration; later options still apply.
func WithConfig(cfg Config) Option {
	return func(c *Config) { *c = cfg }
}

// WithName sets the transport name used in logs.
func WithName(name string) Option {
	return func(c *Config) { c.Name = name }
}

// WithReadBufferSize sets the size of transport-allocated read buffers.
func WithReadBufferSize(n int) Option {
	return func(c *Config) { c.ReadBufferSize = n }
}

// WithWriteBufferSize sets the per-connection write size hint.
func WithWriteBufferSize(n int) Option {
	return func(c *Config) { c.WriteBufferSize = n }
}

// WithReuseAddress toggles SO_REUSEADDR.
func WithReuseAddress(on bool) Option {
	return func(c *Config) { c.ReuseAddress = on }
}

// WithReusePort toggles SO_REUSEPORT where the platform supports it.
func WithReusePort(on bool) Option {
	return func(c *Config) { c.ReusePort = on }
}

// WithSocketTimeouts sets SO_RCVTIMEO for connected and unconnected sockets.
func WithSocketTimeouts(client, server time.Duration) Option {
	return func(c *Config) {
		c.ClientSocketTimeout = client
		c.ServerSocketTimeout = server
	}
}

// WithUnbindTimeout bounds the wait performed by Unbind.
func WithUnbindTimeout(d time.Duration) Option {
	return func(c *Config) { c.UnbindTimeout = d }
}

// WithSelectorRunners sets the number of reactor runners.
func WithSelectorRunners(n int) Option {
	return func(c *Config) { c.SelectorRunners = n }
}

// WithRunnerAffinity pins selector runners to the given CPUs.
func WithRunnerAffinity(cpus ...int) Option {
	return func(c *Config) { c.RunnerCPUs = append([]int(nil), cpus...) }
}

// WithProcessor installs the handler for readable connections.
func WithProcessor(p Processor) Option {
	return func(c *Config) { c.Processor = p }
}

// WithMemoryManager replaces the buffer allocator.
func WithMemoryManager(m api.MemoryManager) Option {
	return func(c *Config) { c.MemoryManager = m }
}

// WithStagingPool replaces the staging pool used by unconnected reads.
func WithStagingPool(p *pool.StagingPool) Option {
	return func(c *Config) { c.StagingPool = p }
}

// WithChannelConfigurator replaces the socket option policy.
func WithChannelConfigurator(cc ChannelConfigurator) Option {
	return func(c *Config) { c.Configurator = cc }
}

// WithLogger sets the base log entry.
func WithLogger(l *logrus.Entry) Option {
	return func(c *Config) { c.Logger = l }
}
