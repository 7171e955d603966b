// File: transport/udp/configurator.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Socket option policy applied before and after a channel's mode is known.

package udp

import (
	"fmt"
)

// ChannelConfigurator prepares raw channels. Warnings report options that
// could not be applied; they never fail channel setup. A non-nil error is
// fatal for the channel.
type ChannelConfigurator interface {
	// PreConfigure runs before bind/connect.
	PreConfigure(cfg *Config, ch *Channel) (warnings []error, err error)
	// PostConfigure runs once the channel's connected state is final.
	PostConfigure(cfg *Config, ch *Channel) (warnings []error, err error)
}

// DefaultConfigurator sets non-blocking mode, address/port reuse and the
// receive timeout.
type DefaultConfigurator struct{}

// PreConfigure switches the channel to non-blocking mode and applies
// SO_REUSEADDR, plus SO_REUSEPORT when the platform offers it.
func (DefaultConfigurator) PreConfigure(cfg *Config, ch *Channel) ([]error, error) {
	if err := ch.setNonblock(true); err != nil {
		return nil, fmt.Errorf("set non-blocking: %w", err)
	}
	var warnings []error
	if err := ch.SetReuseAddress(cfg.ReuseAddress); err != nil {
		warnings = append(warnings, fmt.Errorf("set SO_REUSEADDR=%t: %w", cfg.ReuseAddress, err))
	}
	if ReusePortAvailable() {
		if err := ch.SetReusePort(cfg.ReusePort); err != nil {
			warnings = append(warnings, fmt.Errorf("set SO_REUSEPORT=%t: %w", cfg.ReusePort, err))
		}
	}
	return warnings, nil
}

// PostConfigure applies the client timeout to connected channels and the
// server timeout to the rest.
func (DefaultConfigurator) PostConfigure(cfg *Config, ch *Channel) ([]error, error) {
	timeout := cfg.ServerSocketTimeout
	if ch.IsConnected() {
		timeout = cfg.ClientSocketTimeout
	}
	if err := ch.SetReadTimeout(timeout); err != nil {
		return []error{fmt.Errorf("set SO_RCVTIMEO=%v: %w", timeout, err)}, nil
	}
	return nil, nil
}

var _ ChannelConfigurator = DefaultConfigurator{}
