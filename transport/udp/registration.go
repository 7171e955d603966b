// File: transport/udp/registration.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Bridge between selector registration completion and connections.

package udp

import (
	"github.com/momentics/hioload-udp/reactor"
)

// onRegistered attaches a completed registration to its connection. If
// the connection was removed or started closing meanwhile, the result is
// dropped and the orphaned key is cancelled; the channel is released by
// the connection's own close path.
func (t *Transport) onRegistered(res reactor.RegistrationResult, err error) {
	if err != nil {
		t.log.WithError(err).Debug("channel registration failed")
		return
	}
	if res.Key == nil {
		return
	}
	c, ok := t.registry.get(res.Key.Handle())
	if ok && c.attach(res.Key, res.Runner) {
		// Writes queued before the key existed need write readiness now.
		if t.writer.Pending(c) > 0 {
			t.syncWriteInterest(c)
		}
		return
	}
	if sel := t.selector.Load(); sel != nil {
		_ = sel.Deregister(res.Key)
	}
}
