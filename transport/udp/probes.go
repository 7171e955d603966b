// File: transport/udp/probes.go
// Author: momentics <momentics@gmail.com>
//
// Runtime probes exported by the transport.

package udp

import "github.com/momentics/hioload-udp/control"

func (t *Transport) registerProbes() {
	p := t.probes
	p.Register("state", func() any { return t.State().String() })
	p.Register("listening", func() any { return len(t.ListeningConnections()) })
	p.Register("connections", func() any { return t.registry.len() })
	p.Register("staging.outstanding", func() any { return t.staging.Stats().Outstanding() })
	p.Register("memory.in_use", func() any { return t.memory.Stats().InUse })
	p.Register("traffic", func() any {
		var total ConnStats
		pending := 0
		for _, c := range t.registry.snapshot() {
			s := c.Stats()
			total.BytesRead += s.BytesRead
			total.DatagramsRead += s.DatagramsRead
			total.BytesWritten += s.BytesWritten
			total.DatagramsWritten += s.DatagramsWritten
			pending += t.writer.Pending(c)
		}
		return map[string]int64{
			"bytes_read":        total.BytesRead,
			"datagrams_read":    total.DatagramsRead,
			"bytes_written":     total.BytesWritten,
			"datagrams_written": total.DatagramsWritten,
			"writes_pending":    int64(pending),
		}
	})
}

// Probes returns the transport's probe registry; callers may add their own.
func (t *Transport) Probes() *control.Probes { return t.probes }

// Snapshot samples every registered probe.
func (t *Transport) Snapshot() map[string]any { return t.probes.Snapshot() }
