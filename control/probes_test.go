package control_test

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/momentics/hioload-udp/control"
)

func TestProbes_Snapshot(t *testing.T) {
	p := control.NewProbes()
	assert.True(t, p.LastSampled().IsZero())

	var n atomic.Int64
	p.Register("counter", func() any { return n.Add(1) })
	p.Register("name", func() any { return "udp" })

	snap := p.Snapshot()
	assert.Equal(t, int64(1), snap["counter"])
	assert.Equal(t, "udp", snap["name"])
	assert.False(t, p.LastSampled().IsZero())
	assert.Equal(t, []string{"counter", "name"}, p.Names())

	p.Unregister("name")
	snap = p.Snapshot()
	assert.Equal(t, int64(2), snap["counter"])
	assert.NotContains(t, snap, "name")
}

func TestProbes_ReentrantProbe(t *testing.T) {
	p := control.NewProbes()
	p.Register("names", func() any { return len(p.Names()) })
	assert.Equal(t, 1, p.Snapshot()["names"])
}
