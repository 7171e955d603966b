package pool_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/momentics/hioload-udp/pool"
)

func TestMemoryManager_SizeClasses(t *testing.T) {
	mm := pool.NewMemoryManager()
	tests := []struct {
		ask, want int
	}{
		{0, 512},
		{1, 512},
		{512, 512},
		{513, 1024},
		{1500, 2048},
		{65536, 65536},
		{70000, 70000},
	}
	for _, tt := range tests {
		b := mm.AllocateAtLeast(tt.ask)
		assert.Equal(t, tt.want, b.Capacity(), "ask %d", tt.ask)
		assert.Equal(t, b.Capacity(), b.Limit())
		b.Dispose()
	}
	assert.Zero(t, mm.Stats().InUse)
}

func TestMemoryManager_StatsAndReuse(t *testing.T) {
	mm := pool.NewMemoryManager()
	b := mm.AllocateAtLeast(1000)
	b.Put([]byte("dirty"))
	b.AllowDispose(true)
	assert.Equal(t, int64(1), mm.Stats().InUse)

	b.Dispose()
	b.Dispose()
	stats := mm.Stats()
	assert.Equal(t, int64(1), stats.TotalAlloc)
	assert.Equal(t, int64(1), stats.TotalFree, "double dispose releases once")

	again := mm.AllocateAtLeast(1000)
	assert.Zero(t, again.Position(), "recycled buffers come back cleared")
	assert.False(t, again.IsDisposable())
	again.Dispose()
}

func TestDefaultManager_Shared(t *testing.T) {
	assert.Same(t, pool.DefaultManager(), pool.DefaultManager())
}
