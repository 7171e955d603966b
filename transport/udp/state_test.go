package udp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnState_Transitions(t *testing.T) {
	allowed := map[[2]ConnState]bool{
		{ConnCreated, ConnConfiguring}:     true,
		{ConnConfiguring, ConnRegistering}: true,
		{ConnRegistering, ConnReady}:       true,
		{ConnCreated, ConnClosing}:         true,
		{ConnConfiguring, ConnClosing}:     true,
		{ConnRegistering, ConnClosing}:     true,
		{ConnReady, ConnClosing}:           true,
		{ConnClosing, ConnClosed}:          true,
	}
	states := []ConnState{ConnCreated, ConnConfiguring, ConnRegistering, ConnReady, ConnClosing, ConnClosed}
	for _, from := range states {
		for _, to := range states {
			assert.Equal(t, allowed[[2]ConnState{from, to}], from.canMove(to), "%s -> %s", from, to)
		}
	}
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "started", StateStarted.String())
	assert.Equal(t, "stopping", StateStopping.String())
	assert.Equal(t, "ready", ConnReady.String())
	assert.Equal(t, "unknown", ConnState(42).String())
}
