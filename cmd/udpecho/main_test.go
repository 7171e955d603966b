package main

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessGlobalFlags(t *testing.T) {
	prev := logrus.GetLevel()
	t.Cleanup(func() { logrus.SetLevel(prev) })

	app := newApp()
	require.NoError(t, app.PersistentFlags().Set("debug", "true"))
	require.NoError(t, processGlobalFlags(app))
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())

	require.NoError(t, app.PersistentFlags().Set("log-level", "warn"))
	require.NoError(t, processGlobalFlags(app))
	assert.Equal(t, logrus.WarnLevel, logrus.GetLevel(), "log-level overrides debug")

	require.NoError(t, app.PersistentFlags().Set("log-format", "xml"))
	assert.Error(t, processGlobalFlags(app))
}

func TestSendCommand_RequiresTarget(t *testing.T) {
	app := newApp()
	app.SetArgs([]string{"send", "127.0.0.1:9000"})
	assert.Error(t, app.Execute())
}
