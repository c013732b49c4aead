package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerIsNeverNil(t *testing.T) {
	// Package init installs a no-op logger so calls before Initialize are safe
	require.NotNil(t, Logger)
	assert.NotPanics(t, func() {
		Infow("pre-init message", FieldComponent, "test")
		Warnf("pre-init %s", "warning")
	})
}

func TestInitializeJSON(t *testing.T) {
	err := Initialize(true)
	require.NoError(t, err)
	assert.True(t, JSONOutput)
	assert.NotNil(t, Logger)

	assert.NotPanics(t, func() {
		Infow("structured message",
			FieldRequestID, "req-1",
			FieldOutputCount, 4,
		)
	})
}

func TestInitializeConsole(t *testing.T) {
	err := Initialize(false)
	require.NoError(t, err)
	assert.False(t, JSONOutput)
	assert.NotPanics(t, func() {
		Debugw("console message", FieldStage, "compiling")
	})
}

func TestResolveLevel(t *testing.T) {
	t.Setenv("ZX_LOG_LEVEL", "debug")
	assert.Equal(t, "debug", resolveLevel().String())

	t.Setenv("ZX_LOG_LEVEL", "warn")
	assert.Equal(t, "warn", resolveLevel().String())

	t.Setenv("ZX_LOG_LEVEL", "")
	assert.Equal(t, "info", resolveLevel().String())
}
