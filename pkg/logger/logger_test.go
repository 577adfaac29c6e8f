package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	log, err := New(nil)
	require.NoError(t, err)
	require.NotNil(t, log)

	log.Info().Msg("default config logs without error")
}

func TestNewInvalidLevel(t *testing.T) {
	_, err := New(&Config{Level: "chatty"})
	assert.Error(t, err)
}

func TestWithComponent(t *testing.T) {
	log, err := New(&Config{Level: "debug", Output: "stderr"})
	require.NoError(t, err)

	component := log.WithComponent("session")
	require.NotNil(t, component)

	component.Debug().Msg("component logger works")
}

func TestNewTestLoggerDiscards(t *testing.T) {
	log := NewTestLogger()
	require.NotNil(t, log)

	// Must not panic even at fatal level since the logger is disabled.
	log.Error().Msg("discarded")
}
