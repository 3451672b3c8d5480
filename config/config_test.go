package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 33*time.Millisecond, cfg.BroadcastInterval)
	assert.Equal(t, 3*time.Second, cfg.ReconnectDelay)
	assert.Equal(t, 64, cfg.SendQueueSize)
	assert.Equal(t, int64(1<<20), cfg.ReadLimit)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("RELAY_BROADCASTINTERVALMS", "50")
	t.Setenv("RELAY_LISTENADDR", ":9090")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 50*time.Millisecond, cfg.BroadcastInterval)
	assert.Equal(t, ":9090", cfg.ListenAddr)
}
