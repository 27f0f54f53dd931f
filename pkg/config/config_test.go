package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenNoDotenvOrEnv(t *testing.T) {
	cfg, err := Load("/nonexistent/path/to/.env")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("TICKTRACK_SOCKET_PREFIX", "/tmp/custom")
	t.Setenv("TICKTRACK_TICK_INTERVAL_MS", "10")

	cfg, err := Load("/nonexistent/path/to/.env")
	require.NoError(t, err)
	require.Equal(t, "/tmp/custom", cfg.SocketPrefix)
	require.Equal(t, 10*time.Millisecond, cfg.TickInterval)
}

func TestLoadRejectsInvalidTickInterval(t *testing.T) {
	t.Setenv("TICKTRACK_TICK_INTERVAL_MS", "notanumber")
	_, err := Load("/nonexistent/path/to/.env")
	require.Error(t, err)
}
