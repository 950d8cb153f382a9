package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8700", cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, "tabflow.db", cfg.Storage.Path)
	assert.Equal(t, 10*time.Second, cfg.Bridge.FetchTimeout)
	assert.False(t, cfg.Bridge.MockFallback)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.RateLimit.Enabled)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9100")
	t.Setenv("STORAGE_PATH", "")
	t.Setenv("BRIDGE_FETCH_TIMEOUT", "3s")
	t.Setenv("BRIDGE_MOCK_FALLBACK", "true")
	t.Setenv("RATE_LIMIT_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Server.Port)
	assert.Empty(t, cfg.Storage.Path, "empty path selects the in-memory store")
	assert.Equal(t, 3*time.Second, cfg.Bridge.FetchTimeout)
	assert.True(t, cfg.Bridge.MockFallback)
	assert.False(t, cfg.RateLimit.Enabled)
}

func TestLoadInvalidDuration(t *testing.T) {
	t.Setenv("BRIDGE_FETCH_TIMEOUT", "not-a-duration")

	_, err := Load()
	assert.Error(t, err)
}

func TestDefaultMatchesLoad(t *testing.T) {
	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), loaded)
}
