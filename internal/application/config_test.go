package application

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  dsn: "postgres://localhost/bhavcopy"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 10, cfg.Database.MaxOpenConns)
	assert.Equal(t, 30*time.Second, cfg.Database.QueryTimeout)
	assert.Equal(t, 5.0, cfg.Thresholds.SqueezeMaxWidthPct)
	assert.Equal(t, 1.5, cfg.Thresholds.VolumeSpikeHigh)
	assert.Equal(t, "Asia/Kolkata", cfg.Scheduler.Timezone)
	assert.Equal(t, "127.0.0.1", cfg.Monitor.Host)
	assert.Equal(t, 15*time.Minute, cfg.Redis.TTL)
}

func TestLoadConfig_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
database:
  dsn: "postgres://localhost/bhavcopy"
  max_open_conns: 25
thresholds:
  strong_trend_adx: 30.0
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, 30.0, cfg.Thresholds.StrongTrendADX)
	// Untouched defaults survive partial overrides.
	assert.Equal(t, 2.5, cfg.Thresholds.VolumeSpikeUnusual)
}

func TestLoadConfig_RejectsMissingDSN(t *testing.T) {
	path := writeConfig(t, `
log:
  level: info
`)

	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestLoadConfig_RejectsBadLogLevel(t *testing.T) {
	path := writeConfig(t, `
log:
  level: loud
database:
  dsn: "postgres://localhost/bhavcopy"
`)

	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
