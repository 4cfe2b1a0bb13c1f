package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "stdio", cfg.Server.Transport)
	assert.True(t, cfg.Browser.Headless)
	assert.True(t, cfg.Recording.Enabled)
	assert.Equal(t, 100*time.Millisecond, cfg.Replay.Delay)
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxInstances, cfg.Pool.MaxInstances)
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  transport: http
  http_addr: 127.0.0.1:9000
pool:
  max_instances: 5
recording:
  enabled: true
  auto_save: false
  sessions_dir: /tmp/sessions
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http", cfg.Server.Transport)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.HTTPAddr)
	assert.Equal(t, 5, cfg.Pool.MaxInstances)
	assert.False(t, cfg.Recording.AutoSave)
	// Untouched sections keep their defaults.
	assert.Equal(t, 1280, cfg.Browser.ViewportWidth)
	assert.Equal(t, DefaultInstanceTimeout, cfg.Pool.InstanceTimeout)
}

func TestLoadRejectsBadConfig(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("server:\n  transport: carrier-pigeon\n"), 0o644))
	_, err := Load(bad)
	assert.ErrorContains(t, err, "carrier-pigeon")

	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("server: [not a map"), 0o644))
	_, err = Load(broken)
	assert.Error(t, err)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BROWSER_MCP_TRANSPORT", "http")
	t.Setenv("BROWSER_MCP_HTTP_ADDR", "127.0.0.1:8123")
	t.Setenv("BROWSER_MCP_HEADLESS", "false")
	t.Setenv("BROWSER_MCP_RECORDING", "false")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http", cfg.Server.Transport)
	assert.Equal(t, "127.0.0.1:8123", cfg.Server.HTTPAddr)
	assert.False(t, cfg.Browser.Headless)
	assert.False(t, cfg.Recording.Enabled)
}

func TestValidateCatchesBadValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Pool.MaxInstances = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Browser.ViewportWidth = -1
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Recording.SessionsDir = ""
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Replay.Delay = -time.Second
	assert.Error(t, cfg.Validate())
}
