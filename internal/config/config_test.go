package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "./data", cfg.DataDir)
	assert.True(t, cfg.Crawl.Headless)
	assert.Equal(t, 2*time.Second, cfg.Crawl.IdleThreshold.Std())
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 8387, cfg.Serve.Port)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_dir: /var/lib/xmarkd
crawl:
  headless: false
  idle_threshold: 5s
logging:
  level: debug
serve:
  port: 9000
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/xmarkd", cfg.DataDir)
	assert.False(t, cfg.Crawl.Headless)
	assert.Equal(t, 5*time.Second, cfg.Crawl.IdleThreshold.Std())
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 9000, cfg.Serve.Port)
	// Untouched keys keep their defaults.
	assert.Equal(t, 10*time.Second, cfg.Enrich.Timeout.Std())
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: [unclosed"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("XMARKD_DATA_DIR", "/tmp/override")
	t.Setenv("XMARKD_LOG_LEVEL", "warn")
	t.Setenv("XMARKD_CHROME_PATH", "/usr/bin/chromium")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/override", cfg.DataDir)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "/usr/bin/chromium", cfg.Crawl.ChromePath)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = ""
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Serve.Port = 70000
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Logging.Level = "verbose"
	assert.Error(t, cfg.Validate())
}

func TestPaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = "/srv/xmarkd"
	assert.Equal(t, filepath.Join("/srv/xmarkd", "bookmarks.db"), cfg.DBPath())
	assert.Equal(t, filepath.Join("/srv/xmarkd", "session", "state.json"), cfg.SessionPath())
}
