package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
  format: json
state:
  lease_duration: 30s
  grace_period: 45s
  max_slots: 16
store:
  enabled: true
  path: /tmp/nfs4state-test
api:
  enabled: true
  port: 9999
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.Equal(t, 30*time.Second, cfg.State.LeaseDuration)
	assert.Equal(t, 45*time.Second, cfg.State.GracePeriod)
	assert.Equal(t, uint32(16), cfg.State.MaxSlots)
	assert.Equal(t, 5000, cfg.State.SessionCacheSize)
	assert.Equal(t, 2, cfg.State.SessionCacheTTLFactor)
	assert.Equal(t, 30*time.Second/4, cfg.State.ReaperInterval)
	assert.True(t, cfg.Store.Enabled)
	assert.Equal(t, 9999, cfg.API.Port)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), cfg)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: info\n")
	t.Setenv("NFS4STATE_LOGGING_LEVEL", "warn")
	t.Setenv("NFS4STATE_STATE_LEASE_DURATION", "20s")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "WARN", cfg.Logging.Level)
	assert.Equal(t, 20*time.Second, cfg.State.LeaseDuration)
}

func TestLoad_Invalid(t *testing.T) {
	path := writeConfig(t, "state:\n  max_slots: 1000\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MaxSlots")
}

func TestMustLoad_MissingFile(t *testing.T) {
	_, err := MustLoad(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nfs4state init")
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := GetDefaultConfig()
	cfg.State.LeaseDuration = 2 * time.Minute
	cfg.State.ReaperInterval = 30 * time.Second

	require.NoError(t, SaveConfig(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad log level", func(c *Config) { c.Logging.Level = "LOUD" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"sample rate", func(c *Config) { c.Telemetry.SampleRate = 2 }},
		{"short lease", func(c *Config) { c.State.LeaseDuration = time.Millisecond }},
		{"api port", func(c *Config) { c.API.Port = 70000 }},
		{"store path", func(c *Config) { c.Store.Enabled = true; c.Store.Path = "" }},
		{"reaper slower than lease", func(c *Config) { c.State.ReaperInterval = time.Hour }},
	}

	require.NoError(t, Validate(GetDefaultConfig()))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: info\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, path, func(c *Config) { changes <- c }) }()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0600))

	select {
	case cfg := <-changes:
		assert.Equal(t, "DEBUG", cfg.Logging.Level)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after config write")
	}

	cancel()
	assert.NoError(t, <-done)
}
