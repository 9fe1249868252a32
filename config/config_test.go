package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaultsWithNoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:50051", cfg.GRPC.BindAddress)
	require.Equal(t, 4*1024*1024, cfg.GRPC.MaxMessageSize)
	require.Equal(t, "redis://localhost:6379", cfg.Redis.URL)
	require.Equal(t, 365, cfg.Certificate.DefaultValidityDays)
	require.Equal(t, 30, cfg.Watcher.RenewalThresholdDays)
	require.False(t, cfg.GRPC.TLS.Enabled)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
grpc:
  bind_address: "127.0.0.1:9000"
certificate:
  default_validity_days: 180
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9000", cfg.GRPC.BindAddress)
	require.Equal(t, 180, cfg.Certificate.DefaultValidityDays)
	// Untouched sections still carry their defaults.
	require.Equal(t, "redis://localhost:6379", cfg.Redis.URL)
}

func TestLoadEnvOverridesFileAndDefaults(t *testing.T) {
	t.Setenv("CERT_AGENT_REDIS_URL", "redis://redis.internal:6380")
	t.Setenv("CERT_AGENT_WATCHER_MAX_CONCURRENT_RENEWALS", "25")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
redis:
  url: "redis://from-file:6379"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "redis://redis.internal:6380", cfg.Redis.URL)
	require.Equal(t, 25, cfg.Watcher.MaxConcurrentRenewals)
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
}
