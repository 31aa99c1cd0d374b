package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_MissingDefaultFileUsesDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv(EnvBaseURL, "")
	t.Setenv(EnvLanguage, "")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoad_MissingExplicitFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
base_url: http://example.test:9000/
search_limit: 50
recent_days: 0
language: en
event_log: /tmp/pulse.db
redis:
  enabled: true
  addr: redis:6379
`), 0o644))
	t.Setenv(EnvBaseURL, "")
	t.Setenv(EnvLanguage, "fr")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "http://example.test:9000", cfg.BaseURL)
	require.Equal(t, 50, cfg.SearchLimit)
	require.Equal(t, 64, cfg.RecentLimit)
	require.Equal(t, 7, cfg.RecentDays)
	require.Equal(t, "fr", cfg.Language)
	require.Equal(t, "/tmp/pulse.db", cfg.EventLog)
	require.True(t, cfg.Redis.Enabled)
	require.Equal(t, "redis:6379", cfg.Redis.Addr)
	require.Equal(t, "pulse-watch", cfg.Redis.Group)

	t.Setenv(EnvBaseURL, "https://pulse.example")
	cfg, err = Load(path)
	require.NoError(t, err)
	require.Equal(t, "https://pulse.example", cfg.BaseURL)
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("base_url: [unclosed"), 0o644))
	_, err := Load(bad)
	require.Error(t, err)

	ftp := filepath.Join(dir, "ftp.yaml")
	require.NoError(t, os.WriteFile(ftp, []byte("base_url: ftp://x"), 0o644))
	t.Setenv(EnvBaseURL, "")
	_, err = Load(ftp)
	require.ErrorContains(t, err, "must be http(s)")
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Language = "en"
	require.NoError(t, Save(path, cfg))

	t.Setenv(EnvBaseURL, "")
	t.Setenv(EnvLanguage, "")
	got, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, got)
}
