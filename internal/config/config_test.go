package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.DataDir = filepath.Join(dir, "books")
	cfg.DefaultCompany = "PT1"
	cfg.Server.StaticDir = "/srv/bukubesar"
	cfg.Session.TTL = 2 * time.Hour

	path := filepath.Join(dir, FileName)
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr)
	assert.Equal(t, 12*time.Hour, cfg.Session.TTL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte("data_dir: ledger\nsession:\n  ttl: 30m\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "ledger"), cfg.DataDir)
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.Equal(t, 10*time.Minute, cfg.Session.PurgeInterval)
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr)
	assert.Equal(t, filepath.Join(dir, "ledger", "ledger.db"), cfg.DBPath())
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)

	dir := t.TempDir()
	cfg, err := LoadOrDefault(filepath.Join(dir, FileName))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "data"), cfg.DataDir)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "parsing config")
}

func TestApplyEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("BUKUBESAR_ADDR=0.0.0.0:9000\nBUKUBESAR_SESSION_TTL=45m\n"), 0o644))

	t.Setenv(EnvLogLevel, "debug")
	// godotenv.Load sets variables in the process; make sure they are undone.
	t.Setenv(EnvAddr, "")
	t.Setenv(EnvSessionTTL, "")
	require.NoError(t, os.Unsetenv(EnvAddr))
	require.NoError(t, os.Unsetenv(EnvSessionTTL))

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(envFile))
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr)
	assert.Equal(t, 45*time.Minute, cfg.Session.TTL)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestApplyEnvMissingFileIgnored(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(filepath.Join(t.TempDir(), ".env")))
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr)
}

func TestApplyEnvBadDuration(t *testing.T) {
	t.Setenv(EnvSessionTTL, "forever")
	cfg := Default()
	assert.Error(t, cfg.ApplyEnv(""))
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "loud"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Session.TTL = 0
	assert.Error(t, cfg.Validate())
}
