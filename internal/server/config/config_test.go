package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresSharedSecret(t *testing.T) {
	t.Setenv("SERVER_CONFIG_FILE", "")
	t.Setenv("TELEMETRY_SHARED_SECRET", "")

	_, err := Load()
	assert.ErrorIs(t, err, ErrMissingSharedSecret)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SERVER_CONFIG_FILE", "")
	t.Setenv("TELEMETRY_SHARED_SECRET", "s3cret")
	t.Setenv("SERVER_LISTEN_ADDRESS", ":9090")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("SERVER_ENABLE_DEBUG_LOG", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://console.example.com, ,https://ops.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.ListenAddress)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.True(t, cfg.EnableDebugLog)
	assert.Equal(t, []string{"https://console.example.com", "https://ops.example.com"}, cfg.CORS.AllowedOrigins)
	assert.False(t, cfg.InfluxDB.Enabled())
}

func TestLoadFileThenEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen_address: ":7000"
database:
  host: db.internal
  name: fleet
crypto:
  shared_secret: from-file
influxdb:
  url: http://influx:8086
  org: ops
  bucket: fleet
`), 0o600))

	t.Setenv("SERVER_CONFIG_FILE", path)
	t.Setenv("DB_NAME", "fleet_override")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.ListenAddress)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "fleet_override", cfg.Database.Name)
	assert.Equal(t, "from-file", cfg.Crypto.SharedSecret)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.True(t, cfg.InfluxDB.Enabled())
}

func TestStringRedactsSecrets(t *testing.T) {
	cfg := Default()
	cfg.Crypto.SharedSecret = "topsecret"
	cfg.Database.Password = "hunter2"

	s := cfg.String()
	assert.NotContains(t, s, "topsecret")
	assert.NotContains(t, s, "hunter2")
	assert.Equal(t, "topsecret", cfg.Crypto.SharedSecret)
}
