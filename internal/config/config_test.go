package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.GetTokenTTL())
	assert.Equal(t, 6, cfg.Auth.MinPasswordLength)
	assert.Empty(t, cfg.Server.TrustedProxies, "forwarding headers are ignored by default")
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  port: "9000"
  allowed_origins: ["https://example.com"]
  trusted_proxies: ["10.0.0.0/8"]
database:
  type: postgres
auth:
  jwt_secret: file-secret
rate_limit:
  requests_per_minute: 50
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, []string{"https://example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, []string{"10.0.0.0/8"}, cfg.Server.TrustedProxies)
	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, "file-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, 50, cfg.RateLimit.RequestsPerMinute)
	// untouched sections keep defaults
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o600))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestApplyEnvironment_EnvWins(t *testing.T) {
	t.Setenv("PORT", "7000")
	t.Setenv("CLIENT_URL", "https://a.example, https://b.example")
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("DB_TYPE", "postgres")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DEV_MODE", "true")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.1,10.0.0.2")

	cfg := DefaultConfig()
	cfg.Auth.JWTSecret = "file-secret"
	cfg.ApplyEnvironment()

	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "env-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, 6543, cfg.Database.Postgres.Port)
	assert.True(t, cfg.Server.DevMode)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, cfg.Server.TrustedProxies)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.Validate(), "missing secret outside dev mode")

	cfg.Server.DevMode = true
	assert.NoError(t, cfg.Validate())

	cfg.Auth.JWTSecret = "s"
	cfg.Server.DevMode = false
	cfg.Database.Type = "sqlite"
	assert.Error(t, cfg.Validate())

	cfg.Database.Type = "memory"
	cfg.Storage.Enabled = true
	assert.Error(t, cfg.Validate())

	cfg.Storage.Bucket = "images"
	assert.NoError(t, cfg.Validate())

	cfg.Server.TrustedProxies = []string{"10.0.0.0/8", "192.168.1.10"}
	assert.NoError(t, cfg.Validate())
	cfg.Server.TrustedProxies = []string{"lb.internal"}
	assert.Error(t, cfg.Validate())
}
