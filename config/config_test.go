package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAndEnvOverrides(t *testing.T) {
	t.Setenv("TRIP_JWT_SECRET_KEY", "test-secret")
	t.Setenv("TRIP_RATE_LIMIT_LOGIN", "3")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "test-secret", cfg.JWT.SecretKey)
	assert.Equal(t, 3, cfg.RateLimit.Login)
	assert.Equal(t, 20, cfg.RateLimit.Register)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTTL)
	assert.Equal(t, "/api/v1/auth", cfg.Auth.CookiePath)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_ReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`
server:
  port: "9090"
  env: production
jwt:
  secret_key: from-file
  access_ttl: 5m
auth:
  bcrypt_cost: 13
app:
  timezone: Asia/Tokyo
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), content, 0o600))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, 5*time.Minute, cfg.JWT.AccessTTL)
	assert.Equal(t, 13, cfg.Auth.BcryptCost)
	assert.Equal(t, "Asia/Tokyo", cfg.Location().String())
}

func TestValidate(t *testing.T) {
	base := func() Config {
		var c Config
		c.Server.Env = EnvProduction
		c.JWT.SecretKey = "secret"
		c.JWT.AccessTTL = time.Minute
		c.Auth.RefreshTTL = time.Hour
		c.Auth.BcryptCost = 12
		c.RateLimit.Window = time.Minute
		return c
	}

	t.Run("valid", func(t *testing.T) {
		c := base()
		assert.NoError(t, c.Validate())
	})

	t.Run("missing secret", func(t *testing.T) {
		c := base()
		c.JWT.SecretKey = ""
		assert.Error(t, c.Validate())
	})

	t.Run("weak bcrypt cost in production", func(t *testing.T) {
		c := base()
		c.Auth.BcryptCost = 4
		assert.Error(t, c.Validate())
	})

	t.Run("weak bcrypt cost allowed in development", func(t *testing.T) {
		c := base()
		c.Server.Env = EnvDevelopment
		c.Auth.BcryptCost = 4
		assert.NoError(t, c.Validate())
	})
}
