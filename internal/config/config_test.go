package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("Should apply defaults", func(t *testing.T) {
		t.Setenv("APP_ENV", "")
		t.Setenv("AUTH_JWT_ALGORITHM", "")
		t.Setenv("AUTH_ACCESS_TOKEN_TTL_MINUTES", "")
		t.Setenv("APP_API_PREFIX", "")
		t.Setenv("APP_CORS_ORIGINS", "")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "HS256", cfg.Auth.JWTAlgorithm)
		assert.Equal(t, 30*time.Minute, cfg.Auth.AccessTokenTTL())
		assert.Equal(t, "/api/v1", cfg.App.APIPrefix)
		assert.Equal(t, []string{"http://localhost:5173"}, cfg.App.CORSOrigins)
		assert.Equal(t, uint32(64*1024), cfg.Auth.Argon2.MemoryKB)
	})

	t.Run("Should read overrides", func(t *testing.T) {
		t.Setenv("AUTH_JWT_ALGORITHM", "hs512")
		t.Setenv("AUTH_ACCESS_TOKEN_TTL_MINUTES", "5")
		t.Setenv("APP_API_PREFIX", "/v2/")
		t.Setenv("APP_CORS_ORIGINS", "https://a.example, https://b.example")
		t.Setenv("POSTGRES_MAX_CONNS", "not-a-number")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "HS512", cfg.Auth.JWTAlgorithm)
		assert.Equal(t, 5*time.Minute, cfg.Auth.AccessTokenTTL())
		assert.Equal(t, "/v2", cfg.App.APIPrefix)
		assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.App.CORSOrigins)
		assert.Equal(t, int32(10), cfg.Postgres.MaxConns)
	})

	t.Run("Should reject unknown algorithm", func(t *testing.T) {
		t.Setenv("AUTH_JWT_ALGORITHM", "none")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("Should require a secret in production", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		t.Setenv("AUTH_JWT_SECRET", "")
		t.Setenv("AUTH_JWT_ALGORITHM", "")
		_, err := Load()
		assert.Error(t, err)

		t.Setenv("AUTH_JWT_SECRET", "a-long-production-secret")
		_, err = Load()
		assert.NoError(t, err)
	})

	t.Run("Should fail on malformed redis db", func(t *testing.T) {
		t.Setenv("REDIS_DB", "x")
		_, err := Load()
		assert.Error(t, err)
	})
}
