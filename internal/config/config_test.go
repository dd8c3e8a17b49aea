package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadStorefront_Defaults(t *testing.T) {
	t.Setenv("BACKEND_URL", "")
	t.Setenv("QUERY_RETRY", "")

	cfg := LoadStorefront()

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "http://localhost:8080/api", cfg.BackendURL)
	assert.Equal(t, 5*time.Minute, cfg.TokenValidateTTL)
	assert.Equal(t, 1, cfg.QueryRetry)
	assert.Equal(t, "redis", cfg.SessionStorage)
	assert.Equal(t, 30*24*time.Hour, cfg.SessionTTL)
}

func TestLoadStorefront_Overrides(t *testing.T) {
	t.Setenv("BACKEND_URL", "http://backend:9000/api/")
	t.Setenv("SESSION_STORAGE", "MEMORY")
	t.Setenv("TOKEN_VALIDATE_TTL", "90s")
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("QUERY_RETRY", "not-a-number")

	cfg := LoadStorefront()

	assert.Equal(t, "http://backend:9000/api", cfg.BackendURL)
	assert.Equal(t, "memory", cfg.SessionStorage)
	assert.Equal(t, 90*time.Second, cfg.TokenValidateTTL)
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, 1, cfg.QueryRetry)
}

func TestLoadBackend_Defaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "SQLite")

	cfg := LoadBackend()

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("STOREFRONT_PORT=4123\n"), 0o600))
	t.Setenv("STOREFRONT_PORT", "")
	require.NoError(t, os.Unsetenv("STOREFRONT_PORT"))

	LoadDotEnv(path, filepath.Join(dir, "missing.env"))

	assert.Equal(t, "4123", LoadStorefront().Port)
}
