package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bluescreen10/shopx/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "BACKEND_URL", "STORE_DRIVER", "STORE_DSN", "REDIS_URL", "COOKIE_SECURE", "CLIENT_QUOTA", "CLIENT_LIFETIME", "LOG_ENV"} {
		t.Setenv(key, "")
	}

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "http://localhost:8080/api", cfg.BackendURL)
	assert.Equal(t, config.DriverMemory, cfg.StoreDriver)
	assert.Equal(t, 5<<20, cfg.ClientQuota)
	assert.Equal(t, 30*24*time.Hour, cfg.Lifetime)
	assert.False(t, cfg.CookieSecure)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("STORE_DRIVER", "Redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("CLIENT_QUOTA", "1024")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, config.DriverRedis, cfg.StoreDriver)
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, 1024, cfg.ClientQuota)
}

func TestDotEnvFile(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("STORE_DSN", "")
	os.Unsetenv("STORE_DRIVER")
	os.Unsetenv("STORE_DSN")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("STORE_DRIVER=sqlite\nSTORE_DSN=file:shop.db\n"), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, config.DriverSQLite, cfg.StoreDriver)
	assert.Equal(t, "file:shop.db", cfg.StoreDSN)
}

func TestInvalid(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("STORE_DSN", "")

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)

	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("CLIENT_QUOTA", "lots")

	_, err = config.Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}
