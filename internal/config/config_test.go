package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yatube/yatube-backend/pkg/kv"
)

// inTempDir keeps stray .env files out of the test.
func inTempDir(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	inTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsDev())
	assert.Equal(t, ":8000", cfg.HTTPAddr)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, 10, cfg.Site.PageSize)
	assert.Equal(t, 20*time.Second, cfg.Site.IndexCacheTTL)
	assert.Equal(t, 14*24*time.Hour, cfg.Site.SessionTTL)
	assert.Equal(t, []string{"http://localhost:8000"}, cfg.Security.CORSAllowedOrigins)
	assert.Equal(t, kv.BackendMemory, cfg.KV(nil).Backend)
	assert.Equal(t, "yatube.sqlite3", cfg.DB().DSN)
}

func TestLoadFromEnv(t *testing.T) {
	inTempDir(t)
	t.Setenv("YT_ENV", "prod")
	t.Setenv("YT_DB_TYPE", "Postgres")
	t.Setenv("YT_DB_DSN", "postgres://yatube@localhost/yatube")
	t.Setenv("YT_KV_BACKEND", "redis")
	t.Setenv("YT_PAGE_SIZE", "25")
	t.Setenv("YT_INDEX_CACHE_TTL", "1m")
	t.Setenv("YT_CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProd())
	assert.Equal(t, "postgres", cfg.DB().Type)
	assert.Equal(t, 25, cfg.Site.PageSize)
	assert.Equal(t, time.Minute, cfg.Site.IndexCacheTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Security.CORSAllowedOrigins)
	assert.Equal(t, kv.BackendRedis, cfg.KV(nil).Backend)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"unknown db", "YT_DB_TYPE", "mongo"},
		{"unknown kv", "YT_KV_BACKEND", "memcached"},
		{"zero page size", "YT_PAGE_SIZE", "0"},
		{"negative page size", "YT_PAGE_SIZE", "-1"},
		{"zero cache ttl", "YT_INDEX_CACHE_TTL", "0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inTempDir(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
