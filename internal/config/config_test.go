package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "DATA_DIR", "CACHE_BACKEND", "CACHE_PATH", "CACHE_TTL", "USE_MOCK_LLM", "FETCH_DAYS"} {
		t.Setenv(k, "")
	}
	cfg := FromEnv()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, CacheFile, cfg.CacheBackend)
	assert.Equal(t, "data/cache.json", cfg.CachePath)
	assert.Equal(t, 24*time.Hour, cfg.CacheTTL)
	assert.False(t, cfg.UseMockLLM)
	assert.Equal(t, 90, cfg.FetchDays)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("CACHE_BACKEND", "Redis")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("CACHE_TTL", "90")
	t.Setenv("HTTP_TIMEOUT", "5s")
	t.Setenv("USE_MOCK_LLM", "true")
	t.Setenv("MAX_PAGES", "nope")

	cfg := FromEnv()
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, CacheRedis, cfg.CacheBackend)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, 90*time.Second, cfg.CacheTTL)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	assert.True(t, cfg.UseMockLLM)
	assert.Equal(t, 10, cfg.MaxPages, "bad ints fall back to the default")
}
