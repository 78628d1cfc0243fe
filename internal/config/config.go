package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	CacheFile   = "file"
	CacheRedis  = "redis"
	CacheMemory = "memory"
)

type Config struct {
	Port    string
	DataDir string

	CacheBackend    string
	CachePath       string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	CacheTTL        time.Duration
	MemoryCacheSize int

	LLMGatewayURL string
	LLMAPIKey     string
	LLMModel      string
	UseMockLLM    bool
	Workers       int

	AppStoreBaseURL string
	AppStoreCountry string
	FetchDays       int
	MaxPages        int

	HTTPTimeout  time.Duration
	MaxRetryTime time.Duration
}

// Load reads .env (if any) and then the process environment.
func Load() Config {
	_ = godotenv.Load() // loads .env
	return FromEnv()
}

func FromEnv() Config {
	dataDir := envOr("DATA_DIR", "data")
	return Config{
		Port:    envOr("PORT", "8080"),
		DataDir: dataDir,

		CacheBackend:    strings.ToLower(envOr("CACHE_BACKEND", CacheFile)),
		CachePath:       envOr("CACHE_PATH", dataDir+"/cache.json"),
		RedisAddr:       envOr("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		RedisDB:         envInt("REDIS_DB", 0),
		CacheTTL:        envDuration("CACHE_TTL", 24*time.Hour),
		MemoryCacheSize: envInt("MEMORY_CACHE_SIZE", 4096),

		LLMGatewayURL: os.Getenv("LLM_GATEWAY_URL"),
		LLMAPIKey:     os.Getenv("LLM_API_KEY"),
		LLMModel:      envOr("LLM_MODEL", "gpt-4o-mini"),
		UseMockLLM:    os.Getenv("USE_MOCK_LLM") == "true",
		Workers:       envInt("ANALYZE_WORKERS", 4),

		AppStoreBaseURL: envOr("APPSTORE_BASE_URL", "https://itunes.apple.com"),
		AppStoreCountry: envOr("APPSTORE_COUNTRY", "us"),
		FetchDays:       envInt("FETCH_DAYS", 90),
		MaxPages:        envInt("MAX_PAGES", 10),

		HTTPTimeout:  envDuration("HTTP_TIMEOUT", 25*time.Second),
		MaxRetryTime: envDuration("MAX_RETRY_TIME", 45*time.Second),
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	v, err := strconv.Atoi(os.Getenv(k))
	if err != nil {
		return def
	}
	return v
}

// envDuration accepts Go durations ("30s") or a bare number of seconds.
func envDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return def
}
