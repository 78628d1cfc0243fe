package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"review-insights-go/internal/logger"
)

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
	Prefix   string
}

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
	log    *logger.Logger
}

// NewRedis connects and pings once so a bad address fails at startup.
func NewRedis(ctx context.Context, opts RedisOptions) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "review-insights:"
	}
	log := logger.New().Component("cache-redis")
	log.WithField("addr", opts.Addr).Info("redis cache initialized")
	return &RedisCache{client: client, ttl: opts.TTL, prefix: prefix, log: log}, nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get cache entry: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache entry: %w", err)
	}
	c.log.WithField("key", key).Debug("cache hit")
	return true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache entry: %w", err)
	}
	return nil
}
