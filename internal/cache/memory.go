package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryCache is a bounded in-process LRU. Values are stored as JSON so
// callers get the same copy semantics as the remote backends.
type MemoryCache struct {
	lru *expirable.LRU[string, []byte]
}

func NewMemory(size int, ttl time.Duration) (*MemoryCache, error) {
	if size <= 0 {
		return nil, fmt.Errorf("memory cache size must be positive, got %d", size)
	}
	return &MemoryCache{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}, nil
}

func (c *MemoryCache) Get(_ context.Context, key string, dst any) (bool, error) {
	data, ok := c.lru.Get(key)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache entry: %w", err)
	}
	return true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	c.lru.Add(key, data)
	return nil
}

func (c *MemoryCache) Len() int { return c.lru.Len() }
