// Package cache stores JSON values behind a narrow get/set interface. The
// classification and memo fingerprints live here so every backend agrees on
// keys.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"review-insights-go/internal/config"
	"review-insights-go/internal/types"
)

const (
	reviewPrefix = "review:"
	memoPrefix   = "memo:"
)

// Cache is the capability handed to the processor and pipeline. A miss is
// (false, nil); errors are reserved for backend failures.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any) error
}

// ReviewKey fingerprints the fields that decide a classification.
func ReviewKey(r types.Review) string {
	return reviewPrefix + digest(r.Text+"|"+strconv.Itoa(r.Rating)+"|"+r.Version)
}

// MemoKey fingerprints a whole analyzed set, in order. Every field a report
// reads is part of it.
func MemoKey(reviews []types.AnalyzedReview) string {
	parts := make([]string, len(reviews))
	for i, r := range reviews {
		parts[i] = fmt.Sprintf("%s|%s|%d|%s|%s|%s|%s",
			r.Text, r.Title, r.Rating, r.Date, r.Version, r.Intent, strings.Join(r.Issues, ","))
	}
	return memoPrefix + digest(strings.Join(parts, "||"))
}

func digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// New picks the backend named in cfg.
func New(ctx context.Context, cfg config.Config) (Cache, error) {
	switch cfg.CacheBackend {
	case config.CacheRedis:
		return NewRedis(ctx, RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.CacheTTL,
		})
	case config.CacheMemory:
		return NewMemory(cfg.MemoryCacheSize, cfg.CacheTTL)
	case config.CacheFile, "":
		return NewFile(cfg.CachePath, cfg.CacheTTL)
	}
	return nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
}
