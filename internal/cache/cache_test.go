package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"review-insights-go/internal/config"
	"review-insights-go/internal/types"
)

type payload struct {
	Intent string   `json:"intent"`
	Issues []string `json:"issues"`
}

func exerciseCache(t *testing.T, c Cache) {
	t.Helper()
	ctx := context.Background()

	var got payload
	ok, err := c.Get(ctx, "missing", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	want := payload{Intent: "complaint", Issues: []string{"crash"}}
	require.NoError(t, c.Set(ctx, "k", want))

	ok, err = c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)
}

func TestReviewKey(t *testing.T) {
	a := types.Review{Text: "crashes", Rating: 1, Version: "1.0", Title: "x"}
	b := a
	b.Title = "different title"
	c := a
	c.Rating = 2

	assert.True(t, strings.HasPrefix(ReviewKey(a), "review:"))
	assert.Equal(t, ReviewKey(a), ReviewKey(b), "title is not part of the fingerprint")
	assert.NotEqual(t, ReviewKey(a), ReviewKey(c))
	assert.Len(t, ReviewKey(a), len("review:")+64)
}

func TestMemoKeyIsOrderSensitive(t *testing.T) {
	x := types.AnalyzedReview{Review: types.Review{Text: "a", Rating: 1}, Classification: types.Classification{Issues: []string{"crash"}}}
	y := types.AnalyzedReview{Review: types.Review{Text: "b", Rating: 5}}

	assert.Equal(t, MemoKey([]types.AnalyzedReview{x, y}), MemoKey([]types.AnalyzedReview{x, y}))
	assert.NotEqual(t, MemoKey([]types.AnalyzedReview{x, y}), MemoKey([]types.AnalyzedReview{y, x}))
	assert.True(t, strings.HasPrefix(MemoKey(nil), "memo:"))
}

func TestMemoKeyCoversReportFields(t *testing.T) {
	base := types.AnalyzedReview{
		Review:         types.Review{Text: "a", Rating: 1, Date: "2024-01-10", Version: "1.0"},
		Classification: types.Classification{Intent: types.IntentComplaint, Issues: []string{"crash"}},
	}
	intent := base
	intent.Intent = types.IntentFeatureRequest
	date := base
	date.Date = "2023-06-10"
	version := base
	version.Version = "2.0"

	key := MemoKey([]types.AnalyzedReview{base})
	for name, r := range map[string]types.AnalyzedReview{"intent": intent, "date": date, "version": version} {
		assert.NotEqual(t, key, MemoKey([]types.AnalyzedReview{r}), name)
	}
}

func TestFileCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.json")
	c, err := NewFile(path, time.Hour)
	require.NoError(t, err)
	exerciseCache(t, c)

	reopened, err := NewFile(path, time.Hour)
	require.NoError(t, err)
	var got payload
	ok, err := reopened.Get(context.Background(), "k", &got)
	require.NoError(t, err)
	assert.True(t, ok, "entries survive a reopen")
}

func TestFileCacheExpiry(t *testing.T) {
	c, err := NewFile(filepath.Join(t.TempDir(), "cache.json"), time.Minute)
	require.NoError(t, err)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }
	require.NoError(t, c.Set(context.Background(), "k", payload{Intent: "praise"}))

	c.now = func() time.Time { return base.Add(2 * time.Minute) }
	var got payload
	ok, err := c.Get(context.Background(), "k", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileCachePrunesExpiredOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	c, err := NewFile(path, time.Minute)
	require.NoError(t, err)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }
	require.NoError(t, c.Set(context.Background(), "old", payload{Intent: "praise"}))

	c.now = func() time.Time { return base.Add(2 * time.Minute) }
	require.NoError(t, c.Set(context.Background(), "new", payload{Intent: "complaint"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var onDisk map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.Contains(t, onDisk, "new")
	assert.NotContains(t, onDisk, "old")
}

func TestMemoryCache(t *testing.T) {
	c, err := NewMemory(2, time.Hour)
	require.NoError(t, err)
	exerciseCache(t, c)

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "a", 1))
	require.NoError(t, c.Set(ctx, "b", 2))
	assert.Equal(t, 2, c.Len())

	var n int
	ok, err := c.Get(ctx, "k", &n)
	require.NoError(t, err)
	assert.False(t, ok, "oldest entry evicted")

	_, err = NewMemory(0, time.Hour)
	assert.Error(t, err)
}

func TestRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := NewRedis(context.Background(), RedisOptions{Addr: mr.Addr(), TTL: time.Minute})
	require.NoError(t, err)
	defer c.Close()
	exerciseCache(t, c)

	assert.True(t, mr.Exists("review-insights:k"))
	assert.Equal(t, time.Minute, mr.TTL("review-insights:k"))

	mr.FastForward(2 * time.Minute)
	var got payload
	ok, err := c.Get(context.Background(), "k", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCacheBadAddress(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	_, err := NewRedis(context.Background(), RedisOptions{Addr: addr})
	assert.Error(t, err)
}

func TestNewPicksBackend(t *testing.T) {
	cfg := config.Config{CacheBackend: config.CacheMemory, MemoryCacheSize: 8, CacheTTL: time.Hour}
	c, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &MemoryCache{}, c)

	cfg = config.Config{CacheBackend: config.CacheFile, CachePath: filepath.Join(t.TempDir(), "c.json")}
	c, err = New(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &FileCache{}, c)

	_, err = New(context.Background(), config.Config{CacheBackend: "etcd"})
	assert.Error(t, err)
}
