package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/yosef2222/FinanceTracker/internal/domain"
	"github.com/yosef2222/FinanceTracker/internal/infra/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_SetAndGet(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "key1", "value1", 0)
	val, ok := c.Get(ctx, "key1")
	require.True(t, ok, "expected key to exist")
	assert.Equal(t, "value1", val)
}

func TestCache_GetMiss(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	_, ok := c.Get(context.Background(), "nonexistent")
	assert.False(t, ok, "expected cache miss for nonexistent key")
}

func TestCache_Expiration(t *testing.T) {
	c := cache.New[string](time.Hour)
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "key1", "value1", 50*time.Millisecond)
	time.Sleep(100 * time.Millisecond)

	_, ok := c.Get(ctx, "key1")
	assert.False(t, ok, "expected cache entry to be expired")
}

func TestCache_PerEntryTTLOverridesDefault(t *testing.T) {
	c := cache.New[string](50 * time.Millisecond)
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "short", "a", 0)
	c.Set(ctx, "long", "b", time.Hour)
	time.Sleep(100 * time.Millisecond)

	_, ok := c.Get(ctx, "short")
	assert.False(t, ok)
	v, ok := c.Get(ctx, "long")
	require.True(t, ok)
	assert.Equal(t, "b", v)
}

func TestCache_Delete(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "key1", "value1", 0)
	c.Delete(ctx, "key1")

	_, ok := c.Get(ctx, "key1")
	assert.False(t, ok, "expected key to be deleted")
	assert.Equal(t, 0, c.Len())
}

func TestCache_StoresAdvice(t *testing.T) {
	c := cache.New[domain.Advice](time.Minute)
	defer c.Close()
	ctx := context.Background()

	at := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	c.Set(ctx, "advice:u1:2025-03", domain.Advice{Text: "save more", GeneratedAt: at}, 7*24*time.Hour)

	got, ok := c.Get(ctx, "advice:u1:2025-03")
	require.True(t, ok)
	assert.Equal(t, "save more", got.Text)
	assert.True(t, got.GeneratedAt.Equal(at))
}
