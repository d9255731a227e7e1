package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type snapshot struct {
	Verdict string  `json:"verdict"`
	Kospi   float64 `json:"kospi"`
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "phase:latest", snapshot{Verdict: "Overheat", Kospi: 2700}, time.Minute))

	var got snapshot
	require.NoError(t, mc.Get(ctx, "phase:latest", &got))
	assert.Equal(t, snapshot{Verdict: "Overheat", Kospi: 2700}, got)

	require.NoError(t, mc.Set(ctx, "raw", "text", 0))
	var s string
	require.NoError(t, mc.Get(ctx, "raw", &s))
	assert.Equal(t, "text", s)

	require.NoError(t, mc.Delete(ctx, "raw"))
	assert.ErrorIs(t, mc.Get(ctx, "raw", &s), ErrCacheMiss)
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "k", 1, time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	var v int
	assert.ErrorIs(t, mc.Get(ctx, "k", &v), ErrCacheMiss)
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "a", 1, time.Minute))
	time.Sleep(time.Millisecond)
	require.NoError(t, mc.Set(ctx, "b", 2, time.Minute))
	time.Sleep(time.Millisecond)

	var v int
	require.NoError(t, mc.Get(ctx, "a", &v))
	require.NoError(t, mc.Set(ctx, "c", 3, time.Minute))

	assert.Equal(t, 2, mc.Len())
	assert.ErrorIs(t, mc.Get(ctx, "b", &v), ErrCacheMiss)
	assert.NoError(t, mc.Get(ctx, "a", &v))
}

func TestMemoryCacheLock(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	ok, err := mc.TryLock(ctx, "phase:lock", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = mc.TryLock(ctx, "phase:lock", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, mc.Unlock(ctx, "phase:lock"))
	ok, _ = mc.TryLock(ctx, "phase:lock", time.Minute)
	assert.True(t, ok)
}

func TestLayeredCacheFillsL1FromL2(t *testing.T) {
	ctx := context.Background()
	l2 := NewMemoryCache()
	lc := NewLayeredCache(l2, WithLayeredMemoryTTL(time.Minute))
	defer lc.Close()

	require.NoError(t, l2.Set(ctx, "k", snapshot{Verdict: "Recession"}, time.Hour))

	var got snapshot
	require.NoError(t, lc.Get(ctx, "k", &got))
	assert.Equal(t, "Recession", got.Verdict)

	// Served from L1 after L2 loses it.
	require.NoError(t, l2.Delete(ctx, "k"))
	got = snapshot{}
	require.NoError(t, lc.Get(ctx, "k", &got))
	assert.Equal(t, "Recession", got.Verdict)

	require.NoError(t, lc.Delete(ctx, "k"))
	assert.ErrorIs(t, lc.Get(ctx, "k", &got), ErrCacheMiss)
}

func TestLayeredCacheWritesThrough(t *testing.T) {
	ctx := context.Background()
	l2 := NewMemoryCache()
	lc := NewLayeredCache(l2)
	defer lc.Close()

	require.NoError(t, lc.Set(ctx, "k", snapshot{Kospi: 2500}, time.Hour))
	var got snapshot
	require.NoError(t, l2.Get(ctx, "k", &got))
	assert.Equal(t, 2500.0, got.Kospi)

	ok, err := lc.TryLock(ctx, "lock", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, _ = l2.TryLock(ctx, "lock", time.Minute)
	assert.False(t, ok)
}
