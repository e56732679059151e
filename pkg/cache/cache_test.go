package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/represent/errors"
	"github.com/c360/represent/metric"
)

func newTestCache(t *testing.T, size int, opts ...Option[string]) Cache[string] {
	t.Helper()
	c, err := NewLRU(size, opts...)
	require.NoError(t, err)
	return c
}

func TestNewLRU_InvalidSize(t *testing.T) {
	_, err := NewLRU[string](0)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestLRU_BasicOperations(t *testing.T) {
	c := newTestCache(t, 10)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	created, err := c.Set("a", "1")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = c.Set("a", "2")
	require.NoError(t, err)
	assert.False(t, created)

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "2", v)
	assert.Equal(t, 1, c.Size())

	deleted, err := c.Delete("a")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = c.Delete("a")
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Equal(t, 0, c.Size())

	_, err = c.Set("", "x")
	assert.True(t, errors.IsInvalid(err))
	_, err = c.Delete("")
	assert.True(t, errors.IsInvalid(err))
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	var evicted []string
	c := newTestCache(t, 2, WithEvictionCallback(func(key, _ string) {
		evicted = append(evicted, key)
	}))

	_, _ = c.Set("a", "1")
	_, _ = c.Set("b", "2")
	_, _ = c.Get("a") // b becomes least recent
	_, _ = c.Set("c", "3")

	assert.Equal(t, []string{"b"}, evicted)
	assert.Equal(t, []string{"c", "a"}, c.Keys())

	_, ok := c.Get("b")
	assert.False(t, ok)
	assert.Equal(t, int64(1), c.Stats().Evictions())
	assert.Equal(t, int64(2), c.Stats().MaxSize())
}

func TestLRU_ClearNotifiesOldestFirst(t *testing.T) {
	var removed []string
	c := newTestCache(t, 5, WithEvictionCallback(func(key, _ string) {
		removed = append(removed, key)
	}))

	for _, k := range []string{"a", "b", "c"} {
		_, _ = c.Set(k, k)
	}
	require.NoError(t, c.Clear())

	assert.Equal(t, []string{"a", "b", "c"}, removed)
	assert.Equal(t, 0, c.Size())
	assert.Empty(t, c.Keys())
	assert.Equal(t, int64(0), c.Stats().CurrentSize())
}

func TestLRU_Statistics(t *testing.T) {
	c := newTestCache(t, 3)

	_, _ = c.Set("a", "1")
	_, _ = c.Get("a")
	_, _ = c.Get("a")
	_, _ = c.Get("b")
	_, _ = c.Delete("a")

	s := c.Stats().Summary()
	assert.Equal(t, int64(2), s.Hits)
	assert.Equal(t, int64(1), s.Misses)
	assert.Equal(t, int64(1), s.Sets)
	assert.Equal(t, int64(1), s.Deletes)
	assert.Equal(t, int64(0), s.CurrentSize)
	assert.Equal(t, int64(1), s.MaxSize)
	assert.InDelta(t, 2.0/3.0, s.HitRatio, 1e-9)

	assert.Equal(t, 0.0, NewStatistics().HitRatio())
}

func TestLRU_Metrics(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	c := newTestCache(t, 1, WithMetrics[string](registry, "replay"))

	_, _ = c.Set("a", "1")
	_, _ = c.Get("a")
	_, _ = c.Get("z")
	_, _ = c.Set("b", "2")

	lru := c.(*lruCache[string])
	assert.Equal(t, 1.0, testutil.ToFloat64(lru.metrics.hits))
	assert.Equal(t, 1.0, testutil.ToFloat64(lru.metrics.misses))
	assert.Equal(t, 1.0, testutil.ToFloat64(lru.metrics.evictions))
	assert.Equal(t, 1.0, testutil.ToFloat64(lru.metrics.size))

	// the same prefix cannot register twice
	_, err := NewLRU(1, WithMetrics[string](registry, "replay"))
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
}

func TestLRU_WithoutMetrics(t *testing.T) {
	c := newTestCache(t, 1, WithMetrics[string](nil, "replay"), nil)
	assert.Nil(t, c.(*lruCache[string]).metrics)
}

func TestLRU_Concurrent(t *testing.T) {
	c := newTestCache(t, 50)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", (g*200+i)%75)
				_, _ = c.Set(key, key)
				_, _ = c.Get(key)
				if i%10 == 0 {
					_, _ = c.Delete(key)
				}
			}
		}(g)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Size(), 50)
	assert.Len(t, c.Keys(), c.Size())
}
