package cache

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRU[int](2, 0)
	c.Set("a", 1)
	c.Set("b", 2)

	_, ok := c.Get("a")
	require.True(t, ok)

	c.Set("c", 3)

	_, ok = c.Get("b")
	assert.False(t, ok, "b was least recently used")
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	stats := c.GetStats()
	assert.Equal(t, int64(1), stats.Evictions)
	assert.Equal(t, 2, stats.Size)
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestLRU_TTL(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRU[string](4, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("k", "v")
	_, ok := c.Get("k")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.GetStats().Size)
}

func TestLRU_Update(t *testing.T) {
	c := NewLRU[string](2, 0)
	c.Set("k", "v1")
	c.Set("k", "v2")
	v, _ := c.Get("k")
	assert.Equal(t, "v2", v)
	assert.Equal(t, 1, c.GetStats().Size)
}

func TestLRU_InvalidatePrefix(t *testing.T) {
	c := NewLRU[int](10, 0)
	c.Set("plan:principal:1", 1)
	c.Set("plan:principal:2", 2)
	c.Set("plan:corporaciones:1", 3)

	assert.Equal(t, 2, c.InvalidatePrefix("plan:principal:"))
	assert.Equal(t, 1, c.GetStats().Size)

	c.Invalidate("plan:corporaciones:1")
	assert.Equal(t, 0, c.GetStats().Size)

	c.Set("x", 1)
	c.Clear()
	assert.Equal(t, Stats{MaxSize: 10}, c.GetStats())
}

func TestKey(t *testing.T) {
	k1, err := Key("plan", "principal", []string{"a"})
	require.NoError(t, err)
	k2, err := Key("plan", "principal", []string{"a"})
	require.NoError(t, err)
	k3, err := Key("plan", "principal", []string{"b"})
	require.NoError(t, err)

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
	assert.True(t, strings.HasPrefix(k1, "plan:"))
}
