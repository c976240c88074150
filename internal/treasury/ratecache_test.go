package treasury

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateCacheColdFailsCollect(t *testing.T) {
	cache := NewRateCache()
	now := time.Now()

	for i := 0; i < WarmupSamples-1; i++ {
		_, _, err := cache.Collect(now)
		require.ErrorIs(t, err, ErrNotWarmedUp)
		cache.Append(now.Add(time.Duration(i-7)*time.Hour), 6.5)
	}

	_, _, err := cache.Collect(now)
	require.ErrorIs(t, err, ErrNotWarmedUp)
	assert.False(t, cache.Warm())
}

func TestRateCacheCollectOldestFirst(t *testing.T) {
	cache := NewRateCache()
	now := time.Now()

	for i := 0; i < WarmupSamples; i++ {
		cache.Append(now.Add(time.Duration(i-7)*time.Hour), 6.0+float64(i)*0.01)
	}

	require.True(t, cache.Warm())

	times, rates, err := cache.Collect(now)
	require.NoError(t, err)
	require.Len(t, times, WarmupSamples)
	require.Len(t, rates, WarmupSamples)

	for i := 0; i < WarmupSamples; i++ {
		assert.InDelta(t, float64(i-7), times[i], 1e-9)
		assert.InDelta(t, 6.0+float64(i)*0.01, rates[i], 1e-12)
	}
}

func TestRateCacheEvictsOldest(t *testing.T) {
	cache := NewRateCache()
	now := time.Now()

	for i := 0; i < WarmupSamples+3; i++ {
		cache.Append(now.Add(time.Duration(i)*time.Hour), float64(i))
	}

	require.Equal(t, WarmupSamples, cache.Len())

	_, rates, err := cache.Collect(now)
	require.NoError(t, err)

	// Oldest three evicted; window is samples 3..10, oldest first.
	for i := 0; i < WarmupSamples; i++ {
		assert.Equal(t, float64(i+3), rates[i])
	}
}
