package treasury

import (
	"errors"
	"sync"
	"time"
)

// WarmupSamples is the number of oracle samples the decision model needs.
// Balancing refuses to run until the cache holds exactly this many.
const WarmupSamples = 8

// ErrNotWarmedUp is returned when the rate cache holds fewer samples than
// the decision model needs. Run Warmup until the cache fills.
var ErrNotWarmedUp = errors.New("treasury: rate cache is not warmed up")

// RateSample is one oracle observation of the native/secondary exchange rate.
type RateSample struct {
	At   time.Time
	Rate float64
}

// RateCache is a fixed-capacity ring of the most recent exchange-rate
// samples, oldest evicted first. It is the only state shared between the
// warmup path and balancing attempts, so its operations take an internal
// lock; everything else in an attempt is carried by value.
type RateCache struct {
	mu      sync.Mutex
	samples [WarmupSamples]RateSample
	start   int
	count   int
}

// NewRateCache returns an empty cache.
func NewRateCache() *RateCache {
	return &RateCache{}
}

// Append inserts one sample, evicting the oldest when the ring is full.
func (c *RateCache) Append(at time.Time, rate float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := (c.start + c.count) % WarmupSamples
	c.samples[idx] = RateSample{At: at, Rate: rate}
	if c.count < WarmupSamples {
		c.count++
	} else {
		c.start = (c.start + 1) % WarmupSamples
	}
}

// Len reports the number of stored samples.
func (c *RateCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// Warm reports whether the cache holds a full window.
func (c *RateCache) Warm() bool {
	return c.Len() == WarmupSamples
}

// Collect returns the stored series oldest-first as two equal-length slices:
// sample times expressed in hours relative to now (most recent near zero),
// and the corresponding rates. It fails with ErrNotWarmedUp until the ring
// is full.
func (c *RateCache) Collect(now time.Time) ([]float64, []float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.count < WarmupSamples {
		return nil, nil, ErrNotWarmedUp
	}

	times := make([]float64, WarmupSamples)
	rates := make([]float64, WarmupSamples)
	for i := 0; i < WarmupSamples; i++ {
		s := c.samples[(c.start+i)%WarmupSamples]
		times[i] = s.At.Sub(now).Hours()
		rates[i] = s.Rate
	}
	return times, rates, nil
}
