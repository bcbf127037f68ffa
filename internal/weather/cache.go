package weather

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Cache holds the latest weather snapshot for the current location together
// with the time it was fetched. Only one snapshot is kept; a refresh either
// replaces it wholesale or leaves it untouched.
type Cache struct {
	fetcher Fetcher
	now     func() time.Time

	mu          sync.RWMutex
	snapshot    *WeatherSnapshot
	lastUpdated time.Time
}

// NewCache creates a new Cache backed by the given fetcher.
func NewCache(fetcher Fetcher) *Cache {
	return &Cache{
		fetcher: fetcher,
		now:     time.Now,
	}
}

// WithClock overrides the clock used to stamp lastUpdated.
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.now = now
	return c
}

// Refresh fetches weather for lat/lon and replaces the snapshot on success.
// On failure the previous snapshot and timestamp are kept; stale data is
// preferred over no data.
func (c *Cache) Refresh(ctx context.Context, lat, lon float64) Status {
	log.Debug().Float64("lat", lat).Float64("lon", lon).Msg("refreshing weather")

	snap, err := c.fetcher.FetchWeather(ctx, lat, lon)
	if err != nil {
		log.Error().Err(err).Float64("lat", lat).Float64("lon", lon).Msg("weather fetch failed; keeping last snapshot")
		return StatusError
	}
	snap.capHourly()

	c.mu.Lock()
	c.snapshot = &snap
	c.lastUpdated = c.now()
	c.mu.Unlock()

	return StatusSuccess
}

// Current returns the latest snapshot and its fetch time.
// ok is false until the first successful refresh.
func (c *Cache) Current() (snap WeatherSnapshot, lastUpdated time.Time, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.snapshot == nil {
		return WeatherSnapshot{}, time.Time{}, false
	}
	return *c.snapshot, c.lastUpdated, true
}
