package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/i474232898/littleweather/internal/weather"
)

// DefaultInterval is used when no positive interval is configured.
const DefaultInterval = 5 * time.Minute

// Refresher is the part of the weather cache the scheduler drives.
type Refresher interface {
	Refresh(ctx context.Context, lat, lon float64) weather.Status
}

// Visibility reports whether the hosting page is visible.
type Visibility interface {
	Visible() bool
}

// PageVisibility is a Visibility toggled by the host. It starts visible.
type PageVisibility struct {
	hidden atomic.Bool
}

func (v *PageVisibility) Visible() bool {
	return !v.hidden.Load()
}

func (v *PageVisibility) Set(visible bool) {
	v.hidden.Store(!visible)
}

// Scheduler periodically refreshes weather for the tracked location.
// There is at most one job; it is replaced whenever the tracked coordinates
// change and removed when no location is tracked.
type Scheduler struct {
	scheduler  *gocron.Scheduler
	refresher  Refresher
	visibility Visibility
	interval   time.Duration

	mu      sync.Mutex
	tag     string
	lat     float64
	lon     float64
	tracked bool
}

// New creates a new Scheduler.
func New(interval time.Duration, refresher Refresher, visibility Visibility) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	return &Scheduler{
		scheduler:  s,
		refresher:  refresher,
		visibility: visibility,
		interval:   interval,
	}
}

// Start starts the underlying scheduler.
func (s *Scheduler) Start() {
	s.scheduler.StartAsync()
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

// Track follows loc. A nil location or one without coordinates tears the
// job down; new coordinates restart it so the next tick is a full interval
// away.
func (s *Scheduler) Track(loc *weather.Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if loc == nil || !loc.HasCoordinates() {
		s.untrackLocked()
		return nil
	}
	if s.tracked && s.lat == loc.Lat && s.lon == loc.Lon {
		return nil
	}

	s.untrackLocked()

	lat, lon := loc.Lat, loc.Lon
	tag := uuid.NewString()
	_, err := s.scheduler.Every(s.interval).Tag(tag).WaitForSchedule().Do(func() {
		s.tick(lat, lon)
	})
	if err != nil {
		return err
	}

	s.tag, s.lat, s.lon, s.tracked = tag, lat, lon, true
	log.Info().Float64("lat", lat).Float64("lon", lon).Dur("interval", s.interval).Msg("scheduler: weather refresh scheduled")
	return nil
}

// Tracking reports whether a refresh job is active.
func (s *Scheduler) Tracking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracked
}

func (s *Scheduler) untrackLocked() {
	if !s.tracked {
		return
	}
	if err := s.scheduler.RemoveByTag(s.tag); err != nil {
		log.Warn().Err(err).Msg("scheduler: failed to remove refresh job")
	}
	s.tag, s.tracked = "", false
	log.Info().Msg("scheduler: weather refresh stopped")
}

// tick refreshes weather unless the page is hidden. Skipped ticks are not
// caught up later.
func (s *Scheduler) tick(lat, lon float64) {
	if s.visibility != nil && !s.visibility.Visible() {
		log.Debug().Msg("scheduler: page hidden, skipping refresh")
		return
	}

	log.Debug().Msg("scheduler: auto-refreshing weather data")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if status := s.refresher.Refresh(ctx, lat, lon); status != weather.StatusSuccess {
		log.Warn().Str("status", string(status)).Msg("scheduler: refresh failed")
	}
}
