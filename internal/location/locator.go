package location

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrGeolocationUnavailable = errors.New("geolocation is not available")
	ErrPermissionDenied       = errors.New("geolocation permission denied")
	ErrPositionUnavailable    = errors.New("device position unavailable")
	ErrTimeout                = errors.New("timed out waiting for device position")
)

// PositionOptions bound a device position lookup.
type PositionOptions struct {
	HighAccuracy bool
	Timeout      time.Duration
	// MaxAge is how old a cached fix may be and still be returned.
	MaxAge time.Duration
}

// DefaultPositionOptions: high accuracy, 5 second wait, 10 second cached fix.
var DefaultPositionOptions = PositionOptions{
	HighAccuracy: true,
	Timeout:      5 * time.Second,
	MaxAge:       10 * time.Second,
}

// Fix is a device position report.
type Fix struct {
	Latitude  float64   `json:"latitude" validate:"latitude"`
	Longitude float64   `json:"longitude" validate:"longitude"`
	Accuracy  float64   `json:"accuracy,omitempty" validate:"gte=0"`
	Timestamp time.Time `json:"timestamp"`
}

// Locator provides device coordinates.
type Locator interface {
	CurrentPosition(ctx context.Context, opts PositionOptions) (Fix, error)
}

// StaticLocator always reports the same fix, stamped with the current time.
type StaticLocator struct {
	Latitude  float64
	Longitude float64
}

func (l StaticLocator) CurrentPosition(ctx context.Context, _ PositionOptions) (Fix, error) {
	if err := ctx.Err(); err != nil {
		return Fix{}, err
	}
	return Fix{Latitude: l.Latitude, Longitude: l.Longitude, Timestamp: time.Now()}, nil
}

// PushLocator is fed by the embedding host, which forwards the browser's
// geolocation callbacks. Waiters are released by the next Update or Fail.
type PushLocator struct {
	now func() time.Time

	mu      sync.Mutex
	last    *Fix
	waiters []chan result
}

type result struct {
	fix Fix
	err error
}

func NewPushLocator() *PushLocator {
	return &PushLocator{now: time.Now}
}

// Update records a new fix and hands it to any pending lookups.
func (l *PushLocator) Update(fix Fix) {
	if fix.Timestamp.IsZero() {
		fix.Timestamp = l.now()
	}

	l.mu.Lock()
	l.last = &fix
	waiters := l.waiters
	l.waiters = nil
	l.mu.Unlock()

	for _, w := range waiters {
		w <- result{fix: fix}
	}
}

// Fail reports a geolocation error (denied, unavailable) to pending lookups.
// The cached fix is dropped.
func (l *PushLocator) Fail(err error) {
	l.mu.Lock()
	l.last = nil
	waiters := l.waiters
	l.waiters = nil
	l.mu.Unlock()

	for _, w := range waiters {
		w <- result{err: err}
	}
}

// CurrentPosition returns the cached fix when it is no older than
// opts.MaxAge, otherwise waits up to opts.Timeout for the next report.
func (l *PushLocator) CurrentPosition(ctx context.Context, opts PositionOptions) (Fix, error) {
	ch := make(chan result, 1)

	l.mu.Lock()
	if l.last != nil && l.now().Sub(l.last.Timestamp) <= opts.MaxAge {
		fix := *l.last
		l.mu.Unlock()
		return fix, nil
	}
	l.waiters = append(l.waiters, ch)
	l.mu.Unlock()

	var timeout <-chan time.Time
	if opts.Timeout > 0 {
		t := time.NewTimer(opts.Timeout)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case r := <-ch:
		return r.fix, r.err
	case <-timeout:
		l.drop(ch)
		return Fix{}, ErrTimeout
	case <-ctx.Done():
		l.drop(ch)
		return Fix{}, ctx.Err()
	}
}

func (l *PushLocator) drop(ch chan result) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, w := range l.waiters {
		if w == ch {
			l.waiters = append(l.waiters[:i], l.waiters[i+1:]...)
			return
		}
	}
}
