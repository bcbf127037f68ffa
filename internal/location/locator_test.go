package location

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingWaiters(l *PushLocator) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.waiters)
}

func TestPushLocator_CachedFixWithinMaxAge(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := NewPushLocator()
	l.now = func() time.Time { return now }

	l.Update(Fix{Latitude: 30.2672, Longitude: -97.7431, Timestamp: now.Add(-5 * time.Second)})

	fix, err := l.CurrentPosition(context.Background(), DefaultPositionOptions)
	require.NoError(t, err)
	assert.Equal(t, 30.2672, fix.Latitude)
}

func TestPushLocator_StaleFixWaitsForUpdate(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := NewPushLocator()
	l.now = func() time.Time { return now }
	l.Update(Fix{Latitude: 1, Longitude: 1, Timestamp: now.Add(-time.Minute)})

	type outcome struct {
		fix Fix
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		fix, err := l.CurrentPosition(context.Background(), PositionOptions{Timeout: 5 * time.Second, MaxAge: 10 * time.Second})
		done <- outcome{fix, err}
	}()

	require.Eventually(t, func() bool { return pendingWaiters(l) == 1 }, time.Second, 5*time.Millisecond)
	l.Update(Fix{Latitude: 39.7392, Longitude: -104.9903})

	got := <-done
	require.NoError(t, got.err)
	assert.Equal(t, 39.7392, got.fix.Latitude)
	assert.Equal(t, now, got.fix.Timestamp)
}

func TestPushLocator_FailReleasesWaiters(t *testing.T) {
	l := NewPushLocator()

	done := make(chan error, 1)
	go func() {
		_, err := l.CurrentPosition(context.Background(), DefaultPositionOptions)
		done <- err
	}()

	require.Eventually(t, func() bool { return pendingWaiters(l) == 1 }, time.Second, 5*time.Millisecond)
	l.Fail(ErrPermissionDenied)

	assert.ErrorIs(t, <-done, ErrPermissionDenied)
}

func TestPushLocator_Timeout(t *testing.T) {
	l := NewPushLocator()

	_, err := l.CurrentPosition(context.Background(), PositionOptions{Timeout: 10 * time.Millisecond})
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Zero(t, pendingWaiters(l))
}

func TestPushLocator_ContextCancelled(t *testing.T) {
	l := NewPushLocator()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.CurrentPosition(ctx, DefaultPositionOptions)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, pendingWaiters(l))
}

func TestStaticLocator(t *testing.T) {
	fix, err := StaticLocator{Latitude: 51.5, Longitude: -0.12}.CurrentPosition(context.Background(), DefaultPositionOptions)
	require.NoError(t, err)
	assert.Equal(t, 51.5, fix.Latitude)
	assert.False(t, fix.Timestamp.IsZero())
}
