package display

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeAgo(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		ago  time.Duration
		want string
	}{
		{"just updated", 0, "just now"},
		{"under a minute", 59 * time.Second, "just now"},
		{"exactly a minute", time.Minute, "1 minute ago"},
		{"ninety seconds", 90 * time.Second, "1 minute ago"},
		{"several minutes", 5 * time.Minute, "5 minutes ago"},
		{"just under an hour", 59*time.Minute + 59*time.Second, "59 minutes ago"},
		{"one hour", time.Hour, "1 hour ago"},
		{"hours", 3*time.Hour + 20*time.Minute, "3 hours ago"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TimeAgo(now, now.Add(-tt.ago)))
		})
	}
}

func TestTimeAgo_NeverUpdated(t *testing.T) {
	assert.Equal(t, "", TimeAgo(time.Now(), time.Time{}))
}
