package display

import (
	"fmt"
	"time"
)

// TimeAgo renders how long ago lastUpdated was relative to now:
// "just now" under a minute, whole minutes under an hour, whole hours after
// that. A zero lastUpdated renders as "".
func TimeAgo(now, lastUpdated time.Time) string {
	if lastUpdated.IsZero() {
		return ""
	}

	diff := now.Sub(lastUpdated)
	seconds := int64(diff / time.Second)
	minutes := seconds / 60
	hours := minutes / 60

	switch {
	case seconds < 60:
		return "just now"
	case minutes < 60:
		return fmt.Sprintf("%d %s ago", minutes, plural(minutes, "minute"))
	default:
		return fmt.Sprintf("%d %s ago", hours, plural(hours, "hour"))
	}
}

func plural(n int64, unit string) string {
	if n == 1 {
		return unit
	}
	return unit + "s"
}
