package display

import (
	"time"

	"github.com/i474232898/littleweather/internal/common"
	"github.com/i474232898/littleweather/internal/weather"
)

// Background identifies a background image asset.
type Background string

const (
	BackgroundDefault      Background = "default"
	BackgroundStarryNight  Background = "starrynight"
	BackgroundSunrise      Background = "sunrise"
	BackgroundSunset       Background = "sunset"
	BackgroundSunny        Background = "sunny"
	BackgroundCloudy       Background = "cloudy"
	BackgroundPartlyCloudy Background = "partly-cloudy"
	BackgroundRain         Background = "rain"
	BackgroundThunderstorm Background = "thunderstorm"
)

// twilightWindow is the half-width of the sunrise and sunset windows.
const twilightWindow = 30 * time.Minute

// SelectBackground picks the background for now given today's sunrise and
// sunset and the current condition description. Time of day wins over
// weather; weather rules only apply between the two twilight windows.
func SelectBackground(now, sunrise, sunset time.Time, description string) Background {
	switch {
	case now.Before(sunrise.Add(-twilightWindow)):
		return BackgroundStarryNight
	case !now.After(sunrise.Add(twilightWindow)):
		return BackgroundSunrise
	case !now.Before(sunset.Add(-twilightWindow)) && !now.After(sunset.Add(twilightWindow)):
		return BackgroundSunset
	case now.After(sunset.Add(twilightWindow)):
		return BackgroundStarryNight
	}

	switch {
	case common.HasAnyFold(description, "clear sky"):
		return BackgroundSunny
	case common.HasAnyFold(description, "overcast", "broken"):
		return BackgroundCloudy
	case common.HasAnyFold(description, "scattered", "few"):
		return BackgroundPartlyCloudy
	case common.HasAnyFold(description, "rain"):
		return BackgroundRain
	case common.HasAnyFold(description, "thunder"):
		return BackgroundThunderstorm
	default:
		return BackgroundDefault
	}
}

// BackgroundFor applies SelectBackground to a snapshot, falling back to the
// default when there is no snapshot or no daily data.
func BackgroundFor(snap *weather.WeatherSnapshot, now time.Time) Background {
	if snap == nil {
		return BackgroundDefault
	}
	today, ok := snap.Today()
	if !ok {
		return BackgroundDefault
	}
	return SelectBackground(now, today.Sunrise, today.Sunset, snap.CurrentCondition.Description)
}
