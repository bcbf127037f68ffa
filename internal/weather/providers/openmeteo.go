package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/littleweather/internal/weather"
)

// OpenMeteoProvider implements weather.Fetcher for Open-Meteo.
// It needs no API key and has no geocoding side.
type OpenMeteoProvider struct {
	name    string
	metric  bool
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewOpenMeteoProvider creates an Open-Meteo backend. units is "imperial"
// (the default) or "metric".
func NewOpenMeteoProvider(client *http.Client, units string) *OpenMeteoProvider {
	h := http.Header{}
	h.Set("accept", "application/json")

	return &OpenMeteoProvider{
		name:    "openmeteo",
		metric:  strings.EqualFold(units, "metric"),
		baseURL: "https://api.open-meteo.com/v1/forecast",
		httpCfg: defaultHTTPConfig(client, h),
		circuit: newCircuitBreaker("openmeteo"),
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

func (p *OpenMeteoProvider) FetchWeather(ctx context.Context, lat, lon float64) (weather.WeatherSnapshot, error) {
	values := url.Values{}
	values.Set("latitude", formatCoord(lat))
	values.Set("longitude", formatCoord(lon))
	values.Set("current", "temperature_2m,apparent_temperature,relative_humidity_2m,surface_pressure,cloud_cover,wind_speed_10m,wind_gusts_10m,weather_code,uv_index")
	values.Set("hourly", "temperature_2m,apparent_temperature,surface_pressure,relative_humidity_2m,dew_point_2m,cloud_cover,wind_speed_10m,wind_gusts_10m,weather_code")
	values.Set("daily", "weather_code,temperature_2m_max,temperature_2m_min,apparent_temperature_max,apparent_temperature_min,sunrise,sunset,uv_index_max,wind_speed_10m_max,wind_gusts_10m_max")
	values.Set("forecast_hours", fmt.Sprintf("%d", weather.MaxHourlyConditions))
	values.Set("timeformat", "unixtime")
	values.Set("timezone", "auto")
	// Open-Meteo defaults to metric.
	if !p.metric {
		values.Set("temperature_unit", "fahrenheit")
		values.Set("wind_speed_unit", "mph")
		values.Set("precipitation_unit", "inch")
	}

	var payload struct {
		Current struct {
			Temperature float64 `json:"temperature_2m"`
			Apparent    float64 `json:"apparent_temperature"`
			Humidity    float64 `json:"relative_humidity_2m"`
			Pressure    float64 `json:"surface_pressure"`
			CloudCover  float64 `json:"cloud_cover"`
			WindSpeed   float64 `json:"wind_speed_10m"`
			WindGusts   float64 `json:"wind_gusts_10m"`
			WeatherCode int     `json:"weather_code"`
			UVIndex     float64 `json:"uv_index"`
		} `json:"current"`
		Hourly struct {
			Time        []int64   `json:"time"`
			Temperature []float64 `json:"temperature_2m"`
			Apparent    []float64 `json:"apparent_temperature"`
			Pressure    []float64 `json:"surface_pressure"`
			Humidity    []float64 `json:"relative_humidity_2m"`
			DewPoint    []float64 `json:"dew_point_2m"`
			CloudCover  []float64 `json:"cloud_cover"`
			WindSpeed   []float64 `json:"wind_speed_10m"`
			WindGusts   []float64 `json:"wind_gusts_10m"`
			WeatherCode []int     `json:"weather_code"`
		} `json:"hourly"`
		Daily struct {
			Time        []int64   `json:"time"`
			WeatherCode []int     `json:"weather_code"`
			TempMax     []float64 `json:"temperature_2m_max"`
			TempMin     []float64 `json:"temperature_2m_min"`
			ApparentMax []float64 `json:"apparent_temperature_max"`
			ApparentMin []float64 `json:"apparent_temperature_min"`
			Sunrise     []int64   `json:"sunrise"`
			Sunset      []int64   `json:"sunset"`
			UVIndexMax  []float64 `json:"uv_index_max"`
			WindSpeed   []float64 `json:"wind_speed_10m_max"`
			WindGusts   []float64 `json:"wind_gusts_10m_max"`
		} `json:"daily"`
	}

	empty, err := getJSON(ctx, p.httpCfg, p.circuit, p.baseURL, values, &payload)
	if err != nil {
		return weather.WeatherSnapshot{}, fmt.Errorf("%s weather: %w", p.name, err)
	}
	if empty {
		return weather.WeatherSnapshot{}, fmt.Errorf("%s weather: empty response", p.name)
	}

	cur := payload.Current
	snap := weather.WeatherSnapshot{
		CurrentCondition: weather.CurrentCondition{
			Temperature:     cur.Temperature,
			FeelsLike:       cur.Apparent,
			Pressure:        cur.Pressure,
			Humidity:        cur.Humidity,
			WindSpeed:       cur.WindSpeed,
			WindGusts:       cur.WindGusts,
			Description:     describeOpenMeteoCode(cur.WeatherCode),
			DescriptionID:   cur.WeatherCode,
			CloudPercentage: cur.CloudCover,
			UVIndex:         cur.UVIndex,
		},
	}

	hr := payload.Hourly
	for i, ts := range hr.Time {
		code := at(hr.WeatherCode, i)
		snap.HourlyConditions = append(snap.HourlyConditions, weather.HourlyCondition{
			Time:            time.Unix(ts, 0).UTC(),
			Temperature:     at(hr.Temperature, i),
			FeelsLike:       at(hr.Apparent, i),
			Pressure:        at(hr.Pressure, i),
			Humidity:        at(hr.Humidity, i),
			DewPoint:        at(hr.DewPoint, i),
			CloudPercentage: at(hr.CloudCover, i),
			WindSpeed:       at(hr.WindSpeed, i),
			WindGusts:       at(hr.WindGusts, i),
			Description:     describeOpenMeteoCode(code),
			DescriptionID:   code,
		})
	}

	// Open-Meteo has no morning/evening split; day is the max, night the
	// min and morning/evening the midpoint.
	dl := payload.Daily
	for i, ts := range dl.Time {
		code := at(dl.WeatherCode, i)
		tMax, tMin := at(dl.TempMax, i), at(dl.TempMin, i)
		aMax, aMin := at(dl.ApparentMax, i), at(dl.ApparentMin, i)
		snap.DailyConditions = append(snap.DailyConditions, weather.DailyCondition{
			Time:          time.Unix(ts, 0).UTC(),
			Sunrise:       time.Unix(at(dl.Sunrise, i), 0).UTC(),
			Sunset:        time.Unix(at(dl.Sunset, i), 0).UTC(),
			Temp:          spreadTemperatures(tMin, tMax),
			FeelsLike:     spreadTemperatures(aMin, aMax),
			WindSpeed:     at(dl.WindSpeed, i),
			WindGusts:     at(dl.WindGusts, i),
			Description:   describeOpenMeteoCode(code),
			DescriptionID: code,
			UVIndex:       at(dl.UVIndexMax, i),
		})
	}

	return snap, nil
}

func spreadTemperatures(lo, hi float64) weather.DayTemperatures {
	mid := (lo + hi) / 2
	return weather.DayTemperatures{Day: hi, Min: lo, Max: hi, Night: lo, Eve: mid, Morn: mid}
}

// at returns s[i] or the zero value when the column is short.
func at[T any](s []T, i int) T {
	var zero T
	if i < 0 || i >= len(s) {
		return zero
	}
	return s[i]
}

// describeOpenMeteoCode maps WMO weather codes to descriptions worded the
// way the background rules expect ("clear sky", "overcast clouds", ...).
func describeOpenMeteoCode(code int) string {
	switch {
	case code == 0:
		return "clear sky"
	case code == 1:
		return "few clouds"
	case code == 2:
		return "scattered clouds"
	case code == 3:
		return "overcast clouds"
	case code == 45 || code == 48:
		return "fog"
	case code >= 51 && code <= 57:
		return "drizzle"
	case (code >= 61 && code <= 67) || (code >= 80 && code <= 82):
		return "rain"
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		return "snow"
	case code >= 95:
		return "thunderstorm"
	default:
		return "unknown"
	}
}
