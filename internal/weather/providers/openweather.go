package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/littleweather/internal/weather"
)

// OpenWeatherProvider implements weather.GeoClient on top of the
// OpenWeatherMap geocoding 1.0 and One Call 3.0 APIs.
type OpenWeatherProvider struct {
	name       string
	apiKey     string
	units      string
	geoURL     string
	oneCallURL string
	httpCfg    HTTPClientConfig
	circuit    *gobreaker.CircuitBreaker
}

func NewOpenWeatherProvider(client *http.Client, apiKey, units string) *OpenWeatherProvider {
	if units == "" {
		units = "imperial"
	}

	h := http.Header{}
	h.Set("accept", "application/json")

	return &OpenWeatherProvider{
		name:       "openweathermap",
		apiKey:     apiKey,
		units:      units,
		geoURL:     "https://api.openweathermap.org/geo/1.0",
		oneCallURL: "https://api.openweathermap.org/data/3.0/onecall",
		httpCfg:    defaultHTTPConfig(client, h),
		circuit:    newCircuitBreaker("openweather"),
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

type owGeoEntry struct {
	Name    string  `json:"name"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Country string  `json:"country"`
	State   string  `json:"state"`
}

func (e owGeoEntry) result() (weather.GeocodeResult, error) {
	if e.Lat == 0 || e.Lon == 0 {
		return weather.GeocodeResult{}, weather.ErrNoMatch
	}
	return weather.GeocodeResult{
		Lat:     e.Lat,
		Lon:     e.Lon,
		Name:    e.Name,
		State:   e.State,
		Country: e.Country,
	}, nil
}

func (p *OpenWeatherProvider) Geocode(ctx context.Context, q weather.GeocodeQuery) (weather.GeocodeResult, error) {
	if p.apiKey == "" {
		return weather.GeocodeResult{}, fmt.Errorf("%s: %w", p.name, errNoAPIKey)
	}

	values := url.Values{}
	values.Set("appid", p.apiKey)

	// The zip endpoint answers with a single object, direct with a list.
	if q.PostalCode != "" {
		values.Set("zip", fmt.Sprintf("%s,%s", q.PostalCode, q.CountryCode))

		var entry owGeoEntry
		empty, err := getJSON(ctx, p.httpCfg, p.circuit, p.geoURL+"/zip", values, &entry)
		// Unknown postal codes are answered with 404.
		if errors.Is(err, errStatusMissing) {
			return weather.GeocodeResult{}, weather.ErrNoMatch
		}
		if err != nil {
			return weather.GeocodeResult{}, fmt.Errorf("%s zip geocode: %w", p.name, err)
		}
		if empty {
			return weather.GeocodeResult{}, weather.ErrNoMatch
		}
		return entry.result()
	}

	values.Set("q", fmt.Sprintf("%s,%s,%s", q.City, q.State, q.CountryCode))
	values.Set("limit", "1")
	return p.firstEntry(ctx, "/direct", values)
}

func (p *OpenWeatherProvider) ReverseGeocode(ctx context.Context, lat, lon float64) (weather.GeocodeResult, error) {
	if p.apiKey == "" {
		return weather.GeocodeResult{}, fmt.Errorf("%s: %w", p.name, errNoAPIKey)
	}

	values := url.Values{}
	values.Set("appid", p.apiKey)
	values.Set("lat", formatCoord(lat))
	values.Set("lon", formatCoord(lon))
	values.Set("limit", "1")
	return p.firstEntry(ctx, "/reverse", values)
}

func (p *OpenWeatherProvider) firstEntry(ctx context.Context, path string, values url.Values) (weather.GeocodeResult, error) {
	var entries []owGeoEntry
	if _, err := getJSON(ctx, p.httpCfg, p.circuit, p.geoURL+path, values, &entries); err != nil {
		return weather.GeocodeResult{}, fmt.Errorf("%s geocode: %w", p.name, err)
	}
	if len(entries) == 0 {
		return weather.GeocodeResult{}, weather.ErrNoMatch
	}
	return entries[0].result()
}

type owCondition struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

func firstCondition(items []owCondition) (string, int) {
	if len(items) == 0 {
		return "", 0
	}
	return items[0].Description, items[0].ID
}

type owTemps struct {
	Day   float64 `json:"day"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Night float64 `json:"night"`
	Eve   float64 `json:"eve"`
	Morn  float64 `json:"morn"`
}

func (t owTemps) toModel() weather.DayTemperatures {
	return weather.DayTemperatures{Day: t.Day, Min: t.Min, Max: t.Max, Night: t.Night, Eve: t.Eve, Morn: t.Morn}
}

func (p *OpenWeatherProvider) FetchWeather(ctx context.Context, lat, lon float64) (weather.WeatherSnapshot, error) {
	if p.apiKey == "" {
		return weather.WeatherSnapshot{}, fmt.Errorf("%s: %w", p.name, errNoAPIKey)
	}

	values := url.Values{}
	values.Set("appid", p.apiKey)
	values.Set("units", p.units)
	values.Set("exclude", "minutely,alerts")
	values.Set("lat", formatCoord(lat))
	values.Set("lon", formatCoord(lon))

	var payload struct {
		Current struct {
			Temp      float64       `json:"temp"`
			FeelsLike float64       `json:"feels_like"`
			Pressure  float64       `json:"pressure"`
			Humidity  float64       `json:"humidity"`
			UVI       float64       `json:"uvi"`
			Clouds    float64       `json:"clouds"`
			WindSpeed float64       `json:"wind_speed"`
			WindGust  float64       `json:"wind_gust"`
			Weather   []owCondition `json:"weather"`
		} `json:"current"`
		Hourly []struct {
			Dt        int64         `json:"dt"`
			Temp      float64       `json:"temp"`
			FeelsLike float64       `json:"feels_like"`
			Pressure  float64       `json:"pressure"`
			Humidity  float64       `json:"humidity"`
			DewPoint  float64       `json:"dew_point"`
			Clouds    float64       `json:"clouds"`
			WindSpeed float64       `json:"wind_speed"`
			WindGust  float64       `json:"wind_gust"`
			Weather   []owCondition `json:"weather"`
		} `json:"hourly"`
		Daily []struct {
			Dt        int64         `json:"dt"`
			Sunrise   int64         `json:"sunrise"`
			Sunset    int64         `json:"sunset"`
			Summary   string        `json:"summary"`
			Temp      owTemps       `json:"temp"`
			FeelsLike owTemps       `json:"feels_like"`
			Pressure  float64       `json:"pressure"`
			Humidity  float64       `json:"humidity"`
			WindSpeed float64       `json:"wind_speed"`
			WindGust  float64       `json:"wind_gust"`
			Weather   []owCondition `json:"weather"`
			Clouds    float64       `json:"clouds"`
			UVI       float64       `json:"uvi"`
		} `json:"daily"`
	}

	empty, err := getJSON(ctx, p.httpCfg, p.circuit, p.oneCallURL, values, &payload)
	if err != nil {
		return weather.WeatherSnapshot{}, fmt.Errorf("%s weather: %w", p.name, err)
	}
	if empty {
		return weather.WeatherSnapshot{}, fmt.Errorf("%s weather: empty response", p.name)
	}

	desc, descID := firstCondition(payload.Current.Weather)
	snap := weather.WeatherSnapshot{
		CurrentCondition: weather.CurrentCondition{
			Temperature:     payload.Current.Temp,
			FeelsLike:       payload.Current.FeelsLike,
			Pressure:        payload.Current.Pressure,
			Humidity:        payload.Current.Humidity,
			WindSpeed:       payload.Current.WindSpeed,
			WindGusts:       payload.Current.WindGust,
			Description:     desc,
			DescriptionID:   descID,
			CloudPercentage: payload.Current.Clouds,
			UVIndex:         payload.Current.UVI,
		},
		HourlyConditions: make([]weather.HourlyCondition, 0, len(payload.Hourly)),
		DailyConditions:  make([]weather.DailyCondition, 0, len(payload.Daily)),
	}

	for _, h := range payload.Hourly {
		desc, descID := firstCondition(h.Weather)
		snap.HourlyConditions = append(snap.HourlyConditions, weather.HourlyCondition{
			Time:            time.Unix(h.Dt, 0).UTC(),
			Temperature:     h.Temp,
			FeelsLike:       h.FeelsLike,
			Pressure:        h.Pressure,
			Humidity:        h.Humidity,
			DewPoint:        h.DewPoint,
			CloudPercentage: h.Clouds,
			WindSpeed:       h.WindSpeed,
			WindGusts:       h.WindGust,
			Description:     desc,
			DescriptionID:   descID,
		})
	}

	for _, d := range payload.Daily {
		desc, descID := firstCondition(d.Weather)
		snap.DailyConditions = append(snap.DailyConditions, weather.DailyCondition{
			Time:            time.Unix(d.Dt, 0).UTC(),
			Sunrise:         time.Unix(d.Sunrise, 0).UTC(),
			Sunset:          time.Unix(d.Sunset, 0).UTC(),
			Summary:         d.Summary,
			Temp:            d.Temp.toModel(),
			FeelsLike:       d.FeelsLike.toModel(),
			Pressure:        d.Pressure,
			Humidity:        d.Humidity,
			WindSpeed:       d.WindSpeed,
			WindGusts:       d.WindGust,
			Description:     desc,
			DescriptionID:   descID,
			CloudPercentage: d.Clouds,
			UVIndex:         d.UVI,
		})
	}

	return snap, nil
}
