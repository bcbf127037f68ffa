package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sony/gobreaker"

	"github.com/i474232898/littleweather/internal/weather"
)

// DefaultLittleWeatherURL is the public Little Weather API.
const DefaultLittleWeatherURL = "https://weather-api.mattlittle.me"

// LittleWeatherClient implements weather.GeoClient for the Little Weather API.
// Geocode calls authenticate with the geocode key, weather calls with the
// weather key; both send the key in the x-api-key header.
type LittleWeatherClient struct {
	name       string
	baseURL    string
	geocodeCfg HTTPClientConfig
	weatherCfg HTTPClientConfig
	circuit    *gobreaker.CircuitBreaker
}

func NewLittleWeatherClient(client *http.Client, baseURL, geocodeKey, weatherKey string) *LittleWeatherClient {
	if baseURL == "" {
		baseURL = DefaultLittleWeatherURL
	}

	return &LittleWeatherClient{
		name:       "littleweather",
		baseURL:    strings.TrimRight(baseURL, "/"),
		geocodeCfg: defaultHTTPConfig(client, apiKeyHeader(geocodeKey)),
		weatherCfg: defaultHTTPConfig(client, apiKeyHeader(weatherKey)),
		circuit:    newCircuitBreaker("littleweather"),
	}
}

func apiKeyHeader(key string) http.Header {
	h := http.Header{}
	h.Set("accept", "application/json")
	h.Set("x-api-key", key)
	return h
}

func (c *LittleWeatherClient) Name() string {
	return c.name
}

// geocodePayload mirrors the geocode/reverseGeocode response. Pointers let
// us tell an absent coordinate from a zero one.
type geocodePayload struct {
	Lat     *float64 `json:"lat"`
	Lon     *float64 `json:"lon"`
	Name    string   `json:"name"`
	State   string   `json:"state"`
	Country string   `json:"country"`
}

func (p geocodePayload) result() (weather.GeocodeResult, error) {
	if p.Lat == nil || p.Lon == nil || *p.Lat == 0 || *p.Lon == 0 {
		return weather.GeocodeResult{}, weather.ErrNoMatch
	}
	return weather.GeocodeResult{
		Lat:     *p.Lat,
		Lon:     *p.Lon,
		Name:    p.Name,
		State:   p.State,
		Country: p.Country,
	}, nil
}

// Geocode resolves a city/state or postal code within a country.
// A postal code takes precedence over city/state when both are given.
func (c *LittleWeatherClient) Geocode(ctx context.Context, q weather.GeocodeQuery) (weather.GeocodeResult, error) {
	values := url.Values{}
	if q.PostalCode != "" {
		values.Set("postalCode", q.PostalCode)
	} else {
		values.Set("city", q.City)
		values.Set("state", q.State)
	}
	values.Set("countryCode", q.CountryCode)

	var payload geocodePayload
	empty, err := getJSON(ctx, c.geocodeCfg, c.circuit, c.baseURL+"/geocode", values, &payload)
	if err != nil {
		return weather.GeocodeResult{}, fmt.Errorf("%s geocode: %w", c.name, err)
	}
	if empty {
		return weather.GeocodeResult{}, weather.ErrNoMatch
	}
	return payload.result()
}

func (c *LittleWeatherClient) ReverseGeocode(ctx context.Context, lat, lon float64) (weather.GeocodeResult, error) {
	values := url.Values{}
	values.Set("lat", formatCoord(lat))
	values.Set("lon", formatCoord(lon))

	var payload geocodePayload
	empty, err := getJSON(ctx, c.geocodeCfg, c.circuit, c.baseURL+"/reverseGeocode", values, &payload)
	if err != nil {
		return weather.GeocodeResult{}, fmt.Errorf("%s reverse geocode: %w", c.name, err)
	}
	if empty {
		return weather.GeocodeResult{}, weather.ErrNoMatch
	}
	return payload.result()
}

// FetchWeather returns the snapshot exactly as the API shapes it.
func (c *LittleWeatherClient) FetchWeather(ctx context.Context, lat, lon float64) (weather.WeatherSnapshot, error) {
	values := url.Values{}
	values.Set("lat", formatCoord(lat))
	values.Set("lon", formatCoord(lon))

	var snap weather.WeatherSnapshot
	empty, err := getJSON(ctx, c.weatherCfg, c.circuit, c.baseURL+"/weather", values, &snap)
	if err != nil {
		return weather.WeatherSnapshot{}, fmt.Errorf("%s weather: %w", c.name, err)
	}
	if empty {
		return weather.WeatherSnapshot{}, fmt.Errorf("%s weather: empty response", c.name)
	}
	return snap, nil
}
