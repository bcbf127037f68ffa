package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/sony/gobreaker"

	"github.com/i474232898/littleweather/internal/common"
	"github.com/i474232898/littleweather/internal/weather"
)

// WeatherAPIProvider implements weather.GeoClient for WeatherAPI.com, using
// search.json for both geocode directions and forecast.json for weather.
type WeatherAPIProvider struct {
	name    string
	apiKey  string
	metric  bool
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	now     func() time.Time
}

// NewWeatherAPIProvider creates a WeatherAPI backend. units is "imperial"
// (the default) or "metric".
func NewWeatherAPIProvider(client *http.Client, apiKey, units string) *WeatherAPIProvider {
	h := http.Header{}
	h.Set("accept", "application/json")

	return &WeatherAPIProvider{
		name:    "weatherapi",
		apiKey:  apiKey,
		metric:  strings.EqualFold(units, "metric"),
		baseURL: "https://api.weatherapi.com/v1",
		httpCfg: defaultHTTPConfig(client, h),
		circuit: newCircuitBreaker("weatherapi"),
		now:     time.Now,
	}
}

func (p *WeatherAPIProvider) Name() string {
	return p.name
}

type waSearchEntry struct {
	Name    string  `json:"name"`
	Region  string  `json:"region"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// Geocode searches by postal code when one is given, otherwise by
// "city, state, country".
func (p *WeatherAPIProvider) Geocode(ctx context.Context, q weather.GeocodeQuery) (weather.GeocodeResult, error) {
	query := fmt.Sprintf("%s, %s, %s", q.City, q.State, q.CountryCode)
	if q.PostalCode != "" {
		query = fmt.Sprintf("%s, %s", q.PostalCode, q.CountryCode)
	}
	return p.search(ctx, query)
}

func (p *WeatherAPIProvider) ReverseGeocode(ctx context.Context, lat, lon float64) (weather.GeocodeResult, error) {
	return p.search(ctx, formatCoord(lat)+","+formatCoord(lon))
}

func (p *WeatherAPIProvider) search(ctx context.Context, query string) (weather.GeocodeResult, error) {
	if p.apiKey == "" {
		return weather.GeocodeResult{}, fmt.Errorf("%s: %w", p.name, errNoAPIKey)
	}

	values := url.Values{}
	values.Set("key", p.apiKey)
	values.Set("q", query)

	var entries []waSearchEntry
	if _, err := getJSON(ctx, p.httpCfg, p.circuit, p.baseURL+"/search.json", values, &entries); err != nil {
		return weather.GeocodeResult{}, fmt.Errorf("%s search: %w", p.name, err)
	}
	if len(entries) == 0 || (entries[0].Lat == 0 && entries[0].Lon == 0) {
		return weather.GeocodeResult{}, weather.ErrNoMatch
	}

	e := entries[0]
	return weather.GeocodeResult{Lat: e.Lat, Lon: e.Lon, Name: e.Name, State: e.Region, Country: e.Country}, nil
}

type waCondition struct {
	Text string `json:"text"`
	Code int    `json:"code"`
}

// waReading holds the fields shared by the current and hourly blocks. Both
// unit systems are decoded and pick selects one.
type waReading struct {
	TempC      float64     `json:"temp_c"`
	TempF      float64     `json:"temp_f"`
	FeelsC     float64     `json:"feelslike_c"`
	FeelsF     float64     `json:"feelslike_f"`
	DewC       float64     `json:"dewpoint_c"`
	DewF       float64     `json:"dewpoint_f"`
	WindKph    float64     `json:"wind_kph"`
	WindMph    float64     `json:"wind_mph"`
	GustKph    float64     `json:"gust_kph"`
	GustMph    float64     `json:"gust_mph"`
	PressureMb float64     `json:"pressure_mb"`
	Humidity   float64     `json:"humidity"`
	Cloud      float64     `json:"cloud"`
	UV         float64     `json:"uv"`
	Condition  waCondition `json:"condition"`
}

func (p *WeatherAPIProvider) pick(metric, imperial float64) float64 {
	if p.metric {
		return metric
	}
	return imperial
}

func (p *WeatherAPIProvider) FetchWeather(ctx context.Context, lat, lon float64) (weather.WeatherSnapshot, error) {
	if p.apiKey == "" {
		return weather.WeatherSnapshot{}, fmt.Errorf("%s: %w", p.name, errNoAPIKey)
	}

	values := url.Values{}
	values.Set("key", p.apiKey)
	values.Set("q", formatCoord(lat)+","+formatCoord(lon))
	values.Set("days", "3")
	values.Set("aqi", "no")
	values.Set("alerts", "no")

	var payload struct {
		Location struct {
			TzID string `json:"tz_id"`
		} `json:"location"`
		Current  waReading `json:"current"`
		Forecast struct {
			Forecastday []struct {
				Date      string `json:"date"`
				DateEpoch int64  `json:"date_epoch"`
				Day       struct {
					MaxTempC  float64     `json:"maxtemp_c"`
					MaxTempF  float64     `json:"maxtemp_f"`
					MinTempC  float64     `json:"mintemp_c"`
					MinTempF  float64     `json:"mintemp_f"`
					AvgTempC  float64     `json:"avgtemp_c"`
					AvgTempF  float64     `json:"avgtemp_f"`
					MaxWindK  float64     `json:"maxwind_kph"`
					MaxWindM  float64     `json:"maxwind_mph"`
					Humidity  float64     `json:"avghumidity"`
					UV        float64     `json:"uv"`
					Condition waCondition `json:"condition"`
				} `json:"day"`
				Astro struct {
					Sunrise string `json:"sunrise"`
					Sunset  string `json:"sunset"`
				} `json:"astro"`
				Hour []struct {
					TimeEpoch int64 `json:"time_epoch"`
					waReading
				} `json:"hour"`
			} `json:"forecastday"`
		} `json:"forecast"`
	}

	empty, err := getJSON(ctx, p.httpCfg, p.circuit, p.baseURL+"/forecast.json", values, &payload)
	if err != nil {
		return weather.WeatherSnapshot{}, fmt.Errorf("%s weather: %w", p.name, err)
	}
	if empty {
		return weather.WeatherSnapshot{}, fmt.Errorf("%s weather: empty response", p.name)
	}

	tz, err := time.LoadLocation(payload.Location.TzID)
	if err != nil {
		tz = time.UTC
	}

	cur := payload.Current
	snap := weather.WeatherSnapshot{
		CurrentCondition: weather.CurrentCondition{
			Temperature:     p.pick(cur.TempC, cur.TempF),
			FeelsLike:       p.pick(cur.FeelsC, cur.FeelsF),
			Pressure:        cur.PressureMb,
			Humidity:        cur.Humidity,
			WindSpeed:       p.pick(cur.WindKph, cur.WindMph),
			WindGusts:       p.pick(cur.GustKph, cur.GustMph),
			Description:     describeWeatherAPICondition(cur.Condition.Text),
			DescriptionID:   cur.Condition.Code,
			CloudPercentage: cur.Cloud,
			UVIndex:         cur.UV,
		},
	}

	// Hours arrive grouped per forecast day, starting at local midnight.
	// Only hours from now on are kept, matching the other backends.
	now := p.now()
	for _, day := range payload.Forecast.Forecastday {
		for _, h := range day.Hour {
			ts := time.Unix(h.TimeEpoch, 0).UTC()
			if ts.Add(time.Hour).Before(now) {
				continue
			}
			snap.HourlyConditions = append(snap.HourlyConditions, weather.HourlyCondition{
				Time:            ts,
				Temperature:     p.pick(h.TempC, h.TempF),
				FeelsLike:       p.pick(h.FeelsC, h.FeelsF),
				Pressure:        h.PressureMb,
				Humidity:        h.Humidity,
				DewPoint:        p.pick(h.DewC, h.DewF),
				CloudPercentage: h.Cloud,
				WindSpeed:       p.pick(h.WindKph, h.WindMph),
				WindGusts:       p.pick(h.GustKph, h.GustMph),
				Description:     describeWeatherAPICondition(h.Condition.Text),
				DescriptionID:   h.Condition.Code,
			})
		}

		d := day.Day
		lo, hi := p.pick(d.MinTempC, d.MinTempF), p.pick(d.MaxTempC, d.MaxTempF)
		temps := spreadTemperatures(lo, hi)
		temps.Day = p.pick(d.AvgTempC, d.AvgTempF)

		snap.DailyConditions = append(snap.DailyConditions, weather.DailyCondition{
			Time:          time.Unix(day.DateEpoch, 0).UTC(),
			Sunrise:       parseAstroTime(day.Date, day.Astro.Sunrise, tz),
			Sunset:        parseAstroTime(day.Date, day.Astro.Sunset, tz),
			Temp:          temps,
			FeelsLike:     temps,
			Humidity:      d.Humidity,
			WindSpeed:     p.pick(d.MaxWindK, d.MaxWindM),
			Description:   describeWeatherAPICondition(d.Condition.Text),
			DescriptionID: d.Condition.Code,
			UVIndex:       d.UV,
		})
	}

	return snap, nil
}

// parseAstroTime combines a forecast date ("2025-06-01") with a local clock
// reading ("06:30 AM"). Unparseable values yield the zero time.
func parseAstroTime(date, clock string, tz *time.Location) time.Time {
	t, err := time.ParseInLocation("2006-01-02 03:04 PM", date+" "+strings.TrimSpace(clock), tz)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

// describeWeatherAPICondition rewords WeatherAPI condition text into the
// vocabulary the background rules match on.
func describeWeatherAPICondition(text string) string {
	switch {
	case text == "":
		return "unknown"
	case common.HasAnyFold(text, "thunder"):
		return "thunderstorm"
	case common.HasAnyFold(text, "snow", "sleet", "blizzard", "ice pellets"):
		return "snow"
	case common.HasAnyFold(text, "drizzle"):
		return "drizzle"
	case common.HasAnyFold(text, "rain", "shower"):
		return "rain"
	case common.HasAnyFold(text, "fog", "mist"):
		return "fog"
	case common.HasAnyFold(text, "partly"):
		return "scattered clouds"
	case common.HasAnyFold(text, "cloudy", "overcast"):
		return "overcast clouds"
	case common.HasAnyFold(text, "sunny", "clear"):
		return "clear sky"
	default:
		return strings.ToLower(text)
	}
}
