package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenMeteo_FetchWeather(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "30.27", r.URL.Query().Get("latitude"))
		assert.Equal(t, "unixtime", r.URL.Query().Get("timeformat"))
		assert.Equal(t, "48", r.URL.Query().Get("forecast_hours"))
		assert.Empty(t, r.URL.Query().Get("temperature_unit"))
		assert.Empty(t, r.URL.Query().Get("wind_speed_unit"))
		w.Write([]byte(`{
			"current": {"temperature_2m": 31.2, "apparent_temperature": 33, "relative_humidity_2m": 45, "weather_code": 3, "uv_index": 4},
			"hourly": {"time": [1748782800, 1748786400], "temperature_2m": [31, 32], "weather_code": [0, 61]},
			"daily": {"time": [1748754000], "weather_code": [95], "temperature_2m_max": [35], "temperature_2m_min": [23],
				"apparent_temperature_max": [37], "apparent_temperature_min": [24],
				"sunrise": [1748777340], "sunset": [1748827740], "uv_index_max": [9]}
		}`))
	}))
	defer srv.Close()

	p := NewOpenMeteoProvider(srv.Client(), "metric")
	p.baseURL = srv.URL

	snap, err := p.FetchWeather(context.Background(), 30.27, -97.74)
	require.NoError(t, err)

	assert.Equal(t, "overcast clouds", snap.CurrentCondition.Description)
	assert.Equal(t, 33.0, snap.CurrentCondition.FeelsLike)

	require.Len(t, snap.HourlyConditions, 2)
	assert.Equal(t, "clear sky", snap.HourlyConditions[0].Description)
	assert.Equal(t, "rain", snap.HourlyConditions[1].Description)
	// Columns missing from the payload read as zero.
	assert.Equal(t, 0.0, snap.HourlyConditions[1].DewPoint)

	require.Len(t, snap.DailyConditions, 1)
	day := snap.DailyConditions[0]
	assert.Equal(t, "thunderstorm", day.Description)
	assert.Equal(t, 35.0, day.Temp.Max)
	assert.Equal(t, 23.0, day.Temp.Night)
	assert.Equal(t, 29.0, day.Temp.Morn)
	assert.Equal(t, int64(1748827740), day.Sunset.Unix())
}

func TestOpenMeteo_ImperialUnits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "fahrenheit", q.Get("temperature_unit"))
		assert.Equal(t, "mph", q.Get("wind_speed_unit"))
		assert.Equal(t, "inch", q.Get("precipitation_unit"))
		w.Write([]byte(`{"current": {"temperature_2m": 88.2, "weather_code": 0}}`))
	}))
	defer srv.Close()

	for _, units := range []string{"", "imperial"} {
		p := NewOpenMeteoProvider(srv.Client(), units)
		p.baseURL = srv.URL

		snap, err := p.FetchWeather(context.Background(), 30.27, -97.74)
		require.NoError(t, err)
		assert.Equal(t, 88.2, snap.CurrentCondition.Temperature)
	}
}

func TestDescribeOpenMeteoCode(t *testing.T) {
	tests := map[int]string{
		0:  "clear sky",
		1:  "few clouds",
		2:  "scattered clouds",
		3:  "overcast clouds",
		45: "fog",
		53: "drizzle",
		63: "rain",
		81: "rain",
		73: "snow",
		99: "thunderstorm",
		30: "unknown",
	}

	for code, want := range tests {
		assert.Equal(t, want, describeOpenMeteoCode(code), "code %d", code)
	}
}
