package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	APIBaseURL    string `yaml:"api_base_url"`
	GeocodeAPIKey string `yaml:"geocode_api_key"`
	WeatherAPIKey string `yaml:"weather_api_key"`

	// RefreshInterval controls how often weather is re-fetched for the
	// current location.
	RefreshInterval time.Duration `yaml:"-"`
	RefreshMS       int           `yaml:"refresh_interval_ms"`

	GeocoderProvider  string `yaml:"geocoder_provider"` // littleweather, openweather, weatherapi, google
	WeatherProvider   string `yaml:"weather_provider"`  // littleweather, openweather, weatherapi, openmeteo
	Units             string `yaml:"units"`             // imperial or metric
	OpenWeatherAPIKey string `yaml:"openweather_api_key"`
	OpenWeatherUnits  string `yaml:"openweather_units"`
	WeatherAPIComKey  string `yaml:"weatherapi_api_key"`
	GoogleAPIKey      string `yaml:"google_geocoder_api_key"`

	StorageDriver string `yaml:"storage_driver"` // memory, file, sqlite, postgres
	StoragePath   string `yaml:"storage_path"`
	StorageDSN    string `yaml:"storage_dsn"`

	// HTTPTimeout bounds outbound calls; zero leaves the transport default.
	HTTPTimeout time.Duration `yaml:"-"`

	BindAddr string `yaml:"bind_addr"`
	LogLevel string `yaml:"log_level"`

	// Device position lookup bounds.
	PositionTimeout time.Duration `yaml:"-"`
	PositionMaxAge  time.Duration `yaml:"-"`

	// Optional static device position for hosts without geolocation.
	DeviceLatitude  *float64 `yaml:"device_latitude"`
	DeviceLongitude *float64 `yaml:"device_longitude"`
}

// Load reads configuration from an optional YAML file (CONFIG_FILE) and the
// environment, environment winning, with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file found or error loading it")
	}

	cfg := &AppConfig{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.APIBaseURL = getenvDefault("LITTLEWEATHER_API_URL", orDefault(cfg.APIBaseURL, "https://weather-api.mattlittle.me"))
	cfg.GeocodeAPIKey = getenvDefault("GEOCODE_API_KEY", cfg.GeocodeAPIKey)
	cfg.WeatherAPIKey = getenvDefault("WEATHER_API_KEY", cfg.WeatherAPIKey)

	// Refresh interval: default 5 minutes.
	cfg.RefreshMS = getenvInt("WEATHER_REFRESH_INTERVAL_MS", orDefaultInt(cfg.RefreshMS, 300000))
	if cfg.RefreshMS <= 0 {
		return nil, fmt.Errorf("invalid WEATHER_REFRESH_INTERVAL_MS: %d", cfg.RefreshMS)
	}
	cfg.RefreshInterval = time.Duration(cfg.RefreshMS) * time.Millisecond

	cfg.GeocoderProvider = strings.ToLower(getenvDefault("GEOCODER_PROVIDER", orDefault(cfg.GeocoderProvider, "littleweather")))
	cfg.WeatherProvider = strings.ToLower(getenvDefault("WEATHER_PROVIDER", orDefault(cfg.WeatherProvider, "littleweather")))
	cfg.Units = strings.ToLower(getenvDefault("UNITS", orDefault(cfg.Units, "imperial")))
	cfg.OpenWeatherAPIKey = getenvDefault("OPENWEATHER_API_KEY", cfg.OpenWeatherAPIKey)
	cfg.OpenWeatherUnits = getenvDefault("OPENWEATHER_UNITS", orDefault(cfg.OpenWeatherUnits, cfg.Units))
	cfg.WeatherAPIComKey = getenvDefault("WEATHERAPI_API_KEY", cfg.WeatherAPIComKey)
	cfg.GoogleAPIKey = getenvDefault("GOOGLE_GEOCODER_API_KEY", cfg.GoogleAPIKey)

	cfg.StorageDriver = strings.ToLower(getenvDefault("STORAGE_DRIVER", orDefault(cfg.StorageDriver, "file")))
	cfg.StoragePath = getenvDefault("STORAGE_PATH", cfg.StoragePath)
	if cfg.StoragePath == "" {
		switch cfg.StorageDriver {
		case "sqlite":
			cfg.StoragePath = "littleweather.db"
		default:
			cfg.StoragePath = "littleweather.json"
		}
	}
	cfg.StorageDSN = getenvDefault("STORAGE_DSN", cfg.StorageDSN)

	timeout, err := time.ParseDuration(getenvDefault("HTTP_TIMEOUT", "0s"))
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	if cfg.PositionTimeout, err = time.ParseDuration(getenvDefault("DEVICE_TIMEOUT", "5s")); err != nil || cfg.PositionTimeout <= 0 {
		return nil, fmt.Errorf("invalid DEVICE_TIMEOUT: must be a positive duration")
	}
	if cfg.PositionMaxAge, err = time.ParseDuration(getenvDefault("DEVICE_MAX_AGE", "10s")); err != nil || cfg.PositionMaxAge < 0 {
		return nil, fmt.Errorf("invalid DEVICE_MAX_AGE: must be a non-negative duration")
	}

	cfg.BindAddr = getenvDefault("BIND_ADDR", orDefault(cfg.BindAddr, "127.0.0.1:5173"))
	cfg.LogLevel = getenvDefault("LOG_LEVEL", orDefault(cfg.LogLevel, "info"))

	if lat, ok, err := getenvFloat("DEVICE_LATITUDE"); err != nil {
		return nil, err
	} else if ok {
		cfg.DeviceLatitude = &lat
	}
	if lon, ok, err := getenvFloat("DEVICE_LONGITUDE"); err != nil {
		return nil, err
	} else if ok {
		cfg.DeviceLongitude = &lon
	}
	if (cfg.DeviceLatitude == nil) != (cfg.DeviceLongitude == nil) {
		return nil, fmt.Errorf("DEVICE_LATITUDE and DEVICE_LONGITUDE must be set together")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) validate() error {
	switch c.GeocoderProvider {
	case "littleweather", "openweather", "weatherapi", "google":
	default:
		return fmt.Errorf("unknown GEOCODER_PROVIDER %q", c.GeocoderProvider)
	}
	switch c.WeatherProvider {
	case "littleweather", "openweather", "weatherapi", "openmeteo":
	default:
		return fmt.Errorf("unknown WEATHER_PROVIDER %q", c.WeatherProvider)
	}
	switch c.Units {
	case "imperial", "metric":
	default:
		return fmt.Errorf("unknown UNITS %q", c.Units)
	}
	switch c.StorageDriver {
	case "memory", "file", "sqlite":
	case "postgres":
		if c.StorageDSN == "" {
			return fmt.Errorf("STORAGE_DSN is required for the postgres storage driver")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	return nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
		log.Warn().Str("key", key).Str("value", v).Msg("ignoring non-numeric setting")
	}
	return def
}

func getenvFloat(key string) (float64, bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, true, nil
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func orDefaultInt(v, def int) int {
	if v != 0 {
		return v
	}
	return def
}
