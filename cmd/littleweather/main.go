package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	httpapi "github.com/i474232898/littleweather/internal/api/http"
	"github.com/i474232898/littleweather/internal/config"
	"github.com/i474232898/littleweather/internal/location"
	"github.com/i474232898/littleweather/internal/scheduler"
	"github.com/i474232898/littleweather/internal/store"
	"github.com/i474232898/littleweather/internal/weather"
	"github.com/i474232898/littleweather/internal/weather/providers"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Shared HTTP client for outbound API calls. A zero timeout keeps the
	// transport defaults.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	client, err := buildGeoClient(cfg, httpClient)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure weather client")
	}

	blobs, err := openBlobStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StorageDriver).Msg("failed to open storage")
	}
	defer blobs.Close()

	locations := location.NewStore(blobs)
	if err := locations.Init(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to load saved locations")
	}

	// The host pushes device fixes unless a static position is configured.
	var device *location.PushLocator
	var locator location.Locator
	if cfg.DeviceLatitude != nil && cfg.DeviceLongitude != nil {
		locator = location.StaticLocator{Latitude: *cfg.DeviceLatitude, Longitude: *cfg.DeviceLongitude}
	} else {
		device = location.NewPushLocator()
		locator = device
	}

	resolver := location.NewResolver(client, locator, locations).WithPositionOptions(location.PositionOptions{
		HighAccuracy: true,
		Timeout:      cfg.PositionTimeout,
		MaxAge:       cfg.PositionMaxAge,
	})
	cache := weather.NewCache(client)
	visibility := &scheduler.PageVisibility{}

	// Recurring refresh follows the current location.
	sched := scheduler.New(cfg.RefreshInterval, cache, visibility)
	locations.Subscribe(func(loc *weather.Location) {
		if err := sched.Track(loc); err != nil {
			log.Error().Err(err).Msg("failed to reschedule weather refresh")
		}
	})
	if err := sched.Track(locations.Current()); err != nil {
		log.Fatal().Err(err).Msg("failed to schedule weather refresh")
	}
	sched.Start()
	defer sched.Stop()

	// Automatic resolution takes priority at startup; a failure leaves the
	// host to prompt for a manual search.
	go func() {
		res := resolver.ResolveAutomatic(ctx)
		if res.Status != weather.StatusSuccess || res.Location == nil {
			log.Info().Str("status", string(res.Status)).Msg("startup location resolution did not succeed")
			return
		}
		cache.Refresh(ctx, res.Location.Lat, res.Location.Lon)
	}()

	app := fiber.New(fiber.Config{
		AppName:               "littleweather",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "littleweather",
		})
	})

	httpapi.RegisterRoutes(app, httpapi.Deps{
		Locations:  locations,
		Resolver:   resolver,
		Weather:    cache,
		Device:     device,
		Visibility: visibility,
	})

	go func() {
		log.Info().Str("addr", cfg.BindAddr).Msg("ui bridge listening")
		if err := app.Listen(cfg.BindAddr); err != nil {
			log.Error().Err(err).Msg("fiber server stopped")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
}

func buildGeoClient(cfg *config.AppConfig, httpClient *http.Client) (weather.GeoClient, error) {
	little := providers.NewLittleWeatherClient(httpClient, cfg.APIBaseURL, cfg.GeocodeAPIKey, cfg.WeatherAPIKey)

	var openWeather *providers.OpenWeatherProvider
	if cfg.GeocoderProvider == "openweather" || cfg.WeatherProvider == "openweather" {
		openWeather = providers.NewOpenWeatherProvider(httpClient, cfg.OpenWeatherAPIKey, cfg.OpenWeatherUnits)
	}

	var weatherAPI *providers.WeatherAPIProvider
	if cfg.GeocoderProvider == "weatherapi" || cfg.WeatherProvider == "weatherapi" {
		weatherAPI = providers.NewWeatherAPIProvider(httpClient, cfg.WeatherAPIComKey, cfg.Units)
	}

	var geocoder weather.Geocoder
	switch cfg.GeocoderProvider {
	case "littleweather":
		geocoder = little
	case "openweather":
		geocoder = openWeather
	case "weatherapi":
		geocoder = weatherAPI
	case "google":
		geocoder = providers.NewGoogleGeocoder(cfg.GoogleAPIKey)
	default:
		return nil, fmt.Errorf("unknown geocoder provider %q", cfg.GeocoderProvider)
	}

	var fetcher weather.Fetcher
	switch cfg.WeatherProvider {
	case "littleweather":
		fetcher = little
	case "openweather":
		fetcher = openWeather
	case "weatherapi":
		fetcher = weatherAPI
	case "openmeteo":
		fetcher = providers.NewOpenMeteoProvider(httpClient, cfg.Units)
	default:
		return nil, fmt.Errorf("unknown weather provider %q", cfg.WeatherProvider)
	}

	log.Info().Str("geocoder", backendName(geocoder)).Str("weather", backendName(fetcher)).Msg("weather backends configured")
	return providers.NewComposite(geocoder, fetcher), nil
}

func backendName(v any) string {
	if n, ok := v.(interface{ Name() string }); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", v)
}

func openBlobStore(ctx context.Context, cfg *config.AppConfig) (weather.BlobStore, error) {
	switch cfg.StorageDriver {
	case "memory":
		return store.NewMemoryStore(), nil
	case "file":
		return store.NewFileStore(cfg.StoragePath)
	case "sqlite":
		return store.NewSQLiteStore(cfg.StoragePath)
	case "postgres":
		return store.OpenPostgresStore(ctx, cfg.StorageDSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
