package weather

import (
	"context"
	"errors"
)

// ErrNoMatch is returned by a Geocoder when the upstream has no result for
// the query. It is a normal outcome, not a transport failure.
var ErrNoMatch = errors.New("no geocode match")

// Geocoder resolves places to coordinates and back.
// Results carry raw upstream precision; callers round.
type Geocoder interface {
	Geocode(ctx context.Context, q GeocodeQuery) (GeocodeResult, error)
	ReverseGeocode(ctx context.Context, lat, lon float64) (GeocodeResult, error)
}

// Fetcher retrieves a full weather snapshot for coordinates.
type Fetcher interface {
	FetchWeather(ctx context.Context, lat, lon float64) (WeatherSnapshot, error)
}

// GeoClient is the full remote contract: forward geocode, reverse geocode
// and weather fetch.
type GeoClient interface {
	Geocoder
	Fetcher
}

// BlobStore is the contract the persistence backends (memory, file, sqlite,
// postgres) must satisfy. Get returns store.ErrNotFound for unknown keys.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Close() error
}
