package providers

import (
	"context"
	"fmt"
	"sync"

	"github.com/kelvins/geocoder"
	"github.com/sony/gobreaker"

	"github.com/i474232898/littleweather/internal/common"
	"github.com/i474232898/littleweather/internal/weather"
)

// geocoderMu serialises calls into kelvins/geocoder, which keeps the API key
// in a package variable.
var geocoderMu sync.Mutex

// GoogleGeocoder implements weather.Geocoder with the Google Geocoding API.
type GoogleGeocoder struct {
	name    string
	apiKey  string
	circuit *gobreaker.CircuitBreaker

	forward func(geocoder.Address) (geocoder.Location, error)
	reverse func(geocoder.Location) ([]geocoder.Address, error)
}

func NewGoogleGeocoder(apiKey string) *GoogleGeocoder {
	return &GoogleGeocoder{
		name:    "google",
		apiKey:  apiKey,
		circuit: newCircuitBreaker("google-geocoder"),
		forward: geocoder.Geocoding,
		reverse: geocoder.GeocodingReverse,
	}
}

func (g *GoogleGeocoder) Name() string {
	return g.name
}

// isZeroResults reports whether the upstream answered without a match
// rather than failing. kelvins/geocoder reports this as "No results found."
func isZeroResults(err error) bool {
	return err != nil && common.HasAnyFold(err.Error(), "ZERO_RESULTS", "no results")
}

func (g *GoogleGeocoder) Geocode(ctx context.Context, q weather.GeocodeQuery) (weather.GeocodeResult, error) {
	if g.apiKey == "" {
		return weather.GeocodeResult{}, fmt.Errorf("%s: %w", g.name, errNoAPIKey)
	}
	if err := ctx.Err(); err != nil {
		return weather.GeocodeResult{}, err
	}

	addr := geocoder.Address{
		City:       q.City,
		State:      q.State,
		PostalCode: q.PostalCode,
		Country:    q.CountryCode,
	}

	var zero bool
	result, err := g.circuit.Execute(func() (interface{}, error) {
		geocoderMu.Lock()
		defer geocoderMu.Unlock()
		geocoder.ApiKey = g.apiKey

		loc, err := g.forward(addr)
		if isZeroResults(err) {
			zero = true
			return geocoder.Location{}, nil
		}
		return loc, err
	})
	if err != nil {
		return weather.GeocodeResult{}, fmt.Errorf("%s geocode: %w", g.name, err)
	}

	loc := result.(geocoder.Location)
	if zero || loc.Latitude == 0 || loc.Longitude == 0 {
		return weather.GeocodeResult{}, weather.ErrNoMatch
	}

	// Google's forward answer has coordinates only; echo back the query.
	return weather.GeocodeResult{
		Lat:     loc.Latitude,
		Lon:     loc.Longitude,
		Name:    q.City,
		State:   q.State,
		Country: q.CountryCode,
	}, nil
}

func (g *GoogleGeocoder) ReverseGeocode(ctx context.Context, lat, lon float64) (weather.GeocodeResult, error) {
	if g.apiKey == "" {
		return weather.GeocodeResult{}, fmt.Errorf("%s: %w", g.name, errNoAPIKey)
	}
	if err := ctx.Err(); err != nil {
		return weather.GeocodeResult{}, err
	}

	result, err := g.circuit.Execute(func() (interface{}, error) {
		geocoderMu.Lock()
		defer geocoderMu.Unlock()
		geocoder.ApiKey = g.apiKey

		addrs, err := g.reverse(geocoder.Location{Latitude: lat, Longitude: lon})
		if isZeroResults(err) {
			return []geocoder.Address(nil), nil
		}
		return addrs, err
	})
	if err != nil {
		return weather.GeocodeResult{}, fmt.Errorf("%s reverse geocode: %w", g.name, err)
	}

	addrs := result.([]geocoder.Address)
	if len(addrs) == 0 {
		return weather.GeocodeResult{}, weather.ErrNoMatch
	}

	return weather.GeocodeResult{
		Lat:     lat,
		Lon:     lon,
		Name:    addrs[0].City,
		State:   addrs[0].State,
		Country: addrs[0].Country,
	}, nil
}
