package providers

import (
	"github.com/i474232898/littleweather/internal/weather"
)

// Composite pairs a geocoder from one backend with a weather fetcher from
// another so the two concerns can be configured independently.
type Composite struct {
	weather.Geocoder
	weather.Fetcher
}

var _ weather.GeoClient = Composite{}

// NewComposite returns a GeoClient backed by g and f.
func NewComposite(g weather.Geocoder, f weather.Fetcher) Composite {
	return Composite{Geocoder: g, Fetcher: f}
}
