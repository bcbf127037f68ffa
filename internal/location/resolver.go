package location

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/i474232898/littleweather/internal/weather"
)

var validate = validator.New()

// Result is what a resolution reports back to the caller.
type Result struct {
	Status   weather.Status    `json:"status"`
	Location *weather.Location `json:"location,omitempty"`
}

// Resolver turns device positions and manual searches into the current
// location. Each call takes a sequence number; a call whose result arrives
// after a newer call was issued is discarded.
type Resolver struct {
	geocoder weather.Geocoder
	locator  Locator
	store    *Store
	opts     PositionOptions

	// applyMu makes the sequence check and the store write one step.
	applyMu sync.Mutex
	seq     uint64
}

// NewResolver creates a Resolver. A nil locator means device geolocation is
// unavailable and automatic resolution always reports an error.
func NewResolver(geocoder weather.Geocoder, locator Locator, store *Store) *Resolver {
	return &Resolver{
		geocoder: geocoder,
		locator:  locator,
		store:    store,
		opts:     DefaultPositionOptions,
	}
}

// WithPositionOptions overrides the device lookup bounds.
func (r *Resolver) WithPositionOptions(opts PositionOptions) *Resolver {
	r.opts = opts
	return r
}

func (r *Resolver) next() uint64 {
	r.applyMu.Lock()
	defer r.applyMu.Unlock()
	r.seq++
	return r.seq
}

// apply adopts loc if seq is still the latest issued call.
func (r *Resolver) apply(ctx context.Context, seq uint64, loc weather.Location) Result {
	r.applyMu.Lock()
	defer r.applyMu.Unlock()

	if seq != r.seq {
		log.Info().Uint64("seq", seq).Uint64("latest", r.seq).Msg("discarding superseded location result")
		return Result{Status: weather.StatusSuperseded}
	}
	if err := r.store.Adopt(ctx, loc); err != nil {
		log.Error().Err(err).Msg("failed to store resolved location")
		return Result{Status: weather.StatusError}
	}
	return Result{Status: weather.StatusSuccess, Location: &loc}
}

// ResolveAutomatic resolves the current location from the device position.
// When the rounded device coordinates equal the current location's raw
// coordinates the stored location is returned without a reverse geocode.
func (r *Resolver) ResolveAutomatic(ctx context.Context) Result {
	seq := r.next()
	logger := log.With().Str("request", uuid.NewString()).Uint64("seq", seq).Logger()

	if r.locator == nil {
		logger.Warn().Err(ErrGeolocationUnavailable).Msg("automatic location unavailable")
		return Result{Status: weather.StatusError}
	}

	fix, err := r.locator.CurrentPosition(ctx, r.opts)
	if err != nil {
		logger.Error().Err(err).Msg("error obtaining device location")
		return Result{Status: weather.StatusError}
	}

	lat := weather.RoundCoord(fix.Latitude)
	lon := weather.RoundCoord(fix.Longitude)

	if cur := r.store.Current(); cur != nil && lat != 0 && lon != 0 &&
		lat == cur.LatRaw && lon == cur.LonRaw {
		logger.Debug().Msg("device coords match stored location, skipping reverse geocode")
		return Result{Status: weather.StatusSuccess, Location: cur}
	}

	res, err := r.geocoder.ReverseGeocode(ctx, lat, lon)
	if err != nil {
		logger.Error().Err(err).Msg("error during reverse geocoding")
		return Result{Status: weather.StatusError}
	}

	loc := weather.Location{
		Lat:     weather.RoundCoord(res.Lat),
		Lon:     weather.RoundCoord(res.Lon),
		LatRaw:  lat,
		LonRaw:  lon,
		Name:    res.Name,
		State:   res.State,
		Country: res.Country,
	}
	return r.apply(ctx, seq, loc)
}

// ResolveManual resolves a searched place. Country code is required, plus
// either city and state or a postal code. Raw coordinates stay zero since
// the location did not come from the device.
func (r *Resolver) ResolveManual(ctx context.Context, countryCode, city, state, postalCode string) Result {
	seq := r.next()
	logger := log.With().Str("request", uuid.NewString()).Uint64("seq", seq).Logger()

	q := weather.GeocodeQuery{
		CountryCode: strings.TrimSpace(countryCode),
		City:        strings.TrimSpace(city),
		State:       strings.TrimSpace(state),
		PostalCode:  strings.TrimSpace(postalCode),
	}
	if err := validate.Struct(q); err != nil {
		logger.Warn().Err(err).Msg("invalid location search")
		return Result{Status: weather.StatusError}
	}

	res, err := r.geocoder.Geocode(ctx, q)
	if errors.Is(err, weather.ErrNoMatch) {
		logger.Info().Str("country", q.CountryCode).Msg("location search found no match")
		return Result{Status: weather.StatusNotFound}
	}
	if err != nil {
		logger.Error().Err(err).Msg("error occurred while searching for location")
		return Result{Status: weather.StatusError}
	}

	loc := weather.Location{
		Lat:        weather.RoundCoord(res.Lat),
		Lon:        weather.RoundCoord(res.Lon),
		Name:       res.Name,
		State:      res.State,
		PostalCode: q.PostalCode,
		Country:    res.Country,
	}
	return r.apply(ctx, seq, loc)
}
