package location

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/littleweather/internal/weather"
)

type MockGeocoder struct {
	mock.Mock
}

func (m *MockGeocoder) Geocode(ctx context.Context, q weather.GeocodeQuery) (weather.GeocodeResult, error) {
	args := m.Called(ctx, q)
	return args.Get(0).(weather.GeocodeResult), args.Error(1)
}

func (m *MockGeocoder) ReverseGeocode(ctx context.Context, lat, lon float64) (weather.GeocodeResult, error) {
	args := m.Called(ctx, lat, lon)
	return args.Get(0).(weather.GeocodeResult), args.Error(1)
}

func TestResolver_AutomaticReusesStoredLocation(t *testing.T) {
	ctx := context.Background()
	geo := new(MockGeocoder)
	geo.On("ReverseGeocode", mock.Anything, 30.27, -97.74).
		Return(weather.GeocodeResult{Lat: 30.2711, Lon: -97.7437, Name: "Austin", State: "TX", Country: "US"}, nil).Once()

	s := newTestStore(t)
	r := NewResolver(geo, StaticLocator{Latitude: 30.2672, Longitude: -97.7431}, s)

	first := r.ResolveAutomatic(ctx)
	require.Equal(t, weather.StatusSuccess, first.Status)
	require.NotNil(t, first.Location)
	assert.Equal(t, weather.Location{Lat: 30.27, Lon: -97.74, LatRaw: 30.27, LonRaw: -97.74, Name: "Austin", State: "TX", Country: "US"}, *first.Location)

	second := r.ResolveAutomatic(ctx)
	assert.Equal(t, weather.StatusSuccess, second.Status)
	assert.Equal(t, first.Location, second.Location)

	geo.AssertNumberOfCalls(t, "ReverseGeocode", 1)
	assert.Len(t, s.Saved(), 1)
}

func TestResolver_AutomaticWithoutLocator(t *testing.T) {
	s := newTestStore(t)
	r := NewResolver(new(MockGeocoder), nil, s)

	res := r.ResolveAutomatic(context.Background())
	assert.Equal(t, weather.StatusError, res.Status)
	assert.Nil(t, s.Current())
}

func TestResolver_AutomaticDeviceError(t *testing.T) {
	l := NewPushLocator()
	go func() {
		for pendingWaiters(l) == 0 {
			time.Sleep(time.Millisecond)
		}
		l.Fail(ErrPermissionDenied)
	}()

	geo := new(MockGeocoder)
	r := NewResolver(geo, l, newTestStore(t))

	res := r.ResolveAutomatic(context.Background())
	assert.Equal(t, weather.StatusError, res.Status)
	geo.AssertNotCalled(t, "ReverseGeocode", mock.Anything, mock.Anything, mock.Anything)
}

func TestResolver_AutomaticUsesPositionOptions(t *testing.T) {
	geo := new(MockGeocoder)
	r := NewResolver(geo, NewPushLocator(), newTestStore(t)).
		WithPositionOptions(PositionOptions{Timeout: 20 * time.Millisecond})

	start := time.Now()
	res := r.ResolveAutomatic(context.Background())
	assert.Equal(t, weather.StatusError, res.Status)
	assert.Less(t, time.Since(start), DefaultPositionOptions.Timeout)
	geo.AssertNotCalled(t, "ReverseGeocode", mock.Anything, mock.Anything, mock.Anything)
}

func TestResolver_AutomaticReverseGeocodeFailure(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Adopt(ctx, denver))

	geo := new(MockGeocoder)
	geo.On("ReverseGeocode", mock.Anything, 30.27, -97.74).Return(weather.GeocodeResult{}, errors.New("upstream down"))

	r := NewResolver(geo, StaticLocator{Latitude: 30.27, Longitude: -97.74}, s)

	res := r.ResolveAutomatic(ctx)
	assert.Equal(t, weather.StatusError, res.Status)
	assert.Equal(t, "Denver", s.Current().Name)
	assert.Len(t, s.Saved(), 1)
}

func TestResolver_ManualSuccess(t *testing.T) {
	ctx := context.Background()
	geo := new(MockGeocoder)
	geo.On("Geocode", mock.Anything, weather.GeocodeQuery{CountryCode: "us", PostalCode: "78701"}).
		Return(weather.GeocodeResult{Lat: 30.2713, Lon: -97.7426, Name: "Austin", State: "TX", Country: "US"}, nil)

	s := newTestStore(t)
	r := NewResolver(geo, nil, s)

	res := r.ResolveManual(ctx, " us ", "", "", " 78701 ")
	require.Equal(t, weather.StatusSuccess, res.Status)

	want := weather.Location{Lat: 30.27, Lon: -97.74, Name: "Austin", State: "TX", PostalCode: "78701", Country: "US"}
	assert.Equal(t, want, *res.Location)
	assert.Equal(t, want, *s.Current())
	assert.Equal(t, []weather.Location{want}, s.Saved())
}

func TestResolver_ManualNotFound(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Adopt(ctx, denver))

	geo := new(MockGeocoder)
	geo.On("Geocode", mock.Anything, weather.GeocodeQuery{CountryCode: "us", City: "Austin", State: "TX"}).
		Return(weather.GeocodeResult{}, weather.ErrNoMatch)

	r := NewResolver(geo, nil, s)

	res := r.ResolveManual(ctx, "us", "Austin", "TX", "")
	assert.Equal(t, weather.StatusNotFound, res.Status)
	assert.Nil(t, res.Location)
	assert.Equal(t, "Denver", s.Current().Name)
}

func TestResolver_ManualUpstreamError(t *testing.T) {
	geo := new(MockGeocoder)
	geo.On("Geocode", mock.Anything, mock.Anything).Return(weather.GeocodeResult{}, errors.New("boom"))

	r := NewResolver(geo, nil, newTestStore(t))

	res := r.ResolveManual(context.Background(), "us", "Austin", "TX", "")
	assert.Equal(t, weather.StatusError, res.Status)
}

func TestResolver_ManualInvalidInput(t *testing.T) {
	tests := []struct {
		name                           string
		country, city, state, postcode string
	}{
		{"missing country", "", "Austin", "TX", ""},
		{"bad country", "usa", "Austin", "TX", ""},
		{"city without state", "us", "Austin", "", ""},
		{"nothing but country", "us", " ", " ", " "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			geo := new(MockGeocoder)
			r := NewResolver(geo, nil, newTestStore(t))

			res := r.ResolveManual(context.Background(), tt.country, tt.city, tt.state, tt.postcode)
			assert.Equal(t, weather.StatusError, res.Status)
			geo.AssertNotCalled(t, "Geocode", mock.Anything, mock.Anything)
		})
	}
}

func TestResolver_StaleResultIsSuperseded(t *testing.T) {
	ctx := context.Background()
	started := make(chan struct{})
	release := make(chan struct{})

	geo := new(MockGeocoder)
	geo.On("Geocode", mock.Anything, weather.GeocodeQuery{CountryCode: "us", PostalCode: "80202"}).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(weather.GeocodeResult{Lat: 39.7392, Lon: -104.9903, Name: "Denver"}, nil)
	geo.On("Geocode", mock.Anything, weather.GeocodeQuery{CountryCode: "us", PostalCode: "78701"}).
		Return(weather.GeocodeResult{Lat: 30.2713, Lon: -97.7426, Name: "Austin"}, nil)

	s := newTestStore(t)
	r := NewResolver(geo, nil, s)

	slow := make(chan Result, 1)
	go func() {
		slow <- r.ResolveManual(ctx, "us", "", "", "80202")
	}()
	<-started

	fast := r.ResolveManual(ctx, "us", "", "", "78701")
	require.Equal(t, weather.StatusSuccess, fast.Status)

	close(release)
	stale := <-slow

	assert.Equal(t, weather.StatusSuperseded, stale.Status)
	assert.Equal(t, "Austin", s.Current().Name)
	assert.Len(t, s.Saved(), 1)
}
