package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoRequestWithResilience_RetriesWhenConfigured(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	cfg := HTTPClientConfig{
		Client: srv.Client(),
		Backoff: BackoffConfig{
			MaxRetries:      3,
			InitialInterval: time.Millisecond,
			MaxInterval:     5 * time.Millisecond,
		},
	}

	resp, err := doRequestWithResilience(context.Background(), cfg, newCircuitBreaker("test"), func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, srv.URL, nil)
	})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestDoRequestWithResilience_StatusErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, want: errRateLimited},
		{name: "server error", status: http.StatusBadGateway, want: errServerError},
		{name: "client error", status: http.StatusUnauthorized, want: errUnexpected},
		{name: "not found", status: http.StatusNotFound, want: errStatusMissing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := doRequestWithResilience(context.Background(), defaultHTTPConfig(srv.Client(), nil), newCircuitBreaker(tt.name), func() (*http.Request, error) {
				return http.NewRequest(http.MethodGet, srv.URL, nil)
			})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDoRequestWithResilience_CircuitOpens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cb := newCircuitBreaker("flaky")
	cfg := defaultHTTPConfig(srv.Client(), nil)
	build := func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, srv.URL, nil)
	}

	// The default breaker trips after more than five consecutive failures.
	for i := 0; i < 6; i++ {
		_, err := doRequestWithResilience(context.Background(), cfg, cb, build)
		require.ErrorIs(t, err, errServerError)
	}

	_, err := doRequestWithResilience(context.Background(), cfg, cb, build)
	assert.ErrorIs(t, err, errCircuitOpen)
}

func TestDoRequestWithResilience_NoClient(t *testing.T) {
	_, err := doRequestWithResilience(context.Background(), HTTPClientConfig{}, newCircuitBreaker("nil"), nil)
	assert.ErrorIs(t, err, errNoHTTPClient)
}
