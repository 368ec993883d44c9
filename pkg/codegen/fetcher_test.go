package codegen

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/blockgraph/pkg/cache"
	"github.com/soundprediction/blockgraph/pkg/config"
	"github.com/soundprediction/blockgraph/pkg/types"
)

func fastRetry(n int) *RetryConfig {
	return &RetryConfig{
		MaxRetries:        n,
		InitialDelay:      time.Millisecond,
		MaxDelay:          5 * time.Millisecond,
		BackoffMultiplier: 2,
	}
}

// statusServer answers with the given statuses in order, then 200 with body.
func statusServer(t *testing.T, body string, statuses ...int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(hits.Add(1))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		if n <= len(statuses) {
			w.WriteHeader(statuses[n-1])
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func serverURL(srv *httptest.Server) types.VersionedURL {
	return types.VersionedURL(srv.URL + "/types/data-type/text/v/1")
}

func TestHTTPFetcher(t *testing.T) {
	tests := []struct {
		name       string
		statuses   []int
		retries    int
		wantErr    bool
		wantStatus int
		wantHits   int32
	}{
		{"ok", nil, 3, false, 0, 1},
		{"retries 503 then succeeds", []int{503, 503}, 3, false, 0, 3},
		{"retries 429", []int{429}, 1, false, 0, 2},
		{"404 is not retried", []int{404}, 3, true, 404, 1},
		{"gives up after max retries", []int{500, 500, 500, 500}, 2, true, 500, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, hits := statusServer(t, schemas[textURL], tt.statuses...)
			f := NewHTTPFetcher(srv.Client(), fastRetry(tt.retries), nil)

			raw, err := f.Fetch(context.Background(), serverURL(srv))
			assert.Equal(t, tt.wantHits, hits.Load())
			if !tt.wantErr {
				require.NoError(t, err)
				assert.JSONEq(t, schemas[textURL], string(raw))
				return
			}
			require.ErrorIs(t, err, ErrFetchFailed)
			var se *StatusError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.wantStatus, se.StatusCode)
		})
	}
}

func TestHTTPFetcherStopsBackoffOnCancel(t *testing.T) {
	srv, hits := statusServer(t, "", 503, 503)
	retry := fastRetry(3)
	retry.InitialDelay = time.Hour
	retry.MaxDelay = time.Hour
	f := NewHTTPFetcher(srv.Client(), retry, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := f.Fetch(ctx, serverURL(srv))
	assert.ErrorIs(t, err, ErrFetchFailed)
	assert.Equal(t, int32(1), hits.Load())
}

func TestRetryDelay(t *testing.T) {
	c := &RetryConfig{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, BackoffMultiplier: 2}
	assert.Equal(t, 100*time.Millisecond, c.delay(0))
	assert.Equal(t, 400*time.Millisecond, c.delay(2))
	assert.Equal(t, time.Second, c.delay(10))
}

func TestCircuitBreakerFetcherOpens(t *testing.T) {
	var calls atomic.Int32
	failing := FetcherFunc(func(_ context.Context, id types.VersionedURL) ([]byte, error) {
		calls.Add(1)
		return nil, &StatusError{ID: id, StatusCode: 503}
	})
	f := NewCircuitBreakerFetcher(failing, config.CircuitBreakerConfig{
		Enabled:          true,
		MaxRequests:      1,
		Interval:         60,
		Timeout:          60,
		MinRequests:      2,
		ReadyToTripRatio: 0.5,
	}, nil)

	ctx := context.Background()
	for range 2 {
		_, err := f.Fetch(ctx, textURL)
		var se *StatusError
		assert.True(t, errors.As(err, &se))
	}
	assert.Equal(t, gobreaker.StateOpen, f.State())

	_, err := f.Fetch(ctx, textURL)
	assert.ErrorIs(t, err, ErrFetchFailed)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), calls.Load(), "open breaker does not call through")
}

func TestCircuitBreakerFetcherPassesResults(t *testing.T) {
	f := NewCircuitBreakerFetcher(newFakeFetcher(), config.CircuitBreakerConfig{ReadyToTripRatio: 0.6}, nil)
	raw, err := f.Fetch(context.Background(), textURL)
	require.NoError(t, err)
	assert.JSONEq(t, schemas[textURL], string(raw))
	assert.Equal(t, gobreaker.StateClosed, f.State())
}

func TestCachingFetcher(t *testing.T) {
	next := newFakeFetcher()
	c := cache.NewMemoryCache(0)
	f := NewCachingFetcher(next, c, nil)
	ctx := context.Background()

	for range 3 {
		raw, err := f.Fetch(ctx, nameURL)
		require.NoError(t, err)
		assert.JSONEq(t, schemas[nameURL], string(raw))
	}
	assert.Equal(t, 1, next.callCount(nameURL))
	assert.Equal(t, 1, c.Len())

	_, err := f.Fetch(ctx, "https://example.com/types/data-type/missing/v/1")
	assert.ErrorIs(t, err, ErrFetchFailed)
	assert.Equal(t, 1, c.Len(), "failures are not cached")

	require.NoError(t, c.Close())
	_, err = f.Fetch(ctx, nameURL)
	require.NoError(t, err, "a closed cache falls back to the wrapped fetcher")
	assert.Equal(t, 2, next.callCount(nameURL))
}

func TestNewFetcherFromConfig(t *testing.T) {
	cfg := &config.Config{
		Codegen:        config.CodegenConfig{MaxConcurrency: 4, FetchTimeout: 5, Retries: 1, RetryBackoff: 10},
		CircuitBreaker: config.CircuitBreakerConfig{Enabled: true, ReadyToTripRatio: 0.5},
	}

	assert.IsType(t, &CachingFetcher{}, NewFetcherFromConfig(cfg, cache.NewMemoryCache(0), nil))
	assert.IsType(t, &CircuitBreakerFetcher{}, NewFetcherFromConfig(cfg, nil, nil))

	cfg.CircuitBreaker.Enabled = false
	f := NewFetcherFromConfig(cfg, nil, nil)
	require.IsType(t, &HTTPFetcher{}, f)
	h := f.(*HTTPFetcher)
	assert.Equal(t, 1, h.retry.MaxRetries)
	assert.Equal(t, 10*time.Millisecond, h.retry.InitialDelay)
	assert.Equal(t, 5*time.Second, h.client.Timeout)
}
