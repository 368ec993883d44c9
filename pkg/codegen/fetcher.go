package codegen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/soundprediction/blockgraph/pkg/cache"
	"github.com/soundprediction/blockgraph/pkg/config"
	"github.com/soundprediction/blockgraph/pkg/types"
)

// ErrFetchFailed wraps every error returned by the fetchers in this package.
var ErrFetchFailed = errors.New("schema fetch failed")

const maxSchemaBytes = 16 << 20

// TypeFetcher resolves a versioned type URL to its raw JSON schema.
type TypeFetcher interface {
	Fetch(ctx context.Context, id types.VersionedURL) ([]byte, error)
}

// FetcherFunc adapts a function to TypeFetcher.
type FetcherFunc func(ctx context.Context, id types.VersionedURL) ([]byte, error)

func (f FetcherFunc) Fetch(ctx context.Context, id types.VersionedURL) ([]byte, error) {
	return f(ctx, id)
}

// StatusError is a non-200 response from the ontology store.
type StatusError struct {
	ID         types.VersionedURL
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.ID, e.StatusCode)
}

// Retryable reports whether the status is worth another attempt.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// RetryConfig holds configuration for retry behavior
type RetryConfig struct {
	// MaxRetries is the number of attempts after the first one.
	MaxRetries        int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:        3,
		InitialDelay:      200 * time.Millisecond,
		MaxDelay:          10 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

func (c *RetryConfig) delay(attempt int) time.Duration {
	d := float64(c.InitialDelay) * math.Pow(c.BackoffMultiplier, float64(attempt))
	if d > float64(c.MaxDelay) {
		return c.MaxDelay
	}
	return time.Duration(d)
}

// HTTPFetcher GETs schemas from their versioned URL, retrying transport errors,
// 429 and 5xx responses with exponential backoff.
type HTTPFetcher struct {
	client *http.Client
	retry  *RetryConfig
	logger *slog.Logger
}

// NewHTTPFetcher creates a fetcher. Nil arguments fall back to defaults.
func NewHTTPFetcher(client *http.Client, retry *RetryConfig, logger *slog.Logger) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if retry == nil {
		retry = DefaultRetryConfig()
	}
	if retry.MaxRetries < 0 {
		retry.MaxRetries = 0
	}
	if retry.BackoffMultiplier <= 0 {
		retry.BackoffMultiplier = 2.0
	}
	if retry.MaxDelay < retry.InitialDelay {
		retry.MaxDelay = retry.InitialDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPFetcher{client: client, retry: retry, logger: logger}
}

// NewHTTPFetcherFromConfig builds an HTTPFetcher from the codegen section.
func NewHTTPFetcherFromConfig(cfg config.CodegenConfig, logger *slog.Logger) *HTTPFetcher {
	retry := DefaultRetryConfig()
	retry.MaxRetries = cfg.Retries
	retry.InitialDelay = cfg.RetryBackoffDuration()
	return NewHTTPFetcher(&http.Client{Timeout: cfg.FetchTimeoutDuration()}, retry, logger)
}

func (f *HTTPFetcher) Fetch(ctx context.Context, id types.VersionedURL) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= f.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			d := f.retry.delay(attempt - 1)
			f.logger.Debug("retrying schema fetch", "id", id, "attempt", attempt, "delay", d, "error", lastErr)
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %s: %v", ErrFetchFailed, id, ctx.Err())
			case <-time.After(d):
			}
		}

		raw, err := f.fetchOnce(ctx, id)
		if err == nil {
			return raw, nil
		}
		lastErr = err
		if !isRetryable(ctx, err) {
			break
		}
	}
	return nil, fmt.Errorf("%w: %s: %w", ErrFetchFailed, id, lastErr)
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, id types.VersionedURL) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, string(id), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{ID: id, StatusCode: resp.StatusCode}
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxSchemaBytes))
}

func isRetryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	return true
}

// CircuitBreakerFetcher stops calling the wrapped fetcher while the ontology store is failing.
type CircuitBreakerFetcher struct {
	next   TypeFetcher
	cb     *gobreaker.CircuitBreaker
	logger *slog.Logger
}

// NewCircuitBreakerFetcher wraps next with a breaker configured from cfg.
func NewCircuitBreakerFetcher(next TypeFetcher, cfg config.CircuitBreakerConfig, logger *slog.Logger) *CircuitBreakerFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	minRequests := cfg.MinRequests
	if minRequests == 0 {
		minRequests = 1
	}
	st := gobreaker.Settings{
		Name:        "ontology-fetch",
		MaxRequests: cfg.MaxRequests,
		Interval:    time.Duration(cfg.Interval) * time.Second,
		Timeout:     time.Duration(cfg.Timeout) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= minRequests && failureRatio >= cfg.ReadyToTripRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				logger.Warn("circuit breaker opened", "name", name, "from", from.String())
			} else {
				logger.Info("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
			}
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}
	return &CircuitBreakerFetcher{next: next, cb: gobreaker.NewCircuitBreaker(st), logger: logger}
}

func (f *CircuitBreakerFetcher) Fetch(ctx context.Context, id types.VersionedURL) ([]byte, error) {
	resp, err := f.cb.Execute(func() (interface{}, error) {
		return f.next.Fetch(ctx, id)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %s: %w", ErrFetchFailed, id, err)
		}
		return nil, err
	}
	return resp.([]byte), nil
}

// State exposes the breaker state for health reporting.
func (f *CircuitBreakerFetcher) State() gobreaker.State {
	return f.cb.State()
}

// CachingFetcher serves schemas from a SchemaCache and fills it on miss.
// Cache errors are logged and otherwise ignored.
type CachingFetcher struct {
	next   TypeFetcher
	cache  cache.SchemaCache
	logger *slog.Logger
}

func NewCachingFetcher(next TypeFetcher, c cache.SchemaCache, logger *slog.Logger) *CachingFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachingFetcher{next: next, cache: c, logger: logger}
}

func (f *CachingFetcher) Fetch(ctx context.Context, id types.VersionedURL) ([]byte, error) {
	raw, ok, err := f.cache.Get(ctx, id)
	if err != nil {
		f.logger.Warn("schema cache read failed", "id", id, "error", err)
	} else if ok {
		return raw, nil
	}

	raw, err = f.next.Fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := f.cache.Put(ctx, id, raw); err != nil {
		f.logger.Warn("schema cache write failed", "id", id, "error", err)
	} else {
		f.logger.Debug("schema cached", "id", id)
	}
	return raw, nil
}

// NewFetcherFromConfig composes the HTTP fetcher with the optional breaker and cache.
// A nil cache disables caching.
func NewFetcherFromConfig(cfg *config.Config, c cache.SchemaCache, logger *slog.Logger) TypeFetcher {
	var f TypeFetcher = NewHTTPFetcherFromConfig(cfg.Codegen, logger)
	if cfg.CircuitBreaker.Enabled {
		f = NewCircuitBreakerFetcher(f, cfg.CircuitBreaker, logger)
	}
	if c != nil {
		f = NewCachingFetcher(f, c, logger)
	}
	return f
}
