// Package client provides the match-v5 HTTP client with per-domain rate
// limiting, response classification and retry with backoff.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/Sternrassler/lol-match-collector/pkg/logging"
	"github.com/Sternrassler/lol-match-collector/pkg/ratelimit"
	"github.com/Sternrassler/lol-match-collector/pkg/routing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for client operations.
var (
	lolRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lol_requests_total",
		Help: "Total match-v5 requests by routing domain and status",
	}, []string{"domain", "status"})

	lolRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lol_request_duration_seconds",
		Help:    "Match-v5 request duration in seconds by routing domain",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"domain"})

	lolErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lol_errors_total",
		Help: "Total match-v5 errors by class",
	}, []string{"class"})

	lolRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lol_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	lolRetryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lol_retry_backoff_seconds",
		Help:    "Sleep before a retry by error class",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"error_class"})

	lolRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lol_retry_exhausted_total",
		Help: "Total number of work items that used every attempt, by last error class",
	}, []string{"error_class"})

	lolCacheServedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lol_cache_served_total",
		Help: "Payloads served from the payload cache instead of the API, by routing domain",
	}, []string{"domain"})
)

// LimiterSource hands out the limiter of a routing domain.
// *ratelimit.Registry implements it.
type LimiterSource interface {
	For(domain routing.Domain) (ratelimit.Limiter, error)
}

// PayloadCache stores successful payloads keyed by request URL.
// Implementations must ignore the api_key query parameter.
type PayloadCache interface {
	Lookup(ctx context.Context, rawURL string) ([]byte, bool, error)
	Store(ctx context.Context, rawURL string, payload []byte) error
}

// Config holds the client configuration.
type Config struct {
	// Limiters gates every attempt, retries included.
	Limiters LimiterSource

	// Cache is optional; nil disables payload caching.
	Cache PayloadCache

	// Retry controls attempts and backoff.
	Retry RetryConfig

	// Timeout bounds a single HTTP request.
	Timeout time.Duration

	// UserAgent is sent with every request.
	UserAgent string
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(limiters LimiterSource) Config {
	return Config{
		Limiters:  limiters,
		Retry:     DefaultRetryConfig(),
		Timeout:   30 * time.Second,
		UserAgent: "lol-match-collector/0.1.0",
	}
}

// Client is the rate-limited, retrying match-v5 client. It is safe for
// concurrent use by workers of different domains.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

// New creates a new client.
func New(cfg Config) (*Client, error) {
	if cfg.Limiters == nil {
		return nil, fmt.Errorf("limiter source is required")
	}
	if cfg.Retry.MaxAttempts < 1 {
		return nil, fmt.Errorf("max_attempts must be >= 1 (got %d)", cfg.Retry.MaxAttempts)
	}
	if cfg.Retry.BackoffUnit < 0 || cfg.Retry.RateLimitPad < 0 || cfg.Retry.DefaultRetryAfter < 0 || cfg.Retry.MaxRetryAfter < 0 {
		return nil, fmt.Errorf("retry durations must not be negative")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		config: cfg,
		logger: logging.NewLogger("match-client"),
		sleep:  sleepContext,
	}, nil
}

// fetchState is a position in the per-item retry state machine.
type fetchState int

const (
	stateIdle fetchState = iota
	stateAttempting
	stateWaiting    // 429: honoring Retry-After
	stateBackingOff // 5xx or transport error: exponential backoff
	stateSucceeded
	stateFailed
)

func (s fetchState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateAttempting:
		return "attempting"
	case stateWaiting:
		return "waiting"
	case stateBackingOff:
		return "backing_off"
	case stateSucceeded:
		return "succeeded"
	case stateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// fetchRun is the explicit state of one Fetch call.
type fetchRun struct {
	domain  routing.Domain
	itemID  string
	url     string
	state   fetchState
	attempt int
	delay   time.Duration
	class   ErrorClass
	status  int
	message string
	payload []byte
	err     error
	logger  zerolog.Logger
}

// Fetch retrieves the JSON payload at url for one work item. On terminal failure
// it returns a nil payload and an error describing the last outcome; failures are
// logged here and never panic. Every attempt first acquires the domain's limiter.
func (c *Client) Fetch(ctx context.Context, domain routing.Domain, itemID, url string) (json.RawMessage, error) {
	run := &fetchRun{domain: domain, itemID: itemID, url: url, state: stateIdle, logger: c.loggerFor(ctx)}

	for {
		switch run.state {
		case stateIdle:
			c.lookupCache(ctx, run)

		case stateAttempting:
			if run.attempt >= c.config.Retry.MaxAttempts {
				c.exhaust(run)
				continue
			}
			run.attempt++
			c.attempt(ctx, run)

		case stateWaiting, stateBackingOff:
			if run.attempt >= c.config.Retry.MaxAttempts {
				c.exhaust(run)
				continue
			}
			lolRetriesTotal.WithLabelValues(string(run.class)).Inc()
			lolRetryBackoffSeconds.WithLabelValues(string(run.class)).Observe(run.delay.Seconds())
			run.logger.Warn().
				Str("domain", domain.String()).
				Str("item_id", itemID).
				Str("error_class", string(run.class)).
				Int("status", run.status).
				Int("attempt", run.attempt).
				Dur("delay", run.delay).
				Str("state", run.state.String()).
				Msg("Retrying request after delay")
			if err := c.sleep(ctx, run.delay); err != nil {
				run.fail(ErrorClassNetwork, 0, "cancelled while waiting to retry",
					fmt.Errorf("%w: %v", ErrContextCancelled, err))
				continue
			}
			run.state = stateAttempting

		case stateSucceeded:
			if run.attempt > 1 {
				run.logger.Info().
					Str("domain", domain.String()).
					Str("item_id", itemID).
					Int("attempt", run.attempt).
					Msg("Request succeeded after retry")
			}
			c.storeCache(ctx, run)
			return json.RawMessage(run.payload), nil

		case stateFailed:
			return nil, c.failure(run)
		}
	}
}

func (c *Client) lookupCache(ctx context.Context, run *fetchRun) {
	run.state = stateAttempting
	if c.config.Cache == nil {
		return
	}
	payload, ok, err := c.config.Cache.Lookup(ctx, run.url)
	if err != nil {
		run.logger.Warn().Err(err).Str("item_id", run.itemID).Msg("Payload cache lookup failed")
		return
	}
	if ok {
		lolCacheServedTotal.WithLabelValues(run.domain.String()).Inc()
		run.payload = payload
		run.state = stateSucceeded
	}
}

func (c *Client) storeCache(ctx context.Context, run *fetchRun) {
	if c.config.Cache == nil || run.attempt == 0 {
		return
	}
	if err := c.config.Cache.Store(ctx, run.url, run.payload); err != nil {
		run.logger.Warn().Err(err).Str("item_id", run.itemID).Msg("Payload cache store failed")
	}
}

// attempt issues one gated request and moves run to its next state.
func (c *Client) attempt(ctx context.Context, run *fetchRun) {
	limiter, err := c.config.Limiters.For(run.domain)
	if err != nil {
		run.fail(ErrorClassClient, 0, "no rate limiter for domain", fmt.Errorf("%w: %v", ErrNonRetryable, err))
		return
	}
	if err := limiter.Acquire(ctx); err != nil {
		run.fail(ErrorClassNetwork, 0, "cancelled while waiting for rate limiter",
			fmt.Errorf("%w: %v", ErrContextCancelled, err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, run.url, nil)
	if err != nil {
		run.fail(ErrorClassClient, 0, "build request", fmt.Errorf("%w: %v", ErrNonRetryable, err))
		return
	}
	req.Header.Set("Accept", "application/json")
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	lolRequestDuration.WithLabelValues(run.domain.String()).Observe(time.Since(start).Seconds())
	if err != nil {
		c.transportError(ctx, run, err)
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.transportError(ctx, run, fmt.Errorf("read body: %w", err))
		return
	}

	lolRequestsTotal.WithLabelValues(run.domain.String(), strconv.Itoa(resp.StatusCode)).Inc()
	run.status = resp.StatusCode

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if !json.Valid(body) {
			lolErrorsTotal.WithLabelValues(string(ErrorClassMalformed)).Inc()
			run.fail(ErrorClassMalformed, resp.StatusCode, "response body is not valid JSON", ErrNonRetryable)
			return
		}
		run.payload = body
		run.state = stateSucceeded
		return
	}

	class := classifyStatus(resp.StatusCode)
	lolErrorsTotal.WithLabelValues(string(class)).Inc()
	run.class = class
	run.message = errorMessage(body)

	switch {
	case class == ErrorClassRateLimit:
		run.delay = c.config.Retry.rateLimitDelay(resp.Header)
		run.state = stateWaiting
	case shouldRetry(class):
		run.delay = c.config.Retry.backoff(run.attempt)
		run.state = stateBackingOff
	default:
		run.fail(class, resp.StatusCode, run.message, ErrNonRetryable)
	}
}

func (c *Client) transportError(ctx context.Context, run *fetchRun, err error) {
	lolErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
	lolRequestsTotal.WithLabelValues(run.domain.String(), "network_error").Inc()
	if ctx.Err() != nil {
		run.fail(ErrorClassNetwork, 0, "request cancelled", fmt.Errorf("%w: %v", ErrContextCancelled, err))
		return
	}
	run.class = ErrorClassNetwork
	run.status = 0
	run.message = "transport error"
	run.err = err
	run.delay = c.config.Retry.backoff(run.attempt)
	run.state = stateBackingOff
}

func (c *Client) exhaust(run *fetchRun) {
	lolRetryExhaustedTotal.WithLabelValues(string(run.class)).Inc()
	cause := ErrRetryExhausted
	if run.err != nil {
		cause = fmt.Errorf("%w: %v", ErrRetryExhausted, run.err)
	}
	run.fail(run.class, run.status, fmt.Sprintf("%s after %d attempts", run.message, run.attempt), cause)
}

// failure logs the terminal outcome and returns it as an *APIError.
func (c *Client) failure(run *fetchRun) error {
	apiErr := &APIError{
		StatusCode: run.status,
		ErrorClass: run.class,
		ItemID:     run.itemID,
		Message:    run.message,
		Err:        run.err,
	}

	run.logger.Error().
		Str("domain", run.domain.String()).
		Str("item_id", run.itemID).
		Str("url", RedactURL(run.url)).
		Int("status", run.status).
		Str("error_class", string(run.class)).
		Int("attempts", run.attempt).
		Str("message", run.message).
		AnErr("cause", run.err).
		Msg("Fetch failed")

	return apiErr
}

// loggerFor prefers the logger carried by ctx, which holds the run fields.
func (c *Client) loggerFor(ctx context.Context) zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return *l
	}
	return c.logger
}

func (r *fetchRun) fail(class ErrorClass, status int, message string, err error) {
	r.class = class
	r.status = status
	r.message = message
	r.err = err
	r.state = stateFailed
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// SetSleeper replaces the retry sleep (for testing).
func (c *Client) SetSleeper(sleep func(ctx context.Context, d time.Duration) error) {
	c.sleep = sleep
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsCancelled reports whether err came from context cancellation.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrContextCancelled)
}
