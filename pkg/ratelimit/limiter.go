package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Prometheus metrics for request gating.
var (
	lolRateLimitGrantsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lol_ratelimit_grants_total",
		Help: "Total number of requests permitted by the limiter, by routing domain",
	}, []string{"domain"})

	lolRateLimitWaitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lol_ratelimit_waits_total",
		Help: "Total number of acquisitions that had to wait, by routing domain",
	}, []string{"domain"})

	lolRateLimitWaitSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lol_ratelimit_wait_seconds",
		Help:    "Time spent waiting for the limiter, by routing domain",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 1.2, 2, 5, 30, 120},
	}, []string{"domain"})
)

// Limiter gates requests to one routing domain.
type Limiter interface {
	// Acquire blocks until one more request is safe, then records the grant.
	// It returns an error only when ctx ends first.
	Acquire(ctx context.Context) error

	// State returns a copy of the limiter state.
	State() RateLimitState
}

// IntervalLimiter spaces requests by at least Policy.Interval.
// A token bucket with a burst of one owns the pacing: each caller reserves a
// token under the lock and sleeps until the reservation's time to act, which
// becomes the grant instant.
type IntervalLimiter struct {
	domain   string
	policy   Policy
	interval time.Duration
	bucket   *rate.Limiter
	logger   zerolog.Logger

	mu    sync.Mutex
	state RateLimitState
}

// NewIntervalLimiter creates a fixed-interval limiter for one domain.
func NewIntervalLimiter(domain string, policy Policy, logger zerolog.Logger) (*IntervalLimiter, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	interval := policy.Interval()
	return &IntervalLimiter{
		domain:   domain,
		policy:   policy,
		interval: interval,
		bucket:   rate.NewLimiter(rate.Every(interval), 1),
		logger:   logger.With().Str("domain", domain).Str("policy", string(KindInterval)).Logger(),
	}, nil
}

// Acquire implements Limiter.
func (l *IntervalLimiter) Acquire(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("acquire %s: %w", l.domain, err)
	}

	now := time.Now()
	r := l.bucket.ReserveN(now, 1)
	if !r.OK() {
		return fmt.Errorf("acquire %s: reservation exceeds burst", l.domain)
	}
	act := l.settle(now.Add(r.DelayFrom(now)))

	if err := sleepContext(ctx, act.Sub(now)); err != nil {
		r.Cancel()
		return fmt.Errorf("acquire %s: %w", l.domain, err)
	}

	l.state.record(act, l.policy.Period)
	observeGrant(l.logger, l.domain, act.Sub(now))
	return nil
}

// settle absorbs the rounding of the bucket's float token arithmetic, which can
// place a reservation a few nanoseconds short of the interval. Caller holds mu.
func (l *IntervalLimiter) settle(act time.Time) time.Time {
	if l.state.LastGrant.IsZero() {
		return act
	}
	short := l.state.LastGrant.Add(l.interval).Sub(act)
	if short > 0 && short < time.Millisecond {
		return act.Add(short)
	}
	return act
}

// State implements Limiter.
func (l *IntervalLimiter) State() RateLimitState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.clone()
}

// WindowLimiter permits at most Policy.Requests grants in any rolling
// Policy.Period and never two grants closer than Policy.Interval.
type WindowLimiter struct {
	domain   string
	policy   Policy
	interval time.Duration
	logger   zerolog.Logger

	mu    sync.Mutex
	state RateLimitState
}

// NewWindowLimiter creates a rolling-window limiter for one domain.
func NewWindowLimiter(domain string, policy Policy, logger zerolog.Logger) (*WindowLimiter, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &WindowLimiter{
		domain:   domain,
		policy:   policy,
		interval: policy.Interval(),
		logger:   logger.With().Str("domain", domain).Str("policy", string(KindWindow)).Logger(),
	}, nil
}

// Acquire implements Limiter.
func (l *WindowLimiter) Acquire(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	start := time.Now()
	for {
		now := time.Now()
		wait := l.waitFor(now)
		if wait <= 0 {
			break
		}
		if err := sleepContext(ctx, wait); err != nil {
			return fmt.Errorf("acquire %s: %w", l.domain, err)
		}
	}

	granted := time.Now()
	l.state.record(granted, l.policy.Period)
	observeGrant(l.logger, l.domain, granted.Sub(start))
	return nil
}

// waitFor returns how long a caller arriving at now must wait. Caller holds mu.
func (l *WindowLimiter) waitFor(now time.Time) time.Duration {
	l.state.prune(now, l.policy.Period)

	var wait time.Duration
	if len(l.state.Window) >= l.policy.Requests {
		wait = l.state.Window[0].Add(l.policy.Period).Sub(now)
	}
	if gap := l.state.SinceLastGrant(now); gap >= 0 && gap < l.interval {
		if spacing := l.interval - gap; spacing > wait {
			wait = spacing
		}
	}
	return wait
}

// State implements Limiter.
func (l *WindowLimiter) State() RateLimitState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.clone()
}

func observeGrant(logger zerolog.Logger, domain string, waited time.Duration) {
	lolRateLimitGrantsTotal.WithLabelValues(domain).Inc()
	if waited <= time.Millisecond {
		return
	}
	lolRateLimitWaitsTotal.WithLabelValues(domain).Inc()
	lolRateLimitWaitSeconds.WithLabelValues(domain).Observe(waited.Seconds())
	logger.Debug().Dur("waited", waited).Msg("Request delayed by rate limiter")
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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
