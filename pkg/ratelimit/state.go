// Package ratelimit implements per-domain request gating for the match-v5 API.
// Each routing domain owns one Limiter; every goroutine issuing requests to
// that domain acquires it before sending, so the domain's request rate stays
// under its ceiling no matter how many callers share it.
package ratelimit

import (
	"errors"
	"fmt"
	"time"
)

// Kind selects the limiting policy.
type Kind string

const (
	// KindInterval spaces grants by at least Period/Requests.
	KindInterval Kind = "interval"

	// KindWindow allows at most Requests grants in any rolling Period,
	// and still never two grants closer than the interval.
	KindWindow Kind = "window"
)

// ErrInvalidPolicy is returned for non-positive policy values.
var ErrInvalidPolicy = errors.New("invalid rate limit policy")

// Policy is a request ceiling: Requests per Period.
type Policy struct {
	// Requests is the number of requests allowed per Period.
	Requests int `mapstructure:"requests"`

	// Period is the length of the rolling window.
	Period time.Duration `mapstructure:"period"`
}

// DefaultPolicy returns the development key budget of 100 requests per 2 minutes.
func DefaultPolicy() Policy {
	return Policy{
		Requests: 100,
		Period:   120 * time.Second,
	}
}

// Interval is the minimum spacing between two grants (1.2s for the default policy).
func (p Policy) Interval() time.Duration {
	if p.Requests <= 0 {
		return p.Period
	}
	return p.Period / time.Duration(p.Requests)
}

// Validate checks that the policy can be enforced.
func (p Policy) Validate() error {
	if p.Requests <= 0 {
		return fmt.Errorf("%w: requests must be > 0 (got %d)", ErrInvalidPolicy, p.Requests)
	}
	if p.Period <= 0 {
		return fmt.Errorf("%w: period must be > 0 (got %s)", ErrInvalidPolicy, p.Period)
	}
	return nil
}

// RateLimitState is the mutable state of one domain's limiter.
// It is owned by its limiter and only mutated under that limiter's lock.
type RateLimitState struct {
	// LastGrant is the instant the most recent request was permitted.
	LastGrant time.Time `json:"last_grant"`

	// Grants counts every permitted request since the limiter was created.
	Grants int64 `json:"grants"`

	// Window holds the grant instants that fall inside the rolling period,
	// oldest first.
	Window []time.Time `json:"window"`
}

// SinceLastGrant returns the time elapsed since the last grant, or -1 when
// nothing has been granted yet.
func (s *RateLimitState) SinceLastGrant(now time.Time) time.Duration {
	if s.LastGrant.IsZero() {
		return -1
	}
	return now.Sub(s.LastGrant)
}

// record stores a grant and drops window entries older than period.
func (s *RateLimitState) record(at time.Time, period time.Duration) {
	s.LastGrant = at
	s.Grants++
	s.Window = append(s.Window, at)
	s.prune(at, period)
}

// prune removes grants that left the rolling window ending at now.
func (s *RateLimitState) prune(now time.Time, period time.Duration) {
	cutoff := now.Add(-period)
	i := 0
	for i < len(s.Window) && !s.Window[i].After(cutoff) {
		i++
	}
	if i > 0 {
		s.Window = append(s.Window[:0], s.Window[i:]...)
	}
}

// clone returns a deep copy safe to hand out of the lock.
func (s *RateLimitState) clone() RateLimitState {
	out := *s
	out.Window = append([]time.Time(nil), s.Window...)
	return out
}
