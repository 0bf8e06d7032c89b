package ratelimit

import (
	"fmt"

	"github.com/Sternrassler/lol-match-collector/pkg/routing"
	"github.com/rs/zerolog"
)

// Config describes how the registry builds its limiters.
type Config struct {
	// Kind selects the policy implementation (interval or window).
	Kind Kind `mapstructure:"kind"`

	// Policy applies to every domain without an override.
	Policy Policy `mapstructure:"policy"`

	// Overrides replaces the policy for individual domains.
	Overrides map[routing.Domain]Policy `mapstructure:"overrides"`
}

// DefaultConfig returns fixed-interval limiting at 100 requests per 2 minutes.
func DefaultConfig() Config {
	return Config{
		Kind:   KindInterval,
		Policy: DefaultPolicy(),
	}
}

// Registry holds exactly one limiter per routing domain. Domains never share
// limiter state.
type Registry struct {
	limiters map[routing.Domain]Limiter
}

// NewRegistry builds a limiter for every known routing domain.
func NewRegistry(cfg Config, logger zerolog.Logger) (*Registry, error) {
	r := &Registry{limiters: make(map[routing.Domain]Limiter, len(routing.Domains()))}

	for _, domain := range routing.Domains() {
		policy := cfg.Policy
		if override, ok := cfg.Overrides[domain]; ok {
			policy = override
		}

		var (
			limiter Limiter
			err     error
		)
		switch cfg.Kind {
		case KindInterval, "":
			limiter, err = NewIntervalLimiter(domain.String(), policy, logger)
		case KindWindow:
			limiter, err = NewWindowLimiter(domain.String(), policy, logger)
		default:
			return nil, fmt.Errorf("unknown rate limit kind %q", cfg.Kind)
		}
		if err != nil {
			return nil, fmt.Errorf("limiter for %s: %w", domain, err)
		}
		r.limiters[domain] = limiter
	}

	return r, nil
}

// For returns the limiter of a domain.
func (r *Registry) For(domain routing.Domain) (Limiter, error) {
	limiter, ok := r.limiters[domain]
	if !ok {
		return nil, fmt.Errorf("no limiter for domain %q", domain)
	}
	return limiter, nil
}
