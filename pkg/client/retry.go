package client

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RetryConfig holds the configuration for retry logic.
type RetryConfig struct {
	// MaxAttempts is the maximum number of requests per work item, including the first.
	MaxAttempts int `mapstructure:"max_attempts"`

	// BackoffUnit scales the exponential backoff: attempt n waits 2^(n-1) units.
	BackoffUnit time.Duration `mapstructure:"backoff_unit"`

	// MaxBackoff caps a single backoff sleep.
	MaxBackoff time.Duration `mapstructure:"max_backoff"`

	// DefaultRetryAfter is used when a 429 carries no usable Retry-After header.
	DefaultRetryAfter time.Duration `mapstructure:"default_retry_after"`

	// RateLimitPad is added on top of the server-provided delay.
	RateLimitPad time.Duration `mapstructure:"rate_limit_pad"`

	// MaxRetryAfter caps the padded 429 sleep. Zero disables the cap.
	MaxRetryAfter time.Duration `mapstructure:"max_retry_after"`
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		BackoffUnit:       1 * time.Second,
		MaxBackoff:        60 * time.Second,
		DefaultRetryAfter: 1 * time.Second,
		RateLimitPad:      1 * time.Second,
		MaxRetryAfter:     60 * time.Second,
	}
}

// backoff returns the sleep before the attempt following attempt n (1-based):
// 1, 2, 4, ... units, capped at MaxBackoff.
func (c RetryConfig) backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := time.Duration(math.Pow(2, float64(attempt-1))) * c.BackoffUnit
	if c.MaxBackoff > 0 && d > c.MaxBackoff {
		return c.MaxBackoff
	}
	return d
}

// rateLimitDelay returns the sleep after a 429: the server delay plus the pad,
// capped at MaxRetryAfter.
func (c RetryConfig) rateLimitDelay(headers http.Header) time.Duration {
	delay, ok := retryAfter(headers, time.Now())
	if !ok {
		delay = c.DefaultRetryAfter
	}
	delay += c.RateLimitPad
	if c.MaxRetryAfter > 0 && delay > c.MaxRetryAfter {
		return c.MaxRetryAfter
	}
	return delay
}

// retryAfter parses Retry-After as delta seconds or an HTTP date.
func retryAfter(headers http.Header, now time.Time) (time.Duration, bool) {
	value := strings.TrimSpace(headers.Get("Retry-After"))
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d, true
		}
		return 0, true
	}
	return 0, false
}

// errorMessage extracts the message of an API error body. The match-v5 API
// nests it under "status"; other gateways put it at the top level.
func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Status  struct {
			Message    string `json:"message"`
			StatusCode int    `json:"status_code"`
		} `json:"status"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Status.Message != "" {
			return payload.Status.Message
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}
