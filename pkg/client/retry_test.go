package client

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryConfig_Backoff(t *testing.T) {
	cfg := DefaultRetryConfig()

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 0, want: 1 * time.Second},
		{attempt: 1, want: 1 * time.Second},
		{attempt: 2, want: 2 * time.Second},
		{attempt: 3, want: 4 * time.Second},
		{attempt: 6, want: 32 * time.Second},
		{attempt: 7, want: 60 * time.Second}, // capped
		{attempt: 12, want: 60 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, cfg.backoff(tt.attempt), "backoff(%d)", tt.attempt)
	}
}

func TestRetryConfig_BackoffUncapped(t *testing.T) {
	cfg := RetryConfig{BackoffUnit: 10 * time.Millisecond}
	assert.Equal(t, 1280*time.Millisecond, cfg.backoff(8))
}

func TestRetryAfter(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		value  string
		want   time.Duration
		wantOK bool
	}{
		{name: "absent", value: "", wantOK: false},
		{name: "seconds", value: "7", want: 7 * time.Second, wantOK: true},
		{name: "zero seconds", value: "0", want: 0, wantOK: true},
		{name: "padded seconds", value: " 2 ", want: 2 * time.Second, wantOK: true},
		{name: "negative", value: "-3", wantOK: false},
		{name: "garbage", value: "later", wantOK: false},
		{name: "http date", value: now.Add(5 * time.Second).Format(http.TimeFormat), want: 5 * time.Second, wantOK: true},
		{name: "http date in the past", value: now.Add(-time.Minute).Format(http.TimeFormat), want: 0, wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := http.Header{}
			if tt.value != "" {
				headers.Set("Retry-After", tt.value)
			}
			got, ok := retryAfter(headers, now)
			require.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRetryConfig_RateLimitDelay(t *testing.T) {
	uncapped := DefaultRetryConfig()
	uncapped.MaxRetryAfter = 0

	tests := []struct {
		name  string
		cfg   RetryConfig
		value string
		want  time.Duration
	}{
		{name: "no header", cfg: DefaultRetryConfig(), want: 2 * time.Second},
		{name: "seconds", cfg: DefaultRetryConfig(), value: "10", want: 11 * time.Second},
		{name: "one day is capped", cfg: DefaultRetryConfig(), value: "86400", want: 60 * time.Second},
		{name: "pad crosses the cap", cfg: DefaultRetryConfig(), value: "60", want: 60 * time.Second},
		{name: "far http date is capped", cfg: DefaultRetryConfig(), value: time.Now().Add(48 * time.Hour).Format(http.TimeFormat), want: 60 * time.Second},
		{name: "zero cap disables it", cfg: uncapped, value: "86400", want: 86401 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := http.Header{}
			if tt.value != "" {
				headers.Set("Retry-After", tt.value)
			}
			assert.Equal(t, tt.want, tt.cfg.rateLimitDelay(headers))
		})
	}
}

func TestErrorMessage(t *testing.T) {
	long := strings.Repeat("x", 300)

	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "riot status", body: `{"status":{"message":"Forbidden","status_code":403}}`, want: "Forbidden"},
		{name: "top-level message", body: `{"message":"Bad gateway"}`, want: "Bad gateway"},
		{name: "plain text", body: "  upstream timeout \n", want: "upstream timeout"},
		{name: "truncated", body: long, want: long[:200]},
		{name: "empty", body: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errorMessage([]byte(tt.body)))
		})
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorClass
	}{
		{429, ErrorClassRateLimit},
		{500, ErrorClassServer},
		{503, ErrorClassServer},
		{400, ErrorClassClient},
		{401, ErrorClassClient},
		{403, ErrorClassClient},
		{404, ErrorClassClient},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, classifyStatus(tt.status), "classifyStatus(%d)", tt.status)
	}
}

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		class ErrorClass
		want  bool
	}{
		{ErrorClassRateLimit, true},
		{ErrorClassServer, true},
		{ErrorClassNetwork, true},
		{ErrorClassClient, false},
		{ErrorClassMalformed, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, shouldRetry(tt.class), "shouldRetry(%s)", tt.class)
	}
}

func TestAPIError(t *testing.T) {
	err := &APIError{
		StatusCode: 503,
		ErrorClass: ErrorClassServer,
		ItemID:     "EUW1_1",
		Message:    "Service unavailable after 3 attempts",
		Err:        ErrRetryExhausted,
	}

	assert.EqualError(t, err, "server error for EUW1_1 (status 503): Service unavailable after 3 attempts: retry attempts exhausted")
	assert.ErrorIs(t, err, ErrRetryExhausted)

	bare := &APIError{StatusCode: 404, ErrorClass: ErrorClassClient, ItemID: "x", Message: "Not found"}
	assert.EqualError(t, bare, "client error for x (status 404): Not found")
	assert.NoError(t, bare.Unwrap())
}
