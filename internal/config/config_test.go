package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Sternrassler/lol-match-collector/pkg/dataset"
	"github.com/Sternrassler/lol-match-collector/pkg/logging"
	"github.com/Sternrassler/lol-match-collector/pkg/ratelimit"
	"github.com/Sternrassler/lol-match-collector/pkg/routing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("LOLMC_API_KEY", "RGAPI-env")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "RGAPI-env", cfg.APIKey)
	assert.Equal(t, 10, cfg.MatchCount)
	assert.Equal(t, ratelimit.KindInterval, cfg.RateLimit.Kind)
	assert.Equal(t, 100, cfg.RateLimit.Policy.Requests)
	assert.Equal(t, 120*time.Second, cfg.RateLimit.Policy.Period)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 60*time.Second, cfg.Retry.MaxRetryAfter)
	assert.Equal(t, 4, cfg.Pipeline.MaxConcurrency)
	assert.Equal(t, dataset.FormatCSV, cfg.Output.Format)
	assert.Equal(t, 7*24*time.Hour, cfg.Cache.TTL)
	assert.False(t, cfg.Cache.Enabled())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_File(t *testing.T) {
	t.Setenv("LOLMC_API_KEY", "RGAPI-env")
	path := writeTemp(t, "lolmc.yaml", `
match_count: 20
logging:
  level: debug
  pretty: true
rate_limit:
  kind: window
  policy:
    requests: 20
    period: 1s
  overrides:
    europe:
      requests: 50
      period: 10s
retry:
  max_attempts: 5
  max_retry_after: 2m
cache:
  addr: localhost:6379
  ttl: 24h
output:
  format: sqlite
  sqlite_path: /tmp/out.db
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.MatchCount)
	assert.Equal(t, logging.LevelDebug, cfg.Logging.Level)
	assert.True(t, cfg.Logging.Pretty)
	assert.Equal(t, ratelimit.KindWindow, cfg.RateLimit.Kind)
	assert.Equal(t, ratelimit.Policy{Requests: 20, Period: time.Second}, cfg.RateLimit.Policy)
	assert.Equal(t, ratelimit.Policy{Requests: 50, Period: 10 * time.Second}, cfg.RateLimit.Overrides[routing.Europe])
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 2*time.Minute, cfg.Retry.MaxRetryAfter)
	assert.Equal(t, time.Second, cfg.Retry.BackoffUnit, "unset keys keep their defaults")
	assert.True(t, cfg.Cache.Enabled())
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, time.Hour, cfg.Cache.ListTTL)
	assert.Equal(t, dataset.FormatSQLite, cfg.Output.Format)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeTemp(t, "lolmc.yaml", "match_count: 20\napi_key: RGAPI-file\n")
	t.Setenv("LOLMC_MATCH_COUNT", "30")
	t.Setenv("LOLMC_RATE_LIMIT_POLICY_PERIOD", "10s")
	t.Setenv("LOLMC_API_KEY", "")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.MatchCount)
	assert.Equal(t, 10*time.Second, cfg.RateLimit.Policy.Period)
	assert.Equal(t, "RGAPI-file", cfg.APIKey)
}

func TestLoad_APIKeyFile(t *testing.T) {
	keyFile := writeTemp(t, "api.txt", "  RGAPI-from-file\n")
	t.Setenv("LOLMC_API_KEY", "")
	t.Setenv("LOLMC_API_KEY_FILE", keyFile)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "RGAPI-from-file", cfg.APIKey)
}

func TestLoad_MissingAPIKey(t *testing.T) {
	t.Setenv("LOLMC_API_KEY", "")
	t.Setenv("LOLMC_API_KEY_FILE", filepath.Join(t.TempDir(), "absent.txt"))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, cfg.APIKey)
	assert.ErrorContains(t, cfg.Validate(), "api key is required")
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
		want   string
	}{
		{name: "match count zero", modify: func(c *Config) { c.MatchCount = 0 }, want: "match_count"},
		{name: "match count too large", modify: func(c *Config) { c.MatchCount = 101 }, want: "match_count"},
		{name: "log level", modify: func(c *Config) { c.Logging.Level = "verbose" }, want: "log level"},
		{name: "policy", modify: func(c *Config) { c.RateLimit.Policy.Requests = 0 }, want: "rate_limit.policy"},
		{
			name: "override domain",
			modify: func(c *Config) {
				c.RateLimit.Overrides = map[routing.Domain]ratelimit.Policy{"mars": ratelimit.DefaultPolicy()}
			},
			want: "unknown domain",
		},
		{name: "attempts", modify: func(c *Config) { c.Retry.MaxAttempts = 0 }, want: "max_attempts"},
		{name: "concurrency", modify: func(c *Config) { c.Pipeline.MaxConcurrency = 0 }, want: "max_concurrency"},
		{name: "output", modify: func(c *Config) { c.Output.Format = "xml" }, want: "unknown output format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.APIKey = "RGAPI-test"
			tt.modify(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}
