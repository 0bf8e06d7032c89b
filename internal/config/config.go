// Package config loads collector settings from defaults, an optional YAML
// file, a .env file and LOLMC_* environment variables, in increasing order of
// precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/Sternrassler/lol-match-collector/pkg/cache"
	"github.com/Sternrassler/lol-match-collector/pkg/client"
	"github.com/Sternrassler/lol-match-collector/pkg/dataset"
	"github.com/Sternrassler/lol-match-collector/pkg/logging"
	"github.com/Sternrassler/lol-match-collector/pkg/pipeline"
	"github.com/Sternrassler/lol-match-collector/pkg/ratelimit"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. LOLMC_API_KEY or
// LOLMC_RATE_LIMIT_POLICY_REQUESTS.
const EnvPrefix = "LOLMC"

// MaxMatchCount is the largest page the match id endpoint serves.
const MaxMatchCount = 100

// Config is the complete collector configuration.
type Config struct {
	// APIKey wins over APIKeyFile when both are set.
	APIKey     string `mapstructure:"api_key"`
	APIKeyFile string `mapstructure:"api_key_file"`

	// BaseURL replaces https://{domain}.api.riotgames.com when set.
	BaseURL string `mapstructure:"base_url"`

	// MatchCount is the number of recent match ids requested per player.
	MatchCount int `mapstructure:"match_count"`

	UserAgent   string        `mapstructure:"user_agent"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MetricsAddr string        `mapstructure:"metrics_addr"`

	Logging   logging.Config     `mapstructure:"logging"`
	RateLimit ratelimit.Config   `mapstructure:"rate_limit"`
	Retry     client.RetryConfig `mapstructure:"retry"`
	Pipeline  pipeline.Config    `mapstructure:"pipeline"`
	Cache     CacheConfig        `mapstructure:"cache"`
	Output    dataset.Config     `mapstructure:"output"`
}

// CacheConfig configures the optional Redis payload cache.
type CacheConfig struct {
	// Addr is host:port of the Redis server. Empty disables caching.
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	cache.Options `mapstructure:",squash"`
}

// Enabled reports whether a Redis address is configured.
func (c CacheConfig) Enabled() bool {
	return c.Addr != ""
}

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() Config {
	return Config{
		APIKeyFile: "api.txt",
		MatchCount: pipeline.DefaultMatchCount,
		UserAgent:  "lol-match-collector/0.1.0",
		Timeout:    30 * time.Second,
		Logging: logging.Config{
			Level: logging.LevelInfo,
		},
		RateLimit: ratelimit.DefaultConfig(),
		Retry:     client.DefaultRetryConfig(),
		Pipeline:  pipeline.DefaultConfig(),
		Cache: CacheConfig{
			Options: cache.DefaultOptions(),
		},
		Output: dataset.DefaultConfig(),
	}
}

// Load reads the configuration. path may be empty, in which case only
// defaults, .env and the environment apply. The API key is resolved from
// api_key first and from the contents of api_key_file otherwise.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIKey == "" && cfg.APIKeyFile != "" {
		key, err := ReadAPIKey(cfg.APIKeyFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		cfg.APIKey = key
	}

	return &cfg, nil
}

// ReadAPIKey returns the trimmed contents of a key file.
func ReadAPIKey(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read api key file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Validate checks the values a run depends on.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("api key is required (set %s_API_KEY or provide %s)", EnvPrefix, c.APIKeyFile)
	}
	if c.MatchCount < 1 || c.MatchCount > MaxMatchCount {
		return fmt.Errorf("match_count must be between 1 and %d (got %d)", MaxMatchCount, c.MatchCount)
	}
	if !c.Logging.Level.Valid() {
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}
	if err := c.RateLimit.Policy.Validate(); err != nil {
		return fmt.Errorf("rate_limit.policy: %w", err)
	}
	for domain, policy := range c.RateLimit.Overrides {
		if !domain.Valid() {
			return fmt.Errorf("rate_limit.overrides: unknown domain %q", domain)
		}
		if err := policy.Validate(); err != nil {
			return fmt.Errorf("rate_limit.overrides.%s: %w", domain, err)
		}
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be >= 1 (got %d)", c.Retry.MaxAttempts)
	}
	if c.Pipeline.MaxConcurrency < 1 {
		return fmt.Errorf("pipeline.max_concurrency must be >= 1 (got %d)", c.Pipeline.MaxConcurrency)
	}
	return c.Output.Validate()
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("api_key", d.APIKey)
	v.SetDefault("api_key_file", d.APIKeyFile)
	v.SetDefault("base_url", d.BaseURL)
	v.SetDefault("match_count", d.MatchCount)
	v.SetDefault("user_agent", d.UserAgent)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("metrics_addr", d.MetricsAddr)

	v.SetDefault("logging.level", string(d.Logging.Level))
	v.SetDefault("logging.pretty", d.Logging.Pretty)

	v.SetDefault("rate_limit.kind", string(d.RateLimit.Kind))
	v.SetDefault("rate_limit.policy.requests", d.RateLimit.Policy.Requests)
	v.SetDefault("rate_limit.policy.period", d.RateLimit.Policy.Period)

	v.SetDefault("retry.max_attempts", d.Retry.MaxAttempts)
	v.SetDefault("retry.backoff_unit", d.Retry.BackoffUnit)
	v.SetDefault("retry.max_backoff", d.Retry.MaxBackoff)
	v.SetDefault("retry.default_retry_after", d.Retry.DefaultRetryAfter)
	v.SetDefault("retry.rate_limit_pad", d.Retry.RateLimitPad)
	v.SetDefault("retry.max_retry_after", d.Retry.MaxRetryAfter)

	v.SetDefault("pipeline.max_concurrency", d.Pipeline.MaxConcurrency)

	v.SetDefault("cache.addr", d.Cache.Addr)
	v.SetDefault("cache.password", d.Cache.Password)
	v.SetDefault("cache.db", d.Cache.DB)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.list_ttl", d.Cache.ListTTL)

	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("output.dir", d.Output.Dir)
	v.SetDefault("output.sqlite_path", d.Output.SQLitePath)
	v.SetDefault("output.postgres_url", d.Output.PostgresURL)
}
