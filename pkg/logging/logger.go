// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Valid reports whether l is one of the supported levels.
func (l LogLevel) Valid() bool {
	switch strings.ToLower(string(l)) {
	case "debug", "info", "warn", "warning", "error":
		return true
	default:
		return false
	}
}

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel `mapstructure:"level"`

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool `mapstructure:"pretty"`

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer `mapstructure:"-"`
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	// Set global log level
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	// Configure output
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	var output io.Writer = cfg.Output
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: "15:04:05"}
	}

	// Create logger with timestamp
	logger := zerolog.New(output).With().Timestamp().Logger()

	// Set as global logger
	log.Logger = logger

	return logger
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// WithRun returns a logger that stamps every line with the run id and stage.
func WithRun(logger zerolog.Logger, runID, stage string) zerolog.Logger {
	return logger.With().Str("run_id", runID).Str("stage", stage).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Limiter waits (domain, waited)
//   - Payloads that contributed nothing (non-classic matches)
//   - Config sources
//
// Info: Normal operation events
//   - Run and domain worker start/finish with counts
//   - Progress every 50 (roles) or 100 (match ids, trajectories) items
//   - Requests that succeeded after a retry
//   - Dataset files written
//
// Warn: Warning conditions that don't prevent operation
//   - Retry attempts (429 wait, backoff)
//   - Malformed payloads skipped
//   - Unroutable items skipped
//   - Cache errors (fallback to direct request)
//
// Error: Error conditions requiring attention
//   - Fetches that failed terminally
//   - Sink write failures
//   - Configuration errors
//
// Context Fields:
//   - run_id: UUID of one pipeline run
//   - stage: match-ids, roles or trajectories
//   - domain: routing domain (europe, americas, asia, sea)
//   - item_id: player puuid or match id
//   - status: HTTP status code
//   - error_class: rate_limit, client, server, network, malformed
//   - attempt: 1-based attempt number
//   - url: request URL with the api_key redacted
