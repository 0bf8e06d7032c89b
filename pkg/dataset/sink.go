package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/Sternrassler/lol-match-collector/pkg/parser"
)

// Output formats.
const (
	FormatCSV      = "csv"
	FormatSQLite   = "sqlite"
	FormatPostgres = "postgres"
)

// Sink receives the results of a run.
type Sink interface {
	WriteMatchIDs(ctx context.Context, ids []string) error
	WriteFilteredMatches(ctx context.Context, ids []string) error
	WriteRoles(ctx context.Context, rows []parser.RoleRecord) error
	WriteTrajectories(ctx context.Context, rows []parser.TrajectoryRecord) error
	Close() error
}

// Config selects and configures the sink.
type Config struct {
	// Format is csv, sqlite or postgres.
	Format string `mapstructure:"format"`

	// Dir holds input and CSV output files.
	Dir string `mapstructure:"dir"`

	// SQLitePath is the database file for the sqlite format.
	SQLitePath string `mapstructure:"sqlite_path"`

	// PostgresURL is the connection string for the postgres format.
	PostgresURL string `mapstructure:"postgres_url"`
}

// DefaultConfig writes CSV files to ./data.
func DefaultConfig() Config {
	return Config{
		Format:     FormatCSV,
		Dir:        "data",
		SQLitePath: "data/collector.db",
	}
}

// Validate checks that the selected format has what it needs.
func (c Config) Validate() error {
	switch c.Format {
	case FormatCSV:
		if c.Dir == "" {
			return fmt.Errorf("output.dir is required for csv output")
		}
	case FormatSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("output.sqlite_path is required for sqlite output")
		}
	case FormatPostgres:
		if c.PostgresURL == "" {
			return fmt.Errorf("output.postgres_url is required for postgres output")
		}
	default:
		return fmt.Errorf("unknown output format %q (want csv, sqlite or postgres)", c.Format)
	}
	return nil
}

// Open creates the sink selected by cfg.Format.
func Open(ctx context.Context, cfg Config) (Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Format {
	case FormatSQLite:
		return OpenSQLite(ctx, cfg.SQLitePath)
	case FormatPostgres:
		return OpenPostgres(ctx, cfg.PostgresURL)
	default:
		return NewCSVSink(cfg.Dir)
	}
}

// encodePositions renders a path as a JSON array of [x, y] pairs.
func encodePositions(points []parser.Point) string {
	pairs := make([][2]int, len(points))
	for i, p := range points {
		pairs[i] = [2]int{p.X, p.Y}
	}
	data, _ := json.Marshal(pairs)
	return string(data)
}

// teamValue returns "0", "1" or "" for an unresolved team.
func teamValue(t parser.Team) string {
	if idx, ok := t.Index(); ok {
		return strconv.Itoa(idx)
	}
	return ""
}
