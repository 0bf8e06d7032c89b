package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Sternrassler/lol-match-collector/pkg/logging"
	"github.com/Sternrassler/lol-match-collector/pkg/parser"
	"github.com/rs/zerolog"
)

// CSV file names inside the data directory. PlayersFile is input only.
const (
	PlayersFile         = "player_index.csv"
	MatchIDsFile        = "match_ids.csv"
	FilteredMatchesFile = "match_ids_filtered.csv"
	RolesFile           = "player_roles.csv"
	TrajectoriesFile    = "trajectories.csv"
)

// CSVSink writes one CSV file per collection. Each write replaces the file.
type CSVSink struct {
	dir    string
	logger zerolog.Logger
}

// NewCSVSink creates dir if needed and returns a sink writing into it.
func NewCSVSink(dir string) (*CSVSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &CSVSink{dir: dir, logger: logging.NewLogger("dataset")}, nil
}

// WriteMatchIDs writes match_ids.csv.
func (s *CSVSink) WriteMatchIDs(_ context.Context, ids []string) error {
	return s.writeIDs(MatchIDsFile, ids)
}

// WriteFilteredMatches writes match_ids_filtered.csv.
func (s *CSVSink) WriteFilteredMatches(_ context.Context, ids []string) error {
	return s.writeIDs(FilteredMatchesFile, ids)
}

// WriteRoles writes player_roles.csv. Absent roles and champions are empty.
func (s *CSVSink) WriteRoles(_ context.Context, rows []parser.RoleRecord) error {
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{r.PUUID, r.MatchID, strconv.Itoa(r.Slot), r.Role.String(), r.Champion})
	}
	return s.write(RolesFile, []string{"puuid", "match_id", "slot", "role", "champion"}, records)
}

// WriteTrajectories writes trajectories.csv with positions as a JSON array of
// [x, y] pairs. An unresolved team is empty.
func (s *CSVSink) WriteTrajectories(_ context.Context, rows []parser.TrajectoryRecord) error {
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{r.PUUID, r.MatchID, strconv.Itoa(r.Slot), teamValue(r.Team), encodePositions(r.Positions)})
	}
	return s.write(TrajectoriesFile, []string{"puuid", "match_id", "slot", "team", "positions"}, records)
}

// Close implements Sink.
func (s *CSVSink) Close() error { return nil }

func (s *CSVSink) writeIDs(name string, ids []string) error {
	records := make([][]string, len(ids))
	for i, id := range ids {
		records[i] = []string{id}
	}
	return s.write(name, []string{"match_id"}, records)
}

// write replaces name atomically: rows go to a temp file renamed on success.
func (s *CSVSink) write(name string, header []string, records [][]string) error {
	path := filepath.Join(s.dir, name)
	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := w.WriteAll(records); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}

	s.logger.Info().Str("file", path).Int("rows", len(records)).Msg("Dataset written")
	return nil
}
