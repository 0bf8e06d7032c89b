// Package dataset reads pipeline input files and writes collected results to
// CSV files, SQLite or Postgres.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Sternrassler/lol-match-collector/pkg/routing"
)

// ReadPlayers reads a player index CSV with at least the columns puuid and
// region. Rows whose region is unknown are kept without a domain so the
// orchestrator reports them as unroutable.
func ReadPlayers(path string) ([]routing.WorkItem, error) {
	rows, err := readColumns(path, "puuid", "region")
	if err != nil {
		return nil, err
	}

	items := make([]routing.WorkItem, 0, len(rows))
	for _, row := range rows {
		puuid, region := row[0], row[1]
		if puuid == "" {
			continue
		}
		item, err := routing.NewPlayerItem(puuid, region)
		if errors.Is(err, routing.ErrUnknownRegion) {
			item = routing.WorkItem{Key: puuid, Kind: routing.KindPlayer, Region: strings.ToLower(region)}
		} else if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// ReadMatchIDs reads a CSV with a match_id column. Ids without a known
// platform prefix are kept without a domain.
func ReadMatchIDs(path string) ([]routing.WorkItem, error) {
	rows, err := readColumns(path, "match_id")
	if err != nil {
		return nil, err
	}

	items := make([]routing.WorkItem, 0, len(rows))
	for _, row := range rows {
		id := row[0]
		if id == "" {
			continue
		}
		item, err := routing.NewMatchItem(id)
		if errors.Is(err, routing.ErrUnknownRegion) {
			item = routing.WorkItem{Key: id, Kind: routing.KindMatch, Region: routing.RegionFromMatchID(id)}
		} else if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// readColumns returns the named columns of every record, trimmed, in header order
// of names.
func readColumns(path string, names ...string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}

	columns := make([]int, len(names))
	for i, name := range names {
		col, ok := index[name]
		if !ok {
			return nil, fmt.Errorf("%s: missing column %q", path, name)
		}
		columns[i] = col
	}

	var rows [][]string
	for line := 2; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		row := make([]string, len(columns))
		for i, col := range columns {
			if col >= len(record) {
				return nil, fmt.Errorf("%s:%d: missing value for %q", path, line, names[i])
			}
			row[i] = strings.TrimSpace(record[col])
		}
		rows = append(rows, row)
	}
	return rows, nil
}
