package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Sternrassler/lol-match-collector/pkg/parser"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS match_ids (
		match_id TEXT PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS match_ids_filtered (
		match_id TEXT PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS player_roles (
		match_id TEXT NOT NULL,
		slot INTEGER NOT NULL,
		puuid TEXT NOT NULL,
		role TEXT,
		champion TEXT,
		PRIMARY KEY (match_id, slot)
	);

	CREATE TABLE IF NOT EXISTS trajectories (
		match_id TEXT NOT NULL,
		slot INTEGER NOT NULL,
		puuid TEXT NOT NULL,
		team INTEGER,
		positions TEXT NOT NULL,
		PRIMARY KEY (match_id, slot)
	);
`

// SQLiteSink writes results into a SQLite database file. Rows are keyed by
// match and slot, so rerunning a stage replaces earlier rows.
type SQLiteSink struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and ensures the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteSink, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer at a time.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SQLiteSink{db: db}, nil
}

// WriteMatchIDs implements Sink.
func (s *SQLiteSink) WriteMatchIDs(ctx context.Context, ids []string) error {
	return s.insertIDs(ctx, "match_ids", ids)
}

// WriteFilteredMatches implements Sink.
func (s *SQLiteSink) WriteFilteredMatches(ctx context.Context, ids []string) error {
	return s.insertIDs(ctx, "match_ids_filtered", ids)
}

// WriteRoles implements Sink.
func (s *SQLiteSink) WriteRoles(ctx context.Context, rows []parser.RoleRecord) error {
	return s.inTx(ctx, `
		INSERT OR REPLACE INTO player_roles (match_id, slot, puuid, role, champion)
		VALUES (?, ?, ?, ?, ?)
	`, len(rows), func(stmt *sql.Stmt, i int) error {
		r := rows[i]
		_, err := stmt.ExecContext(ctx, r.MatchID, r.Slot, r.PUUID, nullString(r.Role.String()), nullString(r.Champion))
		return err
	})
}

// WriteTrajectories implements Sink.
func (s *SQLiteSink) WriteTrajectories(ctx context.Context, rows []parser.TrajectoryRecord) error {
	return s.inTx(ctx, `
		INSERT OR REPLACE INTO trajectories (match_id, slot, puuid, team, positions)
		VALUES (?, ?, ?, ?, ?)
	`, len(rows), func(stmt *sql.Stmt, i int) error {
		r := rows[i]
		team := sql.NullInt64{}
		if idx, ok := r.Team.Index(); ok {
			team = sql.NullInt64{Int64: int64(idx), Valid: true}
		}
		_, err := stmt.ExecContext(ctx, r.MatchID, r.Slot, r.PUUID, team, encodePositions(r.Positions))
		return err
	})
}

// Close closes the database.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

func (s *SQLiteSink) insertIDs(ctx context.Context, table string, ids []string) error {
	query := fmt.Sprintf("INSERT OR IGNORE INTO %s (match_id) VALUES (?)", table)
	return s.inTx(ctx, query, len(ids), func(stmt *sql.Stmt, i int) error {
		_, err := stmt.ExecContext(ctx, ids[i])
		return err
	})
}

// inTx prepares query once and executes it n times inside one transaction.
func (s *SQLiteSink) inTx(ctx context.Context, query string, n int, exec func(stmt *sql.Stmt, i int) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if err := exec(stmt, i); err != nil {
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}
	return tx.Commit()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
