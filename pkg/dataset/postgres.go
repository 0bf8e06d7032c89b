package dataset

import (
	"context"
	"fmt"

	"github.com/Sternrassler/lol-match-collector/pkg/parser"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS match_ids (
		match_id TEXT PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS match_ids_filtered (
		match_id TEXT PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS player_roles (
		match_id TEXT NOT NULL,
		slot SMALLINT NOT NULL,
		puuid TEXT NOT NULL,
		role TEXT,
		champion TEXT,
		PRIMARY KEY (match_id, slot)
	);

	CREATE TABLE IF NOT EXISTS trajectories (
		match_id TEXT NOT NULL,
		slot SMALLINT NOT NULL,
		puuid TEXT NOT NULL,
		team SMALLINT,
		positions JSONB NOT NULL,
		PRIMARY KEY (match_id, slot)
	);
`

// PostgresSink writes results into Postgres with upserts keyed like SQLiteSink.
type PostgresSink struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to dbURL and ensures the schema.
func OpenPostgres(ctx context.Context, dbURL string) (*PostgresSink, error) {
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &PostgresSink{pool: pool}, nil
}

// WriteMatchIDs implements Sink.
func (s *PostgresSink) WriteMatchIDs(ctx context.Context, ids []string) error {
	return s.insertIDs(ctx, "match_ids", ids)
}

// WriteFilteredMatches implements Sink.
func (s *PostgresSink) WriteFilteredMatches(ctx context.Context, ids []string) error {
	return s.insertIDs(ctx, "match_ids_filtered", ids)
}

// WriteRoles implements Sink.
func (s *PostgresSink) WriteRoles(ctx context.Context, rows []parser.RoleRecord) error {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO player_roles (match_id, slot, puuid, role, champion)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (match_id, slot) DO UPDATE
			SET puuid = EXCLUDED.puuid, role = EXCLUDED.role, champion = EXCLUDED.champion
		`, r.MatchID, r.Slot, r.PUUID, optional(r.Role.String()), optional(r.Champion))
	}
	return s.send(ctx, "player_roles", batch)
}

// WriteTrajectories implements Sink.
func (s *PostgresSink) WriteTrajectories(ctx context.Context, rows []parser.TrajectoryRecord) error {
	batch := &pgx.Batch{}
	for _, r := range rows {
		var team *int
		if idx, ok := r.Team.Index(); ok {
			team = &idx
		}
		batch.Queue(`
			INSERT INTO trajectories (match_id, slot, puuid, team, positions)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (match_id, slot) DO UPDATE
			SET puuid = EXCLUDED.puuid, team = EXCLUDED.team, positions = EXCLUDED.positions
		`, r.MatchID, r.Slot, r.PUUID, team, encodePositions(r.Positions))
	}
	return s.send(ctx, "trajectories", batch)
}

// Close closes the connection pool.
func (s *PostgresSink) Close() error {
	s.pool.Close()
	return nil
}

// Pool returns the underlying connection pool for custom queries.
func (s *PostgresSink) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *PostgresSink) insertIDs(ctx context.Context, table string, ids []string) error {
	batch := &pgx.Batch{}
	query := fmt.Sprintf("INSERT INTO %s (match_id) VALUES ($1) ON CONFLICT DO NOTHING", table)
	for _, id := range ids {
		batch.Queue(query, id)
	}
	return s.send(ctx, table, batch)
}

func (s *PostgresSink) send(ctx context.Context, table string, batch *pgx.Batch) error {
	if batch.Len() == 0 {
		return nil
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("write %s: %w", table, err)
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
