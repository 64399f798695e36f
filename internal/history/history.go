// Package history persists completed voice interactions to PostgreSQL.
//
// The store is an append-only log living outside the session core: it
// consumes interaction-completed events and never sits on the capture or
// playback path. A process configured without a database DSN simply runs
// without history.
package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema is the SQL DDL for the interactions table. Execute it via
// [Store.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS interactions (
    id              BIGSERIAL PRIMARY KEY,
    command         TEXT NOT NULL,
    reply           TEXT NOT NULL DEFAULT '',
    outcome         TEXT NOT NULL,
    wake_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
    started_at      TIMESTAMPTZ NOT NULL,
    duration_ms     BIGINT NOT NULL DEFAULT 0,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_interactions_started ON interactions(started_at DESC);
`

// Interaction is one completed exchange between the user and the assistant.
type Interaction struct {
	ID             int64
	Command        string
	Reply          string
	Outcome        string
	WakeConfidence float64
	StartedAt      time.Time
	Duration       time.Duration
}

// DB is the database interface used by [Store]. Both *pgxpool.Pool and
// *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store is an append-only interaction log backed by PostgreSQL.
type Store struct {
	db   DB
	pool *pgxpool.Pool
}

// New creates a [Store] that uses the given database connection or pool.
// The caller is responsible for calling [Store.Migrate] before issuing
// queries.
func New(db DB) *Store {
	return &Store{db: db}
}

// Open connects a pgx pool to dsn and returns a migrated Store. An empty dsn
// returns (nil, nil): a nil *Store is valid and drops all records.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, nil
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("history: connect: %w", err)
	}
	s := &Store{db: pool, pool: pool}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Migrate executes the [Schema] DDL against the database, creating the
// interactions table and index if they do not already exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("history: migrate: %w", err)
	}
	return nil
}

// Ping verifies the backing database is reachable. A disabled store always
// reports healthy.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil {
		return nil
	}
	var one int
	if err := s.db.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("history: ping: %w", err)
	}
	return nil
}

// Record appends one interaction. A nil Store silently drops the record.
func (s *Store) Record(ctx context.Context, in Interaction) error {
	if s == nil {
		return nil
	}

	const query = `
		INSERT INTO interactions (command, reply, outcome, wake_confidence, started_at, duration_ms)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id`

	err := s.db.QueryRow(ctx, query,
		in.Command, in.Reply, in.Outcome, in.WakeConfidence,
		in.StartedAt, in.Duration.Milliseconds(),
	).Scan(&in.ID)
	if err != nil {
		return fmt.Errorf("history: record: %w", err)
	}
	return nil
}

// RecordAsync appends one interaction on a background goroutine, logging
// failures instead of reporting them. Event publication must never block on
// the database; this is the subscriber entry point the session core's
// interaction-completed events are wired to.
func (s *Store) RecordAsync(in Interaction) {
	if s == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Record(ctx, in); err != nil {
			slog.Error("failed to persist interaction", "error", err)
		}
	}()
}

// Recent returns the most recent interactions, newest first. A nil Store
// returns no rows. limit must be positive.
func (s *Store) Recent(ctx context.Context, limit int) ([]Interaction, error) {
	if s == nil {
		return nil, nil
	}
	if limit <= 0 {
		return nil, errors.New("history: limit must be positive")
	}

	const query = `
		SELECT id, command, reply, outcome, wake_confidence, started_at, duration_ms
		FROM interactions
		ORDER BY started_at DESC
		LIMIT $1`

	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("history: recent: %w", err)
	}
	defer rows.Close()

	var out []Interaction
	for rows.Next() {
		var (
			in         Interaction
			durationMs int64
		)
		if err := rows.Scan(
			&in.ID, &in.Command, &in.Reply, &in.Outcome,
			&in.WakeConfidence, &in.StartedAt, &durationMs,
		); err != nil {
			return nil, fmt.Errorf("history: recent scan: %w", err)
		}
		in.Duration = time.Duration(durationMs) * time.Millisecond
		out = append(out, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: recent: %w", err)
	}
	return out, nil
}

// Close releases the underlying pool if this Store owns one.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}
