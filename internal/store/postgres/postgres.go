// Package postgres implements store.Store on PostgreSQL using pgx.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tablevox/tablevox/internal/store"
)

// Store is the PostgreSQL-backed turn log. Safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// Compile-time check that *Store satisfies store.Store.
var _ store.Store = (*Store)(nil)

// New connects to PostgreSQL using dsn and verifies the connection.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Ping verifies the connection. Used by the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: ping: %w", err)
	}
	return nil
}

// Migrate creates the session and turn tables when they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS voice_sessions (
	id         TEXT PRIMARY KEY,
	language   TEXT NOT NULL,
	started_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	ended_at   TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS voice_turns (
	id         BIGSERIAL PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES voice_sessions(id),
	transcript TEXT NOT NULL,
	reply      TEXT NOT NULL,
	language   TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS voice_turns_session_idx
	ON voice_turns (session_id, created_at);
`
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}

// CreateSession implements [store.Store].
func (s *Store) CreateSession(ctx context.Context, sessionID, language string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO voice_sessions (id, language) VALUES ($1, $2)
		 ON CONFLICT (id) DO NOTHING`,
		sessionID, language,
	)
	if err != nil {
		return fmt.Errorf("postgres: create session: %w", err)
	}
	return nil
}

// CloseSession implements [store.Store].
func (s *Store) CloseSession(ctx context.Context, sessionID string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE voice_sessions SET ended_at = now() WHERE id = $1`,
		sessionID,
	)
	if err != nil {
		return fmt.Errorf("postgres: close session: %w", err)
	}
	return nil
}

// SaveTurn implements [store.Store].
func (s *Store) SaveTurn(ctx context.Context, t Turn) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO voice_turns (session_id, transcript, reply, language, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		t.SessionID, t.Transcript, t.Reply, t.Language, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: save turn: %w", err)
	}
	return nil
}

// Turn aliases store.Turn for call sites that already import this package.
type Turn = store.Turn

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}
