package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

func Connect(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

// EnsureSchema creates the mesh tables if they do not exist. Every node runs
// this on startup; CREATE IF NOT EXISTS keeps concurrent starts safe.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS delegation_logs (
			id BIGSERIAL PRIMARY KEY,
			correlation_id TEXT NOT NULL UNIQUE,
			source_id TEXT NOT NULL,
			target_id TEXT NOT NULL,
			incident_id TEXT,
			request_text TEXT,
			response_text TEXT,
			status TEXT NOT NULL,
			attempts INT NOT NULL DEFAULT 0,
			duration_ms BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_delegation_logs_incident
			ON delegation_logs (incident_id, target_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS handshakes (
			correlation_id TEXT PRIMARY KEY,
			status TEXT NOT NULL DEFAULT 'PENDING',
			result_jsonb JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			resolved_at TIMESTAMPTZ
		)`,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensuring schema: %w", err)
		}
	}
	return nil
}
