package handshake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	porthandshake "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/port/handshake"
)

var _ porthandshake.Store = (*Store)(nil)

// Store tracks handshakes in the handshakes table so a delegation awaited on
// one node can be resolved by the peer process that received the result.
// Await polls; the poll interval trades latency for load and stays well under
// the handshake timeouts the mesh uses.
type Store struct {
	pool         *pgxpool.Pool
	pollInterval time.Duration
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, pollInterval: 200 * time.Millisecond}
}

func (s *Store) Create(ctx context.Context, correlationID string) error {
	query := `
		INSERT INTO handshakes (correlation_id, status, created_at)
		VALUES ($1, 'PENDING', NOW())`

	if _, err := s.pool.Exec(ctx, query, correlationID); err != nil {
		return fmt.Errorf("creating handshake %s: %w", correlationID, err)
	}
	return nil
}

func (s *Store) Await(ctx context.Context, correlationID string, timeout time.Duration) (json.RawMessage, error) {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		result, resolved, err := s.lookup(ctx, correlationID)
		if err != nil {
			return nil, err
		}
		if resolved {
			s.delete(ctx, correlationID)
			return result, nil
		}
		if time.Now().After(deadline) {
			s.delete(ctx, correlationID)
			return nil, porthandshake.ErrTimeout
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			s.delete(ctx, correlationID)
			return nil, ctx.Err()
		}
	}
}

func (s *Store) Resolve(ctx context.Context, correlationID string, result json.RawMessage) error {
	query := `
		UPDATE handshakes
		SET status = 'COMPLETED', result_jsonb = $2, resolved_at = NOW()
		WHERE correlation_id = $1 AND status = 'PENDING'`

	tag, err := s.pool.Exec(ctx, query, correlationID, result)
	if err != nil {
		return fmt.Errorf("resolving handshake %s: %w", correlationID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no pending handshake %s", correlationID)
	}
	return nil
}

func (s *Store) lookup(ctx context.Context, correlationID string) (json.RawMessage, bool, error) {
	query := `SELECT status, result_jsonb FROM handshakes WHERE correlation_id = $1`

	var status string
	var result []byte
	err := s.pool.QueryRow(ctx, query, correlationID).Scan(&status, &result)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, fmt.Errorf("handshake %s was never created", correlationID)
		}
		return nil, false, fmt.Errorf("looking up handshake %s: %w", correlationID, err)
	}
	return result, status == "COMPLETED", nil
}

func (s *Store) delete(ctx context.Context, correlationID string) {
	// Best effort cleanup; an orphaned row is harmless.
	if ctx.Err() != nil {
		ctx = context.Background()
	}
	s.pool.Exec(ctx, `DELETE FROM handshakes WHERE correlation_id = $1`, correlationID) //nolint:errcheck
}
