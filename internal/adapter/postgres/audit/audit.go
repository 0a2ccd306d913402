package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	portaudit "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/port/audit"
)

var _ portaudit.Recorder = (*Recorder)(nil)

// Recorder persists the delegation trail to the delegation_logs table. Because
// every node writes to the same table, RecentDelegation sees delegations made
// by peers, which is what makes cross-node incident dedup work.
type Recorder struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Recorder {
	return &Recorder{pool: pool}
}

func (r *Recorder) Begin(ctx context.Context, d portaudit.Delegation) error {
	query := `
		INSERT INTO delegation_logs (correlation_id, source_id, target_id, incident_id, request_text, status, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7)
		ON CONFLICT (correlation_id) DO NOTHING`

	createdAt := d.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx, query,
		d.CorrelationID, d.SourceID, d.TargetID, d.IncidentID, d.RequestText, string(d.Status), createdAt)
	if err != nil {
		return fmt.Errorf("recording delegation %s: %w", d.CorrelationID, err)
	}
	return nil
}

func (r *Recorder) Finish(ctx context.Context, correlationID string, status portaudit.Status, responseText string, attempts int, duration time.Duration) error {
	query := `
		UPDATE delegation_logs
		SET status = $2, response_text = $3, attempts = $4, duration_ms = $5, updated_at = NOW()
		WHERE correlation_id = $1`

	tag, err := r.pool.Exec(ctx, query,
		correlationID, string(status), responseText, attempts, duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("finishing delegation %s: %w", correlationID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no delegation %s", correlationID)
	}
	return nil
}

func (r *Recorder) RecentDelegation(ctx context.Context, incidentID, targetID string, maxAge time.Duration) (portaudit.Delegation, bool, error) {
	query := `
		SELECT correlation_id, source_id, target_id, COALESCE(incident_id, ''), status, created_at
		FROM delegation_logs
		WHERE incident_id = $1
		  AND target_id = $2
		  AND status IN ('COMPLETED', 'FAILOVER_SUCCESS', 'PENDING')
		  AND created_at > NOW() - ($3 * INTERVAL '1 second')
		ORDER BY created_at DESC
		LIMIT 1`

	var d portaudit.Delegation
	var status string
	err := r.pool.QueryRow(ctx, query, incidentID, targetID, maxAge.Seconds()).Scan(
		&d.CorrelationID, &d.SourceID, &d.TargetID, &d.IncidentID, &status, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return portaudit.Delegation{}, false, nil
		}
		return portaudit.Delegation{}, false, fmt.Errorf("querying recent delegations for incident %s: %w", incidentID, err)
	}
	d.Status = portaudit.Status(status)
	return d, true, nil
}
