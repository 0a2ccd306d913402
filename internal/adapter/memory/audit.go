package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	portaudit "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/port/audit"
)

var _ portaudit.Recorder = (*AuditRecorder)(nil)

// AuditRecorder keeps the delegation trail in process memory and mirrors it
// to structured logs. Incident dedup still works within one process via a
// TTL-cached incident index; cross-node dedup needs the Postgres recorder.
type AuditRecorder struct {
	mu          sync.Mutex
	delegations map[string]portaudit.Delegation
	incidents   *Cache
}

func NewAuditRecorder() *AuditRecorder {
	return &AuditRecorder{
		delegations: make(map[string]portaudit.Delegation),
		incidents:   NewCache(),
	}
}

func (r *AuditRecorder) Begin(ctx context.Context, d portaudit.Delegation) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	r.mu.Lock()
	r.delegations[d.CorrelationID] = d
	r.mu.Unlock()

	slog.InfoContext(ctx, "delegation started",
		"correlation_id", d.CorrelationID,
		"source", d.SourceID,
		"target", d.TargetID,
		"incident_id", d.IncidentID)
	return nil
}

func (r *AuditRecorder) Finish(ctx context.Context, correlationID string, status portaudit.Status, responseText string, attempts int, duration time.Duration) error {
	r.mu.Lock()
	d, ok := r.delegations[correlationID]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("no delegation %s", correlationID)
	}
	d.Status = status
	d.ResponseText = responseText
	d.Attempts = attempts
	d.Duration = duration
	r.delegations[correlationID] = d
	r.mu.Unlock()

	if d.IncidentID != "" && d.TargetID != "" && terminalSuccess(status) {
		encoded, err := json.Marshal(d)
		if err == nil {
			// 24h is an upper bound; RecentDelegation applies the real window.
			_ = r.incidents.Set(ctx, incidentKey(d.IncidentID, d.TargetID), encoded, 24*time.Hour)
		}
	}

	slog.InfoContext(ctx, "delegation finished",
		"correlation_id", correlationID,
		"status", string(status),
		"attempts", attempts,
		"duration", duration)
	return nil
}

func (r *AuditRecorder) RecentDelegation(ctx context.Context, incidentID, targetID string, maxAge time.Duration) (portaudit.Delegation, bool, error) {
	raw, err := r.incidents.Get(ctx, incidentKey(incidentID, targetID))
	if err != nil {
		return portaudit.Delegation{}, false, nil
	}
	var d portaudit.Delegation
	if err := json.Unmarshal(raw, &d); err != nil {
		return portaudit.Delegation{}, false, nil
	}
	if time.Since(d.CreatedAt) > maxAge {
		return portaudit.Delegation{}, false, nil
	}
	return d, true, nil
}

func terminalSuccess(status portaudit.Status) bool {
	return status == portaudit.StatusCompleted || status == portaudit.StatusFailover
}

func incidentKey(incidentID, targetID string) string {
	return "incident:" + incidentID + ":" + targetID
}
