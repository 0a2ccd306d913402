package audit

import (
	"context"
	"time"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusTimeout   Status = "TIMEOUT"
	StatusFailover  Status = "FAILOVER_SUCCESS"
)

// Delegation is one audited send from a source node to a target node.
type Delegation struct {
	CorrelationID string        `json:"correlation_id"`
	SourceID      string        `json:"source_id"`
	TargetID      string        `json:"target_id"`
	IncidentID    string        `json:"incident_id,omitempty"`
	RequestText   string        `json:"request_text,omitempty"`
	ResponseText  string        `json:"response_text,omitempty"`
	Status        Status        `json:"status"`
	Attempts      int           `json:"attempts"`
	Duration      time.Duration `json:"duration"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Recorder is the audit/observability collaborator. Recording failures are
// never fatal to the request being audited; implementations absorb them.
type Recorder interface {
	// Begin records a delegation in PENDING state before delivery starts.
	Begin(ctx context.Context, d Delegation) error
	// Finish updates the delegation with its terminal outcome.
	Finish(ctx context.Context, correlationID string, status Status, responseText string, attempts int, duration time.Duration) error
	// RecentDelegation reports whether any node already delegated the given
	// incident to the target within the freshness window.
	RecentDelegation(ctx context.Context, incidentID, targetID string, maxAge time.Duration) (Delegation, bool, error)
}
