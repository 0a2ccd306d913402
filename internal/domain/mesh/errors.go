package mesh

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNoRouteAvailable means resolution produced zero usable destinations.
// Callers must surface it as a terminal failure for the request.
var ErrNoRouteAvailable = errors.New("no route available")

// CircuitOpenError is returned when a call is rejected without touching the
// network because the destination's circuit is open.
type CircuitOpenError struct {
	NodeID  string
	RetryAt time.Time
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit open for %s (retry after %s)", e.NodeID, e.RetryAt.Format(time.RFC3339))
}

// UnparseableResponseError means every response extraction strategy failed.
// Raw carries the payload for diagnosis.
type UnparseableResponseError struct {
	NodeID string
	Raw    json.RawMessage
}

func (e *UnparseableResponseError) Error() string {
	return fmt.Sprintf("unparseable response from %s (%d bytes)", e.NodeID, len(e.Raw))
}

// Attempt records one delivery attempt against one candidate.
type Attempt struct {
	NodeID string   `json:"node_id"`
	Kind   EdgeKind `json:"kind"`
	Reason string   `json:"reason"`
}

// DeliveryError aggregates every attempted destination and why each failed,
// so operators can tell "no route existed" from "all peers were down".
type DeliveryError struct {
	SourceID string
	Intent   string
	Attempts []Attempt
}

func (e *DeliveryError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s (%s): %s", a.NodeID, a.Kind, a.Reason))
	}
	return fmt.Sprintf("delivery failed for intent %q from %s: tried %s",
		e.Intent, e.SourceID, strings.Join(parts, "; "))
}
