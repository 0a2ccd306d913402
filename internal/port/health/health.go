package health

import (
	"context"

	"github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/domain/mesh"
)

// AvailabilityReader is the narrow view the routing engine needs.
// Reads are non-blocking and never error; probe failures are absorbed
// into state by the monitor.
type AvailabilityReader interface {
	IsAvailable(nodeID string) bool
}

// FailureReporter lets the delivery path feed call outcomes into health
// state without waiting for the next poll cycle.
type FailureReporter interface {
	ReportFailure(nodeID string)
}

// Prober issues one liveness probe against a node. Any non-nil error counts
// as one failed probe.
type Prober interface {
	Probe(ctx context.Context, node mesh.Node) error
}
