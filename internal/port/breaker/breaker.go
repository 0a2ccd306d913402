package breaker

import "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/domain/mesh"

// StateReader is the routing engine's read-only view of circuit state.
type StateReader interface {
	State(nodeID string) mesh.CircuitState
}

// Breaker is the delivery path's view: admission control plus outcome
// reporting. Allow returns *mesh.CircuitOpenError when the circuit rejects
// the call. A cancelled call must not be recorded either way; callers
// release the admitted trial slot with ReleaseTrial instead.
type Breaker interface {
	Allow(nodeID string) error
	RecordSuccess(nodeID string)
	RecordFailure(nodeID string)
	ReleaseTrial(nodeID string)
}
