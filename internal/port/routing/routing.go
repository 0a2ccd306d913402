package routing

import "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/domain/mesh"

// Resolver picks the ordered candidate destinations for one outgoing intent.
// PrimaryTarget names the first declared primary destination regardless of
// health, for failover attribution.
type Resolver interface {
	Resolve(sourceID, intent string) mesh.Decision
	PrimaryTarget(sourceID, intent string) (string, bool)
}
