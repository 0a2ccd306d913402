package routing

import (
	"context"
	"log/slog"

	"github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/domain/event"
	"github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/domain/mesh"
	portbreaker "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/port/breaker"
	portbus "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/port/eventbus"
	porthealth "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/port/health"
	portrouting "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/port/routing"
)

// Engine resolves destinations for outgoing intents. It owns no long-lived
// state of its own: each decision is a pure function of the immutable route
// table and the health/circuit snapshots read at decision time. A decision
// is never invalidated retroactively — an in-flight request completes
// against the destination chosen at resolution time.
type Engine struct {
	table    *Table
	health   porthealth.AvailabilityReader
	circuits portbreaker.StateReader
	bus      portbus.EventBus
}

var _ portrouting.Resolver = (*Engine)(nil)

func NewEngine(table *Table, health porthealth.AvailabilityReader, circuits portbreaker.StateReader, bus portbus.EventBus) *Engine {
	return &Engine{table: table, health: health, circuits: circuits, bus: bus}
}

// Resolve walks primary edges in declared order, then failover edges in
// priority order, filtering out destinations whose circuit is open or which
// the health monitor marks unavailable. Edges are never load-balanced:
// first healthy wins, because each destination is a distinct capability,
// not an interchangeable replica.
func (e *Engine) Resolve(sourceID, intent string) mesh.Decision {
	d := mesh.Decision{SourceID: sourceID, Intent: intent}

	e.appendCandidates(&d, e.table.PrimaryEdges(sourceID, intent))
	e.appendCandidates(&d, e.table.FailoverEdges(sourceID, intent))

	switch {
	case d.NoRoute():
		slog.Warn("no route available", "source_id", sourceID, "intent", intent, "skipped", len(d.Skipped))
		e.publish(event.New(event.TypeRoutingNoRoute, sourceID).
			With("intent", intent).
			With("skipped", d.Skipped))
	case d.UsesFailover():
		// Falling over past the primary path is an observable event.
		chosen, _ := d.Chosen()
		slog.Info("routing via failover edge",
			"source_id", sourceID, "intent", intent,
			"destination", chosen.Node.ID, "skipped", len(d.Skipped))
		e.publish(event.New(event.TypeRoutingFailover, sourceID).
			With("intent", intent).
			With("destination", chosen.Node.ID).
			With("skipped", d.Skipped))
	default:
		chosen, _ := d.Chosen()
		slog.Debug("routing via primary edge",
			"source_id", sourceID, "intent", intent, "destination", chosen.Node.ID)
		e.publish(event.New(event.TypeRoutingResolved, sourceID).
			With("intent", intent).
			With("destination", chosen.Node.ID))
	}
	return d
}

func (e *Engine) appendCandidates(d *mesh.Decision, edges []mesh.Edge) {
	for _, edge := range edges {
		node, ok := e.table.Node(edge.To)
		if !ok {
			continue
		}
		if e.circuits.State(node.ID) == mesh.CircuitOpen {
			d.Skipped = append(d.Skipped, mesh.Skip{NodeID: node.ID, Kind: edge.Kind, Reason: mesh.SkipCircuitOpen})
			continue
		}
		if !e.health.IsAvailable(node.ID) {
			d.Skipped = append(d.Skipped, mesh.Skip{NodeID: node.ID, Kind: edge.Kind, Reason: mesh.SkipUnavailable})
			continue
		}
		d.Candidates = append(d.Candidates, mesh.Candidate{Node: node, Kind: edge.Kind})
	}
}

// PrimaryTarget returns the first declared primary destination for the pair,
// healthy or not. The delivery layer uses it to tag failover traffic with
// the peer it bypassed.
func (e *Engine) PrimaryTarget(sourceID, intent string) (string, bool) {
	edges := e.table.PrimaryEdges(sourceID, intent)
	if len(edges) == 0 {
		return "", false
	}
	return edges[0].To, true
}

func (e *Engine) publish(ev event.Event) {
	if e.bus == nil {
		return
	}
	if err := e.bus.Publish(context.Background(), ev); err != nil {
		slog.Debug("failed to publish routing event", "type", ev.Type, "error", err)
	}
}
