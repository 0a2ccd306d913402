package routing_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/domain/mesh"
	"github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/service/breaker"
	"github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/service/health"
	"github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/service/routing"
	"github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/testutil"
)

// stubHealth marks listed nodes unavailable; everything else reads healthy.
type stubHealth map[string]bool

func (s stubHealth) IsAvailable(nodeID string) bool { return !s[nodeID] }

// stubCircuits reports scripted circuit states; everything else reads closed.
type stubCircuits map[string]mesh.CircuitState

func (s stubCircuits) State(nodeID string) mesh.CircuitState {
	if st, ok := s[nodeID]; ok {
		return st
	}
	return mesh.CircuitClosed
}

func newEngine(t *testing.T, down stubHealth, circuits stubCircuits) *routing.Engine {
	t.Helper()
	nodes, edges := testutil.Topology()
	table, err := routing.NewTable(nodes, edges)
	require.NoError(t, err)
	return routing.NewEngine(table, down, circuits, nil)
}

func TestResolve_PrimaryWhenHealthy(t *testing.T) {
	e := newEngine(t, stubHealth{}, stubCircuits{})

	d := e.Resolve("dispatch", "fire")
	require.False(t, d.NoRoute())

	chosen, ok := d.Chosen()
	require.True(t, ok)
	assert.Equal(t, "fire", chosen.Node.ID)
	assert.Equal(t, mesh.EdgePrimary, chosen.Kind)
	assert.False(t, d.UsesFailover())
	assert.Empty(t, d.Skipped)
}

func TestResolve_FailoverWhenPrimaryDown(t *testing.T) {
	e := newEngine(t, stubHealth{"fire": true}, stubCircuits{})

	d := e.Resolve("dispatch", "fire")
	chosen, ok := d.Chosen()
	require.True(t, ok)
	assert.Equal(t, "police", chosen.Node.ID)
	assert.True(t, d.UsesFailover())

	require.Len(t, d.Skipped, 1)
	assert.Equal(t, "fire", d.Skipped[0].NodeID)
	assert.Equal(t, mesh.SkipUnavailable, d.Skipped[0].Reason)
}

func TestResolve_SkipsOpenCircuit(t *testing.T) {
	e := newEngine(t, stubHealth{}, stubCircuits{"fire": mesh.CircuitOpen})

	d := e.Resolve("dispatch", "fire")
	chosen, ok := d.Chosen()
	require.True(t, ok)
	assert.Equal(t, "police", chosen.Node.ID)

	require.Len(t, d.Skipped, 1)
	assert.Equal(t, mesh.SkipCircuitOpen, d.Skipped[0].Reason)
}

func TestResolve_HalfOpenNodeStaysCandidate(t *testing.T) {
	// A half-open circuit admits a trial call; resolution must not skip it.
	e := newEngine(t, stubHealth{}, stubCircuits{"fire": mesh.CircuitHalfOpen})

	d := e.Resolve("dispatch", "fire")
	chosen, ok := d.Chosen()
	require.True(t, ok)
	assert.Equal(t, "fire", chosen.Node.ID)
}

func TestResolve_NoRouteWhenAllDown(t *testing.T) {
	e := newEngine(t, stubHealth{"fire": true, "police": true}, stubCircuits{})

	d := e.Resolve("dispatch", "fire")
	assert.True(t, d.NoRoute())
	assert.Len(t, d.Skipped, 2)
}

func TestResolve_UnknownIntentIsNoRoute(t *testing.T) {
	e := newEngine(t, stubHealth{}, stubCircuits{})

	d := e.Resolve("dispatch", "plumbing")
	assert.True(t, d.NoRoute())
	assert.Empty(t, d.Skipped)
}

func TestResolve_CandidatesKeepFallbackOrder(t *testing.T) {
	// Both destinations pass: delivery gets them in primary-then-failover order.
	e := newEngine(t, stubHealth{}, stubCircuits{})

	d := e.Resolve("dispatch", "fire")
	require.Len(t, d.Candidates, 2)
	assert.Equal(t, "fire", d.Candidates[0].Node.ID)
	assert.Equal(t, "police", d.Candidates[1].Node.ID)
}

func TestPrimaryTarget(t *testing.T) {
	e := newEngine(t, stubHealth{"fire": true}, stubCircuits{})

	target, ok := e.PrimaryTarget("dispatch", "fire")
	require.True(t, ok)
	assert.Equal(t, "fire", target, "primary target ignores health state")

	_, ok = e.PrimaryTarget("dispatch", "plumbing")
	assert.False(t, ok)
}

// End-to-end against the real monitor and breaker rather than stubs.

func TestResolve_AfterProbeFailuresRoutesAround(t *testing.T) {
	nodes, edges := testutil.Topology()
	table, err := routing.NewTable(nodes, edges)
	require.NoError(t, err)

	prober := testutil.NewFakeProber()
	monitor := health.New(nodes, prober, nil, health.Config{FailureThreshold: 2})
	circuits := breaker.New([]string{"fire", "police"}, nil, breaker.Config{})
	e := routing.NewEngine(table, monitor, circuits, nil)

	// Healthy mesh routes to the primary.
	d := e.Resolve("dispatch", "fire")
	chosen, _ := d.Chosen()
	assert.Equal(t, "fire", chosen.Node.ID)

	// Two failed probe cycles flip the primary down.
	prober.SetError("fire", errors.New("connection refused"))
	monitor.CheckAll(context.Background())
	monitor.CheckAll(context.Background())

	d = e.Resolve("dispatch", "fire")
	chosen, ok := d.Chosen()
	require.True(t, ok)
	assert.Equal(t, "police", chosen.Node.ID)

	// Recovery is one good probe away.
	prober.SetError("fire", nil)
	monitor.CheckAll(context.Background())

	d = e.Resolve("dispatch", "fire")
	chosen, _ = d.Chosen()
	assert.Equal(t, "fire", chosen.Node.ID)
}

func TestResolve_TrippedCircuitRoutesAround(t *testing.T) {
	nodes, edges := testutil.Topology()
	table, err := routing.NewTable(nodes, edges)
	require.NoError(t, err)

	monitor := health.New(nodes, testutil.NewFakeProber(), nil, health.Config{})
	circuits := breaker.New([]string{"fire", "police"}, nil, breaker.Config{FailureThreshold: 3, Cooldown: time.Minute})
	e := routing.NewEngine(table, monitor, circuits, nil)

	for i := 0; i < 3; i++ {
		circuits.RecordFailure("fire")
	}

	d := e.Resolve("dispatch", "fire")
	chosen, ok := d.Chosen()
	require.True(t, ok)
	assert.Equal(t, "police", chosen.Node.ID)
	require.Len(t, d.Skipped, 1)
	assert.Equal(t, mesh.SkipCircuitOpen, d.Skipped[0].Reason)
}
