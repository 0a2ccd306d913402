package routing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/domain/mesh"
	"github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/service/routing"
	"github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/testutil"
)

func TestNewTable_ValidGraph(t *testing.T) {
	nodes, edges := testutil.Topology()

	table, err := routing.NewTable(nodes, edges)
	require.NoError(t, err)

	assert.Len(t, table.Nodes(), 5)
	n, ok := table.Node("dispatch")
	require.True(t, ok)
	assert.Equal(t, mesh.ClassOrchestrator, n.Class)
}

func TestNewTable_RejectsUnknownEdgeNodes(t *testing.T) {
	nodes, edges := testutil.Topology()
	edges = append(edges, mesh.Edge{From: "dispatch", To: "ghost", Intent: "fire", Kind: mesh.EdgePrimary})

	_, err := routing.NewTable(nodes, edges)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestNewTable_RejectsDuplicateNodeID(t *testing.T) {
	nodes, edges := testutil.Topology()
	nodes = append(nodes, nodes[0])

	_, err := routing.NewTable(nodes, edges)
	require.Error(t, err)
}

func TestNewTable_RejectsInvalidClass(t *testing.T) {
	nodes, edges := testutil.Topology()
	nodes = append(nodes, mesh.Node{ID: "weird", Class: "router", Addr: "http://localhost:9999"})

	_, err := routing.NewTable(nodes, edges)
	require.Error(t, err)
}

func TestNewTable_RejectsEmptyIntent(t *testing.T) {
	nodes, edges := testutil.Topology()
	edges = append(edges, mesh.Edge{From: "dispatch", To: "fire", Kind: mesh.EdgePrimary})

	_, err := routing.NewTable(nodes, edges)
	require.Error(t, err)
}

func TestNewTable_RequiresPrimaryEdgeForNonOutputNodes(t *testing.T) {
	nodes, edges := testutil.Topology()
	nodes = append(nodes, mesh.Node{ID: "drone", Class: mesh.ClassInput, Addr: "http://localhost:9010"})

	_, err := routing.NewTable(nodes, edges)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "drone")

	// Output nodes are terminal and exempt.
	nodes[len(nodes)-1] = mesh.Node{ID: "sign", Class: mesh.ClassOutput, Addr: "http://localhost:9010"}
	_, err = routing.NewTable(nodes, edges)
	require.NoError(t, err)
}

func TestFailoverEdges_SortedByPriority(t *testing.T) {
	nodes, edges := testutil.Topology()
	edges = append(edges,
		mesh.Edge{From: "dispatch", To: "alerts", Intent: "police", Kind: mesh.EdgeFailover, Priority: 2},
		mesh.Edge{From: "dispatch", To: "fire", Intent: "police", Kind: mesh.EdgeFailover, Priority: 1},
	)

	table, err := routing.NewTable(nodes, edges)
	require.NoError(t, err)

	failovers := table.FailoverEdges("dispatch", "police")
	require.Len(t, failovers, 2)
	assert.Equal(t, "fire", failovers[0].To)
	assert.Equal(t, "alerts", failovers[1].To)
}

func TestPrimaryEdges_UnknownPairIsEmpty(t *testing.T) {
	nodes, edges := testutil.Topology()
	table, err := routing.NewTable(nodes, edges)
	require.NoError(t, err)

	assert.Empty(t, table.PrimaryEdges("dispatch", "nonsense"))
	assert.Empty(t, table.PrimaryEdges("ghost", "fire"))
}

func TestEdges_PrimariesBeforeFailovers(t *testing.T) {
	nodes, edges := testutil.Topology()
	table, err := routing.NewTable(nodes, edges)
	require.NoError(t, err)

	all := table.Edges()
	require.Len(t, all, len(edges))
	for i := 1; i < len(all); i++ {
		if all[i-1].From == all[i].From && all[i-1].Intent == all[i].Intent {
			if all[i-1].Kind == mesh.EdgeFailover {
				assert.Equal(t, mesh.EdgeFailover, all[i].Kind)
			}
		}
	}
}
