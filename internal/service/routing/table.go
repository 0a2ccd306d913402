package routing

import (
	"fmt"
	"sort"

	"github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/domain/mesh"
)

type edgeKey struct {
	from   string
	intent string
}

// Table is the static capability/route graph: an adjacency map from
// (source, intent) to ordered destination lists, split by edge kind. It is
// built once at bootstrap and read-only afterwards — no locking anywhere.
type Table struct {
	nodes    map[string]mesh.Node
	ordered  []mesh.Node
	primary  map[edgeKey][]mesh.Edge
	failover map[edgeKey][]mesh.Edge
}

// NewTable validates the declared graph and builds the adjacency structure.
// Failover edges for the same (source, intent) are sorted by priority,
// keeping declaration order for ties. Primary edges keep declaration order.
func NewTable(nodes []mesh.Node, edges []mesh.Edge) (*Table, error) {
	t := &Table{
		nodes:    make(map[string]mesh.Node, len(nodes)),
		ordered:  make([]mesh.Node, 0, len(nodes)),
		primary:  make(map[edgeKey][]mesh.Edge),
		failover: make(map[edgeKey][]mesh.Edge),
	}

	for _, n := range nodes {
		if n.ID == "" {
			return nil, fmt.Errorf("node with empty id")
		}
		if !n.Class.Valid() {
			return nil, fmt.Errorf("node %s: unknown class %q", n.ID, n.Class)
		}
		if _, dup := t.nodes[n.ID]; dup {
			return nil, fmt.Errorf("duplicate node id %s", n.ID)
		}
		t.nodes[n.ID] = n
		t.ordered = append(t.ordered, n)
	}

	hasPrimary := make(map[string]bool)
	for _, e := range edges {
		if _, ok := t.nodes[e.From]; !ok {
			return nil, fmt.Errorf("edge references unknown source node %q", e.From)
		}
		if _, ok := t.nodes[e.To]; !ok {
			return nil, fmt.Errorf("edge references unknown destination node %q", e.To)
		}
		if e.Intent == "" {
			return nil, fmt.Errorf("edge %s -> %s: empty intent", e.From, e.To)
		}
		key := edgeKey{e.From, e.Intent}
		switch e.Kind {
		case mesh.EdgePrimary:
			t.primary[key] = append(t.primary[key], e)
			hasPrimary[e.From] = true
		case mesh.EdgeFailover:
			t.failover[key] = append(t.failover[key], e)
		default:
			return nil, fmt.Errorf("edge %s -> %s: unknown kind %q", e.From, e.To, e.Kind)
		}
	}

	// Every node that emits requests must have somewhere to send them.
	for _, n := range t.ordered {
		if n.Class != mesh.ClassOutput && !hasPrimary[n.ID] {
			return nil, fmt.Errorf("node %s (%s) has no primary edge", n.ID, n.Class)
		}
	}

	for key, list := range t.failover {
		sort.SliceStable(list, func(i, j int) bool { return list[i].Priority < list[j].Priority })
		t.failover[key] = list
	}

	return t, nil
}

// PrimaryEdges returns the primary destinations for (source, intent) in
// declared order. Unknown pairs return an empty list: routing-not-found is
// the caller's condition to handle, never a crash.
func (t *Table) PrimaryEdges(sourceID, intent string) []mesh.Edge {
	return t.primary[edgeKey{sourceID, intent}]
}

// FailoverEdges returns the failover destinations for (source, intent) in
// priority order.
func (t *Table) FailoverEdges(sourceID, intent string) []mesh.Edge {
	return t.failover[edgeKey{sourceID, intent}]
}

// Node looks up a node by id.
func (t *Table) Node(id string) (mesh.Node, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// Nodes returns every node in declaration order.
func (t *Table) Nodes() []mesh.Node {
	out := make([]mesh.Node, len(t.ordered))
	copy(out, t.ordered)
	return out
}

// Edges returns every edge, primaries first, for the status API.
func (t *Table) Edges() []mesh.Edge {
	var out []mesh.Edge
	for _, list := range t.primary {
		out = append(out, list...)
	}
	for _, list := range t.failover {
		out = append(out, list...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		if out[i].Intent != out[j].Intent {
			return out[i].Intent < out[j].Intent
		}
		return out[i].Kind == mesh.EdgePrimary && out[j].Kind != mesh.EdgePrimary
	})
	return out
}
