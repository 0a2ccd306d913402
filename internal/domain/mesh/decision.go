package mesh

// SkipReason explains why a destination was rejected during resolution.
type SkipReason string

const (
	SkipCircuitOpen SkipReason = "circuit_open"
	SkipUnavailable SkipReason = "unhealthy"
)

// Candidate is one destination the delivery layer may attempt, in order.
type Candidate struct {
	Node Node     `json:"node"`
	Kind EdgeKind `json:"kind"`
}

// Skip records a destination the engine filtered out, for diagnostics.
type Skip struct {
	NodeID string     `json:"node_id"`
	Kind   EdgeKind   `json:"kind"`
	Reason SkipReason `json:"reason"`
}

// Decision is the ephemeral result of resolving one (source, intent) pair.
// Candidates are ordered: passing primaries first (declared order), then
// passing failovers (priority order). It is produced per request and never
// persisted or revalidated after the fact.
type Decision struct {
	SourceID   string      `json:"source_id"`
	Intent     string      `json:"intent"`
	Candidates []Candidate `json:"candidates"`
	Skipped    []Skip      `json:"skipped,omitempty"`
}

// NoRoute reports whether resolution found no usable destination.
func (d Decision) NoRoute() bool { return len(d.Candidates) == 0 }

// Chosen returns the destination a send should try first.
func (d Decision) Chosen() (Candidate, bool) {
	if len(d.Candidates) == 0 {
		return Candidate{}, false
	}
	return d.Candidates[0], true
}

// UsesFailover reports whether the first candidate sits on a failover edge.
func (d Decision) UsesFailover() bool {
	c, ok := d.Chosen()
	return ok && c.Kind == EdgeFailover
}
