package mesh

// EdgeKind distinguishes the default delegation path from a bypass path.
type EdgeKind string

const (
	EdgePrimary  EdgeKind = "primary"
	EdgeFailover EdgeKind = "failover"
)

// Edge is one directed delegation relation in the static route graph.
// Multiple failover edges from the same (From, Intent) are ordered by
// Priority, lowest first.
type Edge struct {
	From     string   `json:"from" yaml:"from"`
	To       string   `json:"to" yaml:"to"`
	Intent   string   `json:"intent" yaml:"intent"`
	Kind     EdgeKind `json:"kind" yaml:"kind"`
	Priority int      `json:"priority" yaml:"priority"`
}
