package health

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/domain/event"
	"github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/domain/mesh"
	portbus "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/port/eventbus"
	porthealth "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/port/health"
)

// Record is a snapshot of one node's health state.
type Record struct {
	NodeID              string    `json:"node_id"`
	LastCheck           time.Time `json:"last_check"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	Available           bool      `json:"available"`
}

// record holds live state for one node. Each record carries its own mutex so
// a slow probe against one peer never blocks updates for the others.
type record struct {
	mu                  sync.Mutex
	lastCheck           time.Time
	consecutiveFailures int
	available           bool
}

// Config tunes the monitor. Zero values fall back to defaults.
type Config struct {
	Interval         time.Duration
	ProbeTimeout     time.Duration
	FailureThreshold int
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = 5 * time.Second
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = 3 * time.Second
	}
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 2
	}
	return c
}

// Monitor polls every known node's liveness endpoint and maintains per-node
// availability with hysteresis: a node goes unavailable only after
// FailureThreshold consecutive misses, and recovers on a single success.
// The record map is built once at construction and never mutated, so reads
// need no map-level locking.
type Monitor struct {
	nodes   []mesh.Node
	prober  porthealth.Prober
	bus     portbus.EventBus
	cfg     Config
	records map[string]*record
}

var _ porthealth.AvailabilityReader = (*Monitor)(nil)
var _ porthealth.FailureReporter = (*Monitor)(nil)

// New creates a monitor for the given nodes. Every node starts available:
// pessimism at bootstrap would mark the whole mesh down before the first
// poll completes.
func New(nodes []mesh.Node, prober porthealth.Prober, bus portbus.EventBus, cfg Config) *Monitor {
	records := make(map[string]*record, len(nodes))
	for _, n := range nodes {
		records[n.ID] = &record{available: true}
	}
	return &Monitor{
		nodes:   nodes,
		prober:  prober,
		bus:     bus,
		cfg:     cfg.withDefaults(),
		records: records,
	}
}

// Run polls on the configured interval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	m.CheckAll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CheckAll(ctx)
		}
	}
}

// CheckAll probes every node concurrently, each probe bounded by the
// configured timeout. Probe errors are absorbed into state and never
// returned; a hung peer cannot stall the next poll cycle beyond its own
// timeout.
func (m *Monitor) CheckAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, n := range m.nodes {
		wg.Add(1)
		go func(node mesh.Node) {
			defer wg.Done()
			probeCtx, cancel := context.WithTimeout(ctx, m.cfg.ProbeTimeout)
			defer cancel()
			if err := m.prober.Probe(probeCtx, node); err != nil {
				m.recordFailure(ctx, node.ID, err)
				return
			}
			m.recordSuccess(ctx, node.ID)
		}(n)
	}
	wg.Wait()
}

// IsAvailable is a non-blocking read of a node's availability. Unknown nodes
// are reported unavailable.
func (m *Monitor) IsAvailable(nodeID string) bool {
	rec, ok := m.records[nodeID]
	if !ok {
		return false
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.available
}

// ReportFailure counts a failed delivery call as one missed probe, letting
// call outcomes accelerate what polling would discover anyway.
func (m *Monitor) ReportFailure(nodeID string) {
	m.recordFailure(context.Background(), nodeID, nil)
}

// Snapshot returns a copy of every node's health record.
func (m *Monitor) Snapshot() []Record {
	out := make([]Record, 0, len(m.nodes))
	for _, n := range m.nodes {
		rec := m.records[n.ID]
		rec.mu.Lock()
		out = append(out, Record{
			NodeID:              n.ID,
			LastCheck:           rec.lastCheck,
			ConsecutiveFailures: rec.consecutiveFailures,
			Available:           rec.available,
		})
		rec.mu.Unlock()
	}
	return out
}

func (m *Monitor) recordSuccess(ctx context.Context, nodeID string) {
	rec, ok := m.records[nodeID]
	if !ok {
		return
	}
	rec.mu.Lock()
	wasDown := !rec.available
	rec.lastCheck = time.Now().UTC()
	rec.consecutiveFailures = 0
	rec.available = true
	rec.mu.Unlock()

	if wasDown {
		slog.InfoContext(ctx, "node recovered", "node_id", nodeID)
		m.publish(ctx, event.New(event.TypeNodeUp, nodeID))
	}
}

func (m *Monitor) recordFailure(ctx context.Context, nodeID string, probeErr error) {
	rec, ok := m.records[nodeID]
	if !ok {
		return
	}
	rec.mu.Lock()
	rec.lastCheck = time.Now().UTC()
	rec.consecutiveFailures++
	flipped := rec.available && rec.consecutiveFailures >= m.cfg.FailureThreshold
	if flipped {
		rec.available = false
	}
	failures := rec.consecutiveFailures
	rec.mu.Unlock()

	if flipped {
		slog.WarnContext(ctx, "node marked unavailable",
			"node_id", nodeID, "consecutive_failures", failures, "error", probeErr)
		m.publish(ctx, event.New(event.TypeNodeDown, nodeID).With("consecutive_failures", failures))
	} else {
		slog.DebugContext(ctx, "probe failed", "node_id", nodeID, "consecutive_failures", failures, "error", probeErr)
	}
}

func (m *Monitor) publish(ctx context.Context, e event.Event) {
	if m.bus == nil {
		return
	}
	if err := m.bus.Publish(ctx, e); err != nil {
		slog.DebugContext(ctx, "failed to publish health event", "type", e.Type, "error", err)
	}
}
