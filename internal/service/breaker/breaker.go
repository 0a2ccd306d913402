package breaker

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/domain/event"
	"github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/domain/mesh"
	portbreaker "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/port/breaker"
	portbus "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/port/eventbus"
)

// Snapshot is one circuit's externally visible state.
type Snapshot struct {
	NodeID       string            `json:"node_id"`
	State        mesh.CircuitState `json:"state"`
	FailureCount int               `json:"failure_count"`
	OpenedAt     time.Time         `json:"opened_at,omitempty"`
}

// circuit holds live breaker state for one node, guarded by its own mutex.
type circuit struct {
	mu            sync.Mutex
	state         mesh.CircuitState
	failureCount  int
	openedAt      time.Time
	trialInFlight bool
}

// Config tunes the breaker. Zero values fall back to defaults.
type Config struct {
	FailureThreshold int
	Cooldown         time.Duration
}

func (c Config) withDefaults() Config {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 3
	}
	if c.Cooldown <= 0 {
		c.Cooldown = 30 * time.Second
	}
	return c
}

// Breaker keeps one circuit per node. Circuits trip on consecutive call
// failures — a signal independent of, and faster than, health polling — and
// fail calls fast while open. The circuit map is built at construction and
// never mutated, so per-node mutexes are the only synchronization.
type Breaker struct {
	cfg      Config
	bus      portbus.EventBus
	circuits map[string]*circuit

	// now is swapped out by tests to drive the cooldown clock.
	now func() time.Time
}

var _ portbreaker.Breaker = (*Breaker)(nil)
var _ portbreaker.StateReader = (*Breaker)(nil)

func New(nodeIDs []string, bus portbus.EventBus, cfg Config) *Breaker {
	circuits := make(map[string]*circuit, len(nodeIDs))
	for _, id := range nodeIDs {
		circuits[id] = &circuit{state: mesh.CircuitClosed}
	}
	return &Breaker{
		cfg:      cfg.withDefaults(),
		bus:      bus,
		circuits: circuits,
		now:      time.Now,
	}
}

// Allow decides whether a call to the node may proceed. While open it fails
// fast with *mesh.CircuitOpenError until the cooldown elapses; then exactly
// one trial call is admitted (half-open) and concurrent calls keep failing
// fast until that trial reports an outcome.
func (b *Breaker) Allow(nodeID string) error {
	c, ok := b.circuits[nodeID]
	if !ok {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case mesh.CircuitClosed:
		return nil
	case mesh.CircuitOpen:
		retryAt := c.openedAt.Add(b.cfg.Cooldown)
		if b.now().Before(retryAt) {
			return &mesh.CircuitOpenError{NodeID: nodeID, RetryAt: retryAt}
		}
		c.state = mesh.CircuitHalfOpen
		c.trialInFlight = true
		b.publish(event.New(event.TypeCircuitHalfOpen, nodeID))
		slog.Info("circuit half-open, admitting trial call", "node_id", nodeID)
		return nil
	default: // half-open
		if c.trialInFlight {
			return &mesh.CircuitOpenError{NodeID: nodeID, RetryAt: c.openedAt.Add(b.cfg.Cooldown)}
		}
		c.trialInFlight = true
		return nil
	}
}

// RecordSuccess closes the circuit and resets the failure count.
func (b *Breaker) RecordSuccess(nodeID string) {
	c, ok := b.circuits[nodeID]
	if !ok {
		return
	}
	c.mu.Lock()
	reopened := c.state != mesh.CircuitClosed
	c.state = mesh.CircuitClosed
	c.failureCount = 0
	c.openedAt = time.Time{}
	c.trialInFlight = false
	c.mu.Unlock()

	if reopened {
		slog.Info("circuit closed", "node_id", nodeID)
		b.publish(event.New(event.TypeCircuitClosed, nodeID))
	}
}

// ReleaseTrial returns a half-open trial slot without recording an outcome.
// The delivery layer calls it when a trial call is cancelled before
// completing; the next Allow admits a fresh trial instead of failing fast
// until restart.
func (b *Breaker) ReleaseTrial(nodeID string) {
	c, ok := b.circuits[nodeID]
	if !ok {
		return
	}
	c.mu.Lock()
	if c.state == mesh.CircuitHalfOpen {
		c.trialInFlight = false
	}
	c.mu.Unlock()
}

// RecordFailure counts one failed call. A half-open trial failure reopens
// the circuit and restarts the cooldown; a closed circuit trips once the
// failure count reaches the threshold.
func (b *Breaker) RecordFailure(nodeID string) {
	c, ok := b.circuits[nodeID]
	if !ok {
		return
	}
	c.mu.Lock()
	c.failureCount++
	var opened bool
	switch c.state {
	case mesh.CircuitHalfOpen:
		c.state = mesh.CircuitOpen
		c.openedAt = b.now()
		c.trialInFlight = false
		opened = true
	case mesh.CircuitClosed:
		if c.failureCount >= b.cfg.FailureThreshold {
			c.state = mesh.CircuitOpen
			c.openedAt = b.now()
			opened = true
		}
	}
	failures := c.failureCount
	c.mu.Unlock()

	if opened {
		slog.Warn("circuit opened", "node_id", nodeID, "failure_count", failures)
		b.publish(event.New(event.TypeCircuitOpened, nodeID).With("failure_count", failures))
	}
}

// State reports the circuit's effective state. An open circuit whose
// cooldown has elapsed reads as half-open: the routing engine must not skip
// a destination that Allow would admit for a trial.
func (b *Breaker) State(nodeID string) mesh.CircuitState {
	c, ok := b.circuits[nodeID]
	if !ok {
		return mesh.CircuitClosed
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return b.effectiveState(c)
}

// effectiveState maps stored state to what Allow would act on. Caller holds
// c.mu.
func (b *Breaker) effectiveState(c *circuit) mesh.CircuitState {
	if c.state == mesh.CircuitOpen && !b.now().Before(c.openedAt.Add(b.cfg.Cooldown)) {
		return mesh.CircuitHalfOpen
	}
	return c.state
}

// Snapshot returns the effective state of every circuit, matching what State
// reports to routing.
func (b *Breaker) Snapshot() []Snapshot {
	out := make([]Snapshot, 0, len(b.circuits))
	for id, c := range b.circuits {
		c.mu.Lock()
		out = append(out, Snapshot{
			NodeID:       id,
			State:        b.effectiveState(c),
			FailureCount: c.failureCount,
			OpenedAt:     c.openedAt,
		})
		c.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NodeID < out[j].NodeID })
	return out
}

func (b *Breaker) publish(e event.Event) {
	if b.bus == nil {
		return
	}
	if err := b.bus.Publish(context.Background(), e); err != nil {
		slog.Debug("failed to publish circuit event", "type", e.Type, "error", err)
	}
}
