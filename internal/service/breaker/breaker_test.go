package breaker_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/domain/mesh"
	"github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/service/breaker"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newBreaker(t *testing.T) (*breaker.Breaker, *clock) {
	t.Helper()
	b := breaker.New([]string{"fire", "police"}, nil, breaker.Config{
		FailureThreshold: 3,
		Cooldown:         30 * time.Second,
	})
	c := &clock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	b.SetNow(c.now)
	return b, c
}

func TestAllow_ClosedByDefault(t *testing.T) {
	b, _ := newBreaker(t)

	require.NoError(t, b.Allow("fire"))
	assert.Equal(t, mesh.CircuitClosed, b.State("fire"))
}

func TestRecordFailure_TripsAtThreshold(t *testing.T) {
	b, _ := newBreaker(t)

	b.RecordFailure("fire")
	b.RecordFailure("fire")
	assert.Equal(t, mesh.CircuitClosed, b.State("fire"), "two failures must not trip a threshold-3 circuit")

	b.RecordFailure("fire")
	assert.Equal(t, mesh.CircuitOpen, b.State("fire"))

	err := b.Allow("fire")
	require.Error(t, err)
	var open *mesh.CircuitOpenError
	require.True(t, errors.As(err, &open))
	assert.Equal(t, "fire", open.NodeID)
	assert.False(t, open.RetryAt.IsZero())
}

func TestRecordSuccess_ResetsFailureCount(t *testing.T) {
	b, _ := newBreaker(t)

	b.RecordFailure("fire")
	b.RecordFailure("fire")
	b.RecordSuccess("fire")
	b.RecordFailure("fire")
	b.RecordFailure("fire")

	// Four failures total but never three consecutive.
	assert.Equal(t, mesh.CircuitClosed, b.State("fire"))
	require.NoError(t, b.Allow("fire"))
}

func TestAllow_HalfOpenAdmitsSingleTrial(t *testing.T) {
	b, c := newBreaker(t)

	for i := 0; i < 3; i++ {
		b.RecordFailure("fire")
	}
	require.Error(t, b.Allow("fire"))

	c.advance(31 * time.Second)
	assert.Equal(t, mesh.CircuitHalfOpen, b.State("fire"))

	require.NoError(t, b.Allow("fire"), "first call after cooldown is the trial")
	require.Error(t, b.Allow("fire"), "concurrent calls fail fast while the trial is in flight")
}

func TestTrialSuccess_ClosesCircuit(t *testing.T) {
	b, c := newBreaker(t)

	for i := 0; i < 3; i++ {
		b.RecordFailure("fire")
	}
	c.advance(31 * time.Second)
	require.NoError(t, b.Allow("fire"))

	b.RecordSuccess("fire")
	assert.Equal(t, mesh.CircuitClosed, b.State("fire"))
	require.NoError(t, b.Allow("fire"))
}

func TestTrialFailure_ReopensAndRestartsCooldown(t *testing.T) {
	b, c := newBreaker(t)

	for i := 0; i < 3; i++ {
		b.RecordFailure("fire")
	}
	c.advance(31 * time.Second)
	require.NoError(t, b.Allow("fire"))

	b.RecordFailure("fire")
	assert.Equal(t, mesh.CircuitOpen, b.State("fire"))

	// Cooldown restarted at the trial failure: still open 29s later.
	c.advance(29 * time.Second)
	require.Error(t, b.Allow("fire"))

	c.advance(2 * time.Second)
	require.NoError(t, b.Allow("fire"))
}

func TestReleaseTrial_AdmitsFreshTrialAfterCancelledCall(t *testing.T) {
	b, c := newBreaker(t)

	for i := 0; i < 3; i++ {
		b.RecordFailure("fire")
	}
	c.advance(31 * time.Second)
	require.NoError(t, b.Allow("fire"), "trial admitted after cooldown")

	// The trial call was cancelled before any outcome was recorded. Without
	// releasing the slot the circuit would reject calls forever, however much
	// time passes.
	c.advance(24 * time.Hour)
	require.Error(t, b.Allow("fire"), "abandoned trial still holds the slot")

	b.ReleaseTrial("fire")
	require.NoError(t, b.Allow("fire"), "released slot admits a fresh trial")

	b.RecordSuccess("fire")
	assert.Equal(t, mesh.CircuitClosed, b.State("fire"))
}

func TestReleaseTrial_NoopOutsideHalfOpen(t *testing.T) {
	b, _ := newBreaker(t)

	b.ReleaseTrial("fire")
	assert.Equal(t, mesh.CircuitClosed, b.State("fire"))

	for i := 0; i < 3; i++ {
		b.RecordFailure("fire")
	}
	b.ReleaseTrial("fire")
	assert.Equal(t, mesh.CircuitOpen, b.State("fire"))
	require.Error(t, b.Allow("fire"), "release never shortcuts an open cooldown")
}

func TestBreaker_NodesAreIndependent(t *testing.T) {
	b, _ := newBreaker(t)

	for i := 0; i < 3; i++ {
		b.RecordFailure("fire")
	}

	assert.Equal(t, mesh.CircuitOpen, b.State("fire"))
	assert.Equal(t, mesh.CircuitClosed, b.State("police"))
	require.NoError(t, b.Allow("police"))
}

func TestBreaker_UnknownNodeAllowed(t *testing.T) {
	b, _ := newBreaker(t)

	require.NoError(t, b.Allow("ghost"))
	assert.Equal(t, mesh.CircuitClosed, b.State("ghost"))
}

func TestSnapshot_SortedByNodeID(t *testing.T) {
	b, _ := newBreaker(t)
	b.RecordFailure("police")

	snaps := b.Snapshot()
	require.Len(t, snaps, 2)
	assert.Equal(t, "fire", snaps[0].NodeID)
	assert.Equal(t, "police", snaps[1].NodeID)
	assert.Equal(t, 1, snaps[1].FailureCount)
}

func TestSnapshot_MatchesEffectiveState(t *testing.T) {
	b, c := newBreaker(t)

	for i := 0; i < 3; i++ {
		b.RecordFailure("fire")
	}
	snaps := b.Snapshot()
	assert.Equal(t, mesh.CircuitOpen, snaps[0].State)

	// Once the cooldown has elapsed, operators must see the same half-open
	// state routing acts on.
	c.advance(31 * time.Second)
	snaps = b.Snapshot()
	assert.Equal(t, mesh.CircuitHalfOpen, snaps[0].State)
	assert.Equal(t, b.State("fire"), snaps[0].State)
}
