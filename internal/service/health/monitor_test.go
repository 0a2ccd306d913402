package health_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/service/health"
	"github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/testutil"
)

func newMonitor(t *testing.T) (*health.Monitor, *testutil.FakeProber) {
	t.Helper()
	nodes, _ := testutil.Topology()
	prober := testutil.NewFakeProber()
	m := health.New(nodes, prober, nil, health.Config{FailureThreshold: 2})
	return m, prober
}

func TestMonitor_StartsAllAvailable(t *testing.T) {
	m, _ := newMonitor(t)

	assert.True(t, m.IsAvailable("fire"))
	assert.True(t, m.IsAvailable("police"))
}

func TestMonitor_UnknownNodeUnavailable(t *testing.T) {
	m, _ := newMonitor(t)

	assert.False(t, m.IsAvailable("ghost"))
}

func TestCheckAll_SingleFailureKeepsNodeUp(t *testing.T) {
	m, prober := newMonitor(t)
	prober.SetError("fire", errors.New("connection refused"))

	m.CheckAll(context.Background())

	assert.True(t, m.IsAvailable("fire"), "one failure is below the threshold")
}

func TestCheckAll_ThresholdFlipsNodeDown(t *testing.T) {
	m, prober := newMonitor(t)
	prober.SetError("fire", errors.New("connection refused"))

	m.CheckAll(context.Background())
	m.CheckAll(context.Background())

	assert.False(t, m.IsAvailable("fire"))
	assert.True(t, m.IsAvailable("police"), "other nodes are unaffected")
}

func TestCheckAll_SingleSuccessRecovers(t *testing.T) {
	m, prober := newMonitor(t)
	prober.SetError("fire", errors.New("connection refused"))
	m.CheckAll(context.Background())
	m.CheckAll(context.Background())
	require.False(t, m.IsAvailable("fire"))

	prober.SetError("fire", nil)
	m.CheckAll(context.Background())

	assert.True(t, m.IsAvailable("fire"), "recovery takes one successful probe")
}

func TestReportFailure_CountsTowardThreshold(t *testing.T) {
	m, _ := newMonitor(t)

	m.ReportFailure("fire")
	assert.True(t, m.IsAvailable("fire"))
	m.ReportFailure("fire")
	assert.False(t, m.IsAvailable("fire"), "delivery failures count like missed probes")
}

func TestCheckAll_ProbesEveryNode(t *testing.T) {
	m, prober := newMonitor(t)

	m.CheckAll(context.Background())

	for _, id := range []string{"intake", "dispatch", "fire", "police", "alerts"} {
		assert.Equal(t, 1, prober.ProbeCount(id), "node %s", id)
	}
}

func TestSnapshot_TracksConsecutiveFailures(t *testing.T) {
	m, prober := newMonitor(t)
	prober.SetError("police", errors.New("timeout"))

	m.CheckAll(context.Background())

	for _, rec := range m.Snapshot() {
		if rec.NodeID == "police" {
			assert.Equal(t, 1, rec.ConsecutiveFailures)
			assert.True(t, rec.Available)
			assert.False(t, rec.LastCheck.IsZero())
			return
		}
	}
	t.Fatal("police missing from snapshot")
}
