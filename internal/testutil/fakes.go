package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/domain/mesh"
	portaudit "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/port/audit"
	portpeer "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/port/peer"
)

// FakeProber reports scripted probe outcomes per node. Safe for concurrent
// use; the health monitor probes nodes in parallel.
type FakeProber struct {
	mu     sync.Mutex
	errs   map[string]error
	probed map[string]int
}

func NewFakeProber() *FakeProber {
	return &FakeProber{
		errs:   make(map[string]error),
		probed: make(map[string]int),
	}
}

// SetError makes future probes of nodeID return err. Pass nil to heal.
func (p *FakeProber) SetError(nodeID string, err error) {
	p.mu.Lock()
	p.errs[nodeID] = err
	p.mu.Unlock()
}

func (p *FakeProber) Probe(_ context.Context, node mesh.Node) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.probed[node.ID]++
	return p.errs[node.ID]
}

func (p *FakeProber) ProbeCount(nodeID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.probed[nodeID]
}

// CallRecord is one Call observed by FakeCaller.
type CallRecord struct {
	TargetID string
	Text     string
	Metadata portpeer.Metadata
}

// FakeCaller returns scripted replies or errors per target and records every
// call in order.
type FakeCaller struct {
	mu      sync.Mutex
	replies map[string]string
	errs    map[string]error
	hooks   map[string]func()
	Calls   []CallRecord
}

func NewFakeCaller() *FakeCaller {
	return &FakeCaller{
		replies: make(map[string]string),
		errs:    make(map[string]error),
		hooks:   make(map[string]func()),
	}
}

func (f *FakeCaller) SetReply(targetID, reply string) {
	f.mu.Lock()
	f.replies[targetID] = reply
	f.mu.Unlock()
}

func (f *FakeCaller) SetError(targetID string, err error) {
	f.mu.Lock()
	f.errs[targetID] = err
	f.mu.Unlock()
}

// SetHook runs hook during future calls to targetID, before the scripted
// outcome is returned. Tests use it to cancel a context mid-call.
func (f *FakeCaller) SetHook(targetID string, hook func()) {
	f.mu.Lock()
	f.hooks[targetID] = hook
	f.mu.Unlock()
}

func (f *FakeCaller) Call(_ context.Context, target mesh.Node, text string, md portpeer.Metadata) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, CallRecord{TargetID: target.ID, Text: text, Metadata: md})
	if hook := f.hooks[target.ID]; hook != nil {
		hook()
	}
	if err := f.errs[target.ID]; err != nil {
		return "", err
	}
	if reply, ok := f.replies[target.ID]; ok {
		return reply, nil
	}
	return "ok", nil
}

func (f *FakeCaller) CallsTo(targetID string) []CallRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []CallRecord
	for _, c := range f.Calls {
		if c.TargetID == targetID {
			out = append(out, c)
		}
	}
	return out
}

// FinishRecord is one Finish observed by CaptureRecorder.
type FinishRecord struct {
	CorrelationID string
	Status        portaudit.Status
	ResponseText  string
	Attempts      int
}

// CaptureRecorder records audit calls with a mutex so it is safe for
// concurrent use. RecentDelegation replays a scripted delegation, if any.
type CaptureRecorder struct {
	mu       sync.Mutex
	Begun    []portaudit.Delegation
	Finished []FinishRecord
	recent   map[string]portaudit.Delegation
}

func NewCaptureRecorder() *CaptureRecorder {
	return &CaptureRecorder{recent: make(map[string]portaudit.Delegation)}
}

// SetRecent scripts a prior delegation of incidentID to targetID.
func (c *CaptureRecorder) SetRecent(incidentID, targetID string, d portaudit.Delegation) {
	c.mu.Lock()
	c.recent[incidentID+"|"+targetID] = d
	c.mu.Unlock()
}

func (c *CaptureRecorder) Begin(_ context.Context, d portaudit.Delegation) error {
	c.mu.Lock()
	c.Begun = append(c.Begun, d)
	c.mu.Unlock()
	return nil
}

func (c *CaptureRecorder) Finish(_ context.Context, correlationID string, status portaudit.Status, responseText string, attempts int, _ time.Duration) error {
	c.mu.Lock()
	c.Finished = append(c.Finished, FinishRecord{
		CorrelationID: correlationID,
		Status:        status,
		ResponseText:  responseText,
		Attempts:      attempts,
	})
	c.mu.Unlock()
	return nil
}

func (c *CaptureRecorder) RecentDelegation(_ context.Context, incidentID, targetID string, _ time.Duration) (portaudit.Delegation, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.recent[incidentID+"|"+targetID]
	return d, ok, nil
}

// Topology returns a small mesh used across service tests: one input, one
// orchestrator, two specialists with a failover relationship, one output.
func Topology() ([]mesh.Node, []mesh.Edge) {
	nodes := []mesh.Node{
		{ID: "intake", Class: mesh.ClassInput, Addr: "http://localhost:9001"},
		{ID: "dispatch", Class: mesh.ClassOrchestrator, Addr: "http://localhost:9002"},
		{ID: "fire", Class: mesh.ClassSpecialist, Addr: "http://localhost:9003"},
		{ID: "police", Class: mesh.ClassSpecialist, Addr: "http://localhost:9004"},
		{ID: "alerts", Class: mesh.ClassOutput, Addr: "http://localhost:9005"},
	}
	edges := []mesh.Edge{
		{From: "intake", To: "dispatch", Intent: "report", Kind: mesh.EdgePrimary},
		{From: "dispatch", To: "fire", Intent: "fire", Kind: mesh.EdgePrimary},
		{From: "dispatch", To: "police", Intent: "fire", Kind: mesh.EdgeFailover, Priority: 1},
		{From: "dispatch", To: "police", Intent: "police", Kind: mesh.EdgePrimary},
		{From: "fire", To: "alerts", Intent: "alert", Kind: mesh.EdgePrimary},
		{From: "police", To: "alerts", Intent: "alert", Kind: mesh.EdgePrimary},
	}
	return nodes, edges
}
