package delivery

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/domain/event"
	"github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/domain/mesh"
	portaudit "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/port/audit"
	portbreaker "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/port/breaker"
	portbus "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/port/eventbus"
	porthandshake "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/port/handshake"
	porthealth "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/port/health"
	portlocker "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/port/locker"
	portpeer "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/port/peer"
	portrouting "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/port/routing"
)

// Request is one outbound send through the mesh.
type Request struct {
	SourceID      string
	Intent        string
	Text          string
	CorrelationID string
	ContextID     string
	// IncidentID enables cross-node deduplication: a second delegation of
	// the same incident to the same target inside the dedup window is
	// short-circuited.
	IncidentID string
}

// Response is the outcome of a successful send.
type Response struct {
	TargetID      string         `json:"target_id"`
	Text          string         `json:"text"`
	Failover      bool           `json:"failover"`
	Deduplicated  bool           `json:"deduplicated,omitempty"`
	HandledBy     string         `json:"handled_by,omitempty"`
	Attempts      []mesh.Attempt `json:"attempts,omitempty"`
	Duration      time.Duration  `json:"duration"`
	CorrelationID string         `json:"correlation_id"`
}

// Config tunes the delivery layer.
type Config struct {
	CallTimeout time.Duration
	DedupWindow time.Duration
}

func (c Config) withDefaults() Config {
	if c.CallTimeout <= 0 {
		c.CallTimeout = 30 * time.Second
	}
	if c.DedupWindow <= 0 {
		c.DedupWindow = 5 * time.Minute
	}
	return c
}

// Service is the outbound half of the protocol handler: it resolves a
// destination, performs the call, feeds outcomes back into the circuit
// breaker and health monitor, and walks the decision's remaining candidates
// on failure — each candidate attempted exactly once.
type Service struct {
	resolver   portrouting.Resolver
	caller     portpeer.Caller
	breaker    portbreaker.Breaker
	health     porthealth.FailureReporter
	audit      portaudit.Recorder
	locker     portlocker.AdvisoryLocker
	handshakes porthandshake.Store
	bus        portbus.EventBus
	cfg        Config
}

func NewService(
	resolver portrouting.Resolver,
	caller portpeer.Caller,
	breaker portbreaker.Breaker,
	health porthealth.FailureReporter,
	audit portaudit.Recorder,
	locker portlocker.AdvisoryLocker,
	handshakes porthandshake.Store,
	bus portbus.EventBus,
	cfg Config,
) *Service {
	return &Service{
		resolver:   resolver,
		caller:     caller,
		breaker:    breaker,
		health:     health,
		audit:      audit,
		locker:     locker,
		handshakes: handshakes,
		bus:        bus,
		cfg:        cfg.withDefaults(),
	}
}

// Send resolves and delivers one request. It returns mesh.ErrNoRouteAvailable
// when no destination exists, or a *mesh.DeliveryError naming every attempted
// destination when all candidates fail. A cancelled context aborts the
// in-flight call without counting a breaker failure.
func (s *Service) Send(ctx context.Context, req Request) (Response, error) {
	start := time.Now()
	if req.CorrelationID == "" {
		req.CorrelationID = uuid.NewString()
	}

	if resp, dedup, err := s.checkDuplicate(ctx, req); err == nil && dedup {
		return resp, nil
	}

	decision := s.resolver.Resolve(req.SourceID, req.Intent)
	if decision.NoRoute() {
		return Response{}, fmt.Errorf("send %s from %s: %w", req.Intent, req.SourceID, mesh.ErrNoRouteAvailable)
	}

	s.auditBegin(ctx, req, decision)

	attempts := make([]mesh.Attempt, 0, len(decision.Candidates))
	// Rejected destinations from resolution belong in the final error too:
	// the operator must see "skipped: circuit open" next to "tried: refused".
	for _, skip := range decision.Skipped {
		attempts = append(attempts, mesh.Attempt{NodeID: skip.NodeID, Kind: skip.Kind, Reason: string(skip.Reason)})
	}

	for _, cand := range decision.Candidates {
		if err := ctx.Err(); err != nil {
			return Response{}, err
		}

		if err := s.breaker.Allow(cand.Node.ID); err != nil {
			var open *mesh.CircuitOpenError
			if errors.As(err, &open) {
				attempts = append(attempts, mesh.Attempt{NodeID: cand.Node.ID, Kind: cand.Kind, Reason: string(mesh.SkipCircuitOpen)})
				continue
			}
			return Response{}, err
		}

		text := req.Text
		if cand.Kind == mesh.EdgeFailover {
			if primary, ok := s.resolver.PrimaryTarget(req.SourceID, req.Intent); ok {
				text = fmt.Sprintf("[FAILOVER from %s] %s", primary, text)
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
		reply, err := s.caller.Call(callCtx, cand.Node, text, portpeer.Metadata{
			CorrelationID: req.CorrelationID,
			ContextID:     req.ContextID,
		})
		cancel()

		if err != nil {
			// Caller cancellation is not a peer failure; hand back any trial
			// slot Allow granted and bail out without recording an outcome.
			if ctx.Err() != nil {
				s.breaker.ReleaseTrial(cand.Node.ID)
				return Response{}, ctx.Err()
			}
			s.breaker.RecordFailure(cand.Node.ID)
			if s.health != nil {
				s.health.ReportFailure(cand.Node.ID)
			}
			attempts = append(attempts, mesh.Attempt{NodeID: cand.Node.ID, Kind: cand.Kind, Reason: err.Error()})
			slog.WarnContext(ctx, "delivery attempt failed",
				"target", cand.Node.ID, "intent", req.Intent, "correlation_id", req.CorrelationID, "error", err)
			continue
		}

		s.breaker.RecordSuccess(cand.Node.ID)
		resp := Response{
			TargetID:      cand.Node.ID,
			Text:          reply,
			Failover:      cand.Kind == mesh.EdgeFailover,
			Attempts:      attempts,
			Duration:      time.Since(start),
			CorrelationID: req.CorrelationID,
		}
		status := portaudit.StatusCompleted
		if resp.Failover {
			status = portaudit.StatusFailover
		}
		s.auditFinish(ctx, req, status, reply, len(attempts)+1, resp.Duration)
		s.publish(event.New(event.TypeDelivered, cand.Node.ID).
			With("source", req.SourceID).
			With("intent", req.Intent).
			With("failover", resp.Failover))
		return resp, nil
	}

	deliveryErr := &mesh.DeliveryError{SourceID: req.SourceID, Intent: req.Intent, Attempts: attempts}
	s.auditFinish(ctx, req, portaudit.StatusFailed, deliveryErr.Error(), len(attempts), time.Since(start))
	s.publish(event.New(event.TypeDeliveryFailed, req.SourceID).
		With("intent", req.Intent).
		With("attempts", attempts))
	return Response{}, deliveryErr
}

// Broadcast sends the same text for several intents in parallel, collecting
// per-intent outcomes. One unreachable branch never fails the batch.
func (s *Service) Broadcast(ctx context.Context, sourceID string, intents []string, text string) map[string]Response {
	results := make(map[string]Response, len(intents))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, intent := range intents {
		wg.Add(1)
		go func(intent string) {
			defer wg.Done()
			resp, err := s.Send(ctx, Request{SourceID: sourceID, Intent: intent, Text: text})
			if err != nil {
				resp = Response{Text: err.Error(), Attempts: attemptsOf(err)}
			}
			mu.Lock()
			results[intent] = resp
			mu.Unlock()
		}(intent)
	}
	wg.Wait()
	return results
}

func attemptsOf(err error) []mesh.Attempt {
	var de *mesh.DeliveryError
	if errors.As(err, &de) {
		return de.Attempts
	}
	return nil
}

// checkDuplicate consults the audit trail for a recent delegation of the
// same incident to the same target. The advisory lock serialises the
// check across nodes so two peers cannot race past each other.
func (s *Service) checkDuplicate(ctx context.Context, req Request) (Response, bool, error) {
	if req.IncidentID == "" || s.audit == nil {
		return Response{}, false, nil
	}
	target, ok := s.resolver.PrimaryTarget(req.SourceID, req.Intent)
	if !ok {
		return Response{}, false, nil
	}

	var existing portaudit.Delegation
	var found bool
	check := func(ctx context.Context) error {
		var err error
		existing, found, err = s.audit.RecentDelegation(ctx, req.IncidentID, target, s.cfg.DedupWindow)
		return err
	}

	var err error
	if s.locker != nil {
		err = s.locker.WithLock(ctx, dedupLockKey(req.IncidentID, target), check)
	} else {
		err = check(ctx)
	}
	if err != nil {
		slog.DebugContext(ctx, "dedup check failed", "incident_id", req.IncidentID, "error", err)
		return Response{}, false, err
	}
	if !found {
		return Response{}, false, nil
	}

	slog.InfoContext(ctx, "skipping duplicate delegation",
		"incident_id", req.IncidentID, "target", target, "handled_by", existing.SourceID)
	return Response{
		TargetID:      target,
		Deduplicated:  true,
		HandledBy:     existing.SourceID,
		Text:          fmt.Sprintf("%s was already contacted for incident %s by %s", target, req.IncidentID, existing.SourceID),
		CorrelationID: req.CorrelationID,
	}, true, nil
}

func dedupLockKey(incidentID, targetID string) int64 {
	h := fnv.New64a()
	h.Write([]byte(incidentID))
	h.Write([]byte{0})
	h.Write([]byte(targetID))
	return int64(h.Sum64())
}

func (s *Service) auditBegin(ctx context.Context, req Request, decision mesh.Decision) {
	if s.audit == nil {
		return
	}
	target := ""
	if chosen, ok := decision.Chosen(); ok {
		target = chosen.Node.ID
	}
	err := s.audit.Begin(ctx, portaudit.Delegation{
		CorrelationID: req.CorrelationID,
		SourceID:      req.SourceID,
		TargetID:      target,
		IncidentID:    req.IncidentID,
		RequestText:   req.Text,
		Status:        portaudit.StatusPending,
		CreatedAt:     time.Now().UTC(),
	})
	if err != nil {
		slog.DebugContext(ctx, "audit begin failed", "correlation_id", req.CorrelationID, "error", err)
	}
}

func (s *Service) auditFinish(ctx context.Context, req Request, status portaudit.Status, response string, attempts int, d time.Duration) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Finish(ctx, req.CorrelationID, status, response, attempts, d); err != nil {
		slog.DebugContext(ctx, "audit finish failed", "correlation_id", req.CorrelationID, "error", err)
	}
}

func (s *Service) publish(e event.Event) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(context.Background(), e); err != nil {
		slog.Debug("failed to publish delivery event", "type", e.Type, "error", err)
	}
}
