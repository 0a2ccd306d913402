package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/domain/a2a"
	porthandshake "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/port/handshake"
)

// Delegate sends a tracked delegation: the request rides inside a handshake
// envelope and the call blocks until the peer resolves the correlation id or
// the window elapses. Without a handshake store it degrades to a plain Send,
// treating the immediate A2A reply as the result.
func (s *Service) Delegate(ctx context.Context, req Request, await time.Duration) (Response, error) {
	if s.handshakes == nil {
		return s.Send(ctx, req)
	}
	if req.CorrelationID == "" {
		req.CorrelationID = uuid.NewString()
	}
	if await <= 0 {
		await = s.cfg.CallTimeout
	}

	if err := s.handshakes.Create(ctx, req.CorrelationID); err != nil {
		slog.WarnContext(ctx, "handshake record creation failed, falling back to direct send",
			"correlation_id", req.CorrelationID, "error", err)
		return s.Send(ctx, req)
	}

	envelope := a2a.Envelope{
		Type:          a2a.EnvelopeHandshakeRequest,
		Source:        req.SourceID,
		CorrelationID: req.CorrelationID,
		Payload:       json.RawMessage(mustJSON(map[string]string{"request": req.Text})),
	}

	wrapped := req
	wrapped.Text = envelope.Encode()
	sent, err := s.Send(ctx, wrapped)
	if err != nil {
		return Response{}, err
	}

	raw, err := s.handshakes.Await(ctx, req.CorrelationID, await)
	if err != nil {
		if errors.Is(err, porthandshake.ErrTimeout) {
			s.breaker.RecordFailure(sent.TargetID)
			return Response{}, fmt.Errorf("delegate to %s: %w", sent.TargetID, err)
		}
		return Response{}, fmt.Errorf("delegate to %s: awaiting handshake: %w", sent.TargetID, err)
	}

	sent.Text = resultText(raw)
	return sent, nil
}

// resultText pulls a human-readable message out of a handshake result.
func resultText(raw json.RawMessage) string {
	var body struct {
		Message string `json:"message"`
		Result  string `json:"result"`
		Status  string `json:"status"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		switch {
		case body.Message != "":
			return body.Message
		case body.Result != "":
			return body.Result
		case body.Status != "":
			return body.Status
		}
	}
	return string(raw)
}

func mustJSON(v any) []byte {
	raw, _ := json.Marshal(v)
	return raw
}
