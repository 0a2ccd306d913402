package a2a

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	domaina2a "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/domain/a2a"
	"github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/domain/mesh"
	porthandshake "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/port/handshake"
	portpeer "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/port/peer"
	portreasoner "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/port/reasoner"
	deliverysvc "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/service/delivery"
	routingsvc "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/service/routing"
)

// Handler serves the peer-facing message/send endpoint: decode the inbound
// message, let the reasoner classify it, forward onward when an intent routes
// somewhere, and answer in the caller's JSON-RPC shape. Handshake envelopes
// bypass the reasoner entirely.
type Handler struct {
	selfID     string
	reasoner   portreasoner.Reasoner
	delivery   *deliverysvc.Service
	handshakes porthandshake.Store
	table      *routingsvc.Table
	caller     portpeer.Caller
}

func NewHandler(
	selfID string,
	reasoner portreasoner.Reasoner,
	delivery *deliverysvc.Service,
	handshakes porthandshake.Store,
	table *routingsvc.Table,
	caller portpeer.Caller,
) *Handler {
	return &Handler{
		selfID:     selfID,
		reasoner:   reasoner,
		delivery:   delivery,
		handshakes: handshakes,
		table:      table,
		caller:     caller,
	}
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	// Peers post to /a2a/; the bare path is kept for hand-rolled clients.
	rg.POST("/a2a/", h.handleSend)
	rg.POST("/a2a", h.handleSend)
}

func (h *Handler) handleSend(c *gin.Context) {
	var req domaina2a.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusOK, domaina2a.NewErrorResponse("", domaina2a.CodeParseError, "parse error"))
		return
	}
	if req.Method != domaina2a.MethodSend {
		c.JSON(http.StatusOK, domaina2a.NewErrorResponse(req.ID, domaina2a.CodeMethodNotFound, "method not found"))
		return
	}

	text := req.Params.Message.Text()
	if text == "" {
		c.JSON(http.StatusOK, domaina2a.NewErrorResponse(req.ID, domaina2a.CodeInvalidRequest, "message has no text"))
		return
	}
	contextID := req.Params.Message.ContextID
	correlationID := req.Params.Metadata["correlation_id"]

	if env, ok := domaina2a.DecodeEnvelope(text); ok {
		h.handleEnvelope(c, req, env, contextID)
		return
	}

	reply := h.process(c.Request.Context(), text, contextID, correlationID)
	c.JSON(http.StatusOK, domaina2a.NewResultResponse(req.ID, domaina2a.AgentMessage(reply, contextID)))
}

// process classifies inbound text and forwards it when the intent routes
// onward from this node. The peer's reply is folded into ours so the chain
// end-to-end outcome surfaces at the entry point.
func (h *Handler) process(ctx context.Context, text, contextID, correlationID string) string {
	result, err := h.reasoner.Process(ctx, h.selfID, text)
	if err != nil {
		slog.ErrorContext(ctx, "reasoner failed", "error", err)
		return "unable to process request"
	}

	reply := result.Reply
	if result.Intent == "" || h.delivery == nil {
		return reply
	}

	resp, err := h.delivery.Send(ctx, deliverysvc.Request{
		SourceID:      h.selfID,
		Intent:        result.Intent,
		Text:          text,
		CorrelationID: correlationID,
		ContextID:     contextID,
	})
	if err != nil {
		if errors.Is(err, mesh.ErrNoRouteAvailable) {
			return reply
		}
		slog.WarnContext(ctx, "onward delivery failed", "intent", result.Intent, "error", err)
		return reply + " (escalation failed: " + err.Error() + ")"
	}
	if resp.Text != "" {
		return reply + " | " + resp.TargetID + ": " + resp.Text
	}
	return reply
}

func (h *Handler) handleEnvelope(c *gin.Context, req domaina2a.Request, env domaina2a.Envelope, contextID string) {
	ctx := c.Request.Context()

	switch env.Type {
	case domaina2a.EnvelopeHandshakeResult:
		if h.handshakes == nil {
			c.JSON(http.StatusOK, domaina2a.NewErrorResponse(req.ID, domaina2a.CodeInvalidRequest, "handshakes not supported"))
			return
		}
		result := env.Payload
		if len(result) == 0 {
			result = json.RawMessage(env.Encode())
		}
		if err := h.handshakes.Resolve(ctx, env.CorrelationID, result); err != nil {
			slog.WarnContext(ctx, "handshake resolution failed", "correlation_id", env.CorrelationID, "error", err)
			c.JSON(http.StatusOK, domaina2a.NewErrorResponse(req.ID, domaina2a.CodeInvalidRequest, err.Error()))
			return
		}
		c.JSON(http.StatusOK, domaina2a.NewResultResponse(req.ID, domaina2a.AgentMessage("result recorded", contextID)))

	case domaina2a.EnvelopeHandshakeRequest:
		var payload struct {
			Request string `json:"request"`
		}
		if err := json.Unmarshal(env.Payload, &payload); err != nil || payload.Request == "" {
			c.JSON(http.StatusOK, domaina2a.NewErrorResponse(req.ID, domaina2a.CodeInvalidRequest, "malformed handshake payload"))
			return
		}

		// Acknowledge immediately; the work and the result callback proceed
		// in the background so the delegator's HTTP call never blocks on it.
		go h.completeHandshake(env, payload.Request, contextID)
		c.JSON(http.StatusOK, domaina2a.NewResultResponse(req.ID, domaina2a.AgentMessage("handshake accepted", contextID)))

	default:
		c.JSON(http.StatusOK, domaina2a.NewErrorResponse(req.ID, domaina2a.CodeInvalidRequest, "unknown envelope type"))
	}
}

// completeHandshake processes a delegated request and pushes the result back
// to the delegating node as a HANDSHAKE_RESULT message.
func (h *Handler) completeHandshake(env domaina2a.Envelope, text, contextID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	reply := h.process(ctx, text, contextID, env.CorrelationID)

	source, ok := h.table.Node(env.Source)
	if !ok || h.caller == nil {
		slog.Warn("cannot return handshake result, source unknown",
			"source", env.Source, "correlation_id", env.CorrelationID)
		return
	}

	result := domaina2a.Envelope{
		Type:          domaina2a.EnvelopeHandshakeResult,
		Source:        h.selfID,
		CorrelationID: env.CorrelationID,
		Status:        "COMPLETED",
		Payload:       mustJSON(map[string]string{"message": reply}),
	}
	_, err := h.caller.Call(ctx, source, result.Encode(), portpeer.Metadata{
		CorrelationID: env.CorrelationID,
		ContextID:     contextID,
	})
	if err != nil {
		slog.Warn("handshake result callback failed",
			"source", env.Source, "correlation_id", env.CorrelationID, "error", err)
	}
}

func mustJSON(v any) json.RawMessage {
	raw, _ := json.Marshal(v)
	return raw
}
