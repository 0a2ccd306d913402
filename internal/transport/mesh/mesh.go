package mesh

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	domainmesh "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/domain/mesh"
	breakersvc "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/service/breaker"
	deliverysvc "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/service/delivery"
	healthsvc "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/service/health"
	routingsvc "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/service/routing"
)

// Handler exposes the operator-facing mesh API: topology, health and circuit
// snapshots, and direct send/broadcast entry points.
type Handler struct {
	selfID   string
	table    *routingsvc.Table
	monitor  *healthsvc.Monitor
	breaker  *breakersvc.Breaker
	delivery *deliverysvc.Service
}

func NewHandler(
	selfID string,
	table *routingsvc.Table,
	monitor *healthsvc.Monitor,
	breaker *breakersvc.Breaker,
	delivery *deliverysvc.Service,
) *Handler {
	return &Handler{
		selfID:   selfID,
		table:    table,
		monitor:  monitor,
		breaker:  breaker,
		delivery: delivery,
	}
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/status", h.status)
	rg.GET("/health", h.health)
	rg.GET("/circuits", h.circuits)
	rg.POST("/send", h.send)
	rg.POST("/broadcast", h.broadcast)
}

type nodeStatus struct {
	ID        string `json:"id"`
	Class     string `json:"class"`
	Addr      string `json:"addr"`
	Available bool   `json:"available"`
	Circuit   string `json:"circuit"`
}

func (h *Handler) status(c *gin.Context) {
	nodes := h.table.Nodes()
	out := make([]nodeStatus, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, nodeStatus{
			ID:        n.ID,
			Class:     string(n.Class),
			Addr:      n.Addr,
			Available: h.monitor.IsAvailable(n.ID),
			Circuit:   string(h.breaker.State(n.ID)),
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"self":  h.selfID,
		"nodes": out,
		"edges": h.table.Edges(),
	})
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"nodes": h.monitor.Snapshot()})
}

func (h *Handler) circuits(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"circuits": h.breaker.Snapshot()})
}

type sendReq struct {
	Intent     string `json:"intent" binding:"required"`
	Text       string `json:"text" binding:"required"`
	IncidentID string `json:"incident_id"`
	ContextID  string `json:"context_id"`
	// Delegate requests a tracked handshake instead of a fire-and-forget send.
	Delegate     bool `json:"delegate"`
	AwaitSeconds int  `json:"await_seconds"`
}

func (h *Handler) send(c *gin.Context) {
	var req sendReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dreq := deliverysvc.Request{
		SourceID:   h.selfID,
		Intent:     req.Intent,
		Text:       req.Text,
		IncidentID: req.IncidentID,
		ContextID:  req.ContextID,
	}

	var resp deliverysvc.Response
	var err error
	if req.Delegate {
		resp, err = h.delivery.Delegate(c.Request.Context(), dreq, time.Duration(req.AwaitSeconds)*time.Second)
	} else {
		resp, err = h.delivery.Send(c.Request.Context(), dreq)
	}
	if err != nil {
		status := http.StatusBadGateway
		body := gin.H{"error": err.Error()}

		if errors.Is(err, domainmesh.ErrNoRouteAvailable) {
			status = http.StatusNotFound
		}
		var de *domainmesh.DeliveryError
		if errors.As(err, &de) {
			body["attempts"] = de.Attempts
		}
		c.JSON(status, body)
		return
	}
	c.JSON(http.StatusOK, resp)
}

type broadcastReq struct {
	Intents []string `json:"intents" binding:"required"`
	Text    string   `json:"text" binding:"required"`
}

func (h *Handler) broadcast(c *gin.Context) {
	var req broadcastReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	results := h.delivery.Broadcast(c.Request.Context(), h.selfID, req.Intents, req.Text)
	c.JSON(http.StatusOK, gin.H{"results": results})
}
