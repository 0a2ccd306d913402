package transport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/domain/event"
	portauth "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/port/auth"
	porteventbus "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/port/eventbus"

	a2ahandler "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/transport/a2a"
	mcptransport "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/transport/mcp"
	meshhandler "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/transport/mesh"
	wshandler "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/transport/ws"
)

func NewRouter(
	ctx context.Context,
	a2aHandler *a2ahandler.Handler,
	meshHandler *meshhandler.Handler,
	mcpServer *mcptransport.Server,
	verifier portauth.TokenVerifier,
	eventBus porteventbus.EventBus,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(RequestLogger())
	r.Use(CORSMiddleware())

	// Liveness for peer health probes. Unauthenticated: a probe that needs a
	// token would read auth outages as node outages.
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "active"})
	})

	peer := r.Group("", PeerAuth(verifier))
	a2aHandler.Register(peer)

	api := r.Group("/api")
	meshHandler.Register(api.Group("/mesh"))

	if mcpServer != nil {
		r.Any("/mcp", gin.WrapH(mcpServer.Handler()))
		r.Any("/mcp/*path", gin.WrapH(mcpServer.Handler()))
	}

	hub := wshandler.NewHub()
	hub.Register(api.Group("/ws"))

	// Bridge: one subscription per mesh channel (4 total Postgres connections
	// when the LISTEN/NOTIFY bus is active). All events within a channel are
	// forwarded to WS clients; event.Type in the payload lets the client filter.
	for _, ch := range []event.Channel{
		event.ChannelRouting,
		event.ChannelCircuit,
		event.ChannelHealth,
		event.ChannelDelivery,
	} {
		c := ch
		if _, err := eventBus.Subscribe(ctx, c, func(_ context.Context, e event.Event) {
			hub.Broadcast(e)
		}); err != nil {
			slog.Error("failed to subscribe channel to WS hub", "channel", c, "error", err)
		}
	}

	return r
}
