package mcp

import (
	"net/http"

	mcpserver "github.com/mark3labs/mcp-go/server"

	breakersvc "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/service/breaker"
	deliverysvc "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/service/delivery"
	healthsvc "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/service/health"
	routingsvc "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/service/routing"
)

// Server wraps the mark3labs/mcp-go MCPServer and its StreamableHTTPServer so
// an LLM host can drive the mesh through tools. Tools are registered in
// tools.go; this file owns only the server lifecycle.
type Server struct {
	httpSrv *mcpserver.StreamableHTTPServer
}

func New(
	selfID string,
	delivery *deliverysvc.Service,
	table *routingsvc.Table,
	monitor *healthsvc.Monitor,
	breaker *breakersvc.Breaker,
) *Server {
	mcpSrv := mcpserver.NewMCPServer(
		"agent-mesh",
		"1.0.0",
		mcpserver.WithToolCapabilities(true),
	)

	RegisterTools(mcpSrv, selfID, delivery, table, monitor, breaker)

	return &Server{httpSrv: mcpserver.NewStreamableHTTPServer(mcpSrv)}
}

// Handler returns an http.Handler that serves the MCP endpoint.
func (s *Server) Handler() http.Handler {
	return s.httpSrv
}
