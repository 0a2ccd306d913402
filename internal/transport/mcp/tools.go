package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	mcpmcp "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	breakersvc "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/service/breaker"
	deliverysvc "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/service/delivery"
	healthsvc "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/service/health"
	routingsvc "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/service/routing"
)

// RegisterTools registers all MCP tools on the server. Add a new tool by
// adding a new AddTool call; server.go never changes.
func RegisterTools(
	s *mcpserver.MCPServer,
	selfID string,
	delivery *deliverysvc.Service,
	table *routingsvc.Table,
	monitor *healthsvc.Monitor,
	breaker *breakersvc.Breaker,
) {
	s.AddTool(mcpmcp.NewTool("delegate_task",
		mcpmcp.WithDescription("Delegate a task into the mesh by intent. Routes to the primary destination for the intent, failing over automatically if it is down or its circuit is open. Returns the handling node's reply."),
		mcpmcp.WithString("intent", mcpmcp.Required(), mcpmcp.Description("Routing intent, e.g. fire, medical, police, utility, alert")),
		mcpmcp.WithString("text", mcpmcp.Required(), mcpmcp.Description("Task description sent to the destination node")),
		mcpmcp.WithString("incident_id", mcpmcp.Description("Incident identifier. Repeat delegations of the same incident to the same destination are deduplicated.")),
		mcpmcp.WithBoolean("tracked", mcpmcp.Description("Wait for the destination to complete the task via handshake instead of returning its immediate acknowledgement")),
	), delegateTaskHandler(selfID, delivery))

	s.AddTool(mcpmcp.NewTool("broadcast_alert",
		mcpmcp.WithDescription("Send the same message to every listed intent in parallel. Per-intent outcomes are reported independently; one unreachable branch does not fail the batch."),
		mcpmcp.WithString("text", mcpmcp.Required(), mcpmcp.Description("Alert text")),
		mcpmcp.WithString("intents", mcpmcp.Description("Comma-separated list of intents. Defaults to alert.")),
	), broadcastAlertHandler(selfID, delivery))

	s.AddTool(mcpmcp.NewTool("mesh_status",
		mcpmcp.WithDescription("Report the mesh topology with per-node availability and circuit state."),
	), meshStatusHandler(selfID, table, monitor, breaker))
}

func delegateTaskHandler(selfID string, delivery *deliverysvc.Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		intent := mcpmcp.ParseString(req, "intent", "")
		text := mcpmcp.ParseString(req, "text", "")
		incidentID := mcpmcp.ParseString(req, "incident_id", "")
		tracked := mcpmcp.ParseBoolean(req, "tracked", false)

		if intent == "" || text == "" {
			return mcpmcp.NewToolResultText("error: intent and text are required"), nil
		}

		dreq := deliverysvc.Request{
			SourceID:   selfID,
			Intent:     intent,
			Text:       text,
			IncidentID: incidentID,
		}

		var resp deliverysvc.Response
		var err error
		if tracked {
			resp, err = delivery.Delegate(ctx, dreq, 0)
		} else {
			resp, err = delivery.Send(ctx, dreq)
		}
		if err != nil {
			return mcpmcp.NewToolResultText("error: " + err.Error()), nil
		}

		result, _ := json.Marshal(resp)
		return mcpmcp.NewToolResultText(string(result)), nil
	}
}

func broadcastAlertHandler(selfID string, delivery *deliverysvc.Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		text := mcpmcp.ParseString(req, "text", "")
		if text == "" {
			return mcpmcp.NewToolResultText("error: text is required"), nil
		}

		intents := splitIntents(mcpmcp.ParseString(req, "intents", "alert"))

		results := delivery.Broadcast(ctx, selfID, intents, text)
		out, _ := json.Marshal(results)
		return mcpmcp.NewToolResultText(string(out)), nil
	}
}

func meshStatusHandler(selfID string, table *routingsvc.Table, monitor *healthsvc.Monitor, breaker *breakersvc.Breaker) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		type nodeStatus struct {
			ID        string `json:"id"`
			Class     string `json:"class"`
			Available bool   `json:"available"`
			Circuit   string `json:"circuit"`
		}

		nodes := table.Nodes()
		statuses := make([]nodeStatus, 0, len(nodes))
		for _, n := range nodes {
			statuses = append(statuses, nodeStatus{
				ID:        n.ID,
				Class:     string(n.Class),
				Available: monitor.IsAvailable(n.ID),
				Circuit:   string(breaker.State(n.ID)),
			})
		}

		out, _ := json.Marshal(map[string]any{
			"self":         selfID,
			"generated_at": time.Now().UTC().Format(time.RFC3339),
			"nodes":        statuses,
		})
		return mcpmcp.NewToolResultText(string(out)), nil
	}
}

func splitIntents(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		out = []string{"alert"}
	}
	return out
}
