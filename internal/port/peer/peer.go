package peer

import (
	"context"

	"github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/domain/mesh"
)

// Metadata rides along with one outbound call.
type Metadata struct {
	CorrelationID string
	ContextID     string
}

// Caller performs a single message/send against a single peer. It returns
// the extracted reply text; transport, protocol, and extraction failures all
// come back as errors for the delivery layer to classify.
type Caller interface {
	Call(ctx context.Context, target mesh.Node, text string, md Metadata) (string, error)
}
