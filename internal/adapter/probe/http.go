package probe

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/domain/mesh"
	porthealth "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/port/health"
)

var _ porthealth.Prober = (*HTTP)(nil)

// HTTP probes a node's liveness endpoint with a plain GET. Any 2xx means
// reachable; anything else — error, non-2xx, timeout — is one failed probe.
type HTTP struct {
	client *http.Client
	path   string
}

func NewHTTP(timeout time.Duration) *HTTP {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HTTP{
		client: &http.Client{Timeout: timeout},
		path:   "/health",
	}
}

func (p *HTTP) Probe(ctx context.Context, node mesh.Node) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, node.Addr+p.path, nil)
	if err != nil {
		return fmt.Errorf("building probe request for %s: %w", node.ID, err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("probing %s: %w", node.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("probing %s: status %d", node.ID, resp.StatusCode)
	}
	return nil
}
