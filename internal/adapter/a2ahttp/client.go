package a2ahttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/domain/a2a"
	"github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/domain/mesh"
	portauth "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/port/auth"
	portpeer "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/port/peer"
)

var _ portpeer.Caller = (*Client)(nil)

// Client performs message/send calls against peer A2A endpoints. One client
// serves all peers; per-call identity is carried by a freshly minted token,
// never by per-pair connection state.
type Client struct {
	http   *http.Client
	issuer portauth.TokenIssuer
	selfID string
}

// New creates the A2A client. issuer may be nil when the mesh runs without
// peer authentication.
func New(selfID string, timeout time.Duration, issuer portauth.TokenIssuer) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		http:   &http.Client{Timeout: timeout},
		issuer: issuer,
		selfID: selfID,
	}
}

// Call sends one message to one peer and extracts the reply text. Transport
// failures, non-2xx statuses, protocol-level errors, and unparseable
// responses all come back as errors; the delivery layer decides what each
// means for circuit and health state.
func (c *Client) Call(ctx context.Context, target mesh.Node, text string, md portpeer.Metadata) (string, error) {
	rpcReq := a2a.NewSendRequest(text, md.ContextID, metadata(md))

	body, err := json.Marshal(rpcReq)
	if err != nil {
		return "", fmt.Errorf("encoding request for %s: %w", target.ID, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint(target.Addr), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building request for %s: %w", target.ID, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	if c.issuer != nil {
		token, err := c.issuer.Issue(c.selfID, target.ID, md.CorrelationID)
		if err != nil {
			return "", fmt.Errorf("minting token for %s: %w", target.ID, err)
		}
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("calling %s: %w", target.ID, err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("reading response from %s: %w", target.ID, err)
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return "", fmt.Errorf("calling %s: status %d", target.ID, httpResp.StatusCode)
	}

	var rpcResp a2a.Response
	if err := json.Unmarshal(raw, &rpcResp); err != nil {
		return "", &mesh.UnparseableResponseError{NodeID: target.ID, Raw: raw}
	}
	if rpcResp.Error != nil {
		return "", fmt.Errorf("calling %s: rpc error %d: %s", target.ID, rpcResp.Error.Code, rpcResp.Error.Message)
	}

	reply, _, err := a2a.ExtractText(rpcResp.Result)
	if err != nil {
		return "", &mesh.UnparseableResponseError{NodeID: target.ID, Raw: rpcResp.Result}
	}
	return reply, nil
}

func metadata(md portpeer.Metadata) map[string]string {
	if md.CorrelationID == "" {
		return nil
	}
	return map[string]string{"correlation_id": md.CorrelationID}
}

// endpoint mounts the A2A path on the node address. The trailing slash is
// load-bearing: peers mount the handler at /a2a/ and redirect otherwise.
func endpoint(addr string) string {
	return strings.TrimRight(addr, "/") + "/a2a/"
}
