package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	porthandshake "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/port/handshake"
)

var _ porthandshake.Store = (*HandshakeStore)(nil)

// HandshakeStore tracks pending handshakes in process memory. It only works
// when the delegating node and the resolving transport share a process, which
// is exactly the single-binary deployment it exists for.
type HandshakeStore struct {
	mu      sync.Mutex
	pending map[string]chan json.RawMessage
}

func NewHandshakeStore() *HandshakeStore {
	return &HandshakeStore{pending: make(map[string]chan json.RawMessage)}
}

func (s *HandshakeStore) Create(_ context.Context, correlationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.pending[correlationID]; exists {
		return fmt.Errorf("handshake %s already pending", correlationID)
	}
	s.pending[correlationID] = make(chan json.RawMessage, 1)
	return nil
}

func (s *HandshakeStore) Await(ctx context.Context, correlationID string, timeout time.Duration) (json.RawMessage, error) {
	s.mu.Lock()
	ch, ok := s.pending[correlationID]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("handshake %s was never created", correlationID)
	}
	defer s.drop(correlationID)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case result := <-ch:
		return result, nil
	case <-timer.C:
		return nil, porthandshake.ErrTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *HandshakeStore) Resolve(_ context.Context, correlationID string, result json.RawMessage) error {
	s.mu.Lock()
	ch, ok := s.pending[correlationID]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("no pending handshake %s", correlationID)
	}
	select {
	case ch <- result:
		return nil
	default:
		return fmt.Errorf("handshake %s already resolved", correlationID)
	}
}

func (s *HandshakeStore) drop(correlationID string) {
	s.mu.Lock()
	delete(s.pending, correlationID)
	s.mu.Unlock()
}
