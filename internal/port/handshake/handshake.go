package handshake

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrTimeout means the peer never resolved the handshake inside the window.
var ErrTimeout = errors.New("handshake: timed out waiting for result")

// Store tracks request/response pairs across processes. A delegation that
// needs a tracked reply creates a PENDING record, awaits completion, and the
// peer resolves it by correlation id.
type Store interface {
	Create(ctx context.Context, correlationID string) error
	// Await blocks until the record is resolved or the timeout elapses,
	// returning the stored result. The record is consumed on return.
	Await(ctx context.Context, correlationID string, timeout time.Duration) (json.RawMessage, error)
	Resolve(ctx context.Context, correlationID string, result json.RawMessage) error
}
