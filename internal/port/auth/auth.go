package auth

// Claims is the verified identity attached to an inbound peer call.
type Claims struct {
	SourceID      string
	TargetID      string
	CorrelationID string
}

// TokenIssuer mints a fresh, per-request bearer token scoped to one
// source → target call.
type TokenIssuer interface {
	Issue(sourceID, targetID, correlationID string) (string, error)
}

// TokenVerifier checks an inbound bearer token was minted for this node.
type TokenVerifier interface {
	Verify(token string) (Claims, error)
}
