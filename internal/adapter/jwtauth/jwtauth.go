package jwtauth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	portauth "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/port/auth"
)

var (
	ErrWrongTarget = errors.New("jwtauth: token minted for a different node")
)

// claims is the JWT payload for one source → target call.
type claims struct {
	Source        string `json:"src"`
	Target        string `json:"tgt"`
	CorrelationID string `json:"cid,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator mints and verifies per-request HS256 bearer tokens. Each
// outbound call gets a fresh short-lived token scoped to its target, so a
// captured token cannot be replayed against another peer.
type Authenticator struct {
	secret []byte
	selfID string
	ttl    time.Duration

	// now is swapped out by tests.
	now func() time.Time
}

var _ portauth.TokenIssuer = (*Authenticator)(nil)
var _ portauth.TokenVerifier = (*Authenticator)(nil)

func New(secret, selfID string, ttl time.Duration) *Authenticator {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Authenticator{
		secret: []byte(secret),
		selfID: selfID,
		ttl:    ttl,
		now:    time.Now,
	}
}

func (a *Authenticator) Issue(sourceID, targetID, correlationID string) (string, error) {
	now := a.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Source:        sourceID,
		Target:        targetID,
		CorrelationID: correlationID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	})
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

func (a *Authenticator) Verify(tokenString string) (portauth.Claims, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(a.now))
	if err != nil {
		return portauth.Claims{}, fmt.Errorf("parsing token: %w", err)
	}
	if !token.Valid {
		return portauth.Claims{}, errors.New("jwtauth: invalid token")
	}
	if c.Target != a.selfID {
		return portauth.Claims{}, ErrWrongTarget
	}
	return portauth.Claims{
		SourceID:      c.Source,
		TargetID:      c.Target,
		CorrelationID: c.CorrelationID,
	}, nil
}
