package jwtauth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/adapter/jwtauth"
)

func TestIssueAndVerify(t *testing.T) {
	issuer := jwtauth.New("shared-secret", "dispatch", time.Minute)
	verifier := jwtauth.New("shared-secret", "fire", time.Minute)

	token, err := issuer.Issue("dispatch", "fire", "cid-1")
	require.NoError(t, err)

	claims, err := verifier.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "dispatch", claims.SourceID)
	assert.Equal(t, "fire", claims.TargetID)
	assert.Equal(t, "cid-1", claims.CorrelationID)
}

func TestVerify_RejectsWrongTarget(t *testing.T) {
	issuer := jwtauth.New("shared-secret", "dispatch", time.Minute)
	police := jwtauth.New("shared-secret", "police", time.Minute)

	token, err := issuer.Issue("dispatch", "fire", "")
	require.NoError(t, err)

	// A token minted for fire must not be replayable against police.
	_, err = police.Verify(token)
	require.ErrorIs(t, err, jwtauth.ErrWrongTarget)
}

func TestVerify_RejectsWrongSecret(t *testing.T) {
	issuer := jwtauth.New("secret-a", "dispatch", time.Minute)
	verifier := jwtauth.New("secret-b", "fire", time.Minute)

	token, err := issuer.Issue("dispatch", "fire", "")
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.Error(t, err)
}

func TestVerify_RejectsExpiredToken(t *testing.T) {
	issuer := jwtauth.New("shared-secret", "dispatch", time.Second)
	verifier := jwtauth.New("shared-secret", "fire", time.Second)

	issued := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	issuer.SetNow(func() time.Time { return issued })
	token, err := issuer.Issue("dispatch", "fire", "")
	require.NoError(t, err)

	verifier.SetNow(func() time.Time { return issued.Add(time.Hour) })
	_, err = verifier.Verify(token)
	require.Error(t, err)
}

func TestVerify_RejectsGarbage(t *testing.T) {
	verifier := jwtauth.New("shared-secret", "fire", time.Minute)

	_, err := verifier.Verify("not.a.token")
	require.Error(t, err)
}
