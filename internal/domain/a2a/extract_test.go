package a2a_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/domain/a2a"
)

func TestExtractText_DirectParts(t *testing.T) {
	raw := json.RawMessage(`{"role":"agent","parts":[{"kind":"text","text":"engines dispatched"}]}`)

	text, strategy, err := a2a.ExtractText(raw)
	require.NoError(t, err)
	assert.Equal(t, "engines dispatched", text)
	assert.Equal(t, "result.parts", strategy)
}

func TestExtractText_ConcatenatesMultipleParts(t *testing.T) {
	raw := json.RawMessage(`{"parts":[{"kind":"text","text":"engines "},{"kind":"data"},{"kind":"text","text":"dispatched"}]}`)

	text, _, err := a2a.ExtractText(raw)
	require.NoError(t, err)
	assert.Equal(t, "engines dispatched", text)
}

func TestExtractText_NestedMessage(t *testing.T) {
	raw := json.RawMessage(`{"message":{"role":"agent","parts":[{"kind":"text","text":"ack"}]}}`)

	text, strategy, err := a2a.ExtractText(raw)
	require.NoError(t, err)
	assert.Equal(t, "ack", text)
	assert.Equal(t, "result.message.parts", strategy)
}

func TestExtractText_ArtifactParts(t *testing.T) {
	raw := json.RawMessage(`{"artifacts":[{"parts":[{"kind":"text","text":"report "}]},{"parts":[{"kind":"text","text":"filed"}]}]}`)

	text, strategy, err := a2a.ExtractText(raw)
	require.NoError(t, err)
	assert.Equal(t, "report filed", text)
	assert.Equal(t, "result.artifacts.parts", strategy)
}

func TestExtractText_StatusMessageObject(t *testing.T) {
	raw := json.RawMessage(`{"status":{"state":"completed","message":{"role":"agent","parts":[{"kind":"text","text":"done"}]}}}`)

	text, strategy, err := a2a.ExtractText(raw)
	require.NoError(t, err)
	assert.Equal(t, "done", text)
	assert.Equal(t, "result.status.message", strategy)
}

func TestExtractText_StatusMessageBareString(t *testing.T) {
	// Older peers put a plain string where the spec wants a message object.
	raw := json.RawMessage(`{"status":{"state":"completed","message":"all clear"}}`)

	text, _, err := a2a.ExtractText(raw)
	require.NoError(t, err)
	assert.Equal(t, "all clear", text)
}

func TestExtractText_HistoryLastNonUser(t *testing.T) {
	raw := json.RawMessage(`{"history":[
		{"role":"user","parts":[{"kind":"text","text":"report fire"}]},
		{"role":"agent","parts":[{"kind":"text","text":"first reply"}]},
		{"role":"agent","parts":[{"kind":"text","text":"final reply"}]},
		{"role":"user","parts":[{"kind":"text","text":"thanks"}]}
	]}`)

	text, strategy, err := a2a.ExtractText(raw)
	require.NoError(t, err)
	assert.Equal(t, "final reply", text)
	assert.Equal(t, "result.history", strategy)
}

func TestExtractText_Unparseable(t *testing.T) {
	for _, raw := range []json.RawMessage{
		nil,
		json.RawMessage(`{}`),
		json.RawMessage(`{"weird":"shape"}`),
		json.RawMessage(`{"parts":[{"kind":"data"}]}`),
	} {
		_, _, err := a2a.ExtractText(raw)
		assert.Error(t, err, "raw=%s", string(raw))
	}
}

func TestDecodeEnvelope(t *testing.T) {
	env := a2a.Envelope{
		Type:          a2a.EnvelopeHandshakeRequest,
		Source:        "dispatch",
		CorrelationID: "abc-123",
		Payload:       json.RawMessage(`{"request":"put out the fire"}`),
	}

	decoded, ok := a2a.DecodeEnvelope(env.Encode())
	require.True(t, ok)
	assert.Equal(t, a2a.EnvelopeHandshakeRequest, decoded.Type)
	assert.Equal(t, "dispatch", decoded.Source)
	assert.Equal(t, "abc-123", decoded.CorrelationID)
}

func TestDecodeEnvelope_RejectsPlainText(t *testing.T) {
	_, ok := a2a.DecodeEnvelope("there is a fire on 5th street")
	assert.False(t, ok)

	// JSON that is not an envelope is also not an envelope.
	_, ok = a2a.DecodeEnvelope(`{"type":"CHAT","correlation_id":"x"}`)
	assert.False(t, ok)
}

func TestMessageText(t *testing.T) {
	msg := a2a.Message{Parts: []a2a.Part{
		{Kind: "text", Text: "a"},
		{Kind: "file"},
		{Kind: "text", Text: "b"},
	}}
	assert.Equal(t, "ab", msg.Text())
}
