package a2a

import "encoding/json"

// Handshake envelope types carried as message text. A delegation that needs
// a tracked reply sends a HANDSHAKE_REQUEST; the peer answers out-of-band
// with a HANDSHAKE_RESULT carrying the same correlation id.
const (
	EnvelopeHandshakeRequest = "HANDSHAKE_REQUEST"
	EnvelopeHandshakeResult  = "HANDSHAKE_RESULT"
)

// Envelope is the typed payload embedded in a message's text part.
// Plain conversational messages are not envelopes and fail to decode.
type Envelope struct {
	Type          string          `json:"type"`
	Source        string          `json:"source,omitempty"`
	CorrelationID string          `json:"correlation_id"`
	Status        string          `json:"status,omitempty"`
	Message       string          `json:"message,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

// DecodeEnvelope tries to interpret message text as a handshake envelope.
func DecodeEnvelope(text string) (Envelope, bool) {
	var env Envelope
	if err := json.Unmarshal([]byte(text), &env); err != nil {
		return Envelope{}, false
	}
	switch env.Type {
	case EnvelopeHandshakeRequest, EnvelopeHandshakeResult:
		return env, true
	}
	return Envelope{}, false
}

// Encode renders the envelope as message text.
func (e Envelope) Encode() string {
	raw, _ := json.Marshal(e)
	return string(raw)
}
