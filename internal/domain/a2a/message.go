package a2a

import (
	"encoding/json"

	"github.com/google/uuid"
)

const (
	Version      = "2.0"
	MethodSend   = "message/send"
	RoleUser     = "user"
	RoleAgent    = "agent"
	PartKindText = "text"
)

// Part is one content fragment of a message. Only text parts are produced;
// unknown kinds are tolerated on the way in.
type Part struct {
	Kind string `json:"kind"`
	Text string `json:"text,omitempty"`
}

// Message is the A2A message envelope carried inside params and results.
type Message struct {
	Role      string `json:"role"`
	Parts     []Part `json:"parts"`
	MessageID string `json:"messageId"`
	ContextID string `json:"contextId,omitempty"`
}

// Text concatenates the message's text parts.
func (m Message) Text() string {
	var out string
	for _, p := range m.Parts {
		if p.Kind == PartKindText {
			out += p.Text
		}
	}
	return out
}

// SendParams is the params object of a message/send request.
type SendParams struct {
	Message  Message           `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Request is the JSON-RPC 2.0 request envelope.
type Request struct {
	JSONRPC string     `json:"jsonrpc"`
	Method  string     `json:"method"`
	ID      string     `json:"id"`
	Params  SendParams `json:"params"`
}

// NewSendRequest builds a message/send request with fresh identifiers.
func NewSendRequest(text, contextID string, metadata map[string]string) Request {
	return Request{
		JSONRPC: Version,
		Method:  MethodSend,
		ID:      uuid.NewString(),
		Params: SendParams{
			Message: Message{
				Role:      RoleUser,
				Parts:     []Part{{Kind: PartKindText, Text: text}},
				MessageID: uuid.NewString(),
				ContextID: contextID,
			},
			Metadata: metadata,
		},
	}
}

// RPCError is the JSON-RPC error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Standard JSON-RPC error codes used by the endpoint.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInternalError  = -32603
)

// Response is the JSON-RPC 2.0 response envelope. Result is kept raw: peers
// reply in several shapes and extraction is deferred to ExtractText.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// NewResultResponse wraps an agent message as a successful response.
func NewResultResponse(id string, msg Message) Response {
	raw, _ := json.Marshal(msg)
	return Response{JSONRPC: Version, ID: id, Result: raw}
}

// NewErrorResponse builds a JSON-RPC error response.
func NewErrorResponse(id string, code int, message string) Response {
	return Response{JSONRPC: Version, ID: id, Error: &RPCError{Code: code, Message: message}}
}

// AgentMessage builds an agent-role reply message.
func AgentMessage(text, contextID string) Message {
	return Message{
		Role:      RoleAgent,
		Parts:     []Part{{Kind: PartKindText, Text: text}},
		MessageID: uuid.NewString(),
		ContextID: contextID,
	}
}
