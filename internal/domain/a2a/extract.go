package a2a

import (
	"encoding/json"
	"errors"
)

// ErrNoText means a strategy found its shape but no text inside it.
var errNoText = errors.New("a2a: no text in result")

// extractStrategy attempts to pull reply text out of one known result shape.
// Strategies are tried in declared order; the first hit wins.
type extractStrategy struct {
	name string
	fn   func(raw json.RawMessage) (string, bool)
}

var strategies = []extractStrategy{
	{"result.parts", fromParts},
	{"result.message.parts", fromMessageParts},
	{"result.artifacts.parts", fromArtifactParts},
	{"result.status.message", fromStatusMessage},
	{"result.history", fromHistory},
}

// ExtractText pulls the reply text from a raw result, trying each known
// response shape in order. Peers built on different A2A stacks answer with
// a bare message, a task wrapper, artifacts, a status, or a history list;
// total failure to match any shape is an extraction error, not a crash.
func ExtractText(raw json.RawMessage) (string, string, error) {
	if len(raw) == 0 {
		return "", "", errNoText
	}
	for _, s := range strategies {
		if text, ok := s.fn(raw); ok {
			return text, s.name, nil
		}
	}
	return "", "", errNoText
}

func textFromParts(parts []Part) (string, bool) {
	var out string
	for _, p := range parts {
		if p.Kind == PartKindText && p.Text != "" {
			out += p.Text
		}
	}
	return out, out != ""
}

func fromParts(raw json.RawMessage) (string, bool) {
	var shape struct {
		Parts []Part `json:"parts"`
	}
	if err := json.Unmarshal(raw, &shape); err != nil {
		return "", false
	}
	return textFromParts(shape.Parts)
}

func fromMessageParts(raw json.RawMessage) (string, bool) {
	var shape struct {
		Message *struct {
			Parts []Part `json:"parts"`
		} `json:"message"`
	}
	if err := json.Unmarshal(raw, &shape); err != nil || shape.Message == nil {
		return "", false
	}
	return textFromParts(shape.Message.Parts)
}

func fromArtifactParts(raw json.RawMessage) (string, bool) {
	var shape struct {
		Artifacts []struct {
			Parts []Part `json:"parts"`
		} `json:"artifacts"`
	}
	if err := json.Unmarshal(raw, &shape); err != nil {
		return "", false
	}
	var out string
	for _, a := range shape.Artifacts {
		if text, ok := textFromParts(a.Parts); ok {
			out += text
		}
	}
	return out, out != ""
}

// fromStatusMessage handles the task-status shape. status.message is a
// message object on spec-conformant peers but a bare string on older ones;
// both are accepted.
func fromStatusMessage(raw json.RawMessage) (string, bool) {
	var shape struct {
		Status *struct {
			Message json.RawMessage `json:"message"`
		} `json:"status"`
	}
	if err := json.Unmarshal(raw, &shape); err != nil || shape.Status == nil || len(shape.Status.Message) == 0 {
		return "", false
	}
	var msg Message
	if err := json.Unmarshal(shape.Status.Message, &msg); err == nil {
		if text, ok := textFromParts(msg.Parts); ok {
			return text, true
		}
	}
	var s string
	if err := json.Unmarshal(shape.Status.Message, &s); err == nil && s != "" {
		return s, true
	}
	return "", false
}

// fromHistory takes the last non-user message from a conversation history.
func fromHistory(raw json.RawMessage) (string, bool) {
	var shape struct {
		History []Message `json:"history"`
	}
	if err := json.Unmarshal(raw, &shape); err != nil {
		return "", false
	}
	for i := len(shape.History) - 1; i >= 0; i-- {
		if shape.History[i].Role == RoleUser {
			continue
		}
		if text, ok := textFromParts(shape.History[i].Parts); ok {
			return text, true
		}
	}
	return "", false
}
