package reasoner

import "context"

// Result is what the reasoning collaborator hands back for one inbound text:
// an intent label to route onward (empty if the node handles it locally) and
// optional reply text.
type Result struct {
	Intent string
	Reply  string
}

// Reasoner is the reasoning/LLM collaborator. The mesh core hands it decoded
// inbound text and never interprets message content itself.
type Reasoner interface {
	Process(ctx context.Context, sourceID, text string) (Result, error)
}
