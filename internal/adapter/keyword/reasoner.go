package keyword

import (
	"context"
	"strings"

	portreasoner "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/port/reasoner"
)

var _ portreasoner.Reasoner = (*Reasoner)(nil)

// Rule maps trigger keywords to an intent. First matching rule wins, so order
// the specific ones before the broad ones.
type Rule struct {
	Keywords []string
	Intent   string
	Reply    string
}

// Reasoner is a deterministic keyword classifier. It stands in for an LLM
// collaborator wherever one is unavailable or unwanted, and doubles as the
// reasoning stub in tests.
type Reasoner struct {
	rules        []Rule
	defaultReply string
}

func New(rules []Rule, defaultReply string) *Reasoner {
	if defaultReply == "" {
		defaultReply = "acknowledged"
	}
	return &Reasoner{rules: rules, defaultReply: defaultReply}
}

func (r *Reasoner) Process(_ context.Context, _ string, text string) (portreasoner.Result, error) {
	lowered := strings.ToLower(text)
	for _, rule := range r.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(lowered, strings.ToLower(kw)) {
				reply := rule.Reply
				if reply == "" {
					reply = r.defaultReply
				}
				return portreasoner.Result{Intent: rule.Intent, Reply: reply}, nil
			}
		}
	}
	return portreasoner.Result{Reply: r.defaultReply}, nil
}
