package guardian

import (
	"strings"

	"github.com/gzhole/talentguard/internal/identity"
	"github.com/gzhole/talentguard/internal/patterns"
)

// ClarificationGate asks non-executive users to narrow scope-ambiguous
// requests ("all tasks", "everyone") before they reach authorization.
type ClarificationGate struct {
	rules []patterns.AmbiguityRule
}

func NewClarificationGate(lib *patterns.Library) *ClarificationGate {
	rules := lib.Ambiguity()
	for i := range rules {
		for j, phrase := range rules[i].Phrases {
			rules[i].Phrases[j] = strings.ToLower(phrase)
		}
	}
	return &ClarificationGate{rules: rules}
}

// Check returns the question of the first matching rule. Executives and
// unrecognised roles are never asked; the identity gate deals with the latter.
func (g *ClarificationGate) Check(text, role string) Clarification {
	r, ok := identity.ParseRole(role)
	if !ok || r.IsExecutive() {
		return Clarification{}
	}
	lower := strings.ToLower(text)
	for _, rule := range g.rules {
		for _, phrase := range rule.Phrases {
			if strings.Contains(lower, phrase) {
				return Clarification{Needed: true, Question: rule.Question}
			}
		}
	}
	return Clarification{}
}
