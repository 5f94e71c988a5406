// Package guardian holds the text gates that run before authorization:
// structural input validation, behavioral prompt-injection scoring, topic
// scoping and scope clarification.
//
// Every gate is built once from a patterns.Library and is safe for
// concurrent use. Gates never return errors: an unexpected input is a
// decision, not a failure.
package guardian

import (
	"github.com/gzhole/talentguard/internal/logger"
)

// Result is a pass/fail gate outcome. Message is user-facing and never
// contains the matched pattern.
type Result struct {
	OK      bool
	Message string
	// Pattern is the ID of the pattern that caused a denial, for audit and metrics.
	Pattern string
}

// Signal is one contribution to an injection score.
type Signal struct {
	// ID is the pattern ID or heuristic name (e.g. "pi-ignore-instructions", "bulk_verb").
	ID     string
	Weight float64
}

// InjectionResult is the outcome of InjectionDetector.
type InjectionResult struct {
	IsInjection bool
	Score       float64
	Signals     []Signal
}

// Patterns returns the IDs of the matched library patterns, excluding
// heuristic boosts.
func (r InjectionResult) Patterns() []string {
	var out []string
	for _, s := range r.Signals {
		if s.ID != signalBulkVerb && s.ID != signalTotality {
			out = append(out, s.ID)
		}
	}
	return out
}

// Clarification is the outcome of ClarificationGate.
type Clarification struct {
	Needed   bool   `json:"needed"`
	Question string `json:"question,omitempty"`
}

const maxLoggedQuery = 100

func auditOrNop(a logger.Auditor) logger.Auditor {
	if a == nil {
		return logger.Nop()
	}
	return a
}
