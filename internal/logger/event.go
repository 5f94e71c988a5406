// Package logger emits the guardrail audit trail.
//
// Every gate decision and every notable security event becomes an Event.
// Callers talk to an Auditor; the default AsyncAuditor hands events to a
// bounded queue drained by a single goroutine that writes them to a Sink
// (JSON Lines file, zap, or both). Emission never blocks the decision path:
// when the queue is full the event is dropped and counted.
package logger

import (
	"time"

	"github.com/google/uuid"
)

// Security event types.
const (
	EventFailClosed         = "fail_closed"
	EventInputTooLong       = "input_too_long"
	EventHiddenCharacters   = "hidden_characters_detected"
	EventSQLInjection       = "sql_injection_attempt"
	EventPromptInjection    = "prompt_injection_detected"
	EventOffTopic           = "off_topic_query"
	EventInvalidIntent      = "invalid_intent"
	EventActionDenied       = "action_denied"
	EventResourceDenied     = "resource_denied"
	EventClarificationAsked = "clarification_requested"
)

// Event categories.
const (
	CategorySecurity = "security"
	CategoryRequest  = "request"
)

// Request decisions recorded by LogRequest.
const (
	DecisionAllowed = "allowed"
	DecisionDenied  = "denied"
	DecisionClarify = "clarify"
)

// Event is one line of the audit trail.
type Event struct {
	ID        string         `json:"id"`
	Category  string         `json:"category"`
	Type      string         `json:"event_type"`
	Timestamp string         `json:"timestamp"`
	Details   map[string]any `json:"details,omitempty"`
	Request   *RequestRecord `json:"request,omitempty"`
}

// RequestRecord summarizes one evaluated request for compliance logs.
type RequestRecord struct {
	RequestID      string  `json:"request_id,omitempty"`
	UserID         string  `json:"user_id"`
	Role           string  `json:"role"`
	Intent         string  `json:"intent"`
	TargetResource string  `json:"target_resource,omitempty"`
	Decision       string  `json:"decision"`
	RiskScore      float64 `json:"risk_score"`
}

// Auditor receives audit emissions. Implementations must be safe for
// concurrent use and must not block for long.
type Auditor interface {
	LogSecurityEvent(eventType string, details map[string]any)
	LogRequest(rec RequestRecord)
}

const (
	userIDPrefixLen   = 8
	maxResourceLength = 50
)

// MaskUserID keeps a short prefix of the user id.
func MaskUserID(id string) string {
	r := []rune(id)
	if len(r) > userIDPrefixLen {
		return string(r[:userIDPrefixLen]) + "..."
	}
	return id
}

// Truncate returns at most n runes of s.
func Truncate(s string, n int) string {
	if n < 0 {
		n = 0
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func newSecurityEvent(now time.Time, eventType string, details map[string]any) Event {
	return Event{
		ID:        uuid.NewString(),
		Category:  CategorySecurity,
		Type:      eventType,
		Timestamp: now.UTC().Format(time.RFC3339Nano),
		Details:   copyDetails(details),
	}
}

// newRequestEvent applies the PII limits before the record leaves the caller.
func newRequestEvent(now time.Time, rec RequestRecord) Event {
	rec.UserID = MaskUserID(rec.UserID)
	rec.TargetResource = Truncate(rec.TargetResource, maxResourceLength)
	return Event{
		ID:        uuid.NewString(),
		Category:  CategoryRequest,
		Type:      CategoryRequest,
		Timestamp: now.UTC().Format(time.RFC3339Nano),
		Request:   &rec,
	}
}

// copyDetails detaches the event from the caller's map.
func copyDetails(details map[string]any) map[string]any {
	if len(details) == 0 {
		return nil
	}
	out := make(map[string]any, len(details))
	for k, v := range details {
		out[k] = v
	}
	return out
}

type nopAuditor struct{}

func (nopAuditor) LogSecurityEvent(string, map[string]any) {}
func (nopAuditor) LogRequest(RequestRecord)                 {}

// Nop returns an Auditor that discards everything.
func Nop() Auditor { return nopAuditor{} }
