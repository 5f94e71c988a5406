package guardian

import (
	"github.com/gzhole/talentguard/internal/charscan"
	"github.com/gzhole/talentguard/internal/logger"
	"github.com/gzhole/talentguard/internal/patterns"
)

// RedirectMessage steers an off-topic user back to supported tasks.
const RedirectMessage = "I'm TalentOps AI, focused on HR and workforce tasks. I can help with tasks, leaves, meetings, and employee data. What would you like to do?"

// TopicGate rejects utterances that match the off-topic set.
type TopicGate struct {
	offTopic []patterns.Pattern
	audit    logger.Auditor
}

func NewTopicGate(lib *patterns.Library, audit logger.Auditor) *TopicGate {
	return &TopicGate{offTopic: lib.OffTopic(), audit: auditOrNop(audit)}
}

// Check returns OK for on-topic text and the redirect message otherwise.
func (g *TopicGate) Check(text string) Result {
	p, ok := patterns.FirstMatch(g.offTopic, charscan.Skeleton(text))
	if !ok {
		return Result{OK: true}
	}
	g.audit.LogSecurityEvent(logger.EventOffTopic, map[string]any{
		"pattern": p.ID,
		"query":   logger.Truncate(text, maxLoggedQuery),
	})
	return Result{Message: RedirectMessage, Pattern: p.ID}
}
