package guardian

import (
	"math"
	"regexp"

	"github.com/gzhole/talentguard/internal/charscan"
	"github.com/gzhole/talentguard/internal/logger"
	"github.com/gzhole/talentguard/internal/patterns"
)

// Default scoring parameters.
const (
	DefaultPatternWeight  = 0.3
	DefaultBulkVerbBoost  = 0.1
	DefaultTotalityBoost  = 0.1
	DefaultFlagThreshold  = 0.3
	DefaultBlockThreshold = 0.5
)

const (
	signalBulkVerb = "bulk_verb"
	signalTotality = "totality"
)

var (
	bulkVerbPattern = regexp.MustCompile(`(?i)\b(show|display|get|list)\b`)
	bulkAllPattern  = regexp.MustCompile(`(?i)\ball\b`)
	totalityPattern = regexp.MustCompile(`(?i)\b(entire|complete|full|every)\w*`)
)

// InjectionConfig holds the detector weights. Zero fields take the defaults.
type InjectionConfig struct {
	PatternWeight float64
	BulkVerbBoost float64
	TotalityBoost float64
	FlagThreshold float64
}

func (c InjectionConfig) withDefaults() InjectionConfig {
	if c.PatternWeight <= 0 {
		c.PatternWeight = DefaultPatternWeight
	}
	if c.BulkVerbBoost <= 0 {
		c.BulkVerbBoost = DefaultBulkVerbBoost
	}
	if c.TotalityBoost <= 0 {
		c.TotalityBoost = DefaultTotalityBoost
	}
	if c.FlagThreshold <= 0 {
		c.FlagThreshold = DefaultFlagThreshold
	}
	return c
}

// InjectionDetector scores an utterance for behavioral prompt-injection
// phrasing. Every matching pattern adds PatternWeight; a data-dump verb next
// to "all" and totality words each add a smaller boost. The sum is clamped
// to [0,1] only at the end, so stacked signals never lower the score.
type InjectionDetector struct {
	cfg      InjectionConfig
	patterns []patterns.Pattern
	audit    logger.Auditor
}

// NewInjectionDetector creates a detector over the library's prompt-injection set.
func NewInjectionDetector(lib *patterns.Library, cfg InjectionConfig, audit logger.Auditor) *InjectionDetector {
	return &InjectionDetector{
		cfg:      cfg.withDefaults(),
		patterns: lib.PromptInjection(),
		audit:    auditOrNop(audit),
	}
}

// Evaluate scores text without emitting audit events. Look-alike letters
// are folded to Latin before matching.
func (d *InjectionDetector) Evaluate(text string) InjectionResult {
	text = charscan.Skeleton(text)
	var (
		score   float64
		signals []Signal
	)
	for _, p := range d.patterns {
		if p.Match(text) {
			score += d.cfg.PatternWeight
			signals = append(signals, Signal{ID: p.ID, Weight: d.cfg.PatternWeight})
		}
	}
	if bulkVerbPattern.MatchString(text) && bulkAllPattern.MatchString(text) {
		score += d.cfg.BulkVerbBoost
		signals = append(signals, Signal{ID: signalBulkVerb, Weight: d.cfg.BulkVerbBoost})
	}
	if totalityPattern.MatchString(text) {
		score += d.cfg.TotalityBoost
		signals = append(signals, Signal{ID: signalTotality, Weight: d.cfg.TotalityBoost})
	}

	score = clamp(math.Round(score*1000) / 1000)
	return InjectionResult{
		IsInjection: score >= d.cfg.FlagThreshold,
		Score:       score,
		Signals:     signals,
	}
}

// Score is Evaluate plus a prompt_injection_detected event for any nonzero score.
func (d *InjectionDetector) Score(text string) InjectionResult {
	res := d.Evaluate(text)
	if res.Score > 0 {
		d.audit.LogSecurityEvent(logger.EventPromptInjection, map[string]any{
			"patterns":   res.Patterns(),
			"risk_score": res.Score,
			"query":      logger.Truncate(text, maxLoggedQuery),
		})
	}
	return res
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
