package guardian

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/gzhole/talentguard/internal/charscan"
	"github.com/gzhole/talentguard/internal/logger"
	"github.com/gzhole/talentguard/internal/patterns"
)

// DefaultMaxInputLength is the longest accepted utterance, in characters.
const DefaultMaxInputLength = 500

const (
	msgEmptyInput = "Empty input received."
	msgRefusal    = "I can't process that request."
)

// PatternHiddenCharacters is the Result.Pattern for messages carrying
// invisible or direction-changing characters.
const PatternHiddenCharacters = "hidden_characters"

// InputValidator is the structural gate: non-empty, bounded length, no
// hidden characters, no SQL metacharacter sequences. It never computes a
// score.
type InputValidator struct {
	maxLength int
	sql       []patterns.Pattern
	audit     logger.Auditor
}

// NewInputValidator creates a validator. A non-positive maxLength selects
// DefaultMaxInputLength.
func NewInputValidator(lib *patterns.Library, maxLength int, audit logger.Auditor) *InputValidator {
	if maxLength <= 0 {
		maxLength = DefaultMaxInputLength
	}
	return &InputValidator{
		maxLength: maxLength,
		sql:       lib.SQLInjection(),
		audit:     auditOrNop(audit),
	}
}

// MaxLength returns the configured length bound.
func (v *InputValidator) MaxLength() int { return v.maxLength }

// Validate checks text and returns the first failure.
func (v *InputValidator) Validate(text string) Result {
	if strings.TrimSpace(text) == "" {
		return Result{Message: msgEmptyInput}
	}

	if n := utf8.RuneCountInString(text); n > v.maxLength {
		v.audit.LogSecurityEvent(logger.EventInputTooLong, map[string]any{"length": n})
		return Result{
			Message: fmt.Sprintf("Your message is too long. Please keep it under %d characters.", v.maxLength),
			Pattern: "max_length",
		}
	}

	scan := charscan.Scan(text)
	if scan.Blocked() {
		v.audit.LogSecurityEvent(logger.EventHiddenCharacters, map[string]any{
			"categories": scan.Categories(),
			"query":      logger.Truncate(scan.Sanitized, maxLoggedQuery),
		})
		return Result{Message: msgRefusal, Pattern: PatternHiddenCharacters}
	}

	if p, ok := patterns.FirstMatch(v.sql, charscan.Skeleton(text)); ok {
		v.audit.LogSecurityEvent(logger.EventSQLInjection, map[string]any{
			"pattern": p.ID,
			"query":   logger.Truncate(text, maxLoggedQuery),
		})
		return Result{Message: msgRefusal, Pattern: p.ID}
	}

	return Result{OK: true}
}
