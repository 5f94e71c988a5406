// Package charscan finds characters that make a chat message read
// differently to a person than to a pattern matcher: invisible spaces,
// bidirectional overrides, tag characters, raw control bytes and Latin
// look-alikes from other scripts.
package charscan

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Severity says whether a finding is enough to refuse the message.
type Severity string

const (
	SeverityBlock Severity = "block"
	SeverityAudit Severity = "audit"
)

// Finding categories.
const (
	CategoryInvalidUTF8 = "invalid-utf8"
	CategoryZeroWidth   = "zero-width"
	CategoryFormatMark  = "format-mark"
	CategoryBidi        = "bidi-override"
	CategoryTag         = "tag-char"
	CategoryControl     = "control-char"
	CategoryHomoglyph   = "homoglyph"
)

// Finding is one suspicious character.
type Finding struct {
	Category  string
	Codepoint string // "U+200B", or "0xFF" for an invalid byte
	Position  int    // byte offset
	Severity  Severity
}

// Result is the outcome of Scan.
type Result struct {
	Findings []Finding
	// Sanitized is the input with every block-severity character removed.
	// Homoglyphs are kept.
	Sanitized string
}

// Clean reports whether nothing was found.
func (r Result) Clean() bool { return len(r.Findings) == 0 }

// Blocked reports whether any finding has block severity.
func (r Result) Blocked() bool {
	for _, f := range r.Findings {
		if f.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// Categories returns the distinct categories found, in order of first
// appearance.
func (r Result) Categories() []string {
	var out []string
	seen := map[string]bool{}
	for _, f := range r.Findings {
		if !seen[f.Category] {
			seen[f.Category] = true
			out = append(out, f.Category)
		}
	}
	return out
}

// Scan inspects text rune by rune.
func Scan(text string) Result {
	var (
		res Result
		b   strings.Builder
	)
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])

		if r == utf8.RuneError && size == 1 {
			res.Findings = append(res.Findings, Finding{
				Category:  CategoryInvalidUTF8,
				Codepoint: fmt.Sprintf("0x%02X", text[i]),
				Position:  i,
				Severity:  SeverityBlock,
			})
			i++
			continue
		}

		if cat, sev, ok := classify(r); ok {
			res.Findings = append(res.Findings, Finding{
				Category:  cat,
				Codepoint: fmt.Sprintf("U+%04X", r),
				Position:  i,
				Severity:  sev,
			})
			if sev == SeverityBlock {
				i += size
				continue
			}
		}

		b.WriteRune(r)
		i += size
	}
	res.Sanitized = b.String()
	return res
}

func classify(r rune) (string, Severity, bool) {
	switch {
	case isZeroWidth(r):
		return CategoryZeroWidth, SeverityBlock, true
	case isFormatMark(r):
		return CategoryFormatMark, SeverityAudit, true
	case isBidiControl(r):
		return CategoryBidi, SeverityBlock, true
	case r >= 0xE0001 && r <= 0xE007F:
		return CategoryTag, SeverityBlock, true
	case isUnsafeControl(r):
		return CategoryControl, SeverityBlock, true
	case isHomoglyph(r):
		return CategoryHomoglyph, SeverityAudit, true
	}
	return "", "", false
}

func isZeroWidth(r rune) bool {
	switch r {
	case '\u200B', '\uFEFF', '\u2060', '\u180E':
		return true
	}
	return false
}

// isFormatMark covers the joiners used by emoji sequences and Persian or
// Indic text, and the direction marks RTL keyboards insert.
func isFormatMark(r rune) bool {
	switch r {
	case '\u200C', '\u200D', '\u200E', '\u200F':
		return true
	}
	return false
}

func isBidiControl(r rune) bool {
	return (r >= '\u202A' && r <= '\u202E') || (r >= '\u2066' && r <= '\u2069')
}

// isUnsafeControl allows tab, newline and carriage return.
func isUnsafeControl(r rune) bool {
	if r == '\t' || r == '\n' || r == '\r' {
		return false
	}
	return r <= 0x1F || r == 0x7F || (r >= 0x80 && r <= 0x9F)
}

func isHomoglyph(r rune) bool {
	switch {
	case unicode.Is(unicode.Cyrillic, r):
		_, ok := cyrillicLookalikes[r]
		return ok
	case unicode.Is(unicode.Greek, r):
		_, ok := greekLookalikes[r]
		return ok
	}
	return false
}

// Skeleton maps every known look-alike to the Latin letter it imitates and
// drops block-severity characters and format marks, so a Cyrillic "і" in
// "іgnore" or a joiner inside "ignore" no longer hides the word.
func Skeleton(text string) string {
	res := Scan(text)
	if res.Clean() {
		return text
	}
	return strings.Map(func(r rune) rune {
		if isFormatMark(r) {
			return -1
		}
		if l, ok := cyrillicLookalikes[r]; ok {
			return l
		}
		if l, ok := greekLookalikes[r]; ok {
			return l
		}
		return r
	}, res.Sanitized)
}

var cyrillicLookalikes = map[rune]rune{
	'а': 'a', 'А': 'A', 'В': 'B', 'с': 'c', 'С': 'C', 'е': 'e', 'Е': 'E',
	'Н': 'H', 'і': 'i', 'І': 'I', 'К': 'K', 'М': 'M', 'о': 'o', 'О': 'O',
	'р': 'p', 'Р': 'P', 'Т': 'T', 'х': 'x', 'Х': 'X', 'у': 'y', 'У': 'Y',
}

var greekLookalikes = map[rune]rune{
	'Α': 'A', 'Β': 'B', 'Ε': 'E', 'Η': 'H', 'Ι': 'I', 'Κ': 'K', 'Μ': 'M',
	'Ν': 'N', 'Ο': 'O', 'ο': 'o', 'Ρ': 'P', 'Τ': 'T', 'Χ': 'X', 'Υ': 'Y',
	'Ζ': 'Z',
}
