// Package patterns holds the precompiled detection pattern sets used by the
// guardrail gates: SQL metacharacter sequences, prompt-injection phrasing,
// off-topic phrasing, ambiguous scope phrases and sensitive field names.
//
// A Library is built once at startup from the built-in sets plus any enabled
// pattern packs and is read-only afterwards. Packs can only add patterns.
package patterns

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// BuiltinVersion identifies the built-in pattern sets.
const BuiltinVersion = "2026.10"

// ErrInvalidPattern is wrapped by Build when a pattern fails to compile.
var ErrInvalidPattern = errors.New("invalid pattern")

// Set names.
const (
	SetSQLInjection    = "sql_injection"
	SetPromptInjection = "prompt_injection"
	SetOffTopic        = "off_topic"
)

// Pattern is a compiled, case-insensitive detection expression.
type Pattern struct {
	ID   string
	Expr string
	re   *regexp.Regexp
}

// Match reports whether the pattern occurs anywhere in s.
func (p Pattern) Match(s string) bool { return p.re.MatchString(s) }

// AmbiguityRule asks Question when any of Phrases occurs in a query.
type AmbiguityRule struct {
	Phrases  []string `yaml:"phrases"`
	Question string   `yaml:"question"`
}

// Library is an immutable set of compiled pattern sets.
type Library struct {
	version         string
	sqlInjection    []Pattern
	promptInjection []Pattern
	offTopic        []Pattern
	ambiguity       []AmbiguityRule
	sensitiveFields []string
	packs           []string
}

// Version is the built-in version followed by name@version of every merged pack.
func (l *Library) Version() string {
	if len(l.packs) == 0 {
		return l.version
	}
	return l.version + "+" + strings.Join(l.packs, "+")
}

// Accessors return copies so callers cannot mutate the library.

func (l *Library) SQLInjection() []Pattern    { return append([]Pattern(nil), l.sqlInjection...) }
func (l *Library) PromptInjection() []Pattern { return append([]Pattern(nil), l.promptInjection...) }
func (l *Library) OffTopic() []Pattern        { return append([]Pattern(nil), l.offTopic...) }
func (l *Library) SensitiveFields() []string  { return append([]string(nil), l.sensitiveFields...) }

func (l *Library) Ambiguity() []AmbiguityRule {
	out := make([]AmbiguityRule, len(l.ambiguity))
	for i, r := range l.ambiguity {
		out[i] = AmbiguityRule{Phrases: append([]string(nil), r.Phrases...), Question: r.Question}
	}
	return out
}

// FirstMatch returns the first pattern of set that matches s.
func FirstMatch(set []Pattern, s string) (Pattern, bool) {
	for _, p := range set {
		if p.Match(s) {
			return p, true
		}
	}
	return Pattern{}, false
}

// AllMatches returns every pattern of set that matches s, in set order.
func AllMatches(set []Pattern, s string) []Pattern {
	var out []Pattern
	for _, p := range set {
		if p.Match(s) {
			out = append(out, p)
		}
	}
	return out
}

// PatternSpec is the uncompiled form of a Pattern. In YAML it may be written
// as a bare string or as {id, pattern}.
type PatternSpec struct {
	ID      string `yaml:"id"`
	Pattern string `yaml:"pattern"`
}

func (p *PatternSpec) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		p.Pattern = value.Value
		return nil
	}
	type plain PatternSpec
	var v plain
	if err := value.Decode(&v); err != nil {
		return err
	}
	*p = PatternSpec(v)
	return nil
}

// Build compiles the built-in sets and appends every pack in order.
func Build(packs ...*Pack) (*Library, error) {
	lib := &Library{version: BuiltinVersion}

	var err error
	if lib.sqlInjection, err = compileSet(SetSQLInjection, builtinSQLInjection); err != nil {
		return nil, err
	}
	if lib.promptInjection, err = compileSet(SetPromptInjection, builtinPromptInjection); err != nil {
		return nil, err
	}
	if lib.offTopic, err = compileSet(SetOffTopic, builtinOffTopic); err != nil {
		return nil, err
	}
	lib.ambiguity = append(lib.ambiguity, builtinAmbiguity...)
	lib.sensitiveFields = appendFields(nil, builtinSensitiveFields)

	for _, pack := range packs {
		if pack == nil {
			continue
		}
		if err := lib.merge(pack); err != nil {
			return nil, fmt.Errorf("pack %q: %w", pack.Name, err)
		}
	}
	return lib, nil
}

// Default returns the built-in library. The built-in literals are known to
// compile, so failure here is a programming error.
func Default() *Library {
	lib, err := Build()
	if err != nil {
		panic(err)
	}
	return lib
}

func (l *Library) merge(pack *Pack) error {
	sql, err := compileSet(SetSQLInjection, pack.SQLInjection)
	if err != nil {
		return err
	}
	prompt, err := compileSet(SetPromptInjection, pack.PromptInjection)
	if err != nil {
		return err
	}
	off, err := compileSet(SetOffTopic, pack.OffTopic)
	if err != nil {
		return err
	}
	for _, r := range pack.Ambiguity {
		if r.Question == "" || len(r.Phrases) == 0 {
			return fmt.Errorf("%w: ambiguity rule needs phrases and a question", ErrInvalidPattern)
		}
	}

	l.sqlInjection = append(l.sqlInjection, sql...)
	l.promptInjection = append(l.promptInjection, prompt...)
	l.offTopic = append(l.offTopic, off...)
	l.ambiguity = append(l.ambiguity, pack.Ambiguity...)
	l.sensitiveFields = appendFields(l.sensitiveFields, pack.SensitiveFields)

	tag := pack.Name
	if pack.PackVersion != "" {
		tag += "@" + pack.PackVersion
	}
	l.packs = append(l.packs, tag)
	return nil
}

func compileSet(set string, specs []PatternSpec) ([]Pattern, error) {
	out := make([]Pattern, 0, len(specs))
	for i, s := range specs {
		expr := strings.TrimSpace(s.Pattern)
		if expr == "" {
			return nil, fmt.Errorf("%w: %s[%d] is empty", ErrInvalidPattern, set, i)
		}
		if !strings.HasPrefix(expr, "(?i)") {
			expr = "(?i)" + expr
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("%w: %s[%d]: %v", ErrInvalidPattern, set, i, err)
		}
		id := s.ID
		if id == "" {
			id = fmt.Sprintf("%s-%d", set, i)
		}
		out = append(out, Pattern{ID: id, Expr: s.Pattern, re: re})
	}
	return out, nil
}

// appendFields unions lowercase field roots, preserving first-seen order.
func appendFields(dst, src []string) []string {
	seen := make(map[string]bool, len(dst))
	for _, f := range dst {
		seen[f] = true
	}
	for _, f := range src {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		dst = append(dst, f)
	}
	return dst
}
