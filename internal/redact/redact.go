// Package redact removes sensitive data before it leaves the guardrail.
//
// Two mechanisms live here. Sanitizer drops whole fields from outbound
// records by name. Redact scrubs free text (query excerpts, resource dumps)
// that is about to be written to the audit trail.
package redact

import (
	"regexp"
)

var sensitivePatterns = []*regexp.Regexp{
	// key=value style credentials
	regexp.MustCompile(`(?i)(password|passwd|pwd|secret)\s*[=:]\s*['"]?[^\s'"]{8,}['"]?`),
	regexp.MustCompile(`(?i)(api_key|apikey|api-key|secret_key|access_token|auth_token|refresh_token)\s*[=:]\s*['"]?[A-Za-z0-9_\-.]{16,}['"]?`),

	// Bearer tokens and JWTs
	regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9_\-.]{20,}`),
	regexp.MustCompile(`eyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}`),

	// Private keys
	regexp.MustCompile(`-----BEGIN (RSA |EC |DSA |OPENSSH |PGP )?PRIVATE KEY-----`),

	// US SSN and Indian Aadhaar numbers
	regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
	regexp.MustCompile(`\b\d{4}\s\d{4}\s\d{4}\b`),

	// Payment card numbers (13-19 digits, optional separators)
	regexp.MustCompile(`\b(?:\d[ -]?){12,18}\d\b`),

	// Basic auth in URLs
	regexp.MustCompile(`https?://[^:/\s]+:[^@\s]+@`),
}

const redactedPlaceholder = "[REDACTED]"

// Redact replaces every recognised secret or identifier in input.
func Redact(input string) string {
	result := input
	for _, pattern := range sensitivePatterns {
		result = pattern.ReplaceAllString(result, redactedPlaceholder)
	}
	return result
}

// RedactArgs applies Redact to each element.
func RedactArgs(args []string) []string {
	result := make([]string, len(args))
	for i, arg := range args {
		result[i] = Redact(arg)
	}
	return result
}
