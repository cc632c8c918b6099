package guardrail

import "strings"

// Mask replaces every occurrence of a finding's Span in content with a
// fixed-width redaction marker, so blocked content can still be logged
// for audit purposes without leaking the secret or PII itself.
func Mask(content string, findings []Finding) string {
	masked := content
	for _, f := range findings {
		if f.Span == "" {
			continue
		}
		masked = strings.ReplaceAll(masked, f.Span, "[REDACTED:"+f.GuardrailName+"]")
	}
	return masked
}
