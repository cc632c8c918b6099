package guardrail

import (
	"context"
	"regexp"
	"strings"
)

// MaxInputLength bounds a single request field; content longer than this
// is flagged as a warning rather than blocked outright, since truncation
// is the context manager's job, not the guardrail's.
const MaxInputLength = 50000

// promptInjectionPatterns catches the common "ignore your instructions"
// family of attacks against the system prompt.
var promptInjectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|prior|above)\s+instructions`),
	regexp.MustCompile(`(?i)disregard\s+(all\s+)?(previous|prior|above)\s+(instructions|rules)`),
	regexp.MustCompile(`(?i)you\s+are\s+now\s+(in\s+)?(developer|dan|jailbreak)\s*mode`),
	regexp.MustCompile(`(?i)reveal\s+(your\s+)?(system\s+prompt|instructions)`),
	regexp.MustCompile(`(?i)forget\s+everything\s+(you|above)`),
}

// PromptInjectionGuardrail flags text resembling a system-prompt override
// attempt.
type PromptInjectionGuardrail struct{}

func (PromptInjectionGuardrail) Name() string { return "prompt_injection" }

func (PromptInjectionGuardrail) Check(_ context.Context, content string) ([]Finding, error) {
	var findings []Finding
	for _, pat := range promptInjectionPatterns {
		if loc := pat.FindStringIndex(content); loc != nil {
			findings = append(findings, Finding{
				GuardrailName: "prompt_injection",
				Severity:      SeverityBlocking,
				Message:       "content resembles a prompt injection attempt",
				Span:          content[loc[0]:loc[1]],
			})
		}
	}
	return findings, nil
}

// piiPatterns catches a small set of common PII shapes. This is a coarse
// heuristic screen, not a compliance-grade PII detector.
var piiPatterns = map[string]*regexp.Regexp{
	"ssn":         regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
	"credit_card": regexp.MustCompile(`\b(?:\d[ -]?){13,16}\b`),
	"email":       regexp.MustCompile(`\b[\w.+-]+@[\w-]+\.[\w.-]+\b`),
}

// PIIGuardrail flags text that contains an apparent SSN, credit card
// number, or email address.
type PIIGuardrail struct{}

func (PIIGuardrail) Name() string { return "pii" }

func (PIIGuardrail) Check(_ context.Context, content string) ([]Finding, error) {
	var findings []Finding
	for kind, pat := range piiPatterns {
		if loc := pat.FindStringIndex(content); loc != nil {
			findings = append(findings, Finding{
				GuardrailName: "pii",
				Severity:      SeverityWarning,
				Message:       "content appears to contain " + kind,
				Span:          content[loc[0]:loc[1]],
			})
		}
	}
	return findings, nil
}

// LengthGuardrail flags input that exceeds MaxInputLength.
type LengthGuardrail struct {
	MaxLength int
}

func NewLengthGuardrail() LengthGuardrail {
	return LengthGuardrail{MaxLength: MaxInputLength}
}

func (g LengthGuardrail) Name() string { return "length" }

func (g LengthGuardrail) Check(_ context.Context, content string) ([]Finding, error) {
	max := g.MaxLength
	if max <= 0 {
		max = MaxInputLength
	}
	if len(content) <= max {
		return nil, nil
	}
	return []Finding{{
		GuardrailName: "length",
		Severity:      SeverityWarning,
		Message:       "content exceeds maximum input length",
	}}, nil
}

// maliciousContentPatterns catches requests to produce obviously harmful
// payloads (shell wipeouts, credential exfiltration helpers). This is
// intentionally narrow: it screens the orchestration layer's own input,
// not a general content-safety classifier.
var maliciousContentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)rm\s+-rf\s+/`),
	regexp.MustCompile(`(?i)drop\s+(table|database)\s+\w+\s*;?\s*--`),
	regexp.MustCompile(`(?i)curl\b.*\|\s*(ba)?sh\b`),
}

// MaliciousContentGuardrail flags a small set of destructive command
// patterns in requested content.
type MaliciousContentGuardrail struct{}

func (MaliciousContentGuardrail) Name() string { return "malicious_content" }

func (MaliciousContentGuardrail) Check(_ context.Context, content string) ([]Finding, error) {
	var findings []Finding
	for _, pat := range maliciousContentPatterns {
		if loc := pat.FindStringIndex(content); loc != nil {
			findings = append(findings, Finding{
				GuardrailName: "malicious_content",
				Severity:      SeverityBlocking,
				Message:       "content requests a destructive operation",
				Span:          content[loc[0]:loc[1]],
			})
		}
	}
	return findings, nil
}

// RateHint is not itself a rate limiter (that belongs to the transport
// layer per spec Non-goals) but flags content that looks like an attempt
// to script repeated calls inline, e.g. "run this 10000 times".
type RateHintGuardrail struct{}

func (RateHintGuardrail) Name() string { return "rate_hint" }

var repeatCountPattern = regexp.MustCompile(`(?i)\brun\s+this\s+(\d{4,})\s+times\b`)

func (RateHintGuardrail) Check(_ context.Context, content string) ([]Finding, error) {
	if loc := repeatCountPattern.FindStringIndex(content); loc != nil {
		return []Finding{{
			GuardrailName: "rate_hint",
			Severity:      SeverityWarning,
			Message:       "content requests an unusually large repeat count",
			Span:          strings.TrimSpace(content[loc[0]:loc[1]]),
		}}, nil
	}
	return nil, nil
}

// DefaultInputChain is the built-in input guardrail chain, run in this
// order: cheap checks first, pattern scans last.
func DefaultInputChain() []Guardrail {
	return []Guardrail{
		NewLengthGuardrail(),
		PromptInjectionGuardrail{},
		MaliciousContentGuardrail{},
		PIIGuardrail{},
		RateHintGuardrail{},
	}
}
