// Package guardrail implements input/output content screening (spec
// §4.3): an ordered pipeline of checks run over requests before dispatch
// and over agent outputs before they're accepted, with a strict mode that
// turns violations into terminal security errors instead of warnings.
package guardrail

import "context"

// Severity classifies how serious a guardrail finding is.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityBlocking Severity = "blocking"
)

// Finding is one guardrail violation.
type Finding struct {
	GuardrailName string
	Severity      Severity
	Message       string
	// Span, if non-empty, is the substring of the checked text that
	// triggered the finding, useful for masking before logging.
	Span string
}

// Result is the outcome of running the full guardrail pipeline over one
// piece of content.
type Result struct {
	Findings []Finding
	Blocked  bool
}

// Clean reports whether no findings were raised at all.
func (r Result) Clean() bool { return len(r.Findings) == 0 }

// Guardrail screens one piece of text (a request field, or an agent's raw
// output) and reports any findings. Implementations must not mutate ctx
// or the input and should be safe for concurrent use.
type Guardrail interface {
	Name() string
	Check(ctx context.Context, content string) ([]Finding, error)
}
