package guardrail

import (
	"context"
	"fmt"

	"github.com/fleetforge/orchestrator/orchcore"
)

// Config controls how the Engine treats findings (spec §4.3 / Config
// ambient section: Guardrails.Enabled/StrictMode/LogViolations).
type Config struct {
	Enabled      bool
	StrictMode   bool
	LogViolations bool
}

// Engine runs an ordered set of input and output guardrails. Input
// guardrails screen requests before dispatch; output guardrails screen
// agent responses before they're accepted into the session.
type Engine struct {
	cfg     Config
	input   []Guardrail
	output  []Guardrail
	logger  orchcore.Logger
}

// NewEngine builds an Engine with its input and output guardrail chains,
// run in the given order.
func NewEngine(cfg Config, logger orchcore.Logger, input, output []Guardrail) *Engine {
	if logger == nil {
		logger = orchcore.NoOpLogger{}
	}
	return &Engine{cfg: cfg, input: input, output: output, logger: logger}
}

// CheckInput runs the input guardrail chain over content.
func (e *Engine) CheckInput(ctx context.Context, content string) (Result, error) {
	return e.run(ctx, e.input, content)
}

// CheckOutput runs the output guardrail chain over content.
func (e *Engine) CheckOutput(ctx context.Context, content string) (Result, error) {
	return e.run(ctx, e.output, content)
}

func (e *Engine) run(ctx context.Context, chain []Guardrail, content string) (Result, error) {
	if !e.cfg.Enabled {
		return Result{}, nil
	}

	var findings []Finding
	for _, g := range chain {
		found, err := g.Check(ctx, content)
		if err != nil {
			return Result{}, orchcore.NewFrameworkError(fmt.Sprintf("guardrail.%s", g.Name()), "guardrail", err)
		}
		findings = append(findings, found...)
	}

	result := Result{Findings: findings}
	for _, f := range findings {
		if e.cfg.LogViolations {
			e.logger.Warn("guardrail finding", "guardrail", f.GuardrailName, "severity", string(f.Severity), "message", f.Message)
		}
		if f.Severity == SeverityBlocking && e.cfg.StrictMode {
			result.Blocked = true
		}
	}

	if result.Blocked {
		return result, orchcore.NewFrameworkError("guardrail.run", "security", orchcore.ErrSecurityViolation)
	}
	return result, nil
}
