package orchestrator

import (
	"context"
	"time"

	"github.com/fleetforge/orchestrator/orchcore"
)

// BreakerCompletionProvider wraps a CompletionProvider with circuit
// breaker protection (spec §5 "Suspension points": LLM completion calls
// are a suspension point; the teacher wraps every outbound collaborator
// call in core/circuit_breaker.go's CircuitBreaker). A tripped breaker
// fails fast rather than stalling the orchestration loop on a wedged
// provider.
type BreakerCompletionProvider struct {
	inner   orchcore.CompletionProvider
	breaker *orchcore.CircuitBreaker
	timeout time.Duration
}

// NewBreakerCompletionProvider wraps inner with a circuit breaker built
// from cfg. A zero timeout disables the per-call deadline.
func NewBreakerCompletionProvider(inner orchcore.CompletionProvider, cfg orchcore.CircuitBreakerConfig, clock orchcore.Clock, timeout time.Duration) *BreakerCompletionProvider {
	return &BreakerCompletionProvider{
		inner:   inner,
		breaker: orchcore.NewCircuitBreaker(cfg, clock),
		timeout: timeout,
	}
}

func (p *BreakerCompletionProvider) Complete(ctx context.Context, system string, messages []orchcore.Message, metadata map[string]interface{}) (string, orchcore.TokenUsage, error) {
	var text string
	var usage orchcore.TokenUsage

	run := func() error {
		var err error
		text, usage, err = p.inner.Complete(ctx, system, messages, metadata)
		return err
	}

	var err error
	if p.timeout > 0 {
		err = p.breaker.ExecuteWithTimeout(ctx, p.timeout, run)
	} else {
		err = p.breaker.Execute(ctx, run)
	}
	return text, usage, err
}

// State returns the breaker's current state, for health/metrics surfaces.
func (p *BreakerCompletionProvider) State() string { return p.breaker.GetState() }
