package decision

import (
	"context"
	"fmt"
	"strings"

	"github.com/fleetforge/orchestrator/orchcore"
)

// Engine asks a CompletionProvider for the next routing decision each
// iteration, then enforces the phase gates on whatever comes back (spec
// §4.6).
type Engine struct {
	completion orchcore.CompletionProvider
	cache      *PlanCache
	logger     orchcore.Logger
}

// NewEngine builds a decision Engine. cache may be nil to disable
// caching.
func NewEngine(completion orchcore.CompletionProvider, cache *PlanCache, logger orchcore.Logger) *Engine {
	if logger == nil {
		logger = orchcore.NoOpLogger{}
	}
	return &Engine{completion: completion, cache: cache, logger: logger}
}

// Outcome is everything the orchestration kernel needs from one decision
// cycle: the corrected decision, any gate violation to log, any
// hallucination that was caught and retried around, and whether the
// result came from cache.
type Outcome struct {
	Decision      Decision
	ControlSignal ControlSignal
	GateViolation *GateViolation
	UsedFallback  bool
	CacheHit      bool
	Usage         orchcore.TokenUsage
}

// Completion exposes the engine's underlying CompletionProvider so callers
// that need a one-off LLM call outside the decision cycle (e.g. the
// kernel's initial task classification) can reuse the same collaborator.
func (e *Engine) Completion() orchcore.CompletionProvider {
	return e.completion
}

// Decide runs one full decision cycle: build the system prompt from ctx,
// call the LLM, parse leniently, validate against allowedAgents,
// retrying once with a capability hint if the LLM hallucinated an agent,
// fall back to a deterministic policy on persistent parse/hallucination
// failure, and finally enforce the phase gates on the result.
func (e *Engine) Decide(ctx context.Context, tctx ThinkingContext, allowedAgents map[string]bool) (Outcome, error) {
	if e.cache != nil {
		key := CacheKey(tctx)
		if cached, ok := e.cache.Get(key); ok {
			corrected, violation := EnforceGates(cached, tctx)
			return Outcome{Decision: corrected, ControlSignal: ParseControlSignal(corrected), GateViolation: violation, CacheHit: true}, nil
		}
	}

	decision, usedFallback, usage, err := e.decideOnce(ctx, tctx, allowedAgents, "")
	if err != nil {
		return Outcome{}, err
	}

	corrected, violation := EnforceGates(decision, tctx)
	if violation != nil {
		e.logger.Warn("phase gate corrected a decision",
			"original_action", string(violation.Original.Action),
			"original_agent", violation.Original.NextAgent,
			"corrected_action", string(corrected.Action),
			"corrected_agent", corrected.NextAgent,
			"reason", violation.Reason)
	}

	if e.cache != nil && !usedFallback {
		e.cache.Set(CacheKey(tctx), decision)
	}

	return Outcome{
		Decision:      corrected,
		ControlSignal: ParseControlSignal(corrected),
		GateViolation: violation,
		UsedFallback:  usedFallback,
		Usage:         usage,
	}, nil
}

func (e *Engine) decideOnce(ctx context.Context, tctx ThinkingContext, allowedAgents map[string]bool, retryHint string) (Decision, bool, orchcore.TokenUsage, error) {
	system := buildSystemPrompt(tctx)
	prompt := buildUserPrompt(tctx)
	if retryHint != "" {
		prompt = prompt + "\n\n" + retryHint
	}

	text, usage, err := e.completion.Complete(ctx, system, []orchcore.Message{{Role: "user", Content: prompt}}, nil)
	if err != nil {
		e.logger.Warn("decision completion call failed, using fallback", "error", err.Error())
		return Fallback(tctx.CompletedAgents), true, usage, nil
	}

	decision, err := Parse(text)
	if err != nil {
		e.logger.Warn("decision parse failed, using fallback", "error", err.Error())
		return Fallback(tctx.CompletedAgents), true, usage, nil
	}

	if hallucinated := ValidateAgainstAllowedAgents(decision, allowedAgents); hallucinated != "" {
		if retryHint != "" {
			// Already retried once; fall back deterministically rather than
			// loop indefinitely on a persistently hallucinating model.
			e.logger.Warn("decision hallucinated agent persisted after retry, using fallback", "agent", hallucinated)
			return Fallback(tctx.CompletedAgents), true, usage, nil
		}
		hallCtx := ExtractHallucinationContext(decision, hallucinated)
		hint := BuildRetryHint(hallCtx)
		retryDecision, usedFallback, retryUsage, err := e.decideOnce(ctx, tctx, allowedAgents, hint)
		combined := orchcore.TokenUsage{InputTokens: usage.InputTokens + retryUsage.InputTokens, OutputTokens: usage.OutputTokens + retryUsage.OutputTokens}
		return retryDecision, usedFallback, combined, err
	}

	return decision, false, usage, nil
}

func buildSystemPrompt(tctx ThinkingContext) string {
	var b strings.Builder
	b.WriteString("You are the routing decision engine for a multi-agent orchestration pipeline. ")
	b.WriteString("Respond with a single JSON object: {\"reasoning\":string, \"action\": one of dispatch|parallel_dispatch|approval|wait|complete|fail, \"nextAgent\":string, \"targets\":[{\"agentId\":string,\"priority\":number,\"executionId\":string,\"styleHint\":string}], \"approvalConfig\":object, \"error\":string}. ")
	fmt.Fprintf(&b, "Current design phase: %s. Stylesheet approved: %t. Screens approved: %t.", tctx.DesignPhase, tctx.StylesheetApproved, tctx.ScreensApproved)
	return b.String()
}

func buildUserPrompt(tctx ThinkingContext) string {
	var b strings.Builder
	b.WriteString(tctx.Prompt)
	if tctx.TaskClassification != "" {
		fmt.Fprintf(&b, "\nTask classification: %s", tctx.TaskClassification)
	}
	if len(tctx.CompletedAgents) > 0 {
		fmt.Fprintf(&b, "\nCompleted agents: %s", strings.Join(tctx.CompletedAgents, ", "))
	}
	if len(tctx.LastOutputs) > 0 {
		fmt.Fprintf(&b, "\nLast outputs: %s", strings.Join(tctx.LastOutputs, " | "))
	}
	if len(tctx.StylePackages) > 0 {
		fmt.Fprintf(&b, "\nStyle packages: %s", strings.Join(tctx.StylePackages, ", "))
	}
	if len(tctx.RejectedStyles) > 0 {
		fmt.Fprintf(&b, "\nRejected styles: %s", strings.Join(tctx.RejectedStyles, ", "))
	}
	if tctx.ApprovalResponse != "" {
		fmt.Fprintf(&b, "\nApproval response: %s", tctx.ApprovalResponse)
	}
	if tctx.Error != "" {
		fmt.Fprintf(&b, "\nLast error: %s", tctx.Error)
	}
	return b.String()
}
