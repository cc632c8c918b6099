package decision

import "fmt"

// HallucinationContext captures what the decision was trying to
// accomplish with a hallucinated agent, for use in a retry prompt. It is
// deliberately domain-agnostic: only what the decision itself said, no
// hard-coded interpretation of agent names (grounded on the teacher's
// HallucinationContext/extractHallucinationContext).
type HallucinationContext struct {
	AgentName string
	Reasoning string
}

// ValidateAgainstAllowedAgents checks that every target in the decision
// was among the agents actually offered to the LLM this iteration. It
// returns the first agent name not in allowedAgents, or "" if the
// decision is clean.
func ValidateAgainstAllowedAgents(d Decision, allowedAgents map[string]bool) string {
	if len(allowedAgents) == 0 {
		return ""
	}
	candidates := make([]string, 0, len(d.Targets)+1)
	for _, t := range d.Targets {
		candidates = append(candidates, t.AgentID)
	}
	if d.NextAgent != "" && d.NextAgent != "orchestrator" {
		candidates = append(candidates, d.NextAgent)
	}
	for _, agent := range candidates {
		if !allowedAgents[agent] {
			return agent
		}
	}
	return ""
}

// ExtractHallucinationContext builds a HallucinationContext describing
// what the decision was trying to do with the hallucinated agent name.
func ExtractHallucinationContext(d Decision, hallucinatedAgent string) HallucinationContext {
	return HallucinationContext{AgentName: hallucinatedAgent, Reasoning: d.Reasoning}
}

// BuildRetryHint renders a capability hint to append to the next
// iteration's prompt, describing what the hallucinated agent was
// supposed to do without asserting any hard-coded mapping onto real
// agent names (grounded on buildEnhancedRequestForRetry).
func BuildRetryHint(hallCtx HallucinationContext) string {
	if hallCtx.AgentName == "" {
		return ""
	}
	if hallCtx.Reasoning == "" {
		return fmt.Sprintf("[CAPABILITY_HINT: a previous attempt referenced a non-existent agent %q; only dispatch agents from the allowed list.]", hallCtx.AgentName)
	}
	return fmt.Sprintf("[CAPABILITY_HINT: a previous attempt referenced a non-existent agent %q while trying to: %s. Only dispatch agents from the allowed list.]", hallCtx.AgentName, hallCtx.Reasoning)
}
