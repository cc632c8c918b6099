package decision

// mandatoryAgentOrder is the deterministic fallback pipeline used when the
// LLM's decision fails to parse (spec §4.6 step 4): "pick the next
// uncompleted mandatory agent".
var mandatoryAgentOrder = []string{AgentAnalyst, AgentArchitect, AgentUIDesigner, AgentProjectManager}

// Fallback computes the deterministic next decision when LLM parsing
// fails. It walks mandatoryAgentOrder, dispatching the first agent not
// yet in completedAgents; if every mandatory agent has completed, it
// proposes ActionComplete. The result still passes through EnforceGates,
// since the fallback path is exactly as capable of proposing a
// premature ui_designer/project_manager dispatch as the LLM path.
func Fallback(completedAgents []string) Decision {
	completed := make(map[string]bool, len(completedAgents))
	for _, a := range completedAgents {
		completed[a] = true
	}

	for _, agent := range mandatoryAgentOrder {
		if !completed[agent] {
			return Decision{
				Reasoning: "deterministic fallback: next uncompleted mandatory agent",
				Action:    ActionDispatch,
				NextAgent: agent,
				Targets:   []DispatchTarget{{AgentID: agent}},
			}
		}
	}

	return Decision{
		Reasoning: "deterministic fallback: all mandatory agents completed",
		Action:    ActionComplete,
		NextAgent: "orchestrator",
	}
}
