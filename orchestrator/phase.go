package orchestrator

import "github.com/fleetforge/orchestrator/decision"

// updatePhase advances session.State.Phase based on which mandatory
// agents have completed (spec I2: phase monotonicity — designPhase/phase
// only ever move forward, never backward, except for the bounded
// re-iteration a rejected approval causes within the same phase).
func updatePhase(state *SessionState) {
	if state.Phase == decision.PhaseFailed || state.Phase == decision.PhasePaused || state.Phase == decision.PhaseComplete {
		return
	}

	switch {
	case containsAgent(state.CompletedAgents, decision.AgentProjectManager):
		state.Phase = decision.PhaseComplete
	case containsAgent(state.CompletedAgents, decision.AgentUIDesigner):
		state.Phase = decision.PhaseReviewing
	case containsAgent(state.CompletedAgents, decision.AgentArchitect):
		state.Phase = decision.PhaseBuilding
	case containsAgent(state.CompletedAgents, decision.AgentAnalyst):
		state.Phase = decision.PhaseDesigning
	default:
		state.Phase = decision.PhaseAnalyzing
	}
}

func containsAgent(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

// mergeUnique appends any of additions not already present in existing,
// preserving existing's order (used to fold an output's newly produced
// style packages into session state without duplicating ones already
// recorded by an earlier dispatch).
func mergeUnique(existing, additions []string) []string {
	if len(additions) == 0 {
		return existing
	}
	seen := make(map[string]bool, len(existing))
	for _, s := range existing {
		seen[s] = true
	}
	for _, a := range additions {
		if !seen[a] {
			seen[a] = true
			existing = append(existing, a)
		}
	}
	return existing
}

// advanceDesignPhase moves designPhase forward once its gating condition
// is met (spec §4.6 state machine: research → stylesheet → screens →
// complete).
func advanceDesignPhase(state *SessionState) {
	switch state.DesignPhase {
	case decision.DesignPhaseResearch:
		if len(state.StylePackages) > 0 {
			state.DesignPhase = decision.DesignPhaseStylesheet
		}
	case decision.DesignPhaseStylesheet:
		if state.StylesheetApproved {
			state.DesignPhase = decision.DesignPhaseScreens
		}
	case decision.DesignPhaseScreens:
		if state.ScreensApproved {
			state.DesignPhase = decision.DesignPhaseComplete
		}
	}
}
