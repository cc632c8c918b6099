package decision

const (
	AgentAnalyst       = "analyst"
	AgentArchitect     = "architect"
	AgentUIDesigner    = "ui_designer"
	AgentProjectManager = "project_manager"
)

// EnforceGates inspects a proposed Decision against the phase state
// machine and rewrites it if it would violate a gate (spec §4.6 step 3 /
// I3). It returns the (possibly corrected) decision and, if a correction
// was made, the GateViolation describing it for the caller to warn-log.
//
// A ui_designer dispatch is one of two distinct stages that share an
// agent type: the style-competition dispatch (one UI-Designer per
// candidate style package, run before any approval — spec §8 scenario 2)
// and the full-screens dispatch (a single UI-Designer, gated on
// stylesheetApproved). They are told apart by styleHint on each target
// rather than by agent name alone: every target in a style-competition
// dispatch carries the style package it is developing, while a
// full-screens dispatch carries none.
func EnforceGates(proposed Decision, ctx ThinkingContext) (Decision, *GateViolation) {
	if proposed.Action != ActionDispatch && proposed.Action != ActionParallelDispatch {
		return proposed, nil
	}

	if uiTargets := targetsForAgent(proposed, AgentUIDesigner); len(uiTargets) > 0 {
		if len(ctx.StylePackages) == 0 {
			corrected := redirectToAnalyst()
			return corrected, &GateViolation{
				Original: proposed, Corrected: corrected,
				Reason: "ui_designer dispatched with no style packages available",
			}
		}
		if stylesheetStageDispatch(uiTargets) {
			return proposed, nil
		}
		if !ctx.StylesheetApproved {
			corrected := Decision{
				Reasoning: "style packages exist but stylesheet is not yet approved",
				Action:    ActionApproval,
				NextAgent: "orchestrator",
				ApprovalConfig: &ApprovalConfig{
					Kind:          "style_selection",
					Options:       ctx.StylePackages,
					MaxIterations: 5,
				},
			}
			return corrected, &GateViolation{
				Original: proposed, Corrected: corrected,
				Reason: "ui_designer screens dispatched before stylesheet approval",
			}
		}
	}

	if targetsAgent(proposed, AgentProjectManager) && !ctx.ScreensApproved {
		corrected := Decision{
			Reasoning: "screens are not yet approved",
			Action:    ActionApproval,
			NextAgent: "orchestrator",
			ApprovalConfig: &ApprovalConfig{
				Kind:          "design_review",
				MaxIterations: 3,
			},
		}
		return corrected, &GateViolation{
			Original: proposed, Corrected: corrected,
			Reason: "project_manager dispatched before screen approval",
		}
	}

	return proposed, nil
}

func redirectToAnalyst() Decision {
	return Decision{
		Reasoning: "no style packages exist yet; researching style options before design",
		Action:    ActionDispatch,
		NextAgent: AgentAnalyst,
		Targets:   []DispatchTarget{{AgentID: AgentAnalyst}},
	}
}

// stylesheetStageDispatch reports whether every target in a ui_designer
// dispatch carries a styleHint, marking it as the style-competition stage
// rather than the gated full-screens stage.
func stylesheetStageDispatch(targets []DispatchTarget) bool {
	for _, t := range targets {
		if t.StyleHint == "" {
			return false
		}
	}
	return true
}

// targetsForAgent returns every target of d routed to agent, including a
// synthesized single target when d used the single-dispatch nextAgent
// field instead of the targets array.
func targetsForAgent(d Decision, agent string) []DispatchTarget {
	var out []DispatchTarget
	for _, t := range d.Targets {
		if t.AgentID == agent {
			out = append(out, t)
		}
	}
	if len(out) == 0 && d.NextAgent == agent {
		out = append(out, DispatchTarget{AgentID: agent})
	}
	return out
}

func targetsAgent(d Decision, agent string) bool {
	return len(targetsForAgent(d, agent)) > 0
}
