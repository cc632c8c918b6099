package orchestrator

import "github.com/fleetforge/orchestrator/decision"

// ApprovalResponse is what a caller supplies to ResumeOrchestration for a
// session currently paused on an ApprovalRequest.
type ApprovalResponse struct {
	Approved bool
	Selected string // e.g. the chosen style package id, for style_selection
}

// applyApprovalConfig builds the ApprovalRequest the kernel surfaces to
// the caller when the decision engine proposes ActionApproval (spec
// §4.7 "Approval suspension").
func applyApprovalConfig(cfg *decision.ApprovalConfig) *ApprovalRequest {
	if cfg == nil {
		return &ApprovalRequest{Type: "unknown"}
	}
	return &ApprovalRequest{Type: cfg.Kind, Options: cfg.Options}
}

// applyApprovalResponse feeds a resumed approval into session state (spec
// §4.7: "on approval sets the corresponding flag ... on rejection
// increments styleIteration, appends to rejectedStyles, and re-enters the
// same sub-phase bounded by maxIterations per sub-phase").
func applyApprovalResponse(state *SessionState, kind string, resp ApprovalResponse) {
	switch kind {
	case "style_selection":
		if resp.Approved {
			state.StylesheetApproved = true
			state.SelectedStyleID = resp.Selected
		} else {
			state.StyleIteration++
			if resp.Selected != "" {
				state.RejectedStyles = append(state.RejectedStyles, resp.Selected)
			}
		}
	case "design_review":
		if resp.Approved {
			state.ScreensApproved = true
		} else {
			state.StyleIteration++
		}
	}
	state.Phase = decision.PhaseDesigning
}
