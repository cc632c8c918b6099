// Package decision implements the decision engine and phase-gate
// enforcer (spec §4.6): it asks a CompletionProvider for the next routing
// decision, parses it leniently, and then rewrites it if it would
// violate the phase state machine. The enforcer, not the LLM, is the
// safety kernel.
package decision

// Action is the routing action proposed (or corrected) each iteration.
type Action string

const (
	ActionDispatch         Action = "dispatch"
	ActionParallelDispatch Action = "parallel_dispatch"
	ActionApproval         Action = "approval"
	ActionWait             Action = "wait"
	ActionComplete         Action = "complete"
	ActionFail             Action = "fail"
)

// DesignPhase tracks the UI-design sub-phase independently of the
// high-level orchestration phase (spec §4.6 state machine).
type DesignPhase string

const (
	DesignPhaseResearch   DesignPhase = "research"
	DesignPhaseStylesheet DesignPhase = "stylesheet"
	DesignPhaseScreens    DesignPhase = "screens"
	DesignPhaseComplete   DesignPhase = "complete"
)

// OrchestrationPhase is the high-level session phase.
type OrchestrationPhase string

const (
	PhaseAnalyzing OrchestrationPhase = "analyzing"
	PhaseDesigning OrchestrationPhase = "designing"
	PhaseBuilding  OrchestrationPhase = "building"
	PhaseTesting   OrchestrationPhase = "testing"
	PhaseReviewing OrchestrationPhase = "reviewing"
	PhaseComplete  OrchestrationPhase = "complete"
	PhaseFailed    OrchestrationPhase = "failed"
	PhasePaused    OrchestrationPhase = "paused"
)

// ControlSignal is a special instruction parsed out of a decision's
// reasoning string when it targets the orchestrator itself rather than
// an agent (spec §4.6: "Special actions parsed from a decision's
// reasoning string when nextAgent = orchestrator").
type ControlSignal string

const (
	ControlNone     ControlSignal = ""
	ControlComplete ControlSignal = "COMPLETE"
	ControlPause    ControlSignal = "PAUSE"
	ControlEscalate ControlSignal = "ESCALATE"
	ControlAbort    ControlSignal = "ABORT"
)

// ApprovalConfig is carried by an ActionApproval decision.
type ApprovalConfig struct {
	Kind          string // e.g. "style_selection", "design_review"
	Options       []string
	IterationCount int
	MaxIterations int
}

// DispatchTarget is one target of a dispatch or parallel_dispatch action
// (spec §6 "Wire data": targets: [{agentId, priority, executionId?,
// styleHint?}]). ExecutionID distinguishes otherwise-identical targets in
// a parallel_dispatch (e.g. three ui_designer targets exploring different
// style packages); StyleHint carries which style package a UI-Designer
// target should develop, and is what the phase gate uses to tell the
// style-competition dispatch apart from the full-screens dispatch (spec
// §4.6 step 3).
type DispatchTarget struct {
	AgentID     string
	Priority    int
	ExecutionID string
	StyleHint   string
}

// Decision is the proposed next step for one loop iteration (spec Data
// Model: Decision). Targets intentionally preserves duplicates: a
// parallel_dispatch of N targets must produce N outputs even when several
// targets share an agent type (spec §8 scenario 2: three UI-Designers
// dispatched in parallel). Only routing-hint arrays (SuggestNext,
// SkipAgents) are deduped by agent name, never dispatch targets.
type Decision struct {
	Reasoning      string
	Action         Action
	NextAgent      string // target agent, or "orchestrator" for a control signal
	Targets        []DispatchTarget
	ApprovalConfig *ApprovalConfig
	Error          string
}

// ThinkingContext is the input built for the LLM each iteration (spec
// §4.6 step 1).
type ThinkingContext struct {
	Prompt             string
	TaskClassification string
	CompletedAgents    []string
	LastOutputs        []string
	StylePackages      []string
	RejectedStyles     []string
	SelectedStyleID    string
	ApprovalResponse   string
	Error              string
	DesignPhase        DesignPhase
	StylesheetApproved bool
	ScreensApproved    bool
}

// GateViolation records a phase-gate correction for the warn log (spec
// §4.6 step 3: "Warn-log the violation (original action + corrected
// action + reason)").
type GateViolation struct {
	Original  Decision
	Corrected Decision
	Reason    string
}
