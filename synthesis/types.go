// Package synthesis folds a batch of AgentOutput results into one
// SynthesisResult (spec §4.5): human summaries, file/routing conflict
// detection, next-step suggestions, completion percentage, and
// last-writer-wins artifact merging.
package synthesis

import "time"

// Metrics carries the timing/token accounting for one agent execution.
type Metrics struct {
	DurationMs   int64
	InputTokens  int
	OutputTokens int
}

// RoutingHints are the inter-agent signals carried inside each output
// (spec Data Model: RoutingHints).
type RoutingHints struct {
	SuggestNext   []string
	SkipAgents    []string
	NeedsApproval bool
	HasFailures   bool
	IsComplete    bool
	BlockedBy     string
	Notes         string

	// StylePackages lists style-package identifiers newly produced by
	// this output (spec §4.6 step 3). The kernel folds these into
	// session.State.StylePackages so the phase gate and the decision
	// engine can see them on the next iteration.
	StylePackages []string
}

// Artifact is a generated file owned by the producing output (spec Data
// Model: Artifact). Path is expected to already be sanitised (spec I6)
// by the time it reaches this package; MergeArtifacts re-sanitises
// defensively so a stray unsanitised path can never corrupt the merge
// key.
type Artifact struct {
	ID       string
	Type     string
	Path     string
	Content  string
	Metadata map[string]interface{}
}

// AgentOutput is the result envelope produced by one agent execution
// (spec Data Model: AgentOutput).
type AgentOutput struct {
	AgentID        string
	Success        bool
	Result         interface{}
	Artifacts      []Artifact
	RoutingHints   RoutingHints
	Metrics        Metrics
	Errors         []string
	Classification string // optional task classification from the agent's ClassifyInput hook (spec §4.8)
}

// ConflictSeverity mirrors spec §4.5's fixed severities.
type ConflictSeverity string

const (
	SeverityMedium ConflictSeverity = "medium"
	SeverityLow    ConflictSeverity = "low"
)

// Conflict describes a single detected file or routing conflict.
type Conflict struct {
	Kind     string // "file_conflict" | "routing_conflict"
	Severity ConflictSeverity
	Path     string   // set for file_conflict
	AgentIDs []string // agents involved
	Detail   string
}

// MergedArtifact is the outcome of merging one path across outputs.
type MergedArtifact struct {
	Artifact    Artifact
	Overwritten bool
}

// SynthesisResult is the fold of an AgentOutput batch (spec §4.5).
type SynthesisResult struct {
	Summaries         []string
	Conflicts         []Conflict
	NextSteps         []string
	CompletionPercent int
	MergedArtifacts   map[string]MergedArtifact
	GeneratedAt       time.Time
}
