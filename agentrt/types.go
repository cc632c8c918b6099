// Package agentrt defines the shared agent runtime contract (spec §4.8):
// every agent is a polymorphic worker over
// {ClassifyInput, BuildPrompt, ParseOutput, ProduceArtifacts,
// GenerateRoutingHints}, and the base worker handles timing, retry,
// structured logging, JSON extraction/repair, schema validation,
// artifact ID generation, and error normalisation around it.
package agentrt

import (
	"time"

	"github.com/fleetforge/orchestrator/orchcore"
	"github.com/fleetforge/orchestrator/synthesis"
)

// ContextItem is one piece of retrieved knowledge handed to an agent
// (spec Data Model: ContextItem).
type ContextItem struct {
	Type      string // "lesson" | "code" | "history"
	Content   string
	Relevance float64
	Tokens    int
}

// Constraints bounds what an agent is allowed to do this dispatch (e.g.
// a per-call token ceiling independent of the session budget).
type Constraints struct {
	MaxOutputTokens int
	Timeout         time.Duration
}

// Request is the work unit handed to one agent (spec Data Model:
// AgentRequest).
type Request struct {
	AgentType       string
	TaskAnalysis    string
	ContextItems    []ContextItem
	SkillPrompt     string
	PreviousOutputs []synthesis.AgentOutput
	Constraints     Constraints
	Auth            orchcore.Auth

	// ExecutionID and StyleHint carry a parallel_dispatch target's
	// per-target metadata (decision.DispatchTarget) through to the
	// agent's prompt builder, distinguishing otherwise-identical
	// targets of the same agent type (spec §6 "Wire data").
	ExecutionID string
	StyleHint   string
}

// Output is an alias for the shared result envelope, so agentrt and
// synthesis speak the same type without a dependency cycle (agentrt
// depends on synthesis, not the other way around).
type Output = synthesis.AgentOutput
