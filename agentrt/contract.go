package agentrt

import (
	"context"

	"github.com/fleetforge/orchestrator/synthesis"
)

// Agent is the shared shape every agent obeys: Execute(request) →
// output (spec §4.8). Most agents are built on BaseWorker rather than
// implementing this directly.
type Agent interface {
	Execute(ctx context.Context, req Request) (Output, error)
}

// Classifier maps a request onto a coarse task classification, used by
// the decision engine's ThinkingContext.
type Classifier interface {
	ClassifyInput(ctx context.Context, req Request) (string, error)
}

// PromptBuilder renders a request into the system/user prompt pair sent
// to the CompletionProvider.
type PromptBuilder interface {
	BuildPrompt(ctx context.Context, req Request) (system, user string, err error)
}

// OutputParser turns raw completion text into the agent-specific result
// object (already JSON-extracted and coerced by the base worker).
type OutputParser interface {
	ParseOutput(ctx context.Context, raw string) (result interface{}, err error)
}

// ArtifactProducer derives file artifacts from a parsed result.
type ArtifactProducer interface {
	ProduceArtifacts(ctx context.Context, result interface{}) ([]Artifact, error)
}

// RoutingHintGenerator derives the inter-agent routing signals from a
// parsed result.
type RoutingHintGenerator interface {
	GenerateRoutingHints(ctx context.Context, result interface{}) (RoutingHints, error)
}

// Artifact and RoutingHints alias the shared synthesis types so agent
// implementations don't need to import synthesis directly for these two
// shapes.
type Artifact = synthesis.Artifact
type RoutingHints = synthesis.RoutingHints
