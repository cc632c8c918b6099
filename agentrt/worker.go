package agentrt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fleetforge/orchestrator/decision"
	"github.com/fleetforge/orchestrator/orchcore"
	"github.com/fleetforge/orchestrator/synthesis"
	"github.com/fleetforge/orchestrator/validation"
)

// BaseWorker implements the ambient plumbing every agent needs around
// its domain-specific ClassifyInput/BuildPrompt/ParseOutput/
// ProduceArtifacts/GenerateRoutingHints hooks (spec §4.8): timing, retry,
// structured logging with tenant context, JSON extraction/repair, schema
// validation, artifact ID generation, and error normalisation.
type BaseWorker struct {
	AgentType  string
	Completion orchcore.CompletionProvider
	Prompts    PromptBuilder
	Parser     OutputParser
	Artifacts  ArtifactProducer
	Hints      RoutingHintGenerator
	Classifier Classifier // optional; nil skips per-dispatch classification
	Schema     string     // JSON Schema for the parsed result; empty skips validation

	Clock      orchcore.Clock
	IDs        orchcore.IDGenerator
	Logger     orchcore.Logger
	MaxRetries int
}

// NewBaseWorker builds a BaseWorker with framework defaults for any
// collaborator left nil.
func NewBaseWorker(agentType string, completion orchcore.CompletionProvider, prompts PromptBuilder, parser OutputParser, artifacts ArtifactProducer, hints RoutingHintGenerator) *BaseWorker {
	return &BaseWorker{
		AgentType:  agentType,
		Completion: completion,
		Prompts:    prompts,
		Parser:     parser,
		Artifacts:  artifacts,
		Hints:      hints,
		Clock:      orchcore.SystemClock{},
		IDs:        orchcore.NewSequentialIDGenerator(agentType),
		Logger:     orchcore.NoOpLogger{},
		MaxRetries: 3,
	}
}

// WithClassifier attaches an optional per-dispatch task classifier (spec
// §4.8's ClassifyInput hook), whose result feeds the next decision
// cycle's ThinkingContext.TaskClassification via the returned Output.
func (w *BaseWorker) WithClassifier(c Classifier) *BaseWorker {
	w.Classifier = c
	return w
}

// Execute runs one full dispatch: build prompt, call the LLM with
// retry, extract/repair JSON, validate against Schema if set, derive
// artifacts and routing hints, and normalise any failure into a
// well-formed Output with Success=false rather than a bare error, so the
// orchestration loop can always synthesise something.
func (w *BaseWorker) Execute(ctx context.Context, req Request) (Output, error) {
	log := w.Logger.WithFields(map[string]interface{}{
		"agent_type": w.AgentType,
		"tenant_id":  req.Auth.TenantID,
		"session_id": req.Auth.SessionID,
	})
	start := w.Clock.Now()

	classification := w.classify(ctx, req, log)

	system, user, err := w.Prompts.BuildPrompt(ctx, req)
	if err != nil {
		return w.failure(start, fmt.Errorf("build prompt: %w", err)), nil
	}

	raw, usage, err := w.completeWithRetry(ctx, system, user, log)
	if err != nil {
		return w.failure(start, fmt.Errorf("completion: %w", err)), nil
	}

	result, err := w.parseAndValidate(ctx, raw)
	if err != nil {
		log.Warn("agent output failed validation", "error", err.Error())
		return w.failure(start, fmt.Errorf("parse output: %w", err)), nil
	}

	artifacts, err := w.buildArtifacts(ctx, result)
	if err != nil {
		log.Warn("artifact production failed", "error", err.Error())
		return w.failure(start, fmt.Errorf("produce artifacts: %w", err)), nil
	}

	routingHints, err := w.buildRoutingHints(ctx, result)
	if err != nil {
		log.Warn("routing hint generation failed", "error", err.Error())
		return w.failure(start, fmt.Errorf("generate routing hints: %w", err)), nil
	}

	duration := w.Clock.Now().Sub(start)
	return Output{
		AgentID:        w.AgentType,
		Success:        true,
		Result:         result,
		Artifacts:      artifacts,
		RoutingHints:   routingHints,
		Classification: classification,
		Metrics: synthesis.Metrics{
			DurationMs:   duration.Milliseconds(),
			InputTokens:  usage.InputTokens,
			OutputTokens: usage.OutputTokens,
		},
	}, nil
}

// classify runs the optional Classifier hook. A classification failure is
// advisory, not fatal: the dispatch still proceeds, just without an
// updated task classification for the next decision cycle.
func (w *BaseWorker) classify(ctx context.Context, req Request, log orchcore.Logger) string {
	if w.Classifier == nil {
		return ""
	}
	classification, err := w.Classifier.ClassifyInput(ctx, req)
	if err != nil {
		log.Warn("task classification failed", "error", err.Error())
		return ""
	}
	return classification
}

func (w *BaseWorker) completeWithRetry(ctx context.Context, system, user string, log orchcore.Logger) (string, orchcore.TokenUsage, error) {
	maxRetries := w.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		text, usage, err := w.Completion.Complete(ctx, system, []orchcore.Message{{Role: "user", Content: user}}, nil)
		if err == nil {
			return text, usage, nil
		}
		lastErr = err
		if !orchcore.IsRetryable(err) {
			return "", orchcore.TokenUsage{}, err
		}
		log.Warn("retrying completion call", "attempt", attempt+1, "error", err.Error())
	}
	return "", orchcore.TokenUsage{}, orchcore.NewFrameworkError("BaseWorker.completeWithRetry", "transport", fmt.Errorf("%w: %v", orchcore.ErrMaxRetriesExceeded, lastErr))
}

func (w *BaseWorker) parseAndValidate(ctx context.Context, raw string) (interface{}, error) {
	if w.Parser != nil {
		return w.Parser.ParseOutput(ctx, raw)
	}

	candidate := decision.ExtractJSON(raw)
	var generic interface{}
	if err := json.Unmarshal([]byte(candidate), &generic); err != nil {
		return nil, orchcore.NewFrameworkError("BaseWorker.parseAndValidate", "validation", fmt.Errorf("%w: %v", orchcore.ErrValidationFailed, err))
	}

	if w.Schema == "" {
		return validation.CoerceTree(generic), nil
	}

	coerced, schemaErrs, err := validation.CoerceAndValidate(generic, w.Schema)
	if err != nil {
		return nil, err
	}
	if len(schemaErrs) > 0 {
		return nil, orchcore.NewFrameworkError("BaseWorker.parseAndValidate", "validation", fmt.Errorf("%w: %s", orchcore.ErrValidationFailed, validation.FormatSchemaErrors(schemaErrs)))
	}
	return coerced, nil
}

func (w *BaseWorker) buildArtifacts(ctx context.Context, result interface{}) ([]Artifact, error) {
	if w.Artifacts == nil {
		return nil, nil
	}
	artifacts, err := w.Artifacts.ProduceArtifacts(ctx, result)
	if err != nil {
		return nil, err
	}
	for i := range artifacts {
		if artifacts[i].ID == "" {
			artifacts[i].ID = w.IDs.NewID()
		}
		artifacts[i].Path = validation.SanitizePath(artifacts[i].Path)
	}
	return artifacts, nil
}

func (w *BaseWorker) buildRoutingHints(ctx context.Context, result interface{}) (RoutingHints, error) {
	if w.Hints == nil {
		return RoutingHints{}, nil
	}
	hints, err := w.Hints.GenerateRoutingHints(ctx, result)
	if err != nil {
		return RoutingHints{}, err
	}
	// Routing-hint arrays are deduped by canonical agent name (unlike
	// dispatch targets, where duplicates are meaningful parallel work).
	hints.SuggestNext = validation.NormalizeAgentNames(hints.SuggestNext)
	hints.SkipAgents = validation.NormalizeAgentNames(hints.SkipAgents)
	return hints, nil
}

func (w *BaseWorker) failure(start time.Time, err error) Output {
	return Output{
		AgentID: w.AgentType,
		Success: false,
		Errors:  []string{err.Error()},
		Metrics: synthesis.Metrics{DurationMs: w.Clock.Now().Sub(start).Milliseconds()},
		RoutingHints: synthesis.RoutingHints{
			HasFailures: true,
		},
	}
}
