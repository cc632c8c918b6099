// Command orchestrator-demo wires every package in this module into one
// runnable kernel and drives it through a single orchestration cycle,
// mirroring the teacher's core/cmd/example: a small, readable main that
// shows how the pieces fit together rather than a production entrypoint.
package main

import (
	"context"
	"log"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/fleetforge/orchestrator/agentrt"
	"github.com/fleetforge/orchestrator/contextmgr"
	"github.com/fleetforge/orchestrator/decision"
	"github.com/fleetforge/orchestrator/guardrail"
	"github.com/fleetforge/orchestrator/orchcore"
	"github.com/fleetforge/orchestrator/orchestrator"
	"github.com/fleetforge/orchestrator/skills"
	"github.com/fleetforge/orchestrator/synthesis"
)

func main() {
	logger := orchcore.NewDefaultLogger()

	cfg, err := orchcore.NewConfig(
		orchcore.WithMaxIterations(15),
		orchcore.WithMaxTokenBudget(50_000),
		orchcore.WithTimeout(2*time.Minute),
	)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	skillReg := buildSkillRegistry()

	guardrails := guardrail.NewEngine(
		guardrail.Config{Enabled: cfg.Guardrails.Enabled, StrictMode: cfg.Guardrails.StrictMode, LogViolations: cfg.Guardrails.LogViolations},
		logger,
		guardrail.DefaultInputChain(),
		guardrail.DefaultOutputChain(),
	)

	contextMgr := contextmgr.NewManager(cfg, orchcore.NewFakeVectorStore(), orchcore.FakeEmbeddingProvider{}, &orchcore.FakeHistoryProvider{}, nil, logger)
	if l2 := tryRedisL2(); l2 != nil {
		contextMgr = contextMgr.WithL2Cache(l2)
		logger.Info("context bundle L2 cache enabled")
	} else {
		logger.Warn("redis unavailable, running with in-process cache only")
	}

	agents := buildAgents(logger)

	// No real model provider is wired in this module (spec §1 Non-goals:
	// no transport, no SDK); the demo scripts a fixed decision cycle so the
	// kernel's control flow can be exercised end to end without one.
	rawCompletion := &orchcore.FakeCompletionProvider{Responses: []string{
		`{"action": "dispatch", "nextAgent": "analyst", "reasoning": "gathering requirements first"}`,
		`{"action": "dispatch", "nextAgent": "architect", "reasoning": "design follows analysis"}`,
		`{"action": "complete", "nextAgent": "orchestrator", "reasoning": "COMPLETE"}`,
	}}
	// Every outbound completion call goes through a circuit breaker so a
	// wedged model provider fails fast instead of stalling the loop.
	completion := orchestrator.NewBreakerCompletionProvider(rawCompletion, cfg.CircuitBreaker, orchcore.SystemClock{}, 30*time.Second)

	decider := decision.NewEngine(completion, decision.NewPlanCache(200, 60*time.Second), logger)
	dispatcher := orchestrator.NewDispatcher(agents, contextMgr, skillReg, guardrails, logger, 30*time.Second)
	synth := synthesis.NewSynthesizer(orchcore.SystemClock{}, logger)

	allowedAgents := map[string]bool{"analyst": true, "architect": true, "ui_designer": true, "project_manager": true, "orchestrator": true}
	kernel := orchestrator.NewKernel(cfg, decider, dispatcher, synth, orchcore.SystemClock{}, orchcore.NewUUIDGenerator("session"), logger, allowedAgents)

	ctx := context.Background()
	auth := orchcore.Auth{TenantID: "demo-tenant", UserID: "demo-user", SessionID: "demo-session"}

	result, err := kernel.Orchestrate(ctx, "demo-project", "add retry logic to the payment webhook handler", auth)
	if err != nil {
		log.Fatalf("orchestrate: %v", err)
	}

	logger.Info("orchestration finished",
		"session_id", result.SessionID,
		"phase", string(result.FinalState.Phase),
		"completion_percent", result.Synthesis.CompletionPercent,
		"completed_agents", result.FinalState.CompletedAgents)

	for _, summary := range result.Synthesis.Summaries {
		logger.Info("summary", "text", summary)
	}
}

// tryRedisL2 attempts to reach a local Redis instance for the context
// bundle's optional L2 cache, mirroring the teacher's "discovery not
// available, continuing without it" fallback rather than failing startup.
func tryRedisL2() *contextmgr.RedisBundleCache {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379", DialTimeout: 500 * time.Millisecond})
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil
	}
	return contextmgr.NewRedisBundleCache(client, 5*time.Minute, "orchestrator-demo")
}

func buildSkillRegistry() *skills.Registry {
	reg := skills.NewRegistry()
	_ = reg.Register(skills.Skill{
		ID:               "secure-error-handling",
		Category:         "security",
		Priority:         skills.PriorityCritical,
		TokenBudget:      400,
		Instructions:     "Never swallow errors silently; wrap with context and propagate.",
		ApplicableAgents: []string{"analyst", "architect"},
	})
	_ = reg.Register(skills.Skill{
		ID:               "idempotent-webhooks",
		Category:         "coding",
		Priority:         skills.PriorityHigh,
		TokenBudget:      600,
		Instructions:     "Webhook handlers must be safe to retry: dedupe on an idempotency key before side effects.",
		ApplicableAgents: []string{"architect"},
	})
	if err := reg.Seal(); err != nil {
		log.Fatalf("skills: %v", err)
	}
	return reg
}

func buildAgents(logger orchcore.Logger) orchestrator.AgentRegistry {
	stubCompletion := &orchcore.FakeCompletionProvider{
		Responses: []string{`{"summary": "ok", "findings": []}`},
	}
	analyst := newDemoWorker("analyst", stubCompletion, logger)
	analyst.WithClassifier(demoClassifier{})
	return orchestrator.AgentRegistry{
		"analyst":   analyst,
		"architect": newDemoWorker("architect", stubCompletion, logger),
	}
}

func newDemoWorker(agentType string, completion orchcore.CompletionProvider, logger orchcore.Logger) *agentrt.BaseWorker {
	w := agentrt.NewBaseWorker(agentType, completion, demoPromptBuilder{agentType: agentType}, demoOutputParser{}, demoArtifactProducer{}, demoHintGenerator{agentType: agentType})
	w.Logger = logger.WithField("agent_type", agentType)
	return w
}

// demoClassifier exercises the ClassifyInput hook (spec §4.8): a real
// agent would run a small/cheap model here, but the demo just derives a
// classification from the task text so the hook has something to do.
type demoClassifier struct{}

func (demoClassifier) ClassifyInput(_ context.Context, req agentrt.Request) (string, error) {
	if req.TaskAnalysis == "" {
		return "unknown", nil
	}
	return "feature-request", nil
}

type demoPromptBuilder struct{ agentType string }

func (b demoPromptBuilder) BuildPrompt(_ context.Context, req agentrt.Request) (string, string, error) {
	system := "You are the " + b.agentType + " agent. Respond with a JSON object {\"summary\": string, \"findings\": [string]}."
	return system, req.TaskAnalysis, nil
}

type demoOutputParser struct{}

func (demoOutputParser) ParseOutput(_ context.Context, raw string) (interface{}, error) {
	return raw, nil
}

type demoArtifactProducer struct{}

func (demoArtifactProducer) ProduceArtifacts(_ context.Context, _ interface{}) ([]agentrt.Artifact, error) {
	return nil, nil
}

type demoHintGenerator struct{ agentType string }

func (g demoHintGenerator) GenerateRoutingHints(_ context.Context, _ interface{}) (agentrt.RoutingHints, error) {
	if g.agentType == "analyst" {
		// The analyst's research surfaces candidate style packages, which
		// the kernel folds into session state so the phase gate can later
		// permit a style-competition dispatch (spec §4.6 step 3).
		return agentrt.RoutingHints{IsComplete: true, StylePackages: []string{"style-minimal", "style-bold"}}, nil
	}
	return agentrt.RoutingHints{IsComplete: true}, nil
}
