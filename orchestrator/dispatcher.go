package orchestrator

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fleetforge/orchestrator/agentrt"
	"github.com/fleetforge/orchestrator/contextmgr"
	"github.com/fleetforge/orchestrator/decision"
	"github.com/fleetforge/orchestrator/guardrail"
	"github.com/fleetforge/orchestrator/orchcore"
	"github.com/fleetforge/orchestrator/skills"
)

// AgentRegistry maps an agent type name to the worker that executes it.
type AgentRegistry map[string]agentrt.Agent

// Dispatcher runs a Decision's target agent(s), injecting retrieved
// context and skill prompts, and screening inputs/outputs through the
// guardrail engine (spec §4.7 "Dispatcher").
type Dispatcher struct {
	agents     AgentRegistry
	contextMgr *contextmgr.Manager
	skillReg   *skills.Registry
	guardrails *guardrail.Engine
	logger     orchcore.Logger

	perAgentTimeout time.Duration
}

// NewDispatcher builds a Dispatcher. guardrails may be nil to disable
// input/output screening (not recommended outside tests).
func NewDispatcher(agents AgentRegistry, contextMgr *contextmgr.Manager, skillReg *skills.Registry, guardrails *guardrail.Engine, logger orchcore.Logger, perAgentTimeout time.Duration) *Dispatcher {
	if logger == nil {
		logger = orchcore.NoOpLogger{}
	}
	return &Dispatcher{agents: agents, contextMgr: contextMgr, skillReg: skillReg, guardrails: guardrails, logger: logger, perAgentTimeout: perAgentTimeout}
}

// dispatchOutcome is one target's result, carrying enough to let Execute
// preserve target-index ordering (spec §5 "Ordering") regardless of
// completion order.
type dispatchOutcome struct {
	output  agentrt.Output
	blocked bool
}

// Execute runs d's target(s) against session, returning outputs that
// passed output guardrails (blocked outputs are recorded in the returned
// blockedCount but never appear in the output slice — spec E2E scenario
// 4: "the output is not added to session.outputs").
func (disp *Dispatcher) Execute(ctx context.Context, d decision.Decision, session *Session) ([]agentrt.Output, int, error) {
	targets := d.Targets
	if len(targets) == 0 && d.NextAgent != "" {
		targets = []decision.DispatchTarget{{AgentID: d.NextAgent}}
	}
	if len(targets) == 0 {
		return nil, 0, nil
	}

	if disp.guardrails != nil {
		if _, err := disp.guardrails.CheckInput(ctx, session.UserInput); err != nil {
			return nil, 0, err
		}
	}

	outcomes := make([]dispatchOutcome, len(targets))
	group, gctx := errgroup.WithContext(ctx)

	for i, target := range targets {
		i, target := i, target
		group.Go(func() error {
			outcome, err := disp.runOne(gctx, target, session)
			if err != nil {
				// A single target's transport/context failure becomes a
				// failed AgentOutput rather than aborting the whole batch,
				// so partial progress in a parallel_dispatch survives (spec
				// §4.7 "On partial failure, successful outputs are
				// retained").
				outcome = dispatchOutcome{output: agentrt.Output{
					AgentID: target.AgentID,
					Success: false,
					Errors:  []string{err.Error()},
				}}
			}
			outcomes[i] = outcome
			return nil
		})
	}
	_ = group.Wait()

	outputs := make([]agentrt.Output, 0, len(outcomes))
	blocked := 0
	for _, o := range outcomes {
		if o.blocked {
			blocked++
			disp.logger.Warn("output guardrail blocked agent result, excluded from session", "agent", o.output.AgentID)
			continue
		}
		outputs = append(outputs, o.output)
	}
	return outputs, blocked, nil
}

func (disp *Dispatcher) runOne(ctx context.Context, target decision.DispatchTarget, session *Session) (dispatchOutcome, error) {
	// Cooperative cancellation: a suspension point checked before any
	// per-target work begins, so Kernel.Cancel takes effect on in-flight
	// parallel_dispatch batches rather than only on the next loop
	// iteration (spec §4.7/§5).
	select {
	case <-ctx.Done():
		return dispatchOutcome{}, ctx.Err()
	default:
	}

	if disp.perAgentTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, disp.perAgentTimeout)
		defer cancel()
	}

	agent, ok := disp.agents[target.AgentID]
	if !ok {
		return dispatchOutcome{output: agentrt.Output{
			AgentID: target.AgentID,
			Success: false,
			Errors:  []string{"no agent registered for target: " + target.AgentID},
		}}, nil
	}

	contextItems, skillPrompt, err := disp.buildPromptInputs(ctx, target.AgentID, session)
	if err != nil {
		return dispatchOutcome{}, err
	}

	req := agentrt.Request{
		AgentType:       target.AgentID,
		TaskAnalysis:    session.UserInput,
		ContextItems:    contextItems,
		SkillPrompt:     skillPrompt,
		PreviousOutputs: session.Outputs,
		Auth:            session.Auth,
		ExecutionID:     target.ExecutionID,
		StyleHint:       target.StyleHint,
	}

	output, err := agent.Execute(ctx, req)
	if err != nil {
		return dispatchOutcome{}, err
	}

	if disp.guardrails != nil && output.Success {
		content, _ := json.Marshal(output.Result)
		if _, err := disp.guardrails.CheckOutput(ctx, string(content)); err != nil {
			return dispatchOutcome{blocked: true, output: output}, nil
		}
	}

	return dispatchOutcome{output: output}, nil
}

func (disp *Dispatcher) buildPromptInputs(ctx context.Context, target string, session *Session) ([]agentrt.ContextItem, string, error) {
	var contextItems []agentrt.ContextItem

	if disp.contextMgr != nil {
		bundle, err := disp.contextMgr.Assemble(ctx, contextmgr.Request{
			Query:     session.UserInput,
			TaskID:    session.ID,
			ProjectID: session.ProjectID,
			AgentType: target,
			TenantID:  session.Auth.TenantID,
			Include:   contextmgr.Sources{Lessons: true, Code: true, History: true},
		})
		if err != nil {
			return nil, "", err
		}
		contextItems = make([]agentrt.ContextItem, len(bundle.Items))
		for i, it := range bundle.Items {
			contextItems[i] = agentrt.ContextItem{Type: it.Source, Content: it.Content, Relevance: it.Score, Tokens: it.Tokens}
		}
	}

	var skillPrompt string
	if disp.skillReg != nil {
		sel := skills.Select(disp.skillReg, skills.Criteria{AgentType: target})
		skillPrompt = skills.Inject(sel)
	}

	return contextItems, skillPrompt, nil
}
