package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/fleetforge/orchestrator/decision"
	"github.com/fleetforge/orchestrator/orchcore"
	"github.com/fleetforge/orchestrator/synthesis"
)

const maxUserInputLength = 20000

// Kernel is the orchestration kernel (spec §4.7): the outer loop owning
// session state, iterations, token budget, timeouts, cancellation,
// parallel dispatch, and approval suspension/resumption.
type Kernel struct {
	config     *orchcore.Config
	decider    *decision.Engine
	dispatcher *Dispatcher
	synth      *synthesis.Synthesizer
	clock      orchcore.Clock
	ids        orchcore.IDGenerator
	logger     orchcore.Logger

	allowedAgents map[string]bool

	mu       sync.Mutex
	sessions map[string]*Session

	hist *history
}

// NewKernel wires the decision engine, dispatcher, and synthesiser into
// one kernel. allowedAgents should be the set of agent types registered
// on the dispatcher, plus "orchestrator" for control-signal decisions.
func NewKernel(config *orchcore.Config, decider *decision.Engine, dispatcher *Dispatcher, synth *synthesis.Synthesizer, clock orchcore.Clock, ids orchcore.IDGenerator, logger orchcore.Logger, allowedAgents map[string]bool) *Kernel {
	if clock == nil {
		clock = orchcore.SystemClock{}
	}
	if logger == nil {
		logger = orchcore.NoOpLogger{}
	}
	return &Kernel{
		config:        config,
		decider:       decider,
		dispatcher:    dispatcher,
		synth:         synth,
		clock:         clock,
		ids:           ids,
		logger:        logger.WithField("component", "orchestrator.kernel"),
		allowedAgents: allowedAgents,
		sessions:      map[string]*Session{},
		hist:          newHistory(200),
	}
}

// Orchestrate runs the outer loop from spec §4.7 against a fresh session.
func (k *Kernel) Orchestrate(ctx context.Context, projectID, userInput string, auth orchcore.Auth) (*Result, error) {
	if err := auth.Validate(); err != nil {
		return nil, err
	}
	if userInput == "" || len(userInput) > maxUserInputLength {
		return nil, orchcore.NewFrameworkError("orchestrator.Orchestrate", "validation", fmt.Errorf("%w: user input must be 1..%d characters", orchcore.ErrValidationFailed, maxUserInputLength))
	}

	classification, err := ClassifyTask(ctx, k.decider.Completion(), userInput)
	if err != nil {
		k.logger.Warn("task classification failed, continuing with unknown", "error", err.Error())
		classification = "unknown"
	}

	session := &Session{
		ID:             k.ids.NewID(),
		ProjectID:      projectID,
		Auth:           auth,
		UserInput:      userInput,
		Classification: classification,
		StartedAt:      k.clock.Now(),
		State: SessionState{
			Phase:       decision.PhaseAnalyzing,
			DesignPhase: decision.DesignPhaseResearch,
		},
	}

	k.mu.Lock()
	k.sessions[session.ID] = session
	k.mu.Unlock()

	return k.run(ctx, session)
}

// ResumeOrchestration re-enters the decision loop for a session currently
// paused on an ApprovalRequest (spec §4.7 "Approval suspension").
func (k *Kernel) ResumeOrchestration(ctx context.Context, sessionID string, resp ApprovalResponse) (*Result, error) {
	session, err := k.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	if session.State.Phase != decision.PhasePaused || session.PendingApproval == nil {
		return nil, orchcore.NewFrameworkError("orchestrator.ResumeOrchestration", "state", orchcore.ErrSessionNotPaused)
	}

	applyApprovalResponse(&session.State, session.PendingApproval.Type, resp)
	session.PendingApproval = nil

	return k.run(ctx, session)
}

func (k *Kernel) run(ctx context.Context, session *Session) (*Result, error) {
	maxIterations := k.config.MaxIterations
	timeout := k.config.Timeout()

	// runCtx is cancelled by session.cancel(), so Kernel.Cancel propagates
	// into in-flight dispatcher work (spec §4.7/§5), not just the top of
	// the next loop iteration.
	runCtx := session.ensureContext(ctx)

	for iter := 0; iter < maxIterations; iter++ {
		session.State.IterationCount = iter + 1

		if session.isCancelled() {
			break
		}
		if timeout > 0 && k.clock.Now().Sub(session.StartedAt) > timeout {
			k.logger.Warn("session timed out", "session_id", session.ID)
			break
		}
		if session.TokensUsed >= k.config.MaxTokenBudget {
			k.logger.Info("token budget exhausted, stopping dispatch", "session_id", session.ID, "tokens_used", session.TokensUsed)
			break
		}

		tctx := k.buildThinkingContext(session)
		outcome, err := k.decider.Decide(runCtx, tctx, k.allowedAgents)
		if err != nil {
			session.State.FailureCount++
			k.logger.Warn("decision cycle failed", "error", err.Error())
			if session.State.FailureCount >= k.config.MaxFailuresPerAgent {
				session.State.Phase = decision.PhaseFailed
				break
			}
			continue
		}
		session.TokensUsed += outcome.Usage.Total()

		if outcome.Decision.NextAgent == "orchestrator" {
			switch outcome.ControlSignal {
			case decision.ControlComplete:
				session.State.Phase = decision.PhaseComplete
			case decision.ControlPause:
				session.State.Phase = decision.PhasePaused
			case decision.ControlEscalate, decision.ControlAbort:
				session.State.Phase = decision.PhaseFailed
			}
			if outcome.ControlSignal != decision.ControlNone {
				break
			}
		}

		if outcome.Decision.Action == decision.ActionApproval {
			session.PendingApproval = applyApprovalConfig(outcome.Decision.ApprovalConfig)
			session.State.Phase = decision.PhasePaused
			break
		}

		if outcome.Decision.Action == decision.ActionComplete {
			session.State.Phase = decision.PhaseComplete
			break
		}
		if outcome.Decision.Action == decision.ActionFail {
			session.State.Phase = decision.PhaseFailed
			break
		}
		if outcome.Decision.Action == decision.ActionWait {
			continue
		}

		outputs, blocked, err := k.dispatcher.Execute(runCtx, outcome.Decision, session)
		if err != nil {
			session.State.FailureCount++
			k.logger.Warn("dispatch failed", "error", err.Error())
			if session.State.FailureCount >= k.config.MaxFailuresPerAgent {
				session.State.Phase = decision.PhaseFailed
				break
			}
			continue
		}
		if blocked > 0 {
			session.State.FailureCount += blocked
		}

		anySucceeded := false
		for _, output := range outputs {
			session.Outputs = append(session.Outputs, output)
			session.TokensUsed += output.Metrics.InputTokens + output.Metrics.OutputTokens
			if output.Success {
				anySucceeded = true
				session.State.CompletedAgents = append(session.State.CompletedAgents, output.AgentID)
				if output.Classification != "" {
					session.Classification = output.Classification
				}
				session.State.StylePackages = mergeUnique(session.State.StylePackages, output.RoutingHints.StylePackages)
			}
		}

		if anySucceeded {
			session.State.FailureCount = 0
		} else if len(outputs) > 0 {
			session.State.FailureCount++
			if session.State.FailureCount >= k.config.MaxFailuresPerAgent {
				session.State.Phase = decision.PhaseFailed
				break
			}
		}

		updatePhase(&session.State)
		advanceDesignPhase(&session.State)
	}

	result := k.finalize(session)
	return result, nil
}

func (k *Kernel) finalize(session *Session) *Result {
	synthesized := k.synth.Synthesize(session.Outputs)

	if session.State.Phase != decision.PhasePaused {
		k.hist.add(HistoryEntry{
			SessionID:   session.ID,
			ProjectID:   session.ProjectID,
			TenantID:    session.Auth.TenantID,
			CompletedAt: k.clock.Now(),
			DurationMs:  k.clock.Now().Sub(session.StartedAt).Milliseconds(),
			Synthesis:   synthesized,
		})
	}

	return &Result{
		SessionID:  session.ID,
		Synthesis:  synthesized,
		Approval:   session.PendingApproval,
		FinalState: session.State,
	}
}

func (k *Kernel) buildThinkingContext(session *Session) decision.ThinkingContext {
	lastOutputs := make([]string, 0, len(session.Outputs))
	for _, o := range session.Outputs {
		lastOutputs = append(lastOutputs, o.AgentID)
	}
	return decision.ThinkingContext{
		Prompt:             session.UserInput,
		TaskClassification: session.Classification,
		CompletedAgents:    session.State.CompletedAgents,
		LastOutputs:        lastOutputs,
		StylePackages:      session.State.StylePackages,
		RejectedStyles:     session.State.RejectedStyles,
		SelectedStyleID:    session.State.SelectedStyleID,
		DesignPhase:        session.State.DesignPhase,
		StylesheetApproved: session.State.StylesheetApproved,
		ScreensApproved:    session.State.ScreensApproved,
	}
}

// GetCurrentState returns a snapshot of sessionID's state.
func (k *Kernel) GetCurrentState(sessionID string) (SessionState, error) {
	session, err := k.getSession(sessionID)
	if err != nil {
		return SessionState{}, err
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	return session.State, nil
}

// GetCurrentTokenUsage returns sessionID's accumulated token usage.
func (k *Kernel) GetCurrentTokenUsage(sessionID string) (int, error) {
	session, err := k.getSession(sessionID)
	if err != nil {
		return 0, err
	}
	return session.TokensUsed, nil
}

// Cancel marks sessionID as cancelled; checked at the top of every loop
// iteration and before dispatch (spec §5 "Cancellation").
func (k *Kernel) Cancel(sessionID string) error {
	session, err := k.getSession(sessionID)
	if err != nil {
		return err
	}
	session.cancel()
	return nil
}

// GetExecutionHistory returns the bounded history of completed sessions
// (spec §12 supplemented feature).
func (k *Kernel) GetExecutionHistory() []HistoryEntry {
	return k.hist.all()
}

// GetMetrics summarises the history buffer's latency distribution.
func (k *Kernel) GetMetrics() Metrics {
	return k.hist.metrics()
}

func (k *Kernel) getSession(sessionID string) (*Session, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	session, ok := k.sessions[sessionID]
	if !ok {
		return nil, orchcore.NewFrameworkError("orchestrator.getSession", "state", orchcore.ErrSessionNotFound)
	}
	return session, nil
}
