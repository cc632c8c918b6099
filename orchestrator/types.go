// Package orchestrator is the outer orchestration kernel (spec §4.7): it
// owns session state, iterations, token budget, timeouts, cancellation,
// parallel dispatch, and approval suspension/resumption, wiring together
// the decision engine, dispatcher, context manager, skill injector,
// guardrail engine, and synthesiser.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/fleetforge/orchestrator/decision"
	"github.com/fleetforge/orchestrator/orchcore"
	"github.com/fleetforge/orchestrator/synthesis"
)

// SessionState is the mutable progress snapshot for one session (spec
// Data Model: SessionState). Mutated only by the kernel on phase
// transitions.
type SessionState struct {
	Phase              decision.OrchestrationPhase
	CompletedAgents    []string
	PendingAgents      []string
	FailureCount       int
	IterationCount     int
	DesignPhase        decision.DesignPhase
	StylesheetApproved bool
	ScreensApproved    bool
	SelectedStyleID    string
	StyleIteration     int
	RejectedStyles     []string
	StylePackages      []string
}

// ApprovalRequest is emitted when the kernel suspends awaiting an
// out-of-band human decision (spec §4.7 "Approval suspension").
type ApprovalRequest struct {
	Type        string
	Description string
	Options     []string
}

// Session is one orchestration run (spec Data Model: Session). Created on
// Orchestrate, destroyed on terminal state or explicit Cancel.
type Session struct {
	mu sync.Mutex

	ID         string
	ProjectID  string
	Auth       orchcore.Auth
	UserInput  string

	Classification string

	State     SessionState
	Outputs   []synthesis.AgentOutput
	TokensUsed int
	StartedAt time.Time

	PendingApproval *ApprovalRequest

	cancelled bool
	ctx       context.Context
	cancelFn  context.CancelFunc
}

// ensureContext lazily derives a cancellable run context from parent the
// first time it's needed, and returns it. Subsequent calls (e.g. across
// suspend/resume) reuse the same context so a single cancelFn governs
// the whole session's in-flight work (spec §4.7/§5: the cancel token
// must be checked "at each suspension point of the dispatcher").
func (s *Session) ensureContext(parent context.Context) context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx == nil {
		s.ctx, s.cancelFn = context.WithCancel(parent)
	}
	return s.ctx
}

func (s *Session) cancel() {
	s.mu.Lock()
	s.cancelled = true
	s.State.Phase = decision.PhaseFailed
	cancelFn := s.cancelFn
	s.mu.Unlock()
	if cancelFn != nil {
		cancelFn()
	}
}

func (s *Session) isCancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

// Result is what Orchestrate/ResumeOrchestration return: either a
// terminal synthesis, or a pending ApprovalRequest alongside the session
// id needed to resume.
type Result struct {
	SessionID  string
	Synthesis  synthesis.SynthesisResult
	Approval   *ApprovalRequest
	FinalState SessionState
}
