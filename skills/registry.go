package skills

import (
	"fmt"
	"sort"
	"sync"

	"github.com/fleetforge/orchestrator/orchcore"
)

// RegistrationWarning is a non-fatal concern raised during Register; the
// skill is still accepted (spec §4.2: "large per-skill budgets (>10k) and
// complex skills without examples are warnings").
type RegistrationWarning struct {
	SkillID string
	Message string
}

// maxSaneTokenBudget is the threshold past which a per-skill budget is
// flagged, not rejected.
const maxSaneTokenBudget = 10000

// complexInstructionThreshold is a rough length heuristic: instructions
// longer than this without a worked example are flagged, since agents
// tend to need an example to apply non-trivial guidance correctly.
const complexInstructionThreshold = 800

// Registry indexes a set of Skills by ID, category, tag, and applicable
// agent, and enforces the registration-time invariants from spec §4.2.
// Once Seal is called, all mutating methods fail with
// orchcore.ErrRegistrySealed (spec I7).
type Registry struct {
	mu       sync.RWMutex
	sealed   bool
	byID     map[string]Skill
	order    []string // registration order, for deterministic iteration
	warnings []RegistrationWarning
}

// NewRegistry returns an empty, unsealed Registry.
func NewRegistry() *Registry {
	return &Registry{byID: map[string]Skill{}}
}

// Register adds s to the registry, running the semantic validators named
// in spec §4.2. Duplicate IDs, self-dependency, and a non-empty
// Requires∩Conflicts intersection are hard errors; everything else is
// recorded as a warning and retrievable via Warnings.
func (r *Registry) Register(s Skill) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return orchcore.NewFrameworkError("skills.Register", "registry", orchcore.ErrRegistrySealed)
	}
	if s.ID == "" {
		return fmt.Errorf("skills.Register: skill id must not be empty")
	}
	if _, exists := r.byID[s.ID]; exists {
		return orchcore.NewFrameworkError("skills.Register", "registry", fmt.Errorf("%w: %s", orchcore.ErrDuplicateID, s.ID))
	}
	for _, dep := range s.Requires {
		if dep == s.ID {
			return fmt.Errorf("skills.Register: skill %q requires itself", s.ID)
		}
	}
	if overlap := stringIntersection(s.Requires, s.Conflicts); len(overlap) > 0 {
		return fmt.Errorf("skills.Register: skill %q has overlapping requires/conflicts: %v", s.ID, overlap)
	}

	r.byID[s.ID] = s
	r.order = append(r.order, s.ID)
	r.warnings = append(r.warnings, registrationWarnings(s)...)
	return nil
}

func registrationWarnings(s Skill) []RegistrationWarning {
	var warnings []RegistrationWarning
	if s.TokenBudget > maxSaneTokenBudget {
		warnings = append(warnings, RegistrationWarning{
			SkillID: s.ID,
			Message: fmt.Sprintf("token budget %d exceeds sane ceiling %d", s.TokenBudget, maxSaneTokenBudget),
		})
	}
	if len(s.Instructions) > complexInstructionThreshold && len(s.Examples) == 0 {
		warnings = append(warnings, RegistrationWarning{
			SkillID: s.ID,
			Message: "complex instructions without a worked example",
		})
	}
	return warnings
}

func stringIntersection(a, b []string) []string {
	set := make(map[string]bool, len(a))
	for _, s := range a {
		set[s] = true
	}
	var out []string
	for _, s := range b {
		if set[s] {
			out = append(out, s)
		}
	}
	return out
}

// Seal validates the full dependency graph for cycles and then freezes the
// registry; after Seal, Register always fails. Sealing is expected once,
// after a skill pack has been fully loaded (spec I7).
func (r *Registry) Seal() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return nil
	}
	graph := newDependencyGraph()
	for id, s := range r.byID {
		graph.add(id, s.Requires)
	}
	if err := graph.validateAcyclic(); err != nil {
		return fmt.Errorf("skills.Seal: %w", err)
	}
	r.sealed = true
	return nil
}

// Sealed reports whether Seal has been called.
func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

// Get returns the skill with the given ID.
func (r *Registry) Get(id string) (Skill, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[id]
	return s, ok
}

// All returns every registered skill in registration order.
func (r *Registry) All() []Skill {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Skill, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// Warnings returns every non-fatal registration warning collected so far.
func (r *Registry) Warnings() []RegistrationWarning {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RegistrationWarning, len(r.warnings))
	copy(out, r.warnings)
	return out
}

// dependencyGraphSnapshot builds a read-only dependency graph over the
// currently registered skills, used by the selection algorithm to compute
// closures without re-locking per lookup.
func (r *Registry) dependencyGraphSnapshot() *dependencyGraph {
	r.mu.RLock()
	defer r.mu.RUnlock()
	graph := newDependencyGraph()
	for id, s := range r.byID {
		graph.add(id, s.Requires)
	}
	return graph
}

// sortedIDs is a small helper used by tests and the injector to get a
// deterministic view over a set of skill IDs.
func sortedIDs(ids map[string]bool) []string {
	out := make([]string, 0, len(ids))
	for id := range ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
