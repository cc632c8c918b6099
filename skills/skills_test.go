package skills

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustRegister(t *testing.T, reg *Registry, s Skill) {
	t.Helper()
	require.NoError(t, reg.Register(s))
}

func TestRegisterRejectsDuplicateID(t *testing.T) {
	reg := NewRegistry()
	mustRegister(t, reg, Skill{ID: "a"})
	err := reg.Register(Skill{ID: "a"})
	require.Error(t, err)
}

func TestRegisterRejectsSelfDependency(t *testing.T) {
	reg := NewRegistry()
	err := reg.Register(Skill{ID: "a", Requires: []string{"a"}})
	require.Error(t, err)
}

func TestRegisterRejectsOverlappingRequiresConflicts(t *testing.T) {
	reg := NewRegistry()
	err := reg.Register(Skill{ID: "a", Requires: []string{"b"}, Conflicts: []string{"b"}})
	require.Error(t, err)
}

func TestRegisterWarnsOnLargeBudgetAndMissingExamples(t *testing.T) {
	reg := NewRegistry()
	mustRegister(t, reg, Skill{ID: "big", TokenBudget: 50000})
	big := make([]byte, complexInstructionThreshold+1)
	for i := range big {
		big[i] = 'x'
	}
	mustRegister(t, reg, Skill{ID: "complex", Instructions: string(big)})

	warnings := reg.Warnings()
	require.Len(t, warnings, 2)
}

func TestSealRejectsFurtherMutation(t *testing.T) {
	reg := NewRegistry()
	mustRegister(t, reg, Skill{ID: "a"})
	require.NoError(t, reg.Seal())

	err := reg.Register(Skill{ID: "b"})
	require.Error(t, err)
	assert.True(t, reg.Sealed())
}

func TestSealDetectsCycle(t *testing.T) {
	reg := NewRegistry()
	mustRegister(t, reg, Skill{ID: "a", Requires: []string{"b"}})
	mustRegister(t, reg, Skill{ID: "b", Requires: []string{"a"}})

	err := reg.Seal()
	require.Error(t, err)
	assert.False(t, reg.Sealed())
}

func TestSelectFiltersByAgentTypeAndCategory(t *testing.T) {
	reg := NewRegistry()
	mustRegister(t, reg, Skill{ID: "sec-1", Category: "security", Priority: PriorityHigh, TokenBudget: 100, ApplicableAgents: []string{"backend_dev"}})
	mustRegister(t, reg, Skill{ID: "ui-1", Category: "ui", Priority: PriorityMedium, TokenBudget: 100, ApplicableAgents: []string{"frontend_dev"}})
	require.NoError(t, reg.Seal())

	sel := Select(reg, Criteria{AgentType: "backend_dev", MaxTokens: 1000})
	ids := idsOf(sel.Skills)
	assert.Contains(t, ids, "sec-1")
	assert.NotContains(t, ids, "ui-1")
}

func TestSelectExpandsDependencyClosure(t *testing.T) {
	reg := NewRegistry()
	mustRegister(t, reg, Skill{ID: "base", Priority: PriorityMedium, TokenBudget: 50})
	mustRegister(t, reg, Skill{ID: "top", Priority: PriorityMedium, TokenBudget: 50, Requires: []string{"base"}})
	require.NoError(t, reg.Seal())

	sel := Select(reg, Criteria{RequiredIDs: []string{"top"}, MaxTokens: 1000})
	ids := idsOf(sel.Skills)
	assert.Contains(t, ids, "base")
	assert.Contains(t, ids, "top")
}

func TestSelectResolvesConflictsByPriority(t *testing.T) {
	reg := NewRegistry()
	mustRegister(t, reg, Skill{ID: "strict", Priority: PriorityHigh, TokenBudget: 50, Conflicts: []string{"lenient"}})
	mustRegister(t, reg, Skill{ID: "lenient", Priority: PriorityLow, TokenBudget: 50, Conflicts: []string{"strict"}})
	require.NoError(t, reg.Seal())

	sel := Select(reg, Criteria{RequiredIDs: []string{"strict", "lenient"}, MaxTokens: 1000})
	ids := idsOf(sel.Skills)
	assert.Contains(t, ids, "strict")
	assert.NotContains(t, ids, "lenient")
}

func TestSelectBudgetExemptsCritical(t *testing.T) {
	reg := NewRegistry()
	mustRegister(t, reg, Skill{ID: "crit", Priority: PriorityCritical, TokenBudget: 900})
	mustRegister(t, reg, Skill{ID: "low", Priority: PriorityLow, TokenBudget: 900})
	require.NoError(t, reg.Seal())

	sel := Select(reg, Criteria{RequiredIDs: []string{"crit", "low"}, MaxTokens: 1000})
	ids := idsOf(sel.Skills)
	assert.Contains(t, ids, "crit")
	assert.NotContains(t, ids, "low")
}

func TestInjectGroupsByCategoryOrder(t *testing.T) {
	sel := Selection{Skills: []Skill{
		{ID: "ui-1", Category: "ui", Instructions: "use semantic HTML"},
		{ID: "sec-1", Category: "security", Instructions: "never log secrets"},
	}}
	out := Inject(sel)
	secIdx := indexOf(out, "### security")
	uiIdx := indexOf(out, "### ui")
	require.NotEqual(t, -1, secIdx)
	require.NotEqual(t, -1, uiIdx)
	assert.Less(t, secIdx, uiIdx)
}

func TestLoadDirectoryParsesAndRegisters(t *testing.T) {
	dir := t.TempDir()
	content := `
id: yaml-skill
category: coding
priority: high
token_budget: 200
instructions: write small functions
applicable_agents: [backend_dev]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "one.yaml"), []byte(content), 0o644))

	reg := NewRegistry()
	errs := LoadDirectory(reg, dir)
	require.Empty(t, errs)

	s, ok := reg.Get("yaml-skill")
	require.True(t, ok)
	assert.Equal(t, PriorityHigh, s.Priority)
}

func TestLoadDirectoryMissingDirIsNotAnError(t *testing.T) {
	reg := NewRegistry()
	errs := LoadDirectory(reg, "/nonexistent/skill/pack/dir")
	assert.Empty(t, errs)
}

func idsOf(skills []Skill) []string {
	out := make([]string, len(skills))
	for i, s := range skills {
		out[i] = s.ID
	}
	return out
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}
