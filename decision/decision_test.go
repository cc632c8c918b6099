package decision

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetforge/orchestrator/orchcore"
)

func TestExtractJSONStripsMarkdownFence(t *testing.T) {
	text := "Here is the plan:\n```json\n{\"action\": \"dispatch\"}\n```"
	assert.Equal(t, `{"action": "dispatch"}`, ExtractJSON(text))
}

func TestExtractJSONFindsObjectInProse(t *testing.T) {
	text := `Sure thing! {"action": "wait", "reasoning": "need more info"} Hope that helps.`
	got := ExtractJSON(text)
	assert.Equal(t, `{"action": "wait", "reasoning": "need more info"}`, got)
}

func TestParseNormalizesAgentNamesAndEnum(t *testing.T) {
	text := `{"reasoning": "go", "action": "DISPATCH", "nextAgent": "frontenddev", "targets": "frontenddev"}`
	d, err := Parse(text)
	require.NoError(t, err)
	assert.Equal(t, ActionDispatch, d.Action)
	assert.Equal(t, "frontend_dev", d.NextAgent)
	require.Len(t, d.Targets, 1)
	assert.Equal(t, "frontend_dev", d.Targets[0].AgentID)
}

func TestParsePreservesDuplicateTargetsForParallelDispatch(t *testing.T) {
	text := `{"action": "parallel_dispatch", "targets": [
		{"agentId": "ui_designer", "styleHint": "style-1"},
		{"agentId": "ui_designer", "styleHint": "style-2"},
		{"agentId": "ui_designer", "styleHint": "style-3"}
	]}`
	d, err := Parse(text)
	require.NoError(t, err)
	require.Len(t, d.Targets, 3)
	for i, id := range []string{"style-1", "style-2", "style-3"} {
		assert.Equal(t, AgentUIDesigner, d.Targets[i].AgentID)
		assert.Equal(t, id, d.Targets[i].StyleHint)
	}
}

func TestParseDropsUnrecognizedTargetAgent(t *testing.T) {
	text := `{"action": "dispatch", "targets": [{"agentId": "calculator"}]}`
	d, err := Parse(text)
	require.NoError(t, err)
	assert.Empty(t, d.Targets)
}

func TestParseFallsBackOnUnknownAction(t *testing.T) {
	text := `{"action": "whatever"}`
	d, err := Parse(text)
	require.NoError(t, err)
	assert.Equal(t, ActionWait, d.Action)
}

func TestParseControlSignalDetectsComplete(t *testing.T) {
	d := Decision{NextAgent: "orchestrator", Reasoning: "all agents finished, time to COMPLETE"}
	assert.Equal(t, ControlComplete, ParseControlSignal(d))
}

func TestEnforceGatesRewritesUIDesignerWithoutStylePackages(t *testing.T) {
	proposed := Decision{Action: ActionDispatch, NextAgent: AgentUIDesigner, Targets: []DispatchTarget{{AgentID: AgentUIDesigner}}}
	corrected, violation := EnforceGates(proposed, ThinkingContext{})
	require.NotNil(t, violation)
	assert.Equal(t, AgentAnalyst, corrected.NextAgent)
}

func TestEnforceGatesAllowsStyleCompetitionDispatchBeforeApproval(t *testing.T) {
	proposed := Decision{
		Action: ActionParallelDispatch,
		Targets: []DispatchTarget{
			{AgentID: AgentUIDesigner, StyleHint: "style-1"},
			{AgentID: AgentUIDesigner, StyleHint: "style-2"},
			{AgentID: AgentUIDesigner, StyleHint: "style-3"},
		},
	}
	tctx := ThinkingContext{StylePackages: []string{"style-1", "style-2", "style-3"}, StylesheetApproved: false}
	corrected, violation := EnforceGates(proposed, tctx)
	assert.Nil(t, violation)
	require.Len(t, corrected.Targets, 3)
}

func TestEnforceGatesRewritesUIDesignerBeforeStylesheetApproval(t *testing.T) {
	proposed := Decision{Action: ActionDispatch, NextAgent: AgentUIDesigner}
	tctx := ThinkingContext{StylePackages: []string{"pkg-a", "pkg-b"}, StylesheetApproved: false}
	corrected, violation := EnforceGates(proposed, tctx)
	require.NotNil(t, violation)
	assert.Equal(t, ActionApproval, corrected.Action)
	require.NotNil(t, corrected.ApprovalConfig)
	assert.Equal(t, "style_selection", corrected.ApprovalConfig.Kind)
	assert.Equal(t, 5, corrected.ApprovalConfig.MaxIterations)
}

func TestEnforceGatesRewritesProjectManagerBeforeScreenApproval(t *testing.T) {
	proposed := Decision{Action: ActionDispatch, NextAgent: AgentProjectManager}
	corrected, violation := EnforceGates(proposed, ThinkingContext{ScreensApproved: false})
	require.NotNil(t, violation)
	assert.Equal(t, "design_review", corrected.ApprovalConfig.Kind)
}

func TestEnforceGatesAllowsCleanDispatch(t *testing.T) {
	proposed := Decision{Action: ActionDispatch, NextAgent: AgentProjectManager}
	corrected, violation := EnforceGates(proposed, ThinkingContext{ScreensApproved: true})
	assert.Nil(t, violation)
	assert.Equal(t, AgentProjectManager, corrected.NextAgent)
}

func TestFallbackPicksNextUncompletedMandatoryAgent(t *testing.T) {
	d := Fallback([]string{AgentAnalyst})
	assert.Equal(t, AgentArchitect, d.NextAgent)
}

func TestFallbackCompletesWhenAllMandatoryAgentsDone(t *testing.T) {
	d := Fallback([]string{AgentAnalyst, AgentArchitect, AgentUIDesigner, AgentProjectManager})
	assert.Equal(t, ActionComplete, d.Action)
}

func TestValidateAgainstAllowedAgentsCatchesHallucination(t *testing.T) {
	d := Decision{NextAgent: "calculator"}
	allowed := map[string]bool{AgentAnalyst: true}
	assert.Equal(t, "calculator", ValidateAgainstAllowedAgents(d, allowed))
}

func TestValidateAgainstAllowedAgentsSkippedWhenEmpty(t *testing.T) {
	d := Decision{NextAgent: "calculator"}
	assert.Equal(t, "", ValidateAgainstAllowedAgents(d, nil))
}

func TestPlanCacheRoundTrip(t *testing.T) {
	cache := NewPlanCache(10, time.Minute)
	tctx := ThinkingContext{Prompt: "build a todo app"}
	key := CacheKey(tctx)

	_, ok := cache.Get(key)
	assert.False(t, ok)

	cache.Set(key, Decision{Action: ActionDispatch, NextAgent: AgentAnalyst})
	got, ok := cache.Get(key)
	require.True(t, ok)
	assert.Equal(t, AgentAnalyst, got.NextAgent)
}

func TestEngineDecideFallsBackOnUnparseableResponse(t *testing.T) {
	completion := &orchcore.FakeCompletionProvider{Responses: []string{"not json at all"}}
	engine := NewEngine(completion, nil, nil)

	outcome, err := engine.Decide(context.Background(), ThinkingContext{CompletedAgents: []string{}}, nil)
	require.NoError(t, err)
	assert.True(t, outcome.UsedFallback)
	assert.Equal(t, AgentAnalyst, outcome.Decision.NextAgent)
}

func TestEngineDecideRetriesOnHallucinationThenFallsBack(t *testing.T) {
	completion := &orchcore.FakeCompletionProvider{Responses: []string{
		`{"action": "dispatch", "nextAgent": "calculator"}`,
		`{"action": "dispatch", "nextAgent": "calculator"}`,
	}}
	engine := NewEngine(completion, nil, nil)
	allowed := map[string]bool{AgentAnalyst: true}

	outcome, err := engine.Decide(context.Background(), ThinkingContext{}, allowed)
	require.NoError(t, err)
	assert.True(t, outcome.UsedFallback)
	assert.Len(t, completion.Requests, 2)
}

func TestEngineDecideEnforcesGateOnLLMDecision(t *testing.T) {
	completion := &orchcore.FakeCompletionProvider{Responses: []string{
		`{"action": "dispatch", "nextAgent": "ui_designer"}`,
	}}
	engine := NewEngine(completion, nil, nil)

	outcome, err := engine.Decide(context.Background(), ThinkingContext{}, map[string]bool{AgentUIDesigner: true})
	require.NoError(t, err)
	require.NotNil(t, outcome.GateViolation)
	assert.Equal(t, AgentAnalyst, outcome.Decision.NextAgent)
}
