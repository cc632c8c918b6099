package synthesis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetforge/orchestrator/orchcore"
)

func fixedSynth() *Synthesizer {
	return NewSynthesizer(orchcore.NewFixedClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)), nil)
}

func TestSummariseSuccessAndFailure(t *testing.T) {
	s := fixedSynth()
	ok := s.summarise(AgentOutput{Success: true, Artifacts: []Artifact{{}, {}}, Metrics: Metrics{DurationMs: 120, InputTokens: 10, OutputTokens: 5}})
	assert.Equal(t, "Completed in 120ms, 2 artifacts, 15 tokens", ok)

	failed := s.summarise(AgentOutput{Success: false, Errors: []string{"boom"}})
	assert.Equal(t, "Failed: boom", failed)
}

func TestDetectFileConflictsFlagsSharedPath(t *testing.T) {
	s := fixedSynth()
	outputs := []AgentOutput{
		{AgentID: "a", Artifacts: []Artifact{{Path: "../etc/passwd"}}},
		{AgentID: "b", Artifacts: []Artifact{{Path: "/etc/passwd"}}},
	}
	conflicts := s.detectFileConflicts(outputs)
	require.Len(t, conflicts, 1)
	assert.Equal(t, SeverityMedium, conflicts[0].Severity)
	assert.Equal(t, "etc/passwd", conflicts[0].Path)
}

func TestDetectRoutingConflictsFlagsOverlap(t *testing.T) {
	s := fixedSynth()
	outputs := []AgentOutput{
		{RoutingHints: RoutingHints{SuggestNext: []string{"architect"}}},
		{RoutingHints: RoutingHints{SkipAgents: []string{"architect"}}},
	}
	conflicts := s.detectRoutingConflicts(outputs)
	require.Len(t, conflicts, 1)
	assert.Equal(t, SeverityLow, conflicts[0].Severity)
}

func TestDetermineNextStepsAggregatesSignals(t *testing.T) {
	s := fixedSynth()
	outputs := []AgentOutput{
		{Success: true, RoutingHints: RoutingHints{SuggestNext: []string{"architect"}, IsComplete: true}},
		{Success: false, RoutingHints: RoutingHints{NeedsApproval: true, IsComplete: true}},
	}
	steps := s.determineNextSteps(outputs)
	assert.Contains(t, steps, "architect")
	assert.Contains(t, steps, "Obtain user approval")
	assert.Contains(t, steps, "Fix 1 failed agent(s)")
}

func TestCalculateCompletionWeightsOutputs(t *testing.T) {
	s := fixedSynth()
	outputs := []AgentOutput{
		{Success: true, RoutingHints: RoutingHints{IsComplete: true}},
		{Success: true, RoutingHints: RoutingHints{IsComplete: false}},
		{Success: false},
	}
	pct := s.calculateCompletion(outputs)
	assert.Equal(t, 50, pct)
}

func TestMergeArtifactsLastWriteWins(t *testing.T) {
	s := fixedSynth()
	outputs := []AgentOutput{
		{AgentID: "a", Artifacts: []Artifact{{Path: "src/main.go", Content: "v1"}}},
		{AgentID: "b", Artifacts: []Artifact{{Path: "src/main.go", Content: "v2"}}},
	}
	merged := s.mergeArtifacts(outputs)
	require.Contains(t, merged, "src/main.go")
	assert.Equal(t, "v2", merged["src/main.go"].Artifact.Content)
	assert.True(t, merged["src/main.go"].Overwritten)
}

func TestIsCompleteRequiresAllOutputs(t *testing.T) {
	s := fixedSynth()
	assert.False(t, s.isComplete(nil))
	assert.True(t, s.isComplete([]AgentOutput{{RoutingHints: RoutingHints{IsComplete: true}}}))
	assert.False(t, s.isComplete([]AgentOutput{
		{RoutingHints: RoutingHints{IsComplete: true}},
		{RoutingHints: RoutingHints{IsComplete: false}},
	}))
}

func TestGetTotalsSumAcrossOutputs(t *testing.T) {
	s := fixedSynth()
	outputs := []AgentOutput{
		{Metrics: Metrics{DurationMs: 100, InputTokens: 10, OutputTokens: 5}},
		{Metrics: Metrics{DurationMs: 200, InputTokens: 20, OutputTokens: 10}},
	}
	assert.Equal(t, 45, s.getTotalTokens(outputs))
	assert.Equal(t, int64(300), s.getTotalDuration(outputs))
}

func TestSynthesizeEndToEnd(t *testing.T) {
	s := fixedSynth()
	outputs := []AgentOutput{
		{AgentID: "analyst", Success: true, Metrics: Metrics{DurationMs: 50}, RoutingHints: RoutingHints{SuggestNext: []string{"architect"}, IsComplete: true}},
	}
	result := s.Synthesize(outputs)
	require.Len(t, result.Summaries, 1)
	assert.Equal(t, 100, result.CompletionPercent)
	assert.Contains(t, result.NextSteps, "architect")
	assert.Contains(t, result.NextSteps, "finalize")
}
