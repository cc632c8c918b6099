package synthesis

import (
	"fmt"
	"sort"

	"github.com/fleetforge/orchestrator/orchcore"
	"github.com/fleetforge/orchestrator/validation"
)

// Synthesizer folds AgentOutput batches into a SynthesisResult.
type Synthesizer struct {
	clock  orchcore.Clock
	logger orchcore.Logger
}

// NewSynthesizer builds a Synthesizer. Both dependencies default to their
// framework-wide no-op/system implementations when nil.
func NewSynthesizer(clock orchcore.Clock, logger orchcore.Logger) *Synthesizer {
	if clock == nil {
		clock = orchcore.SystemClock{}
	}
	if logger == nil {
		logger = orchcore.NoOpLogger{}
	}
	return &Synthesizer{clock: clock, logger: logger}
}

// Synthesize runs the full fold described in spec §4.5.
func (s *Synthesizer) Synthesize(outputs []AgentOutput) SynthesisResult {
	result := SynthesisResult{
		GeneratedAt: s.clock.Now(),
	}

	for _, o := range outputs {
		result.Summaries = append(result.Summaries, s.summarise(o))
	}

	result.Conflicts = append(result.Conflicts, s.detectFileConflicts(outputs)...)
	result.Conflicts = append(result.Conflicts, s.detectRoutingConflicts(outputs)...)
	result.NextSteps = s.determineNextSteps(outputs)
	result.CompletionPercent = s.calculateCompletion(outputs)
	result.MergedArtifacts = s.mergeArtifacts(outputs)

	return result
}

// summarise renders one output as a human-readable line.
func (s *Synthesizer) summarise(o AgentOutput) string {
	if !o.Success {
		msg := "unknown error"
		if len(o.Errors) > 0 {
			msg = o.Errors[0]
		}
		return fmt.Sprintf("Failed: %s", msg)
	}
	return fmt.Sprintf("Completed in %dms, %d artifacts, %d tokens",
		o.Metrics.DurationMs, len(o.Artifacts), o.Metrics.InputTokens+o.Metrics.OutputTokens)
}

// detectFileConflicts groups artifacts by sanitised path; any path
// produced by two or more distinct agents is a medium-severity conflict.
func (s *Synthesizer) detectFileConflicts(outputs []AgentOutput) []Conflict {
	producers := map[string]map[string]bool{}
	var order []string

	for _, o := range outputs {
		for _, a := range o.Artifacts {
			path := validation.SanitizePath(a.Path)
			if producers[path] == nil {
				producers[path] = map[string]bool{}
				order = append(order, path)
			}
			producers[path][o.AgentID] = true
		}
	}

	var conflicts []Conflict
	for _, path := range order {
		agents := producers[path]
		if len(agents) < 2 {
			continue
		}
		ids := make([]string, 0, len(agents))
		for id := range agents {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		conflicts = append(conflicts, Conflict{
			Kind:     "file_conflict",
			Severity: SeverityMedium,
			Path:     path,
			AgentIDs: ids,
			Detail:   fmt.Sprintf("%s produced by %d agents", path, len(ids)),
		})
	}
	return conflicts
}

// detectRoutingConflicts emits a low-severity conflict if the union of
// suggestNext across outputs intersects the union of skipAgents.
func (s *Synthesizer) detectRoutingConflicts(outputs []AgentOutput) []Conflict {
	suggested := map[string]bool{}
	skipped := map[string]bool{}
	for _, o := range outputs {
		for _, a := range o.RoutingHints.SuggestNext {
			suggested[a] = true
		}
		for _, a := range o.RoutingHints.SkipAgents {
			skipped[a] = true
		}
	}

	var overlap []string
	for a := range suggested {
		if skipped[a] {
			overlap = append(overlap, a)
		}
	}
	if len(overlap) == 0 {
		return nil
	}
	sort.Strings(overlap)
	return []Conflict{{
		Kind:     "routing_conflict",
		Severity: SeverityLow,
		AgentIDs: overlap,
		Detail:   fmt.Sprintf("suggested and skipped agents overlap: %v", overlap),
	}}
}

// determineNextSteps unions suggestNext across outputs and appends the
// fixed follow-up steps from spec §4.5.
func (s *Synthesizer) determineNextSteps(outputs []AgentOutput) []string {
	seen := map[string]bool{}
	var steps []string

	for _, o := range outputs {
		for _, next := range o.RoutingHints.SuggestNext {
			if !seen[next] {
				seen[next] = true
				steps = append(steps, next)
			}
		}
	}

	if needsApproval(outputs) {
		steps = append(steps, "Obtain user approval")
	}
	if failed := failureCount(outputs); failed > 0 {
		steps = append(steps, fmt.Sprintf("Fix %d failed agent(s)", failed))
	}
	if s.isComplete(outputs) {
		steps = append(steps, "finalize")
	}

	return steps
}

// calculateCompletion weights each output (+1.0 if successful and
// complete, +0.5 if successful but not complete, 0 on failure) and
// returns the rounded percentage.
func (s *Synthesizer) calculateCompletion(outputs []AgentOutput) int {
	if len(outputs) == 0 {
		return 0
	}
	var weight float64
	for _, o := range outputs {
		switch {
		case o.Success && o.RoutingHints.IsComplete:
			weight += 1.0
		case o.Success:
			weight += 0.5
		}
	}
	pct := 100 * weight / float64(len(outputs))
	return int(pct + 0.5)
}

// mergeArtifacts merges artifacts keyed by sanitised path, last write
// wins; Overwritten is set when a later output replaces an earlier one,
// and a warning is logged on overwrite.
func (s *Synthesizer) mergeArtifacts(outputs []AgentOutput) map[string]MergedArtifact {
	merged := map[string]MergedArtifact{}

	for _, o := range outputs {
		for _, a := range o.Artifacts {
			path := validation.SanitizePath(a.Path)
			a.Path = path
			if _, ok := merged[path]; ok {
				s.logger.Warn("artifact overwritten during synthesis", "path", path, "new_agent", o.AgentID)
				merged[path] = MergedArtifact{Artifact: a, Overwritten: true}
				continue
			}
			merged[path] = MergedArtifact{Artifact: a, Overwritten: false}
		}
	}
	return merged
}

// hasBlockingFailures reports whether any output failed.
func (s *Synthesizer) hasBlockingFailures(outputs []AgentOutput) bool {
	return failureCount(outputs) > 0
}

// isComplete reports whether every output signals completion.
func (s *Synthesizer) isComplete(outputs []AgentOutput) bool {
	if len(outputs) == 0 {
		return false
	}
	for _, o := range outputs {
		if !o.RoutingHints.IsComplete {
			return false
		}
	}
	return true
}

// getTotalTokens sums input+output tokens across every output.
func (s *Synthesizer) getTotalTokens(outputs []AgentOutput) int {
	var total int
	for _, o := range outputs {
		total += o.Metrics.InputTokens + o.Metrics.OutputTokens
	}
	return total
}

// getTotalDuration sums the per-output duration in milliseconds.
func (s *Synthesizer) getTotalDuration(outputs []AgentOutput) int64 {
	var total int64
	for _, o := range outputs {
		total += o.Metrics.DurationMs
	}
	return total
}

func needsApproval(outputs []AgentOutput) bool {
	for _, o := range outputs {
		if o.RoutingHints.NeedsApproval {
			return true
		}
	}
	return false
}

func failureCount(outputs []AgentOutput) int {
	var n int
	for _, o := range outputs {
		if !o.Success {
			n++
		}
	}
	return n
}
