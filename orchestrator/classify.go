package orchestrator

import (
	"context"
	"encoding/json"

	"github.com/fleetforge/orchestrator/decision"
	"github.com/fleetforge/orchestrator/orchcore"
	"github.com/fleetforge/orchestrator/validation"
)

var classifyAllowed = []string{"feature", "refactor", "bugfix", "design", "infra", "research", "unknown"}

// ClassifyTask makes the one schema-validated LLM call that seeds
// ThinkingContext.TaskClassification for the rest of the run (spec §4.7:
// "classification := ClassifyTask(userInput)").
func ClassifyTask(ctx context.Context, completion orchcore.CompletionProvider, userInput string) (string, error) {
	system := "Classify the user's request into exactly one of: feature, refactor, bugfix, design, infra, research, unknown. " +
		"Respond with a single JSON object: {\"classification\": string}."

	text, _, err := completion.Complete(ctx, system, []orchcore.Message{{Role: "user", Content: userInput}}, nil)
	if err != nil {
		return "unknown", orchcore.NewFrameworkError("orchestrator.ClassifyTask", "transport", err)
	}

	candidate := decision.ExtractJSON(text)
	var raw struct {
		Classification string `json:"classification"`
	}
	if err := json.Unmarshal([]byte(candidate), &raw); err != nil {
		return "unknown", nil
	}
	return validation.LenientEnum(raw.Classification, classifyAllowed, "unknown"), nil
}
