package decision

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/fleetforge/orchestrator/validation"
)

// markdownCodeBlockRegex isolates a fenced ```json ... ``` or ``` ... ```
// block, the most reliable extraction path when present.
var markdownCodeBlockRegex = regexp.MustCompile(`(?s)` + "```" + `(?:json)?\s*([\s\S]*?)\s*` + "```")

// rawDecision is the lenient wire shape the LLM is asked to emit; fields
// accept the loose casing/shape the model tends to produce, repaired by
// validation.CoerceTree before being mapped onto Decision.
type rawDecision struct {
	Reasoning      string                 `json:"reasoning"`
	Action         string                 `json:"action"`
	NextAgent      string                 `json:"nextAgent"`
	Targets        interface{}            `json:"targets"`
	ApprovalConfig map[string]interface{} `json:"approvalConfig"`
	Error          string                 `json:"error"`
}

// ExtractJSON pulls a JSON object out of raw LLM text that may be wrapped
// in markdown fences or preceded by commentary, mirroring the teacher's
// cleanLLMResponse/extractJSON/findJSONStart pipeline.
func ExtractJSON(text string) string {
	text = strings.TrimSpace(text)

	if matches := markdownCodeBlockRegex.FindStringSubmatch(text); len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}

	start := findJSONStart(text)
	if start == -1 {
		return text
	}
	end := findJSONEndStringSafe(text, start)
	if end == -1 {
		return text
	}
	return strings.TrimSpace(text[start:end])
}

func findJSONStart(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] == '{' {
			return i
		}
	}
	return -1
}

// findJSONEndStringSafe finds the matching closing brace for the object
// starting at start, correctly skipping braces inside quoted strings.
func findJSONEndStringSafe(s string, start int) int {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		if c == '\\' && inString {
			escaped = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return -1
}

var validActions = []string{
	string(ActionDispatch), string(ActionParallelDispatch), string(ActionApproval),
	string(ActionWait), string(ActionComplete), string(ActionFail),
}

// Parse runs the full lenient pipeline on raw LLM text: extract JSON,
// unmarshal into interface{}, coerce known fields, then map onto a
// Decision with agent-name normalization applied to nextAgent and to each
// target's agentId (but never deduped — see Decision.Targets).
func Parse(text string) (Decision, error) {
	candidate := ExtractJSON(text)

	// Cheap shape check with gjson before paying for the unmarshal-and-coerce
	// pass below: reject malformed text immediately with a clear message
	// instead of relying on encoding/json's less specific error.
	if !gjson.Valid(candidate) {
		return Decision{}, fmt.Errorf("decision: model response is not valid JSON: %.80q", candidate)
	}

	var generic interface{}
	if err := json.Unmarshal([]byte(candidate), &generic); err != nil {
		return Decision{}, err
	}
	coerced := validation.CoerceTree(generic)

	coercedBytes, err := json.Marshal(coerced)
	if err != nil {
		return Decision{}, err
	}
	var raw rawDecision
	if err := json.Unmarshal(coercedBytes, &raw); err != nil {
		return Decision{}, err
	}

	decision := Decision{
		Reasoning: raw.Reasoning,
		Action:    Action(validation.LenientEnum(raw.Action, validActions, string(ActionWait))),
		NextAgent: raw.NextAgent,
		Targets:   parseDispatchTargets(raw.Targets),
		Error:     raw.Error,
	}
	if decision.NextAgent != "" && decision.NextAgent != "orchestrator" {
		if normalized, ok := validation.NormalizeAgentName(decision.NextAgent); ok {
			decision.NextAgent = normalized
		}
	}

	if raw.ApprovalConfig != nil {
		decision.ApprovalConfig = parseApprovalConfig(raw.ApprovalConfig)
	}

	return decision, nil
}

// parseDispatchTargets reads the wire-format targets array (spec §6:
// [{agentId, priority, executionId?, styleHint?}]) into DispatchTargets.
// Unlike NormalizeAgentNames (used for routing-hint arrays), this never
// dedupes: a parallel_dispatch proposing the same agent type more than
// once — e.g. three ui_designer targets exploring different style
// packages — must reach the dispatcher with all of its targets intact.
func parseDispatchTargets(v interface{}) []DispatchTarget {
	items := validation.LenientArray(v)
	out := make([]DispatchTarget, 0, len(items))
	for _, item := range items {
		target, ok := parseDispatchTarget(item)
		if !ok {
			continue
		}
		out = append(out, target)
	}
	return out
}

// parseDispatchTarget accepts either the full wire object or a bare agent
// name string (some models still emit targets as plain strings despite the
// prompt's schema), normalizing agentId and dropping unrecognized agents.
func parseDispatchTarget(v interface{}) (DispatchTarget, bool) {
	switch t := v.(type) {
	case string:
		agentID, ok := validation.NormalizeAgentName(t)
		if !ok {
			return DispatchTarget{}, false
		}
		return DispatchTarget{AgentID: agentID}, true
	case map[string]interface{}:
		name, _ := t["agentId"].(string)
		agentID, ok := validation.NormalizeAgentName(name)
		if !ok {
			return DispatchTarget{}, false
		}
		target := DispatchTarget{AgentID: agentID}
		if p, ok := t["priority"].(float64); ok {
			target.Priority = int(p)
		}
		if e, ok := t["executionId"].(string); ok {
			target.ExecutionID = e
		}
		if s, ok := t["styleHint"].(string); ok {
			target.StyleHint = s
		}
		return target, true
	default:
		return DispatchTarget{}, false
	}
}

func parseApprovalConfig(m map[string]interface{}) *ApprovalConfig {
	cfg := &ApprovalConfig{}
	if kind, ok := m["kind"].(string); ok {
		cfg.Kind = kind
	}
	for _, o := range validation.LenientArray(m["options"]) {
		if s, ok := o.(string); ok {
			cfg.Options = append(cfg.Options, s)
		}
	}
	if n, ok := m["iterationCount"].(float64); ok {
		cfg.IterationCount = int(n)
	}
	if n, ok := m["maxIterations"].(float64); ok {
		cfg.MaxIterations = int(n)
	}
	return cfg
}

// ParseControlSignal inspects a decision targeting the orchestrator for
// one of the special control keywords embedded in its reasoning string
// (spec §4.6: COMPLETE, PAUSE, ESCALATE, ABORT).
func ParseControlSignal(d Decision) ControlSignal {
	if d.NextAgent != "orchestrator" {
		return ControlNone
	}
	upper := strings.ToUpper(d.Reasoning)
	for _, signal := range []ControlSignal{ControlComplete, ControlPause, ControlEscalate, ControlAbort} {
		if strings.Contains(upper, string(signal)) {
			return signal
		}
	}
	return ControlNone
}
