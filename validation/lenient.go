package validation

import "strings"

// LenientEnum resolves value against the set of allowed options, accepting
// case/whitespace/underscore variants, and falls back to def when nothing
// matches.
func LenientEnum(value string, allowed []string, def string) string {
	normalized := normalizeToken(value)
	for _, opt := range allowed {
		if normalizeToken(opt) == normalized {
			return opt
		}
	}
	return def
}

func normalizeToken(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "_", "")
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, " ", "")
	return s
}

// LenientArray wraps a singleton into a one-element slice, passes arrays
// through, and replaces a nil value with an empty slice. v is expected to
// be the result of a generic JSON unmarshal (nil, []interface{}, or a
// scalar).
func LenientArray(v interface{}) []interface{} {
	if v == nil {
		return []interface{}{}
	}
	if arr, ok := v.([]interface{}); ok {
		return arr
	}
	return []interface{}{v}
}

// LenientID lower-cases and kebab-normalizes an identifier: whitespace and
// underscores become hyphens, and repeated hyphens collapse to one.
func LenientID(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	id = strings.ReplaceAll(id, "_", "-")
	id = strings.ReplaceAll(id, " ", "-")
	for strings.Contains(id, "--") {
		id = strings.ReplaceAll(id, "--", "-")
	}
	return strings.Trim(id, "-")
}

// LenientPath normalizes path separators without ever leaving the
// sandbox; it simply delegates to SanitizePath, which is the single
// source of truth for path safety (spec I6, reused by the synthesiser).
func LenientPath(p string) string {
	return SanitizePath(p)
}

// agentAliases maps human-friendly synonyms an LLM might emit for an agent
// name onto the canonical agent type used for routing. Unknown names are
// dropped by NormalizeAgentNames rather than passed through, since a
// hallucinated agent name must never reach the dispatcher.
var agentAliases = map[string]string{
	"frontenddev":      "frontend_dev",
	"frontenddeveloper": "frontend_dev",
	"backenddev":       "backend_dev",
	"backenddeveloper": "backend_dev",
	"pm":               "project_manager",
	"projectmanager":   "project_manager",
	"uidesigner":       "ui_designer",
	"designer":         "ui_designer",
	"architect":        "architect",
	"analyst":          "analyst",
	"reviewer":         "reviewer",
	"qa":               "reviewer",
	"tester":           "reviewer",
	"orchestrator":     "orchestrator",
}

// canonicalAgentNames is the set of values NormalizeAgentNames may emit.
var canonicalAgentNames = func() map[string]bool {
	set := map[string]bool{}
	for _, v := range agentAliases {
		set[v] = true
	}
	return set
}()

// NormalizeAgentName maps a human-friendly or LLM-emitted agent name to
// its canonical form, returning ("", false) for names this registry does
// not recognize (even after alias resolution) so callers can drop them.
func NormalizeAgentName(name string) (string, bool) {
	key := normalizeToken(name)
	if canonical, ok := agentAliases[key]; ok {
		return canonical, true
	}
	if canonicalAgentNames[normalizeToken(name)] {
		return name, true
	}
	return "", false
}

// NormalizeAgentNames applies NormalizeAgentName to every element of an
// LLM-produced routing-hint array, silently dropping unrecognized names.
// This is used for every routing-hint array (suggestNext, skipAgents)
// parsed from an LLM decision or agent output.
func NormalizeAgentNames(names []string) []string {
	out := make([]string, 0, len(names))
	seen := map[string]bool{}
	for _, n := range names {
		canonical, ok := NormalizeAgentName(n)
		if !ok || seen[canonical] {
			continue
		}
		seen[canonical] = true
		out = append(out, canonical)
	}
	return out
}
