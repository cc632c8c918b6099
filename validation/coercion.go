package validation

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxCoercionDepth bounds the recursive descent into a parsed LLM JSON
// tree so a pathological or adversarial payload cannot cause unbounded
// recursion.
const MaxCoercionDepth = 50

// Field-directed coercion tables. Keys are JSON field names (matched
// case-sensitively, as the LLM is expected to follow the schema's casing);
// the tables are intentionally small and explicit rather than inferred,
// because guessing a field's intended type from its value is exactly the
// kind of silent-failure behavior this package exists to avoid.
var (
	booleanFields = map[string]bool{
		"enabled": true, "visible": true, "required": true, "active": true,
		"isComplete": true, "needsApproval": true, "hasFailures": true,
		"stylesheetApproved": true, "screensApproved": true, "disabled": true,
	}

	colorFields = map[string]bool{
		"primary": true, "secondary": true, "accent": true, "background": true,
		"foreground": true, "color": true, "borderColor": true,
	}

	arrayFields = map[string]bool{
		"suggestNext": true, "skipAgents": true, "targets": true,
		"tags": true, "examples": true, "artifacts": true, "errors": true,
		"rejectedStyles": true, "stylePackages": true, "completedAgents": true,
		"pendingAgents": true, "requires": true, "conflicts": true,
		"applicableAgents": true,
	}

	fontFamilyFields = map[string]bool{
		"fontFamily": true, "typography": true,
	}

	// cssValueFields coerce bare numbers to "Npx" (or "0" for zero).
	cssValueFields = map[string]bool{
		"fontSize": true, "margin": true, "padding": true, "borderRadius": true,
		"borderWidth": true, "gap": true, "width": true, "height": true,
	}

	// unitlessFields keep bare numeric strings even though their name
	// would otherwise match a CSS-value field.
	unitlessFields = map[string]bool{
		"lineHeight": true, "zIndex": true, "opacity": true, "fontWeight": true,
	}
)

// CoerceTree repairs a generically-parsed LLM JSON tree (the output of
// json.Unmarshal into interface{}) by applying the field-directed
// coercions below, recursively, to any depth-bounded object. It never
// errors: fields it doesn't recognize pass through untouched, and fields
// it does recognize are rewritten into forms a strict schema can accept.
func CoerceTree(node interface{}) interface{} {
	return coerce(node, 0)
}

func coerce(node interface{}, depth int) interface{} {
	if depth >= MaxCoercionDepth {
		return node
	}
	switch v := node.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, val := range v {
			out[key] = coerceField(key, val, depth)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = coerce(item, depth+1)
		}
		return out
	default:
		return node
	}
}

func coerceField(key string, val interface{}, depth int) interface{} {
	switch {
	case booleanFields[key]:
		return coerceBool(val)
	case colorFields[key]:
		return coerceColor(val, depth)
	case fontFamilyFields[key]:
		return coerceFontFamily(val)
	case cssValueFields[key] && !unitlessFields[key]:
		return coerceCSSValue(val)
	case arrayFields[key]:
		return coerce(LenientArray(val), depth+1)
	default:
		return coerce(val, depth+1)
	}
}

// coerceBool accepts "true"/"yes"/"1"/true/1 (and false counterparts),
// falling back to the original value when it cannot be interpreted.
func coerceBool(val interface{}) interface{} {
	switch v := val.(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "1":
			return true
		case "false", "no", "0":
			return false
		}
	}
	return val
}

// coerceColor unwraps { primary: "#xxx" } down to "#xxx"; passes a plain
// string through untouched.
func coerceColor(val interface{}, depth int) interface{} {
	switch v := val.(type) {
	case string:
		return v
	case map[string]interface{}:
		if primary, ok := v["primary"]; ok {
			if s, ok := primary.(string); ok {
				return s
			}
		}
		// Not unwrappable: keep coercing its children in case this is a
		// legitimately nested color palette rather than a malformed
		// single-color field.
		return coerce(v, depth+1)
	default:
		return val
	}
}

// coerceFontFamily accepts a string, array, or {heading, body, ...} map
// and emits a comma-joined font stack with a generic fallback.
func coerceFontFamily(val interface{}) interface{} {
	fallback := "sans-serif"

	var names []string
	switch v := val.(type) {
	case string:
		return ensureFontFallback(v, fallback)
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				names = append(names, s)
			}
		}
	case map[string]interface{}:
		for _, key := range []string{"heading", "body", "mono", "display"} {
			if s, ok := v[key].(string); ok && s != "" {
				names = append(names, s)
			}
		}
		if isMonospaceHint(v) {
			fallback = "monospace"
		}
	default:
		return val
	}

	if len(names) == 0 {
		return fallback
	}
	return ensureFontFallback(strings.Join(dedupe(names), ", "), fallback)
}

func isMonospaceHint(v map[string]interface{}) bool {
	if s, ok := v["mono"].(string); ok && s != "" {
		return true
	}
	return false
}

func ensureFontFallback(stack, fallback string) string {
	lower := strings.ToLower(stack)
	if strings.Contains(lower, "sans-serif") || strings.Contains(lower, "monospace") || strings.Contains(lower, "serif") {
		return stack
	}
	return stack + ", " + fallback
}

func dedupe(in []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// coerceCSSValue turns a bare number into an "Npx" string (or "0" for
// zero), leaving strings alone.
func coerceCSSValue(val interface{}) interface{} {
	switch v := val.(type) {
	case float64:
		if v == 0 {
			return "0"
		}
		return formatPx(v)
	case string:
		return v
	default:
		return val
	}
}

func formatPx(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10) + "px"
	}
	return fmt.Sprintf("%gpx", v)
}
