package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizePathStripsTraversal(t *testing.T) {
	assert.Equal(t, "etc/passwd", SanitizePath("../etc/passwd"))
	assert.Equal(t, "etc/passwd", SanitizePath("/etc/passwd"))
	assert.Equal(t, "a/b", SanitizePath(`a\b`))
	assert.Equal(t, "file.txt", SanitizePath("file://file.txt"))
	assert.NotContains(t, SanitizePath("a\x00/../b"), "\x00")
}

func TestSanitizePathIsIdempotent(t *testing.T) {
	p := "../../weird\\path//./x"
	once := SanitizePath(p)
	twice := SanitizePath(once)
	assert.Equal(t, once, twice)
}

func TestLenientEnumFallsBack(t *testing.T) {
	assert.Equal(t, "high", LenientEnum("HIGH", []string{"low", "medium", "high"}, "medium"))
	assert.Equal(t, "high", LenientEnum("  high  ", []string{"low", "medium", "high"}, "medium"))
	assert.Equal(t, "medium", LenientEnum("unknown", []string{"low", "medium", "high"}, "medium"))
}

func TestLenientArrayWrapsSingleton(t *testing.T) {
	assert.Equal(t, []interface{}{}, LenientArray(nil))
	assert.Equal(t, []interface{}{"x"}, LenientArray("x"))
	assert.Equal(t, []interface{}{"x", "y"}, LenientArray([]interface{}{"x", "y"}))
}

func TestLenientID(t *testing.T) {
	assert.Equal(t, "frontend-dev", LenientID("Frontend_Dev"))
	assert.Equal(t, "a-b", LenientID("a   b"))
}

func TestNormalizeAgentNamesDropsUnknown(t *testing.T) {
	out := NormalizeAgentNames([]string{"pm", "frontend_developer", "totally-made-up", "reviewer"})
	assert.Equal(t, []string{"project_manager", "frontend_dev", "reviewer"}, out)
}

func TestCoerceTreeBooleanAndArray(t *testing.T) {
	tree := map[string]interface{}{
		"isComplete": "yes",
		"suggestNext": "architect",
		"nested": map[string]interface{}{
			"enabled": float64(1),
		},
	}
	out := CoerceTree(tree).(map[string]interface{})
	assert.Equal(t, true, out["isComplete"])
	assert.Equal(t, []interface{}{"architect"}, out["suggestNext"])
	nested := out["nested"].(map[string]interface{})
	assert.Equal(t, true, nested["enabled"])
}

func TestCoerceTreeColorUnwrap(t *testing.T) {
	tree := map[string]interface{}{
		"primary": map[string]interface{}{"primary": "#fff"},
	}
	out := CoerceTree(tree).(map[string]interface{})
	assert.Equal(t, "#fff", out["primary"])
}

func TestCoerceTreeFontFamily(t *testing.T) {
	tree := map[string]interface{}{
		"fontFamily": map[string]interface{}{"heading": "Inter", "body": "Georgia"},
	}
	out := CoerceTree(tree).(map[string]interface{})
	assert.Equal(t, "Inter, Georgia, sans-serif", out["fontFamily"])
}

func TestCoerceTreeCSSValueAndUnitless(t *testing.T) {
	tree := map[string]interface{}{
		"fontSize":  float64(16),
		"margin":    float64(0),
		"lineHeight": float64(1.5),
	}
	out := CoerceTree(tree).(map[string]interface{})
	assert.Equal(t, "16px", out["fontSize"])
	assert.Equal(t, "0", out["margin"])
	assert.Equal(t, float64(1.5), out["lineHeight"])
}

func TestCoerceTreeDepthBound(t *testing.T) {
	// Build a structure deeper than MaxCoercionDepth and make sure it
	// doesn't panic or hang.
	var tree interface{} = map[string]interface{}{"isComplete": "yes"}
	for i := 0; i < MaxCoercionDepth+10; i++ {
		tree = map[string]interface{}{"child": tree}
	}
	require.NotPanics(t, func() { CoerceTree(tree) })
}
