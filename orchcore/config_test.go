package orchcore

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 20, cfg.MaxIterations)
	assert.Equal(t, 200_000, cfg.MaxTokenBudget)
}

func TestConfigValidateRejectsNonPositiveBudget(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxTokenBudget = 0
	assert.Error(t, cfg.Validate())
}

func TestNewConfigAppliesOptionsOverEnv(t *testing.T) {
	t.Setenv("ORCH_MAX_ITERATIONS", "5")
	cfg, err := NewConfig(WithMaxIterations(9))
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.MaxIterations, "explicit option must win over env var")
}

func TestLoadFromEnvRejectsGarbage(t *testing.T) {
	require.NoError(t, os.Setenv("ORCH_MAX_RETRIES", "not-a-number"))
	defer os.Unsetenv("ORCH_MAX_RETRIES")

	cfg := DefaultConfig()
	assert.Error(t, cfg.LoadFromEnv())
}

func TestBudgetForFallsBackToDefault(t *testing.T) {
	cfg := DefaultConfig()
	b := cfg.BudgetFor("unregistered_agent")
	assert.Equal(t, DefaultAgentBudget().TotalTokens, b.TotalTokens)
}
