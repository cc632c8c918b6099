package orchcore

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

var configValidator = validator.New()

// AgentBudget configures one agent type's context-retrieval budget: total
// tokens available and the share of that budget allocated to each source.
// Shares need not sum to exactly 1; the context manager renormalizes over
// the sources that are actually active for a given request (spec §4.4.3).
type AgentBudget struct {
	TotalTokens int `validate:"gt=0"`
	Sources     struct {
		Lessons bool
		Code    bool
		History bool
	}
	Allocation struct {
		Lessons float64
		Code    float64
		History float64
	}
}

// DefaultAgentBudget returns the framework-wide default budget used for
// any agent type without an explicit entry in Config.AgentBudgets.
func DefaultAgentBudget() AgentBudget {
	b := AgentBudget{TotalTokens: 4000}
	b.Sources.Lessons = true
	b.Sources.Code = true
	b.Sources.History = false
	b.Allocation.Lessons = 0.5
	b.Allocation.Code = 0.5
	return b
}

// GuardrailConfig configures the guardrail engine (spec §4.3).
type GuardrailConfig struct {
	Enabled       bool
	StrictMode    bool
	LogViolations bool
}

// Config holds every recognised configuration option from spec §6, plus
// the ambient per-agent budget table and guardrail settings. Layered like
// the teacher's core.Config: defaults, then environment variables, then
// functional options (highest priority).
type Config struct {
	MaxIterations      int           `json:"max_iterations" env:"ORCH_MAX_ITERATIONS" default:"20" validate:"gt=0"`
	MaxTokenBudget     int           `json:"max_token_budget" env:"ORCH_MAX_TOKEN_BUDGET" default:"200000" validate:"gt=0"`
	TimeoutMs          int           `json:"timeout_ms" env:"ORCH_TIMEOUT_MS" default:"600000" validate:"gt=0"`
	MaxRetries         int           `json:"max_retries" env:"ORCH_MAX_RETRIES" default:"3" validate:"gte=0"`
	MaxFailuresPerAgent int          `json:"max_failures_per_agent" env:"ORCH_MAX_FAILURES_PER_AGENT" default:"3" validate:"gt=0"`

	Guardrails GuardrailConfig `json:"guardrails"`

	// AgentBudgets maps an agent type (e.g. "analyst", "ui_designer") to
	// its context budget. Agent types not present here use
	// DefaultAgentBudget.
	AgentBudgets map[string]AgentBudget `json:"agent_budgets" validate:"dive"`

	CircuitBreaker CircuitBreakerConfig `json:"circuit_breaker"`

	logger Logger
}

// Option mutates a Config during construction. Applied after defaults and
// environment variables, so options always win.
type Option func(*Config) error

// NewConfig builds a Config from defaults, then environment variables,
// then the supplied options, validating the result.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := DefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, NewFrameworkError("NewConfig", "config", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultConfig returns the documented defaults from spec §6.
func DefaultConfig() *Config {
	return &Config{
		MaxIterations:       20,
		MaxTokenBudget:      200_000,
		TimeoutMs:           600_000,
		MaxRetries:          3,
		MaxFailuresPerAgent: 3,
		Guardrails: GuardrailConfig{
			Enabled:       true,
			StrictMode:    true,
			LogViolations: true,
		},
		AgentBudgets:   map[string]AgentBudget{},
		CircuitBreaker: DefaultCircuitBreakerConfig(),
	}
}

// LoadFromEnv overlays environment variables onto the current values.
// Unset variables leave the existing value untouched.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("ORCH_MAX_ITERATIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return NewFrameworkError("Config.LoadFromEnv", "config", fmt.Errorf("ORCH_MAX_ITERATIONS: %w", err))
		}
		c.MaxIterations = n
	}
	if v := os.Getenv("ORCH_MAX_TOKEN_BUDGET"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return NewFrameworkError("Config.LoadFromEnv", "config", fmt.Errorf("ORCH_MAX_TOKEN_BUDGET: %w", err))
		}
		c.MaxTokenBudget = n
	}
	if v := os.Getenv("ORCH_TIMEOUT_MS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return NewFrameworkError("Config.LoadFromEnv", "config", fmt.Errorf("ORCH_TIMEOUT_MS: %w", err))
		}
		c.TimeoutMs = n
	}
	if v := os.Getenv("ORCH_MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return NewFrameworkError("Config.LoadFromEnv", "config", fmt.Errorf("ORCH_MAX_RETRIES: %w", err))
		}
		c.MaxRetries = n
	}
	if v := os.Getenv("ORCH_MAX_FAILURES_PER_AGENT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return NewFrameworkError("Config.LoadFromEnv", "config", fmt.Errorf("ORCH_MAX_FAILURES_PER_AGENT: %w", err))
		}
		c.MaxFailuresPerAgent = n
	}
	if v := os.Getenv("ORCH_GUARDRAILS_STRICT"); v != "" {
		c.Guardrails.StrictMode = parseBool(v)
	}
	return nil
}

func parseBool(s string) bool {
	switch s {
	case "1", "true", "TRUE", "True", "yes", "on":
		return true
	default:
		return false
	}
}

// Validate enforces internal consistency before the kernel starts. The
// struct-tag pass catches the field-level bounds (spec §6); the allocation
// check below is cross-field and stays hand-written since validator/v10
// has no built-in "shares sum near 1" tag.
func (c *Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return NewFrameworkError("Config.Validate", "config", err)
	}
	for agentType, budget := range c.AgentBudgets {
		sum := budget.Allocation.Lessons + budget.Allocation.Code + budget.Allocation.History
		if sum > 0 && (sum < 0.5 || sum > 1.5) {
			return NewFrameworkError("Config.Validate", "config", fmt.Errorf("agent budget %q: allocation shares sum to %.2f, expected roughly 1.0", agentType, sum))
		}
	}
	return nil
}

// Timeout returns TimeoutMs as a time.Duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// BudgetFor returns the configured AgentBudget for agentType, falling back
// to DefaultAgentBudget when unset.
func (c *Config) BudgetFor(agentType string) AgentBudget {
	if b, ok := c.AgentBudgets[agentType]; ok {
		return b
	}
	return DefaultAgentBudget()
}

// WithMaxIterations sets I5's iteration cap.
func WithMaxIterations(n int) Option {
	return func(c *Config) error {
		c.MaxIterations = n
		return nil
	}
}

// WithMaxTokenBudget sets I4's token budget.
func WithMaxTokenBudget(n int) Option {
	return func(c *Config) error {
		c.MaxTokenBudget = n
		return nil
	}
}

// WithTimeout sets the overall session timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) error {
		c.TimeoutMs = int(d.Milliseconds())
		return nil
	}
}

// WithGuardrails sets the guardrail engine's mode.
func WithGuardrails(enabled, strict, logViolations bool) Option {
	return func(c *Config) error {
		c.Guardrails = GuardrailConfig{Enabled: enabled, StrictMode: strict, LogViolations: logViolations}
		return nil
	}
}

// WithAgentBudget registers a per-agent-type context budget.
func WithAgentBudget(agentType string, budget AgentBudget) Option {
	return func(c *Config) error {
		if c.AgentBudgets == nil {
			c.AgentBudgets = map[string]AgentBudget{}
		}
		c.AgentBudgets[agentType] = budget
		return nil
	}
}

// WithLogger attaches a logger used while loading configuration.
func WithLogger(logger Logger) Option {
	return func(c *Config) error {
		c.logger = logger
		return nil
	}
}
