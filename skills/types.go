// Package skills implements the skill registry and prompt injector (spec
// §4.2): loading skill packs, indexing them by agent/category/tag,
// resolving dependencies, detecting conflicts, enforcing token budgets,
// and formatting the selected set into a prompt fragment.
package skills

// Priority orders skills for greedy budget-constrained selection.
// Critical skills are always included regardless of budget (spec I8).
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// weight orders priorities from highest to lowest for greedy selection.
func (p Priority) weight() int {
	switch p {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	default:
		return 1
	}
}

// Example is one usage example attached to a Skill, optionally inlined
// during injection.
type Example struct {
	Title string
	Body  string
}

// Conditions restrict a Skill to certain technical contexts. An empty
// slice for a field means "no restriction on that dimension".
type Conditions struct {
	Languages   []string
	Frameworks  []string
	ProjectTypes []string
}

// Skill is a reusable instruction block injected into an agent's prompt
// (spec Data Model: Skill). Immutable once the registry is sealed.
type Skill struct {
	ID                string
	Category          string
	Tags              []string
	Priority          Priority
	TokenBudget       int
	Instructions      string
	Examples          []Example
	Requires          []string
	Conflicts         []string
	ApplicableAgents  []string
	Conditions        Conditions
}

// Criteria selects a subset of the registry for one agent/task (spec
// §4.2 "Selection algorithm").
type Criteria struct {
	AgentType   string
	Category    string
	Tags        []string
	Language    string
	Framework   string
	ProjectType string
	RequiredIDs []string
	ExcludeIDs  []string
	MaxTokens   int
}

// ExclusionReason records why a candidate skill was not selected, for
// observability and tests.
type ExclusionReason struct {
	SkillID string
	Reason  string
}

// Selection is the outcome of running the selection algorithm: the chosen
// skills, in the order they should be injected, plus why anything was
// excluded.
type Selection struct {
	Skills     []Skill
	Excluded   []ExclusionReason
	TotalTokens int
}

// categoryOrder fixes the group ordering used by the injector when
// grouping by category (spec §4.2 "Injection").
var categoryOrder = []string{
	"security", "coding", "testing", "compliance", "api", "database",
	"devops", "documentation", "analysis", "ui",
}

func categoryRank(category string) int {
	for i, c := range categoryOrder {
		if c == category {
			return i
		}
	}
	return len(categoryOrder)
}
