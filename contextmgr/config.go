package contextmgr

import "github.com/fleetforge/orchestrator/orchcore"

// ReservedSystemPromptTokens is subtracted from an agent's total budget
// before allocating to sources, per spec §4.4.
const ReservedSystemPromptTokens = 500

// MinTruncationTokens is the smallest remaining sub-budget worth emitting
// a truncated item for; below this, the item is dropped entirely rather
// than packed as an unreadable fragment.
const MinTruncationTokens = 50

// DefaultCacheTTLSeconds is the bundle cache entry lifetime (spec §4.4
// step 7).
const DefaultCacheTTLSeconds = 300

// activeShares normalises the per-source allocation of budget over only
// the sources active for this request, so the shares sum to 1 regardless
// of how many sources the agent's static config lists.
func activeShares(budget orchcore.AgentBudget, active Sources) (lessons, code, history float64) {
	var total float64
	if active.Lessons {
		total += budget.Allocation.Lessons
	}
	if active.Code {
		total += budget.Allocation.Code
	}
	if active.History {
		total += budget.Allocation.History
	}
	if total <= 0 {
		// No usable allocation data: split evenly over active sources.
		n := 0
		if active.Lessons {
			n++
		}
		if active.Code {
			n++
		}
		if active.History {
			n++
		}
		if n == 0 {
			return 0, 0, 0
		}
		share := 1.0 / float64(n)
		if active.Lessons {
			lessons = share
		}
		if active.Code {
			code = share
		}
		if active.History {
			history = share
		}
		return lessons, code, history
	}

	if active.Lessons {
		lessons = budget.Allocation.Lessons / total
	}
	if active.Code {
		code = budget.Allocation.Code / total
	}
	if active.History {
		history = budget.Allocation.History / total
	}
	return lessons, code, history
}

// effectiveSources narrows req.Include down to the sources that can
// actually be served: code needs a project id, history needs a
// configured provider.
func effectiveSources(req Request, historyConfigured bool) Sources {
	return Sources{
		Lessons: req.Include.Lessons,
		Code:    req.Include.Code && req.ProjectID != "",
		History: req.Include.History && historyConfigured,
	}
}

// availableBudget returns the total budget (reserving system-prompt
// tokens) to allocate across sources for this request.
func availableBudget(req Request, budget orchcore.AgentBudget) int {
	total := budget.TotalTokens
	if req.TokenBudget > 0 {
		total = req.TokenBudget
	}
	available := total - ReservedSystemPromptTokens
	if available < 0 {
		available = 0
	}
	return available
}
