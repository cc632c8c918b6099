package skills

import "sort"

// Select runs the selection algorithm from spec §4.2 against reg:
//  1. filter by ApplicableAgents (criteria.AgentType)
//  2. exclude ExcludeIDs, then filter by Category/Tags/Conditions
//  3. force-add RequiredIDs regardless of the filters above
//  4. expand the dependency closure of everything selected so far
//  5. resolve Requires/Conflicts pairs by Priority.weight(), higher wins
//  6. apply the token budget greedily by priority, exempting critical
//     skills (spec I8: critical skills are never dropped for budget)
func Select(reg *Registry, criteria Criteria) Selection {
	graph := reg.dependencyGraphSnapshot()
	all := reg.All()

	candidates := map[string]bool{}
	excluded := []ExclusionReason{}

	for _, s := range all {
		if criteria.ExcludeIDs != nil && containsString(criteria.ExcludeIDs, s.ID) {
			excluded = append(excluded, ExclusionReason{SkillID: s.ID, Reason: "excluded by id"})
			continue
		}
		if !applies(s, criteria) {
			excluded = append(excluded, ExclusionReason{SkillID: s.ID, Reason: "does not match criteria"})
			continue
		}
		candidates[s.ID] = true
	}

	// Step 3: required IDs are force-added even if they failed the filter
	// above (e.g. a critical security skill that isn't agent-tagged for
	// this agent type but was explicitly requested).
	for _, id := range criteria.RequiredIDs {
		if _, ok := reg.Get(id); ok {
			candidates[id] = true
		}
	}

	// Step 4: dependency closure.
	for _, id := range sortedIDs(candidates) {
		for _, dep := range graph.closure(id) {
			candidates[dep] = true
		}
	}

	// Step 5: conflict resolution. Two candidates that conflict with each
	// other keep only the higher-priority one; ties keep the
	// lexicographically earlier ID for determinism.
	resolved := resolveConflicts(reg, candidates)
	for id := range candidates {
		if !resolved[id] {
			if s, ok := reg.Get(id); ok {
				excluded = append(excluded, ExclusionReason{SkillID: s.ID, Reason: "lost conflict resolution"})
			}
		}
	}

	selected := make([]Skill, 0, len(resolved))
	for _, id := range sortedIDs(resolved) {
		if s, ok := reg.Get(id); ok {
			selected = append(selected, s)
		}
	}

	// Step 6: budget application.
	final, budgetExcluded, total := applyBudget(selected, criteria.MaxTokens)
	excluded = append(excluded, budgetExcluded...)

	sortForInjection(final)

	return Selection{Skills: final, Excluded: excluded, TotalTokens: total}
}

func applies(s Skill, c Criteria) bool {
	if c.AgentType != "" && len(s.ApplicableAgents) > 0 && !containsString(s.ApplicableAgents, c.AgentType) {
		return false
	}
	if c.Category != "" && s.Category != c.Category {
		return false
	}
	if len(c.Tags) > 0 && !anyTagMatches(s.Tags, c.Tags) {
		return false
	}
	if c.Language != "" && len(s.Conditions.Languages) > 0 && !containsString(s.Conditions.Languages, c.Language) {
		return false
	}
	if c.Framework != "" && len(s.Conditions.Frameworks) > 0 && !containsString(s.Conditions.Frameworks, c.Framework) {
		return false
	}
	if c.ProjectType != "" && len(s.Conditions.ProjectTypes) > 0 && !containsString(s.Conditions.ProjectTypes, c.ProjectType) {
		return false
	}
	return true
}

func anyTagMatches(have, want []string) bool {
	for _, w := range want {
		if containsString(have, w) {
			return true
		}
	}
	return false
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

// resolveConflicts drops the lower-priority member of every conflicting
// pair still present in candidates.
func resolveConflicts(reg *Registry, candidates map[string]bool) map[string]bool {
	kept := make(map[string]bool, len(candidates))
	for id := range candidates {
		kept[id] = true
	}

	ids := sortedIDs(candidates)
	for _, idA := range ids {
		if !kept[idA] {
			continue
		}
		skillA, ok := reg.Get(idA)
		if !ok {
			continue
		}
		for _, idB := range skillA.Conflicts {
			if !kept[idB] {
				continue
			}
			skillB, ok := reg.Get(idB)
			if !ok {
				continue
			}
			loser := loserOf(skillA, skillB)
			kept[loser] = false
		}
	}
	return kept
}

func loserOf(a, b Skill) string {
	if a.Priority.weight() > b.Priority.weight() {
		return b.ID
	}
	if b.Priority.weight() > a.Priority.weight() {
		return a.ID
	}
	if a.ID < b.ID {
		return b.ID
	}
	return a.ID
}

// applyBudget greedily keeps skills in priority order (critical first)
// until maxTokens is exhausted. maxTokens <= 0 means unbounded. Critical
// skills are always kept regardless of budget, per spec I8.
func applyBudget(skills []Skill, maxTokens int) (kept []Skill, excluded []ExclusionReason, total int) {
	ordered := make([]Skill, len(skills))
	copy(ordered, skills)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority.weight() > ordered[j].Priority.weight()
	})

	for _, s := range ordered {
		if maxTokens <= 0 || s.Priority == PriorityCritical || total+s.TokenBudget <= maxTokens {
			kept = append(kept, s)
			total += s.TokenBudget
			continue
		}
		excluded = append(excluded, ExclusionReason{SkillID: s.ID, Reason: "token budget exhausted"})
	}
	return kept, excluded, total
}

// sortForInjection orders the final selection by category (per
// categoryOrder) and then priority, matching the grouping the injector
// uses when formatting the prompt fragment.
func sortForInjection(skills []Skill) {
	sort.SliceStable(skills, func(i, j int) bool {
		ri, rj := categoryRank(skills[i].Category), categoryRank(skills[j].Category)
		if ri != rj {
			return ri < rj
		}
		return skills[i].Priority.weight() > skills[j].Priority.weight()
	})
}
