package skills

import "strings"

// Inject renders a Selection into a single prompt fragment, grouped by
// category in categoryOrder and formatted similarly to the catalog's
// capability summaries: a heading per category, then one block per skill
// with its instructions and (if present) its first example.
func Inject(sel Selection) string {
	if len(sel.Skills) == 0 {
		return ""
	}

	groups := map[string][]Skill{}
	for _, s := range sel.Skills {
		groups[s.Category] = append(groups[s.Category], s)
	}

	var b strings.Builder
	b.WriteString("## Applicable skills\n\n")

	for _, category := range orderedCategories(groups) {
		b.WriteString("### ")
		b.WriteString(category)
		b.WriteString("\n\n")
		for _, s := range groups[category] {
			writeSkillBlock(&b, s)
		}
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func orderedCategories(groups map[string][]Skill) []string {
	seen := map[string]bool{}
	var cats []string
	for _, c := range categoryOrder {
		if _, ok := groups[c]; ok {
			cats = append(cats, c)
			seen[c] = true
		}
	}
	for c := range groups {
		if !seen[c] {
			cats = append(cats, c)
		}
	}
	return cats
}

func writeSkillBlock(b *strings.Builder, s Skill) {
	b.WriteString("- **")
	b.WriteString(s.ID)
	b.WriteString("**: ")
	b.WriteString(s.Instructions)
	b.WriteString("\n")
	if len(s.Examples) > 0 {
		ex := s.Examples[0]
		b.WriteString("  Example (")
		b.WriteString(ex.Title)
		b.WriteString("): ")
		b.WriteString(ex.Body)
		b.WriteString("\n")
	}
}
