package contextmgr

import "sort"

// lessonScoreThreshold and codeScoreThreshold are the minimum raw
// similarity scores retained from each source (spec §4.4 step 4).
const (
	lessonScoreThreshold = 0.6
	codeScoreThreshold   = 0.5
)

// agentAffinityBonus nudges items whose source the requesting agent type
// is known to lean on more heavily; a small heuristic on top of raw
// similarity, not a replacement for it.
var agentAffinityBonus = map[string]map[string]float64{
	"backend_dev":  {"code": 0.05},
	"frontend_dev": {"code": 0.05},
	"qa_engineer":  {"history": 0.05},
	"architect":    {"lessons": 0.05},
}

// rank orders items by relevance: raw score plus an agent-affinity
// heuristic, descending. Ties break by source (lessons, code, history)
// then by original order for determinism.
func rank(items []Item, agentType string) []Item {
	bonuses := agentAffinityBonus[agentType]

	type scored struct {
		item  Item
		score float64
		idx   int
	}
	scoredItems := make([]scored, len(items))
	for i, it := range items {
		scoredItems[i] = scored{item: it, score: it.Score + bonuses[it.Source], idx: i}
	}

	sort.SliceStable(scoredItems, func(i, j int) bool {
		if scoredItems[i].score != scoredItems[j].score {
			return scoredItems[i].score > scoredItems[j].score
		}
		return scoredItems[i].idx < scoredItems[j].idx
	})

	out := make([]Item, len(scoredItems))
	for i, s := range scoredItems {
		out[i] = s.item
	}
	return out
}

// dedupeCodeByPath keeps only the highest-scoring code item per file
// path, per spec §4.4 step 4 ("Code: ... deduplicate by file path keeping
// the highest-scoring chunk per file").
func dedupeCodeByPath(items []Item) []Item {
	best := map[string]Item{}
	var order []string
	out := make([]Item, 0, len(items))

	for _, it := range items {
		if it.Source != "code" || it.Path == "" {
			out = append(out, it)
			continue
		}
		existing, seen := best[it.Path]
		if !seen || it.Score > existing.Score {
			if !seen {
				order = append(order, it.Path)
			}
			best[it.Path] = it
		}
	}

	for _, path := range order {
		out = append(out, best[path])
	}
	return out
}

// filterByThreshold drops lesson/code items below their source's minimum
// score; history items have no score floor.
func filterByThreshold(items []Item) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		switch it.Source {
		case "lessons":
			if it.Score < lessonScoreThreshold {
				continue
			}
		case "code":
			if it.Score < codeScoreThreshold {
				continue
			}
		}
		out = append(out, it)
	}
	return out
}
